package engine

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"encorecrm/models"
)

// Selection defaults: a lead becomes eligible for the next follow-up
// four days after the last touch, up to four follow-ups total.
const (
	DefaultStalenessWindow = 4 * 24 * time.Hour
)

// SelectorConfig tunes lead eligibility.
type SelectorConfig struct {
	StalenessWindow time.Duration
	MaxFollowUps    int
}

func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		StalenessWindow: DefaultStalenessWindow,
		MaxFollowUps:    models.MaxFollowUps,
	}
}

// LeadSelector finds leads due for the next automated follow-up. It is
// read-only and safe to call repeatedly.
type LeadSelector struct {
	DB     *gorm.DB
	Config SelectorConfig
}

func NewLeadSelector(db *gorm.DB, config SelectorConfig) *LeadSelector {
	return &LeadSelector{DB: db, Config: config}
}

// EligibleLeads returns every lead that has not replied, sits in an
// engageable status, went quiet for longer than the staleness window,
// and still has follow-ups left in the sequence.
func (s *LeadSelector) EligibleLeads(now time.Time) ([]models.Lead, error) {
	cutoff := now.Add(-s.Config.StalenessWindow)

	var leads []models.Lead
	err := s.DB.
		Where("reply_detected = ?", false).
		Where("status IN ?", models.EngageableStatuses()).
		Where("last_communication_date < ?", cutoff).
		Where("follow_up_count < ?", s.Config.MaxFollowUps).
		Order("last_communication_date ASC").
		Find(&leads).Error
	if err != nil {
		return nil, fmt.Errorf("engine: lead selection query failed: %w", err)
	}
	return leads, nil
}
