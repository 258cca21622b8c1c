package engine

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"encorecrm/models"
)

// TemplateMissingError means the next step of the sequence has no
// active template. The lead is skipped for the cycle and stays
// eligible; it is never marked as permanently failed.
type TemplateMissingError struct {
	SequenceNumber int
}

func (e *TemplateMissingError) Error() string {
	return fmt.Sprintf("engine: no active template for sequence number %d", e.SequenceNumber)
}

// SequenceResolver maps a lead's follow-up count to the next template.
type SequenceResolver struct {
	DB *gorm.DB
}

func NewSequenceResolver(db *gorm.DB) *SequenceResolver {
	return &SequenceResolver{DB: db}
}

// NextTemplate returns the active template for the lead's next
// follow-up along with the step number it represents.
func (r *SequenceResolver) NextTemplate(lead *models.Lead) (*models.FollowUpTemplate, int, error) {
	next := lead.FollowUpCount + 1

	var tpl models.FollowUpTemplate
	err := r.DB.
		Where("sequence_number = ? AND is_active = ?", next, true).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, next, &TemplateMissingError{SequenceNumber: next}
		}
		return nil, next, fmt.Errorf("engine: template lookup failed: %w", err)
	}
	return &tpl, next, nil
}
