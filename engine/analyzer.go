package engine

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"encorecrm/models"
)

// Analyzer buckets. Thresholds are chosen to stay consistent with the
// selector's own eligibility criteria.
const (
	BucketNew           = "new"
	BucketNeedsFollowUp = "needs-follow-up"
	BucketStale         = "stale"
	BucketConverted     = "converted"
)

// staleAfter is how long a fully-followed-up or unanswered lead can
// sit before we call it stale.
const staleAfter = 14 * 24 * time.Hour

// Recommendation is one dashboard row: a lead, its bucket, and a
// human-readable suggestion for the operator.
type Recommendation struct {
	LeadID         uint   `json:"lead_id"`
	DirectorName   string `json:"director_name"`
	School         string `json:"school"`
	Status         string `json:"status"`
	Bucket         string `json:"bucket"`
	Recommendation string `json:"recommendation"`
}

// LeadAnalyzer produces dashboard recommendations. Strictly
// read-only; it never mutates a lead and is safe to run on demand.
type LeadAnalyzer struct {
	DB     *gorm.DB
	Config SelectorConfig
}

func NewLeadAnalyzer(db *gorm.DB, config SelectorConfig) *LeadAnalyzer {
	return &LeadAnalyzer{DB: db, Config: config}
}

// Analyze classifies every lead and emits a recommendation per lead.
func (a *LeadAnalyzer) Analyze(now time.Time) ([]Recommendation, error) {
	var leads []models.Lead
	if err := a.DB.Order("updated_at DESC").Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("engine: analyzer query failed: %w", err)
	}

	recs := make([]Recommendation, 0, len(leads))
	for i := range leads {
		lead := &leads[i]
		bucket, text := a.classify(lead, now)
		recs = append(recs, Recommendation{
			LeadID:         lead.ID,
			DirectorName:   lead.DirectorName,
			School:         lead.School,
			Status:         lead.Status,
			Bucket:         bucket,
			Recommendation: text,
		})
	}
	return recs, nil
}

func (a *LeadAnalyzer) classify(lead *models.Lead, now time.Time) (string, string) {
	switch {
	case lead.Status == models.StatusConvertedPaid || lead.Status == models.StatusInvoiceSent:
		return BucketConverted, "Converted - no action needed."

	case lead.Status == models.StatusInactive:
		return BucketStale, "Marked inactive. Archive or re-qualify manually."

	case lead.ReplyDetected || lead.Status == models.StatusReplyReceived:
		return BucketNeedsFollowUp, fmt.Sprintf("%s replied - respond personally, automation is paused.", orDefault(lead.DirectorName, "The director"))

	case lead.Status == models.StatusNewLead:
		return BucketNew, "New lead - send the initial quote to start the sequence."

	case lead.FollowUpCount >= a.Config.MaxFollowUps:
		return BucketStale, fmt.Sprintf("All %d automated follow-ups sent with no reply. Consider a personal call or marking inactive.", a.Config.MaxFollowUps)

	case a.quietFor(lead, now) >= staleAfter:
		return BucketStale, fmt.Sprintf("No contact for %d days. The quote has likely gone cold.", int(a.quietFor(lead, now).Hours()/24))

	case a.quietFor(lead, now) >= a.Config.StalenessWindow:
		next := lead.FollowUpCount + 1
		return BucketNeedsFollowUp, fmt.Sprintf("Due for follow-up %d - the next batch run will pick this lead up.", next)

	default:
		return BucketNeedsFollowUp, "Recently contacted - waiting out the staleness window."
	}
}

func (a *LeadAnalyzer) quietFor(lead *models.Lead, now time.Time) time.Duration {
	if lead.LastCommunicationDate == nil {
		return now.Sub(lead.CreatedAt)
	}
	return now.Sub(*lead.LastCommunicationDate)
}
