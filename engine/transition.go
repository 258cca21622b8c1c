package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"encorecrm/models"
)

// ErrLeadConflict means another batch advanced the lead between our
// read and our write. The update is abandoned; nothing was sent twice
// by us, and the lead will be reconsidered next cycle.
var ErrLeadConflict = errors.New("engine: lead follow-up count changed concurrently")

// StateTransitioner commits the new lead state and audit entries in a
// single transaction, guarded by the follow-up count we observed when
// the lead was selected. Either everything lands or nothing does.
type StateTransitioner struct {
	DB *gorm.DB
}

func NewStateTransitioner(db *gorm.DB) *StateTransitioner {
	return &StateTransitioner{DB: db}
}

// AdvanceFollowUp moves the lead to Follow-up Sent n and appends one
// CommunicationHistory entry per attempted channel. State advances
// regardless of per-channel delivery outcome; the outcome is recorded
// in the entry metadata.
func (t *StateTransitioner) AdvanceFollowUp(lead *models.Lead, n int, content RenderedContent, delivery DeliveryResult, now time.Time) error {
	status := models.FollowUpStatus(n)
	if status == "" {
		return fmt.Errorf("engine: follow-up %d is outside the sequence", n)
	}

	return t.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":                  status,
			"follow_up_count":         n,
			"last_communication_date": now,
		}
		if delivery.Email.Attempted {
			updates["last_email_sent_at"] = now
		}
		if delivery.SMS.Attempted {
			updates["last_sms_sent_at"] = now
		}

		res := tx.Model(&models.Lead{}).
			Where("id = ? AND follow_up_count = ?", lead.ID, lead.FollowUpCount).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("engine: lead update failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrLeadConflict
		}

		if delivery.Email.Attempted {
			entry, err := historyEntry(lead.ID, models.ChannelEmail, content.Subject, content.Body, delivery.Email, n, now)
			if err != nil {
				return err
			}
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("engine: communication log insert failed: %w", err)
			}
		}
		if delivery.SMS.Attempted {
			entry, err := historyEntry(lead.ID, models.ChannelSMS, "", content.SMS, delivery.SMS, n, now)
			if err != nil {
				return err
			}
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("engine: communication log insert failed: %w", err)
			}
		}

		lead.Status = status
		lead.FollowUpCount = n
		lead.LastCommunicationDate = &now
		return nil
	})
}

func historyEntry(leadID uint, channel, subject, body string, outcome ChannelOutcome, sequence int, now time.Time) (*models.CommunicationHistory, error) {
	meta, err := json.Marshal(map[string]interface{}{
		"message_id":      uuid.New().String(),
		"sequence_number": sequence,
		"delivered":       outcome.Sent,
		"error":           outcome.Error,
		"automated":       true,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: encoding history metadata: %w", err)
	}

	return &models.CommunicationHistory{
		LeadID:    leadID,
		Channel:   channel,
		Direction: models.DirectionOutbound,
		Subject:   subject,
		Content:   body,
		SentAt:    now,
		Metadata:  string(meta),
	}, nil
}
