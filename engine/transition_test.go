package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"encorecrm/models"
)

func TestAdvanceFollowUpCommitsStateAndHistory(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	lead := seedLead(t, db, nil)

	tr := NewStateTransitioner(db)
	content := RenderedContent{Subject: "sub", Body: "body", SMS: "short"}
	delivery := DeliveryResult{
		Email: ChannelOutcome{Attempted: true, Sent: true},
		SMS:   ChannelOutcome{Attempted: true, Sent: true},
	}

	require.NoError(t, tr.AdvanceFollowUp(lead, 1, content, delivery, now))

	// The in-memory struct tracks the commit.
	assert.Equal(t, models.StatusFollowUpSent1, lead.Status)
	assert.Equal(t, 1, lead.FollowUpCount)

	var stored models.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, models.StatusFollowUpSent1, stored.Status)
	assert.Equal(t, 1, stored.FollowUpCount)
	require.NotNil(t, stored.LastCommunicationDate)
	assert.True(t, stored.LastCommunicationDate.Equal(now))
	require.NotNil(t, stored.LastEmailSentAt)
	require.NotNil(t, stored.LastSMSSentAt)

	var history []models.CommunicationHistory
	require.NoError(t, db.Where("lead_id = ?", lead.ID).Order("channel ASC").Find(&history).Error)
	require.Len(t, history, 2)
	assert.Equal(t, models.ChannelEmail, history[0].Channel)
	assert.Equal(t, models.DirectionOutbound, history[0].Direction)
	assert.Equal(t, "sub", history[0].Subject)
	assert.Equal(t, models.ChannelSMS, history[1].Channel)
	assert.Equal(t, "short", history[1].Content)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(history[0].Metadata), &meta))
	assert.Equal(t, true, meta["delivered"])
	assert.Equal(t, true, meta["automated"])
	assert.Equal(t, float64(1), meta["sequence_number"])
	assert.NotEmpty(t, meta["message_id"])
}

func TestAdvanceFollowUpRecordsFailedDelivery(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	lead := seedLead(t, db, nil)

	tr := NewStateTransitioner(db)
	delivery := DeliveryResult{
		Email: ChannelOutcome{Attempted: true, Sent: false, Error: "smtp timeout"},
	}

	require.NoError(t, tr.AdvanceFollowUp(lead, 1, RenderedContent{Subject: "s", Body: "b"}, delivery, now))

	// State still advances; the failure lives in the audit entry.
	var stored models.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, 1, stored.FollowUpCount)
	assert.Nil(t, stored.LastSMSSentAt, "sms was never attempted")

	var history models.CommunicationHistory
	require.NoError(t, db.Where("lead_id = ?", lead.ID).First(&history).Error)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(history.Metadata), &meta))
	assert.Equal(t, false, meta["delivered"])
	assert.Equal(t, "smtp timeout", meta["error"])
}

func TestAdvanceFollowUpConcurrentConflict(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	lead := seedLead(t, db, nil)

	// Another run advanced the lead after we selected it.
	require.NoError(t, db.Model(&models.Lead{}).
		Where("id = ?", lead.ID).
		Updates(map[string]interface{}{"follow_up_count": 1, "status": models.StatusFollowUpSent1}).Error)

	tr := NewStateTransitioner(db)
	delivery := DeliveryResult{Email: ChannelOutcome{Attempted: true, Sent: true}}
	err := tr.AdvanceFollowUp(lead, 1, RenderedContent{Subject: "s", Body: "b"}, delivery, now)
	assert.ErrorIs(t, err, ErrLeadConflict)

	// The losing transaction leaves no trace: no history row, no
	// double increment.
	var count int64
	require.NoError(t, db.Model(&models.CommunicationHistory{}).Where("lead_id = ?", lead.ID).Count(&count).Error)
	assert.Zero(t, count)

	var stored models.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, 1, stored.FollowUpCount)
}

func TestAdvanceFollowUpRejectsOutOfRangeStep(t *testing.T) {
	db := newTestDB(t)
	lead := seedLead(t, db, nil)

	tr := NewStateTransitioner(db)
	err := tr.AdvanceFollowUp(lead, 5, RenderedContent{}, DeliveryResult{}, time.Now())
	assert.Error(t, err)
}
