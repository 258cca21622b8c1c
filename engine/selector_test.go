package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"encorecrm/models"
)

func TestEligibleLeadsBasicCriteria(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	eligible := seedLead(t, db, func(l *models.Lead) {
		l.LastCommunicationDate = daysAgo(now, 5)
	})
	// Contacted yesterday, still inside the staleness window.
	seedLead(t, db, func(l *models.Lead) {
		l.DirectorEmail = "fresh@school.edu"
		l.LastCommunicationDate = daysAgo(now, 1)
	})
	// Replied: automation is paused no matter how quiet.
	seedLead(t, db, func(l *models.Lead) {
		l.DirectorEmail = "replied@school.edu"
		l.ReplyDetected = true
		l.LastCommunicationDate = daysAgo(now, 30)
	})
	// Never quoted yet.
	seedLead(t, db, func(l *models.Lead) {
		l.DirectorEmail = "new@school.edu"
		l.Status = models.StatusNewLead
	})

	selector := NewLeadSelector(db, DefaultSelectorConfig())
	leads, err := selector.EligibleLeads(now)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, eligible.ID, leads[0].ID)
}

func TestEligibleLeadsSequenceExhausted(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	// Four follow-ups already sent: the sequence is done even though
	// the lead has been quiet for weeks.
	seedLead(t, db, func(l *models.Lead) {
		l.Status = models.StatusFollowUpSent4
		l.FollowUpCount = 4
		l.LastCommunicationDate = daysAgo(now, 20)
	})

	selector := NewLeadSelector(db, DefaultSelectorConfig())
	leads, err := selector.EligibleLeads(now)
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestEligibleLeadsExcludesNonEngageableStatuses(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	for _, status := range []string{
		models.StatusReplyReceived,
		models.StatusInvoiceSent,
		models.StatusConvertedPaid,
		models.StatusInactive,
	} {
		seedLead(t, db, func(l *models.Lead) {
			l.DirectorEmail = status + "@school.edu"
			l.Status = status
			l.LastCommunicationDate = daysAgo(now, 10)
		})
	}

	selector := NewLeadSelector(db, DefaultSelectorConfig())
	leads, err := selector.EligibleLeads(now)
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestEligibleLeadsOrderedOldestFirst(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	recent := seedLead(t, db, func(l *models.Lead) {
		l.DirectorEmail = "recent@school.edu"
		l.LastCommunicationDate = daysAgo(now, 5)
	})
	oldest := seedLead(t, db, func(l *models.Lead) {
		l.DirectorEmail = "oldest@school.edu"
		l.Status = models.StatusFollowUpSent1
		l.FollowUpCount = 1
		l.LastCommunicationDate = daysAgo(now, 12)
	})

	selector := NewLeadSelector(db, DefaultSelectorConfig())
	leads, err := selector.EligibleLeads(now)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, oldest.ID, leads[0].ID)
	assert.Equal(t, recent.ID, leads[1].ID)
}
