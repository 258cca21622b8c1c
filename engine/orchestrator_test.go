package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"encorecrm/ai"
	"encorecrm/models"
)

var testBatchTime = time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, db *gorm.DB, generator *ai.TieredGenerator) (*Orchestrator, *fakeEmailSender, *fakeSMSSender) {
	t.Helper()
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	o := NewOrchestrator(db, newTestDelivery(email, sms), generator, discardLogger())
	o.Clock = func() time.Time { return testBatchTime }
	return o, email, sms
}

// newEngineTestGenerator points every adapter at the given test server
// and strips real sleeping out of the retry loop.
func newEngineTestGenerator(srvURL string, adapterCalls *int) *ai.TieredGenerator {
	noSleep := func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	g := ai.NewTieredGenerator(ai.Credentials{ai.ProviderGemini: "key"}, discardLogger())
	g.Executor.Sleep = noSleep
	g.Sleep = noSleep
	g.NewAdapter = func(p ai.Provider, apiKey string) (ai.Adapter, error) {
		if adapterCalls != nil {
			*adapterCalls++
		}
		return &ai.GeminiAdapter{APIKey: apiKey, BaseURL: srvURL}, nil
	}
	return g
}

func geminiResponse(content interface{}) string {
	inner, _ := json.Marshal(content)
	outer, _ := json.Marshal(map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{
				"content": map[string]interface{}{
					"parts": []interface{}{map[string]string{"text": string(inner)}},
				},
			},
		},
	})
	return string(outer)
}

func enableAI(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Model(&models.AISettings{}).
		Where("1 = 1").
		Update("enabled", true).Error)
}

func TestRunAdvancesEligibleLead(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDefaults(db))
	lead := seedLead(t, db, func(l *models.Lead) {
		l.LastCommunicationDate = daysAgo(testBatchTime, 5)
	})

	o, email, sms := newTestOrchestrator(t, db, nil)
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Processed)
	require.Len(t, result.Results, 1)

	lr := result.Results[0]
	assert.True(t, lr.Success)
	assert.Equal(t, lead.ID, lr.LeadID)
	assert.Equal(t, models.StatusFollowUpSent1, lr.Status)
	assert.Equal(t, 1, lr.FollowUp)
	assert.True(t, lr.EmailSent)
	assert.True(t, lr.SMSSent)
	assert.Empty(t, lr.ProviderUsed, "no generator wired")

	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0].Subject, "Into the Woods")
	require.Len(t, sms.sent, 1)

	var stored models.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, 1, stored.FollowUpCount)

	var history int64
	require.NoError(t, db.Model(&models.CommunicationHistory{}).Where("lead_id = ?", lead.ID).Count(&history).Error)
	assert.Equal(t, int64(2), history)
}

func TestRunEmptySelection(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDefaults(db))

	o, email, _ := newTestOrchestrator(t, db, nil)
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Zero(t, result.Processed)
	assert.Empty(t, email.sent)
}

func TestRunSkipsLeadOnTemplateGap(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDefaults(db))
	require.NoError(t, db.Model(&models.FollowUpTemplate{}).
		Where("sequence_number = ?", 2).
		Update("is_active", false).Error)

	lead := seedLead(t, db, func(l *models.Lead) {
		l.Status = models.StatusFollowUpSent1
		l.FollowUpCount = 1
		l.LastCommunicationDate = daysAgo(testBatchTime, 5)
	})

	o, email, _ := newTestOrchestrator(t, db, nil)
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	lr := result.Results[0]
	assert.False(t, lr.Success)
	assert.Contains(t, lr.Error, "no active template")
	assert.Empty(t, email.sent, "nothing is sent when the sequence has a gap")

	// The lead is untouched and stays eligible for a future run.
	var stored models.Lead
	require.NoError(t, db.First(&stored, lead.ID).Error)
	assert.Equal(t, 1, stored.FollowUpCount)
	assert.Equal(t, models.StatusFollowUpSent1, stored.Status)
}

func TestRunContinuesPastFailingLead(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDefaults(db))
	require.NoError(t, db.Model(&models.FollowUpTemplate{}).
		Where("sequence_number = ?", 3).
		Update("is_active", false).Error)

	// Oldest lead hits the gap at step 3; the younger one is fine.
	seedLead(t, db, func(l *models.Lead) {
		l.DirectorEmail = "stuck@school.edu"
		l.Status = models.StatusFollowUpSent2
		l.FollowUpCount = 2
		l.LastCommunicationDate = daysAgo(testBatchTime, 10)
	})
	healthy := seedLead(t, db, func(l *models.Lead) {
		l.DirectorEmail = "healthy@school.edu"
		l.LastCommunicationDate = daysAgo(testBatchTime, 5)
	})

	o, _, _ := newTestOrchestrator(t, db, nil)
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.False(t, result.Results[0].Success)
	assert.True(t, result.Results[1].Success)
	assert.Equal(t, healthy.ID, result.Results[1].LeadID)
}

func TestRunHonoursCancellationBetweenLeads(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDefaults(db))
	for _, email := range []string{"a@school.edu", "b@school.edu", "c@school.edu"} {
		addr := email
		seedLead(t, db, func(l *models.Lead) {
			l.DirectorEmail = addr
			l.LastCommunicationDate = daysAgo(testBatchTime, 5)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	o, _, _ := newTestOrchestrator(t, db, nil)
	o.Progress = func(LeadResult) { cancel() }

	result, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed, "remaining leads wait for the next cycle")
}

func TestRunPersonalizesThroughAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, geminiResponse(map[string]string{
			"subject": "A note about Into the Woods",
			"body":    "Personalized body",
			"sms":     "Personalized sms",
		}))
	}))
	defer srv.Close()

	db := newTestDB(t)
	require.NoError(t, models.SeedDefaults(db))
	enableAI(t, db)
	seedLead(t, db, func(l *models.Lead) {
		l.LastCommunicationDate = daysAgo(testBatchTime, 5)
	})

	o, email, sms := newTestOrchestrator(t, db, newEngineTestGenerator(srv.URL, nil))
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	lr := result.Results[0]
	assert.True(t, lr.Success)
	assert.Equal(t, "GEMINI", lr.ProviderUsed)
	assert.Equal(t, 1, lr.AIAttempts)

	require.Len(t, email.sent, 1)
	assert.Equal(t, "A note about Into the Woods", email.sent[0].Subject)
	assert.Equal(t, "Personalized body", email.sent[0].Content)
	require.Len(t, sms.sent, 1)
	assert.Equal(t, "Personalized sms", sms.sent[0].Message)
}

func TestRunFallsBackToTemplateWhenAIFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	db := newTestDB(t)
	require.NoError(t, models.SeedDefaults(db))
	enableAI(t, db)
	seedLead(t, db, func(l *models.Lead) {
		l.LastCommunicationDate = daysAgo(testBatchTime, 5)
	})

	o, email, _ := newTestOrchestrator(t, db, newEngineTestGenerator(srv.URL, nil))
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	lr := result.Results[0]
	assert.True(t, lr.Success, "the follow-up goes out on the template content")
	assert.Empty(t, lr.ProviderUsed)
	assert.Contains(t, lr.AIFallback, "exhausted", "result records why template content was used")

	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0].Subject, "Into the Woods", "template content survives the AI failure")
}

func TestRunKillSwitchSkipsAIEntirely(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, models.SeedDefaults(db)) // ships with AI disabled
	seedLead(t, db, func(l *models.Lead) {
		l.LastCommunicationDate = daysAgo(testBatchTime, 5)
	})

	var adapterCalls int
	o, email, _ := newTestOrchestrator(t, db, newEngineTestGenerator("http://unused.invalid", &adapterCalls))
	result, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Results[0].Success)
	assert.Empty(t, result.Results[0].AIFallback, "a deliberate off switch is not a failure")
	assert.Zero(t, adapterCalls, "disabled settings never reach a provider")
	require.Len(t, email.sent, 1)
}

func TestLoadAISettings(t *testing.T) {
	db := newTestDB(t)

	// No row yet: reported as unconfigured via nil.
	settings, err := LoadAISettings(db)
	require.NoError(t, err)
	assert.Nil(t, settings)

	require.NoError(t, db.Create(&models.AISettings{
		Enabled:              true,
		PrimaryModelProvider: "GEMINI",
		FallbackOpenAI:       true,
	}).Error)

	settings, err = LoadAISettings(db)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.True(t, settings.Enabled)
	assert.Equal(t, ai.ProviderGemini, settings.PrimaryProvider)
	assert.True(t, settings.FallbackOpenAI)
	assert.False(t, settings.FallbackDeepSeek)
}
