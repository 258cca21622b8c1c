package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"encorecrm/ai"
	"encorecrm/models"
)

// LeadResult is the per-lead outcome of one batch run.
type LeadResult struct {
	LeadID       uint   `json:"lead_id"`
	Email        string `json:"email"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	Status       string `json:"status,omitempty"`
	FollowUp     int    `json:"follow_up,omitempty"`
	EmailSent    bool   `json:"email_sent"`
	SMSSent      bool   `json:"sms_sent"`
	ProviderUsed string `json:"provider_used,omitempty"`
	AIAttempts   int    `json:"ai_attempts,omitempty"`

	// AIFallback carries the reason template content was used after a
	// failed generation attempt. Empty when AI succeeded or was never
	// attempted (disabled or unconfigured).
	AIFallback string `json:"ai_fallback,omitempty"`
}

// BatchResult aggregates one engagement run. Success refers to the
// batch itself: it is true whenever the selection query worked, even
// when individual leads failed.
type BatchResult struct {
	Success   bool         `json:"success"`
	Processed int          `json:"processed"`
	Results   []LeadResult `json:"results"`
}

// Orchestrator is the top-level batch driver for automated
// engagement. Leads are processed sequentially on purpose: fanning
// out would burst the same AI providers and trip correlated rate
// limits across leads.
type Orchestrator struct {
	DB          *gorm.DB
	Selector    *LeadSelector
	Sequences   *SequenceResolver
	Delivery    *DeliveryCoordinator
	Transitions *StateTransitioner
	Generator   *ai.TieredGenerator
	Logger      *logrus.Entry

	// Clock is swappable for tests. Nil means time.Now.
	Clock func() time.Time

	// Progress, when set, is invoked after each lead.
	Progress func(LeadResult)
}

func NewOrchestrator(db *gorm.DB, delivery *DeliveryCoordinator, generator *ai.TieredGenerator, logger *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		DB:          db,
		Selector:    NewLeadSelector(db, DefaultSelectorConfig()),
		Sequences:   NewSequenceResolver(db),
		Delivery:    delivery,
		Transitions: NewStateTransitioner(db),
		Generator:   generator,
		Logger:      logger,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now()
}

// Run executes one engagement batch. A selection failure is fatal to
// the whole run; any error on a single lead is recorded in that
// lead's result and processing moves on. Cancellation is honoured
// between leads, never mid-lead.
func (o *Orchestrator) Run(ctx context.Context) (*BatchResult, error) {
	now := o.now()

	leads, err := o.Selector.EligibleLeads(now)
	if err != nil {
		return nil, err
	}

	o.Logger.WithField("eligible", len(leads)).Info("engagement batch started")

	result := &BatchResult{Success: true, Results: make([]LeadResult, 0, len(leads))}
	for i := range leads {
		if ctx.Err() != nil {
			o.Logger.WithField("remaining", len(leads)-i).Warn("engagement batch cancelled")
			break
		}

		lr := o.processLead(ctx, &leads[i], now)
		result.Results = append(result.Results, lr)
		result.Processed++
		if o.Progress != nil {
			o.Progress(lr)
		}
	}

	o.Logger.WithField("processed", result.Processed).Info("engagement batch finished")
	return result, nil
}

// processLead runs the full pipeline for one lead: resolve the next
// template, render it, optionally let the AI personalize it, deliver
// on both channels, and commit the state transition.
func (o *Orchestrator) processLead(ctx context.Context, lead *models.Lead, now time.Time) LeadResult {
	lr := LeadResult{LeadID: lead.ID, Email: lead.DirectorEmail}

	tpl, next, err := o.Sequences.NextTemplate(lead)
	if err != nil {
		// A sequence gap skips the lead with no state change; it
		// stays eligible for a future cycle once the gap is filled.
		lr.Error = err.Error()
		o.Logger.WithField("lead_id", lead.ID).WithError(err).Warn("lead skipped")
		return lr
	}

	content := RenderFollowUp(tpl, lead)
	lr.ProviderUsed, lr.AIAttempts, lr.AIFallback = o.personalize(ctx, lead, next, &content)

	delivery := o.Delivery.Deliver(ctx, lead, content, "follow_up")
	lr.EmailSent = delivery.Email.Sent
	lr.SMSSent = delivery.SMS.Sent

	if err := o.Transitions.AdvanceFollowUp(lead, next, content, delivery, now); err != nil {
		lr.Error = err.Error()
		if errors.Is(err, ErrLeadConflict) {
			o.Logger.WithField("lead_id", lead.ID).Warn("lead advanced by a concurrent run, skipping")
		} else {
			o.Logger.WithField("lead_id", lead.ID).WithError(err).Error("state transition failed")
		}
		return lr
	}

	lr.Success = true
	lr.Status = lead.Status
	lr.FollowUp = lead.FollowUpCount
	if !delivery.Email.Sent {
		// State advanced but the email did not go out; surface it.
		lr.Error = fmt.Sprintf("email delivery failed: %s", delivery.Email.Error)
	}
	return lr
}

// personalize rewrites the rendered template through the tiered
// generator when AI generation is enabled. Any AI failure, the kill
// switch included, falls back to the plain rendered template — the
// follow-up must go out either way. Actual generation failures are
// returned as the fallback reason so the batch result shows them; a
// deliberately disabled or unconfigured switch is not a failure.
func (o *Orchestrator) personalize(ctx context.Context, lead *models.Lead, sequence int, content *RenderedContent) (provider string, attempts int, fallbackReason string) {
	if o.Generator == nil {
		return "", 0, ""
	}

	settings, err := LoadAISettings(o.DB)
	if err != nil {
		o.Logger.WithError(err).Warn("ai settings unavailable, using template content")
		return "", 0, err.Error()
	}

	prompt := BuildFollowUpPrompt(lead, sequence, *content)
	var generated FollowUpContent
	res, err := o.Generator.Generate(ctx, settings, prompt, ai.Options{Temperature: 0.7, MaxTokens: 1024}, &generated)
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) || errors.Is(err, ai.ErrNotConfigured) {
			return "", 0, ""
		}
		o.Logger.WithField("lead_id", lead.ID).WithError(err).Warn("ai generation failed, using template content")
		return "", 0, err.Error()
	}

	if generated.Subject != "" {
		content.Subject = generated.Subject
	}
	if generated.Body != "" {
		content.Body = generated.Body
	}
	if generated.SMS != "" {
		content.SMS = generated.SMS
	}
	return string(res.ProviderUsed), res.TotalAttempts, ""
}

// LoadAISettings reads the singleton settings row into the plain
// value the generator consumes. A missing row maps to nil, which the
// kill-switch gate reports as not configured.
func LoadAISettings(db *gorm.DB) (*ai.Settings, error) {
	var row models.AISettings
	if err := db.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("engine: loading ai settings: %w", err)
	}
	return &ai.Settings{
		Enabled:          row.Enabled,
		PrimaryProvider:  ai.Provider(row.PrimaryModelProvider),
		FallbackOpenAI:   row.FallbackOpenAI,
		FallbackDeepSeek: row.FallbackDeepSeek,
	}, nil
}
