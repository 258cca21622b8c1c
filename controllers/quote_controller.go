package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"encorecrm/ai"
	"encorecrm/engine"
	"encorecrm/models"
	"encorecrm/utils"
)

// Quote pricing: a flat license fee plus a per-performer charge, with
// an early-commitment discount.
const (
	baseLicenseFee  = 299.0
	perPerformerFee = 12.0
	discountPercent = 0.20
)

// errQuoteConflict means another request quoted the lead between our
// read and our write.
var errQuoteConflict = errors.New("lead was quoted concurrently")

type QuoteController struct {
	DB        *gorm.DB
	Mailer    engine.EmailSender
	Generator *ai.TieredGenerator
	Logger    *log.Logger
}

func NewQuoteController(db *gorm.DB, mailer engine.EmailSender, generator *ai.TieredGenerator, logger *log.Logger) *QuoteController {
	return &QuoteController{DB: db, Mailer: mailer, Generator: generator, Logger: logger}
}

// SendQuote prices the lead, produces the quote email (AI-generated
// through the same tiered fallback the follow-up path uses, falling
// back to a deterministic template), sends it, and moves the lead to
// Quote Sent.
func (qc *QuoteController) SendQuote(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var lead models.Lead
	if err := qc.DB.First(&lead, c.Params("id")).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
	}
	if lead.Status != models.StatusNewLead {
		return utils.ErrorResponse(c, fiber.StatusBadRequest,
			fmt.Sprintf("Lead is %q; quotes can only be sent to new leads", lead.Status), nil)
	}

	// Quoting calculation
	standard := baseLicenseFee + perPerformerFee*float64(lead.PerformerCount)
	discounted := standard * (1 - discountPercent)
	lead.StandardRate = standard
	lead.DiscountRate = discounted
	lead.Savings = standard - discounted

	content, providerUsed := qc.quoteContent(ctx, &lead)

	emailErr := qc.Mailer.SendEmail(ctx, engine.EmailMessage{
		To:      lead.DirectorEmail,
		Subject: content.Subject,
		Content: content.Body,
		LeadID:  lead.ID,
		Type:    "quote",
	})

	now := time.Now()
	meta, _ := json.Marshal(map[string]interface{}{
		"message_id": uuid.New().String(),
		"delivered":  emailErr == nil,
		"provider":   providerUsed,
		"quote": map[string]float64{
			"standard_rate": lead.StandardRate,
			"discount_rate": lead.DiscountRate,
			"savings":       lead.Savings,
		},
	})

	if err := qc.commitQuote(&lead, content, string(meta), now); err != nil {
		if errors.Is(err, errQuoteConflict) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Lead was quoted by another request", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record quote", err)
	}

	resp := fiber.Map{
		"success":    true,
		"lead_id":    lead.ID,
		"email_sent": emailErr == nil,
		"provider":   providerUsed,
	}
	if emailErr != nil {
		qc.Logger.Printf("Quote email to lead %d failed: %v", lead.ID, emailErr)
		resp["error"] = emailErr.Error()
	}
	return c.JSON(resp)
}

// commitQuote records the quote state and its audit entry in one
// transaction. The update is conditional on the lead still being New
// Lead, so the loser of a concurrent double-trigger writes nothing.
func (qc *QuoteController) commitQuote(lead *models.Lead, content engine.QuoteContent, meta string, now time.Time) error {
	return qc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(lead).
			Where("status = ?", models.StatusNewLead).
			Updates(map[string]interface{}{
				"status":                  models.StatusQuoteSent,
				"standard_rate":           lead.StandardRate,
				"discount_rate":           lead.DiscountRate,
				"savings":                 lead.Savings,
				"last_communication_date": now,
				"last_email_sent_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errQuoteConflict
		}
		return tx.Create(&models.CommunicationHistory{
			LeadID:    lead.ID,
			Channel:   models.ChannelEmail,
			Direction: models.DirectionOutbound,
			Subject:   content.Subject,
			Content:   content.Body,
			SentAt:    now,
			Metadata:  meta,
		}).Error
	})
}

// quoteContent generates the quote email via the tiered generator;
// any AI failure falls back to the static quote wording.
func (qc *QuoteController) quoteContent(ctx context.Context, lead *models.Lead) (engine.QuoteContent, string) {
	fallback := engine.QuoteContent{
		Subject: engine.RenderTemplate("Your quote for {{program}} at {{school}}", lead),
		Body: engine.RenderTemplate(
			"Hi {{first_name}},\n\nThanks for your interest in {{program}} for {{school}}. "+
				"For {{performer_count}} performers this {{season}}, the standard rate is {{standard_rate}}. "+
				"Commit early and you pay {{discount_rate}} - a savings of {{savings}}.\n\n"+
				"Reply to this email with any questions.", lead),
	}

	if qc.Generator == nil {
		return fallback, ""
	}

	settings, err := engine.LoadAISettings(qc.DB)
	if err != nil {
		qc.Logger.Printf("AI settings unavailable for quote generation: %v", err)
		return fallback, ""
	}

	var generated engine.QuoteContent
	res, err := qc.Generator.Generate(ctx, settings, engine.BuildQuotePrompt(lead), ai.Options{Temperature: 0.7, MaxTokens: 1024}, &generated)
	if err != nil {
		qc.Logger.Printf("AI quote generation failed, using template: %v", err)
		return fallback, ""
	}
	if generated.Subject == "" || generated.Body == "" {
		return fallback, ""
	}
	return generated, string(res.ProviderUsed)
}
