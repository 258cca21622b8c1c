package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"encorecrm/models"
)

// EmailMessage is the input to the email send collaborator.
type EmailMessage struct {
	To      string
	Subject string
	Content string
	LeadID  uint
	Type    string // follow_up, quote
}

// SMSMessage is the input to the SMS send collaborator.
type SMSMessage struct {
	To      string
	Message string
	LeadID  uint
	Type    string
}

// EmailSender physically delivers an email. The engine only observes
// success or failure; provider-level delivery status is not inspected.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// SMSSender physically delivers an SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) error
}

// ChannelOutcome reports one channel of a delivery.
type ChannelOutcome struct {
	Attempted bool   `json:"attempted"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
}

// DeliveryResult carries both channel outcomes. The channels are
// independent; neither blocks or rolls back the other.
type DeliveryResult struct {
	Email ChannelOutcome `json:"email"`
	SMS   ChannelOutcome `json:"sms"`
}

// DeliveryCoordinator sends the rendered content: email always (a
// lead always has an email address), SMS only when a phone number is
// on file.
type DeliveryCoordinator struct {
	Email  EmailSender
	SMS    SMSSender
	Logger *logrus.Entry
}

func NewDeliveryCoordinator(email EmailSender, sms SMSSender, logger *logrus.Entry) *DeliveryCoordinator {
	return &DeliveryCoordinator{Email: email, SMS: sms, Logger: logger}
}

func (d *DeliveryCoordinator) Deliver(ctx context.Context, lead *models.Lead, content RenderedContent, msgType string) DeliveryResult {
	var result DeliveryResult

	result.Email.Attempted = true
	if err := d.Email.SendEmail(ctx, EmailMessage{
		To:      lead.DirectorEmail,
		Subject: content.Subject,
		Content: content.Body,
		LeadID:  lead.ID,
		Type:    msgType,
	}); err != nil {
		result.Email.Error = err.Error()
		d.Logger.WithField("lead_id", lead.ID).WithError(err).Warn("email delivery failed")
	} else {
		result.Email.Sent = true
	}

	if lead.DirectorPhone == "" || content.SMS == "" {
		return result
	}

	result.SMS.Attempted = true
	if err := d.SMS.SendSMS(ctx, SMSMessage{
		To:      lead.DirectorPhone,
		Message: content.SMS,
		LeadID:  lead.ID,
		Type:    msgType,
	}); err != nil {
		result.SMS.Error = err.Error()
		d.Logger.WithField("lead_id", lead.ID).WithError(err).Warn("sms delivery failed")
	} else {
		result.SMS.Sent = true
	}

	return result
}
