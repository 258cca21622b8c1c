package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead statuses. The engagement engine only ever drives
// StatusQuoteSent / StatusFollowUpSent1..3 forward to the next
// follow-up; every other transition is made by an operator, the
// reply worker, or the invoicing flow.
const (
	StatusNewLead       = "New Lead"
	StatusQuoteSent     = "Quote Sent"
	StatusFollowUpSent1 = "Follow-up Sent 1"
	StatusFollowUpSent2 = "Follow-up Sent 2"
	StatusFollowUpSent3 = "Follow-up Sent 3"
	StatusFollowUpSent4 = "Follow-up Sent 4"
	StatusReplyReceived = "Reply Received - Awaiting Action"
	StatusInvoiceSent   = "Invoice Sent"
	StatusConvertedPaid = "Converted - Paid"
	StatusInactive      = "Inactive"
)

// MaxFollowUps caps the automated sequence; once a lead has received
// four follow-ups it is left for manual handling.
const MaxFollowUps = 4

// Lead represents a school drama director we have quoted a program to
type Lead struct {
	gorm.Model

	DirectorName  string `json:"director_name"`
	DirectorEmail string `gorm:"not null;index" json:"director_email"`
	DirectorPhone string `json:"director_phone"`

	School         string `json:"school"`
	Program        string `json:"program"`
	Season         string `json:"season"`
	PerformerCount int    `json:"performer_count"`

	// Quote outputs, produced by the quoting calculation
	StandardRate float64 `gorm:"default:0" json:"standard_rate"`
	DiscountRate float64 `gorm:"default:0" json:"discount_rate"`
	Savings      float64 `gorm:"default:0" json:"savings"`

	InvoiceNumber  string     `json:"invoice_number"`
	PaymentLink    string     `json:"payment_link"`
	Deadline       *time.Time `json:"deadline"`
	SubmissionDate *time.Time `json:"submission_date"`

	Status        string `gorm:"not null;default:'New Lead';index" json:"status"`
	ReplyDetected bool   `gorm:"default:false;index" json:"reply_detected"`

	// Engagement state
	FollowUpCount         int        `gorm:"default:0" json:"follow_up_count"`
	LastCommunicationDate *time.Time `json:"last_communication_date"`
	LastEmailSentAt       *time.Time `json:"last_email_sent_at"`
	LastSMSSentAt         *time.Time `json:"last_sms_sent_at"`

	Notes string `gorm:"type:text" json:"notes"`

	// Relations
	Communications []CommunicationHistory `gorm:"foreignKey:LeadID" json:"communications,omitempty"`
}

// FollowUpStatus returns the status string for the nth follow-up.
func FollowUpStatus(n int) string {
	switch n {
	case 1:
		return StatusFollowUpSent1
	case 2:
		return StatusFollowUpSent2
	case 3:
		return StatusFollowUpSent3
	case 4:
		return StatusFollowUpSent4
	}
	return ""
}

// EngageableStatuses are the statuses the selector considers for the
// next automated follow-up. Follow-up Sent 4 is deliberately absent:
// the sequence is exhausted at that point.
func EngageableStatuses() []string {
	return []string{
		StatusQuoteSent,
		StatusFollowUpSent1,
		StatusFollowUpSent2,
		StatusFollowUpSent3,
	}
}

// IsTerminalStatus reports whether the engine must never touch this lead again.
func IsTerminalStatus(status string) bool {
	return status == StatusConvertedPaid || status == StatusInactive
}
