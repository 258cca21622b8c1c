package models

import "gorm.io/gorm"

// FollowUpTemplate holds the content for one step of the follow-up
// sequence. Templates are created and edited by operators; the engine
// reads only active rows. A missing or inactive sequence number is a
// valid state and simply stalls leads at that step.
type FollowUpTemplate struct {
	gorm.Model

	SequenceNumber int    `gorm:"not null;uniqueIndex" json:"sequence_number"`
	Name           string `json:"name"`

	EmailSubject string `gorm:"not null" json:"email_subject"`
	EmailBody    string `gorm:"type:text;not null" json:"email_body"`
	SMSBody      string `gorm:"type:text" json:"sms_body"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`
}
