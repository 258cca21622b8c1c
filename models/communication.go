package models

import (
	"time"

	"gorm.io/gorm"
)

// Communication channels and directions
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// CommunicationHistory is the append-only audit log of every message
// exchanged with a lead. The engine creates entries and never updates
// or deletes them.
type CommunicationHistory struct {
	gorm.Model
	LeadID uint `gorm:"not null;index" json:"lead_id"`

	Channel   string    `gorm:"not null" json:"channel"`   // email, sms
	Direction string    `gorm:"not null" json:"direction"` // outbound, inbound
	Subject   string    `json:"subject"`
	Content   string    `gorm:"type:text" json:"content"`
	SentAt    time.Time `gorm:"not null;index" json:"sent_at"`
	Metadata  string    `gorm:"type:text" json:"metadata"` // free-form JSON

	// Relations
	Lead Lead `json:"-"`
}
