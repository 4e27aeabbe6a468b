package models

import (
	"time"

	"gorm.io/gorm"
)

// SequenceResponse stores a reply collected from the IMAP inbox and matched
// back to a known recipient address.
type SequenceResponse struct {
	gorm.Model
	UserID string `gorm:"index" json:"user_id"`

	FromEmail    string    `gorm:"not null;index" json:"from_email"`
	Subject      string    `json:"subject"`
	ResponseText string    `gorm:"type:text" json:"response_text"`
	ReceivedAt   time.Time `json:"received_at"`

	// IMAP message ID, used to dedupe messages seen on repeated polls
	MessageID string `gorm:"uniqueIndex;size:512" json:"message_id"`
}
