package models

import (
	"time"

	"gorm.io/gorm"
)

// Recurrence is the closed set of schedule kinds a sequence can carry.
// Free-form values are rejected at the API boundary by ParseRecurrence.
type Recurrence string

const (
	RecurrenceOnce    Recurrence = "once"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// ParseRecurrence returns the typed recurrence for s, or false when s is not
// one of the recognized kinds.
func ParseRecurrence(s string) (Recurrence, bool) {
	switch r := Recurrence(s); r {
	case RecurrenceOnce, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return r, true
	}
	return "", false
}

// Sequence statuses. "processing" marks a row claimed by an in-flight
// dispatch run so overlapping runs cannot double-send it.
const (
	SequenceStatusPending    = "pending"
	SequenceStatusProcessing = "processing"
	SequenceStatusCompleted  = "completed"
)

// Sequence represents a scheduled, possibly recurring email campaign
type Sequence struct {
	gorm.Model
	UserID string `gorm:"not null;index" json:"user_id"`

	Subject    string     `gorm:"not null" json:"subject"`
	Body       string     `gorm:"type:text" json:"body"`
	Recurrence Recurrence `gorm:"not null;default:'once'" json:"recurrence"`

	ScheduledAt time.Time  `gorm:"not null;index" json:"scheduled_at"`    // stored in UTC
	Status      string     `gorm:"default:'pending';index" json:"status"` // pending, processing, completed
	ClaimedAt   *time.Time `json:"claimed_at,omitempty"`

	// Relations
	Recipients []SequenceRecipient `gorm:"foreignKey:SequenceID" json:"recipients,omitempty"`
}

// SequenceRecipient is a single target address bound to one sequence
type SequenceRecipient struct {
	gorm.Model
	SequenceID uint   `gorm:"not null;index" json:"sequence_id"`
	ToEmail    string `gorm:"not null" json:"to_email"`
}
