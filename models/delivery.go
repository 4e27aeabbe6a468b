package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryRecord logs one attempted send to one recipient. The row is written
// before the transport attempt so the ID, which doubles as the open-tracking
// token, exists even when the send later fails.
type DeliveryRecord struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	SequenceID uint       `gorm:"not null;index" json:"sequence_id"`
	ToEmail    string     `gorm:"not null" json:"to_email"`
	SentAt     time.Time  `gorm:"not null;index" json:"sent_at"`
	OpenedAt   *time.Time `json:"opened_at,omitempty"` // set once by the pixel endpoint
}

func (d *DeliveryRecord) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
