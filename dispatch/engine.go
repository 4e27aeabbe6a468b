package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"echonotes/config"
	"echonotes/models"
	"echonotes/utils"
)

// Summary is the result of one dispatch run.
type Summary struct {
	Dispatched int      `json:"dispatched"`
	Errors     []string `json:"errors,omitempty"`
}

// Engine is the single dispatch path for due sequences. It claims each due
// sequence with an atomic status update before touching it, so two runs
// racing on the same row cannot both send it.
type Engine struct {
	DB     *gorm.DB
	Mailer utils.Mailer
	Clock  clockwork.Clock
	Logger *log.Logger

	FromEmail string
	BaseURL   string
	SendDelay time.Duration
	ClaimTTL  time.Duration
}

func NewEngine(db *gorm.DB, mailer utils.Mailer, clock clockwork.Clock, logger *log.Logger, cfg *config.Config) *Engine {
	return &Engine{
		DB:        db,
		Mailer:    mailer,
		Clock:     clock,
		Logger:    logger,
		FromEmail: cfg.FromEmail,
		BaseURL:   cfg.AppBaseURL,
		SendDelay: cfg.SendDelay,
		ClaimTTL:  cfg.ClaimTTL,
	}
}

// RunOnce processes every sequence that is pending and due. Per-sequence and
// per-recipient failures are absorbed into the summary; only the initial due
// query failing aborts the run.
func (e *Engine) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary
	db := e.DB.WithContext(ctx)
	now := e.Clock.Now().UTC()

	e.releaseStaleClaims(db, now)

	var due []models.Sequence
	if err := db.Where("status = ? AND scheduled_at <= ?", models.SequenceStatusPending, now).
		Find(&due).Error; err != nil {
		return summary, fmt.Errorf("fetch due sequences: %w", err)
	}

	for i := range due {
		seq := &due[i]
		if !e.claim(db, seq, now) {
			continue
		}
		e.processSequence(db, seq, now, &summary)
	}

	return summary, nil
}

// releaseStaleClaims reverts sequences stuck in processing past the claim
// TTL, typically after a crash mid-run. They become due again immediately,
// which is the at-least-once half of the delivery contract.
func (e *Engine) releaseStaleClaims(db *gorm.DB, now time.Time) {
	res := db.Model(&models.Sequence{}).
		Where("status = ? AND claimed_at < ?", models.SequenceStatusProcessing, now.Add(-e.ClaimTTL)).
		Updates(map[string]interface{}{
			"status":     models.SequenceStatusPending,
			"claimed_at": nil,
		})
	if res.Error != nil {
		e.Logger.Printf("Failed to release stale claims: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		e.Logger.Printf("Released %d stale claims", res.RowsAffected)
	}
}

// claim atomically moves a sequence from pending to processing. A zero
// rows-affected result means another run got there first.
func (e *Engine) claim(db *gorm.DB, seq *models.Sequence, now time.Time) bool {
	res := db.Model(&models.Sequence{}).
		Where("id = ? AND status = ?", seq.ID, models.SequenceStatusPending).
		Updates(map[string]interface{}{
			"status":     models.SequenceStatusProcessing,
			"claimed_at": now,
		})
	if res.Error != nil {
		e.Logger.Printf("Failed to claim sequence %d: %v", seq.ID, res.Error)
		return false
	}
	return res.RowsAffected > 0
}

func (e *Engine) processSequence(db *gorm.DB, seq *models.Sequence, now time.Time, summary *Summary) {
	var recipients []models.SequenceRecipient
	if err := db.Where("sequence_id = ?", seq.ID).Find(&recipients).Error; err != nil {
		e.Logger.Printf("Recipients lookup failed for sequence %d: %v", seq.ID, err)
		summary.Errors = append(summary.Errors, fmt.Sprintf("sequence %d: recipients lookup failed", seq.ID))
		e.releaseClaim(db, seq.ID)
		return
	}
	if len(recipients) == 0 {
		e.Logger.Printf("No recipients for sequence %d, retrying next run", seq.ID)
		e.releaseClaim(db, seq.ID)
		return
	}

	for _, r := range recipients {
		if !utils.IsDeliverableAddress(r.ToEmail) {
			continue
		}
		e.sendToRecipient(db, seq, r.ToEmail, now, summary)
		if e.SendDelay > 0 {
			e.Clock.Sleep(e.SendDelay)
		}
	}

	e.advance(db, seq)
}

// sendToRecipient writes the delivery record first, so the tracking token
// exists even when transport fails afterwards.
func (e *Engine) sendToRecipient(db *gorm.DB, seq *models.Sequence, to string, now time.Time, summary *Summary) {
	record := models.DeliveryRecord{
		SequenceID: seq.ID,
		ToEmail:    to,
		SentAt:     now,
	}
	if err := db.Create(&record).Error; err != nil {
		utils.LogError("delivery_record_insert_failed", err, map[string]interface{}{
			"sequence_id": seq.ID,
			"to_email":    to,
		})
		summary.Errors = append(summary.Errors, fmt.Sprintf("sequence %d: delivery record insert failed for %s", seq.ID, to))
		return
	}

	html := utils.RenderTrackedBody(seq.Body, e.BaseURL, record.ID)
	if err := e.Mailer.Send(e.FromEmail, to, seq.Subject, html); err != nil {
		e.Logger.Printf("Send error to %s for sequence %d: %v", to, seq.ID, err)
		summary.Errors = append(summary.Errors, fmt.Sprintf("sequence %d: send to %s failed", seq.ID, to))
		return
	}

	summary.Dispatched++
}

// advance applies the end-of-processing state transition as one atomic
// update: once completes, recurring kinds move to their next occurrence and
// re-enter pending, anything without a next occurrence just drops its claim.
func (e *Engine) advance(db *gorm.DB, seq *models.Sequence) {
	updates := map[string]interface{}{
		"status":     models.SequenceStatusPending,
		"claimed_at": nil,
	}

	if seq.Recurrence == models.RecurrenceOnce {
		updates["status"] = models.SequenceStatusCompleted
	} else if next, ok := NextOccurrence(seq.ScheduledAt, seq.Recurrence); ok {
		updates["scheduled_at"] = next
	}

	if err := db.Model(&models.Sequence{}).Where("id = ?", seq.ID).Updates(updates).Error; err != nil {
		utils.LogError("sequence_advance_failed", err, map[string]interface{}{
			"sequence_id": seq.ID,
		})
	}
}

func (e *Engine) releaseClaim(db *gorm.DB, sequenceID uint) {
	if err := db.Model(&models.Sequence{}).
		Where("id = ?", sequenceID).
		Updates(map[string]interface{}{
			"status":     models.SequenceStatusPending,
			"claimed_at": nil,
		}).Error; err != nil {
		e.Logger.Printf("Failed to release claim on sequence %d: %v", sequenceID, err)
	}
}
