package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"echonotes/models"
	"echonotes/utils"
)

type SequenceController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSequenceController(db *gorm.DB, logger *log.Logger) *SequenceController {
	return &SequenceController{
		DB:     db,
		Logger: logger,
	}
}

type sequenceInput struct {
	UserID      string    `json:"user_id" validate:"required"`
	Subject     string    `json:"subject" validate:"required,max=255"`
	Body        string    `json:"body" validate:"required"`
	Recurrence  string    `json:"recurrence" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Recipients  []string  `json:"recipients" validate:"required,min=1"`
}

// validateInput applies struct validation plus the checks the dispatch path
// relies on: a recognized recurrence kind and well-formed addresses.
func (sc *SequenceController) validateInput(input *sequenceInput) (models.Recurrence, string) {
	if err := utils.ValidateStruct(input); err != nil {
		return "", err.Error()
	}

	recurrence, ok := models.ParseRecurrence(input.Recurrence)
	if !ok {
		return "", "recurrence must be one of: once, daily, weekly, monthly, yearly"
	}

	for _, email := range input.Recipients {
		if err := utils.ValidateAddressFormat(email); err != nil {
			return "", "invalid recipient address: " + email
		}
	}

	return recurrence, ""
}

func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input sequenceInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	recurrence, msg := sc.validateInput(&input)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msg,
		})
	}

	sequence := models.Sequence{
		UserID:      input.UserID,
		Subject:     input.Subject,
		Body:        input.Body,
		Recurrence:  recurrence,
		ScheduledAt: input.ScheduledAt.UTC(),
		Status:      models.SequenceStatusPending,
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sequence).Error; err != nil {
			return err
		}
		for _, email := range input.Recipients {
			recipient := models.SequenceRecipient{SequenceID: sequence.ID, ToEmail: email}
			if err := tx.Create(&recipient).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		sc.Logger.Printf("Failed to create sequence: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create sequence",
		})
	}

	sc.DB.Preload("Recipients").First(&sequence, sequence.ID)
	return c.Status(fiber.StatusCreated).JSON(sequence)
}

func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	var sequences []models.Sequence
	if err := sc.DB.Where("user_id = ?", userID).
		Preload("Recipients").
		Order("scheduled_at asc").
		Find(&sequences).Error; err != nil {
		sc.Logger.Printf("Failed to fetch sequences for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sequences",
		})
	}

	return c.JSON(sequences)
}

func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	sequenceID := c.Params("id")

	var sequence models.Sequence
	if err := sc.DB.Where("id = ? AND user_id = ?", sequenceID, userID).
		Preload("Recipients").
		First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	return c.JSON(sequence)
}

// UpdateSequence replaces the sequence's fields and its whole recipient
// list. Concurrent edits against an in-flight dispatch run are unordered;
// last write wins.
func (sc *SequenceController) UpdateSequence(c *fiber.Ctx) error {
	sequenceID := c.Params("id")

	var input sequenceInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	recurrence, msg := sc.validateInput(&input)
	if msg != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": msg,
		})
	}

	var sequence models.Sequence
	if err := sc.DB.Where("id = ? AND user_id = ?", sequenceID, input.UserID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"subject":      input.Subject,
			"body":         input.Body,
			"recurrence":   recurrence,
			"scheduled_at": input.ScheduledAt.UTC(),
		}
		if err := tx.Model(&sequence).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceRecipient{}).Error; err != nil {
			return err
		}
		for _, email := range input.Recipients {
			recipient := models.SequenceRecipient{SequenceID: sequence.ID, ToEmail: email}
			if err := tx.Create(&recipient).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		sc.Logger.Printf("Failed to update sequence %s: %v", sequenceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update sequence",
		})
	}

	sc.DB.Preload("Recipients").First(&sequence, sequence.ID)
	return c.JSON(sequence)
}

func (sc *SequenceController) DeleteSequence(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	sequenceID := c.Params("id")

	var sequence models.Sequence
	if err := sc.DB.Where("id = ? AND user_id = ?", sequenceID, userID).First(&sequence).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sequence not found",
		})
	}

	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sequence_id = ?", sequence.ID).Delete(&models.SequenceRecipient{}).Error; err != nil {
			return err
		}
		return tx.Delete(&sequence).Error
	})
	if err != nil {
		sc.Logger.Printf("Failed to delete sequence %s: %v", sequenceID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete sequence",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Sequence deleted successfully",
	})
}
