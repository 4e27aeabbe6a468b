package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"echonotes/models"
)

type ResponseController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewResponseController(db *gorm.DB, logger *log.Logger) *ResponseController {
	return &ResponseController{
		DB:     db,
		Logger: logger,
	}
}

// GetResponses lists the reply texts collected from the inbox, newest first,
// optionally scoped to one owner.
func (rc *ResponseController) GetResponses(c *fiber.Ctx) error {
	query := rc.DB.Model(&models.SequenceResponse{}).Order("received_at desc")
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var collected []models.SequenceResponse
	if err := query.Find(&collected).Error; err != nil {
		rc.Logger.Printf("Failed to fetch responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch responses",
		})
	}

	responses := make([]string, 0, len(collected))
	for _, r := range collected {
		responses = append(responses, r.ResponseText)
	}

	return c.JSON(fiber.Map{
		"responses": responses,
	})
}
