package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"echonotes/models"
	"echonotes/utils"
)

type TrackingController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTrackingController(db *gorm.DB, logger *log.Logger) *TrackingController {
	return &TrackingController{
		DB:     db,
		Logger: logger,
	}
}

// HandleOpenPixel records the first open of a delivery and serves the 1x1
// image. Mail clients abort slow or non-2xx image loads, so apart from a
// missing id this endpoint always answers 200 with the pixel, even for
// unknown IDs or a failed write.
func (tc *TrackingController) HandleOpenPixel(c *fiber.Ctx) error {
	deliveryID := c.Query("id")
	if deliveryID == "" {
		tc.Logger.Println("Pixel fetched without an id")
		return c.Status(fiber.StatusBadRequest).SendString("Missing ID")
	}

	// opened_at only ever transitions null -> timestamp; repeat opens are
	// no-ops because of the IS NULL guard.
	res := tc.DB.Model(&models.DeliveryRecord{}).
		Where("id = ? AND opened_at IS NULL", deliveryID).
		Update("opened_at", time.Now().UTC())
	if res.Error != nil {
		utils.LogError("open_tracking_update_failed", res.Error, map[string]interface{}{
			"delivery_id": deliveryID,
		})
	} else if res.RowsAffected > 0 {
		tc.Logger.Printf("Recorded open for delivery %s", deliveryID)
	}

	c.Set("Cache-Control", "no-store")
	return c.Type("gif").Send(utils.TransparentPixel())
}
