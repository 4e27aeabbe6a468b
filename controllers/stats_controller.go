package controller

import (
	"log"
	"math"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"echonotes/models"
)

type StatsController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewStatsController(db *gorm.DB, logger *log.Logger) *StatsController {
	return &StatsController{
		DB:     db,
		Logger: logger,
	}
}

type perDayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// GetStats returns aggregate delivery metrics: totals, open and response
// rates, and per-day send counts for the dashboard chart.
func (sc *StatsController) GetStats(c *fiber.Ctx) error {
	var totalSent, totalOpened, totalResponded int64

	if err := sc.DB.Model(&models.DeliveryRecord{}).Count(&totalSent).Error; err != nil {
		sc.Logger.Printf("Failed to count deliveries: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}
	if err := sc.DB.Model(&models.DeliveryRecord{}).
		Where("opened_at IS NOT NULL").
		Count(&totalOpened).Error; err != nil {
		sc.Logger.Printf("Failed to count opens: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}
	if err := sc.DB.Model(&models.SequenceResponse{}).Count(&totalResponded).Error; err != nil {
		sc.Logger.Printf("Failed to count responses: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}

	var perDay []perDayCount
	if err := sc.DB.Model(&models.DeliveryRecord{}).
		Select("date(sent_at) as date, count(*) as count").
		Group("date(sent_at)").
		Order("date(sent_at)").
		Scan(&perDay).Error; err != nil {
		sc.Logger.Printf("Failed to aggregate per-day counts: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch stats",
		})
	}

	return c.JSON(fiber.Map{
		"totalSent":      totalSent,
		"totalOpened":    totalOpened,
		"totalResponded": totalResponded,
		"openRate":       ratePercent(totalOpened, totalSent),
		"responseRate":   ratePercent(totalResponded, totalSent),
		"perDay":         perDay,
	})
}

func ratePercent(part, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
