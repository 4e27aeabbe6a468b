package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"echonotes/dispatch"
	"echonotes/utils"
)

type CronController struct {
	Engine *dispatch.Engine
	Logger *log.Logger
}

func NewCronController(engine *dispatch.Engine, logger *log.Logger) *CronController {
	return &CronController{
		Engine: engine,
		Logger: logger,
	}
}

// SendEmails runs one dispatch pass. Per-sequence and per-recipient errors
// come back inside the summary; only a failed due-sequence query is a 5xx.
func (cc *CronController) SendEmails(c *fiber.Ctx) error {
	summary, err := cc.Engine.RunOnce(c.UserContext())
	if err != nil {
		utils.LogError("dispatch_run_failed", err, map[string]interface{}{
			"trigger": "cron",
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}

	cc.Logger.Printf("Dispatch run finished: %d sent, %d errors", summary.Dispatched, len(summary.Errors))

	response := fiber.Map{
		"ok":   true,
		"sent": summary.Dispatched,
	}
	if len(summary.Errors) > 0 {
		response["errors"] = summary.Errors
	}
	return c.JSON(response)
}
