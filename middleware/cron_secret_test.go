package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGuardedApp(secret string) *fiber.App {
	app := fiber.New()
	app.Get("/cron/send-emails", CronSecret(secret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

func TestCronSecretRejectsMissingHeader(t *testing.T) {
	app := newGuardedApp("topsecret")

	resp, err := app.Test(httptest.NewRequest("GET", "/cron/send-emails", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCronSecretRejectsWrongHeader(t *testing.T) {
	app := newGuardedApp("topsecret")

	req := httptest.NewRequest("GET", "/cron/send-emails", nil)
	req.Header.Set("x-cron-secret", "guess")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCronSecretAcceptsMatchingHeader(t *testing.T) {
	app := newGuardedApp("topsecret")

	req := httptest.NewRequest("GET", "/cron/send-emails", nil)
	req.Header.Set("x-cron-secret", "topsecret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCronSecretDisabledWhenEmpty(t *testing.T) {
	app := newGuardedApp("")

	resp, err := app.Test(httptest.NewRequest("GET", "/cron/send-emails", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
