package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"echonotes/models"
)

func newSequenceApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()
	app := fiber.New()
	sc := NewSequenceController(db, discardLogger())
	app.Post("/api/v1/sequences", sc.CreateSequence)
	app.Get("/api/v1/sequences", sc.GetSequences)
	app.Get("/api/v1/sequences/:id", sc.GetSequence)
	app.Put("/api/v1/sequences/:id", sc.UpdateSequence)
	app.Delete("/api/v1/sequences/:id", sc.DeleteSequence)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, url string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, url, &body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp.StatusCode, decoded
}

func validInput() map[string]interface{} {
	return map[string]interface{}{
		"user_id":      "user-1",
		"subject":      "Monthly update",
		"body":         "<p>News</p>",
		"recurrence":   "monthly",
		"scheduled_at": time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC).Format(time.RFC3339),
		"recipients":   []string{"one@example.com", "two@example.com"},
	}
}

func TestCreateSequence(t *testing.T) {
	db := newTestDB(t)
	app := newSequenceApp(t, db)

	status, body := doJSON(t, app, "POST", "/api/v1/sequences", validInput())
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "monthly", body["recurrence"])

	var seq models.Sequence
	require.NoError(t, db.Preload("Recipients").First(&seq).Error)
	assert.Equal(t, "user-1", seq.UserID)
	assert.Len(t, seq.Recipients, 2)
	assert.Equal(t, time.UTC, seq.ScheduledAt.UTC().Location())
}

func TestCreateSequenceRejectsUnknownRecurrence(t *testing.T) {
	db := newTestDB(t)
	app := newSequenceApp(t, db)

	input := validInput()
	input["recurrence"] = "fortnightly"
	status, body := doJSON(t, app, "POST", "/api/v1/sequences", input)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "recurrence")

	var count int64
	require.NoError(t, db.Model(&models.Sequence{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreateSequenceRejectsMalformedRecipient(t *testing.T) {
	db := newTestDB(t)
	app := newSequenceApp(t, db)

	input := validInput()
	input["recipients"] = []string{"one@example.com", "not-an-email"}
	status, body := doJSON(t, app, "POST", "/api/v1/sequences", input)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["error"], "not-an-email")
}

func TestCreateSequenceRequiresRecipients(t *testing.T) {
	db := newTestDB(t)
	app := newSequenceApp(t, db)

	input := validInput()
	input["recipients"] = []string{}
	status, _ := doJSON(t, app, "POST", "/api/v1/sequences", input)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetSequencesRequiresUserID(t *testing.T) {
	db := newTestDB(t)
	app := newSequenceApp(t, db)

	status, _ := doJSON(t, app, "GET", "/api/v1/sequences", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetSequencesScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	app := newSequenceApp(t, db)

	mine := validInput()
	status, _ := doJSON(t, app, "POST", "/api/v1/sequences", mine)
	require.Equal(t, fiber.StatusCreated, status)

	theirs := validInput()
	theirs["user_id"] = "user-2"
	status, _ = doJSON(t, app, "POST", "/api/v1/sequences", theirs)
	require.Equal(t, fiber.StatusCreated, status)

	req := httptest.NewRequest("GET", "/api/v1/sequences?user_id=user-1", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed []models.Sequence
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "user-1", listed[0].UserID)
}

func TestUpdateSequenceReplacesRecipients(t *testing.T) {
	db := newTestDB(t)
	app := newSequenceApp(t, db)

	status, _ := doJSON(t, app, "POST", "/api/v1/sequences", validInput())
	require.Equal(t, fiber.StatusCreated, status)

	var seq models.Sequence
	require.NoError(t, db.First(&seq).Error)

	update := validInput()
	update["subject"] = "Updated subject"
	update["recipients"] = []string{"fresh@example.com"}
	status, _ = doJSON(t, app, "PUT", fmt.Sprintf("/api/v1/sequences/%d", seq.ID), update)
	require.Equal(t, fiber.StatusOK, status)

	var got models.Sequence
	require.NoError(t, db.Preload("Recipients").First(&got, seq.ID).Error)
	assert.Equal(t, "Updated subject", got.Subject)
	require.Len(t, got.Recipients, 1)
	assert.Equal(t, "fresh@example.com", got.Recipients[0].ToEmail)
}

func TestDeleteSequence(t *testing.T) {
	db := newTestDB(t)
	app := newSequenceApp(t, db)

	status, _ := doJSON(t, app, "POST", "/api/v1/sequences", validInput())
	require.Equal(t, fiber.StatusCreated, status)

	var seq models.Sequence
	require.NoError(t, db.First(&seq).Error)

	status, _ = doJSON(t, app, "DELETE", fmt.Sprintf("/api/v1/sequences/%d?user_id=user-1", seq.ID), nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "GET", fmt.Sprintf("/api/v1/sequences/%d?user_id=user-1", seq.ID), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
