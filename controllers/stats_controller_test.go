package controller

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"echonotes/models"
)

func newStatsApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()
	app := fiber.New()
	sc := NewStatsController(db, discardLogger())
	app.Get("/api/v1/stats", sc.GetStats)
	return app
}

func TestGetStatsEmpty(t *testing.T) {
	db := newTestDB(t)
	app := newStatsApp(t, db)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/stats", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 0, body["totalSent"])
	assert.EqualValues(t, 0, body["openRate"])
	assert.EqualValues(t, 0, body["responseRate"])
}

func TestGetStatsAggregates(t *testing.T) {
	db := newTestDB(t)
	app := newStatsApp(t, db)

	day1 := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	opened := day1.Add(time.Hour)

	deliveries := []models.DeliveryRecord{
		{SequenceID: 1, ToEmail: "a@example.com", SentAt: day1, OpenedAt: &opened},
		{SequenceID: 1, ToEmail: "b@example.com", SentAt: day1},
		{SequenceID: 1, ToEmail: "c@example.com", SentAt: day2},
		{SequenceID: 1, ToEmail: "d@example.com", SentAt: day2},
	}
	for i := range deliveries {
		require.NoError(t, db.Create(&deliveries[i]).Error)
	}
	require.NoError(t, db.Create(&models.SequenceResponse{
		UserID:       "user-1",
		FromEmail:    "a@example.com",
		ResponseText: "sounds good",
		ReceivedAt:   day2,
		MessageID:    "<reply-1@example.com>",
	}).Error)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/stats", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 4, body["totalSent"])
	assert.EqualValues(t, 1, body["totalOpened"])
	assert.EqualValues(t, 1, body["totalResponded"])
	assert.EqualValues(t, 25, body["openRate"])
	assert.EqualValues(t, 25, body["responseRate"])

	perDay, ok := body["perDay"].([]interface{})
	require.True(t, ok)
	require.Len(t, perDay, 2)
	var total float64
	for _, entry := range perDay {
		total += entry.(map[string]interface{})["count"].(float64)
	}
	assert.EqualValues(t, 4, total)
}
