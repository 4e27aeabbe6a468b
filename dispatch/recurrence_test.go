package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"echonotes/models"
)

func TestNextOccurrence(t *testing.T) {
	base := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		kind models.Recurrence
		want time.Time
		ok   bool
	}{
		{"daily", models.RecurrenceDaily, base.AddDate(0, 0, 1), true},
		{"weekly", models.RecurrenceWeekly, base.AddDate(0, 0, 7), true},
		{"monthly", models.RecurrenceMonthly, time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC), true},
		{"yearly", models.RecurrenceYearly, time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC), true},
		{"once", models.RecurrenceOnce, time.Time{}, false},
		{"unknown", models.Recurrence("fortnightly"), time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextOccurrence(base, tt.kind)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNextOccurrenceIsStrictlyLater(t *testing.T) {
	instants := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), // leap day
	}
	kinds := []models.Recurrence{
		models.RecurrenceDaily,
		models.RecurrenceWeekly,
		models.RecurrenceMonthly,
		models.RecurrenceYearly,
	}

	for _, instant := range instants {
		for _, kind := range kinds {
			next, ok := NextOccurrence(instant, kind)
			assert.True(t, ok, "%s should have a next occurrence", kind)
			assert.True(t, next.After(instant), "%s: %s should be after %s", kind, next, instant)
		}
	}
}

func TestNextOccurrenceMonthEndNormalizes(t *testing.T) {
	// Jan 31 has no Feb counterpart; the arithmetic rolls the overflow
	// forward instead of erroring.
	next, ok := NextOccurrence(time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC), models.RecurrenceMonthly)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceNormalizesToUTC(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	next, ok := NextOccurrence(time.Date(2025, 6, 10, 22, 0, 0, 0, est), models.RecurrenceDaily)
	assert.True(t, ok)
	assert.Equal(t, time.UTC, next.Location())
	assert.Equal(t, time.Date(2025, 6, 12, 3, 0, 0, 0, time.UTC), next)
}
