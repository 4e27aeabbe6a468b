package dispatch

import (
	"time"

	"echonotes/models"
)

// NextOccurrence maps a scheduled instant and recurrence kind to the next
// scheduled instant, in UTC. "once" and unrecognized kinds have no next
// occurrence and signal termination, not an error.
func NextOccurrence(current time.Time, kind models.Recurrence) (time.Time, bool) {
	t := current.UTC()
	switch kind {
	case models.RecurrenceDaily:
		return t.AddDate(0, 0, 1), true
	case models.RecurrenceWeekly:
		return t.AddDate(0, 0, 7), true
	case models.RecurrenceMonthly:
		// Month-end overflow normalizes forward (Jan 31 -> Mar 3), same as
		// the calendar arithmetic the scheduler has always used.
		return t.AddDate(0, 1, 0), true
	case models.RecurrenceYearly:
		return t.AddDate(1, 0, 0), true
	}
	return time.Time{}, false
}
