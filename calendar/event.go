// Package calendar turns raw iCal booking feeds into cleaning checkouts:
// fetch, parse, recurrence expansion, checkout extraction, and the
// upcoming-window filter.
package calendar

import (
	"strings"
	"time"
)

// Event is one normalized occurrence from a feed. Events are rebuilt on
// every sync pass and never persisted. UID is feed-assigned and may be
// empty or repeated across poorly-formed feeds, so it is never used as a
// key.
type Event struct {
	UID      string
	Summary  string
	Start    time.Time
	End      time.Time // exclusive: the checkout day
	Location string

	// Recurrence passthrough, consumed by ExpandRecurrences.
	RRule   string
	ExDates []time.Time
}

// Checkout is a derived occurrence meaning "a cleaning may be needed
// here". It is never produced from a blocked event and never persisted;
// the reconciler either materializes it into a job or discards it.
type Checkout struct {
	Date              time.Time // equals the source event's End
	Source            Event
	HasSameDayCheckin bool
	NextCheckinDate   *time.Time
}

var blockedSubstrings = []string{"blocked", "unavailable", "not available"}

// IsBlocked reports whether a summary label marks host-imposed
// unavailability rather than a real guest stay. Every consumer of
// blocked-status goes through here so the rule cannot drift between
// call sites.
func IsBlocked(label string) bool {
	folded := strings.ToLower(strings.TrimSpace(label))
	if folded == "busy" {
		return true
	}
	for _, s := range blockedSubstrings {
		if strings.Contains(folded, s) {
			return true
		}
	}
	return false
}

// DateKey reduces a timestamp to its wall-clock calendar date. Job
// deduplication compares these, so a feed that shifts the time-of-day on
// re-sync still maps to the same key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func sameCalendarDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
