package calendar

import (
	"sort"
	"time"
)

// ExtractCheckouts derives the checkout sequence for one property from
// its full event set. Blocked events never produce a checkout but still
// occupy the calendar, which is why both scans below re-check
// blocked-status per event rather than pre-filtering the slice.
//
// The same-day scan covers the entire set, including the triggering event
// itself: a single-day booking whose start and end share a date counts as
// its own same-day turnaround. That matches the behavior cleaners have
// been scheduled against, so it is kept as-is rather than narrowed to
// "other events only".
func ExtractCheckouts(events []Event) []Checkout {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].End.Before(sorted[j].End)
	})

	var checkouts []Checkout
	for i, ev := range sorted {
		if IsBlocked(ev.Summary) {
			continue
		}

		c := Checkout{
			Date:   ev.End,
			Source: ev,
		}

		for _, other := range sorted {
			if IsBlocked(other.Summary) {
				continue
			}
			if sameCalendarDay(other.Start, ev.End) {
				c.HasSameDayCheckin = true
				break
			}
		}

		for j := i + 1; j < len(sorted); j++ {
			if IsBlocked(sorted[j].Summary) {
				continue
			}
			next := sorted[j].Start
			c.NextCheckinDate = &next
			break
		}

		checkouts = append(checkouts, c)
	}

	return checkouts
}

// FilterUpcoming keeps checkouts whose calendar day falls within
// [today, today+horizonDays], both bounds inclusive, where today is now
// truncated to midnight in the operating timezone. Input order is
// preserved.
func FilterUpcoming(checkouts []Checkout, now time.Time, horizonDays int, loc *time.Location) []Checkout {
	if loc == nil {
		loc = time.Local
	}
	today := midnight(now.In(loc))
	last := today.AddDate(0, 0, horizonDays)

	var out []Checkout
	for _, c := range checkouts {
		day := midnight(c.Date.In(loc))
		if day.Before(today) || day.After(last) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
