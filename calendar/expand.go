package calendar

import (
	"log"
	"time"

	"github.com/teambition/rrule-go"
)

// Occurrence cap per recurring entry. Booking feeds rarely carry RRULE at
// all; the cap guards against a runaway rule.
const maxOccurrencesPerEvent = 366

// ExpandRecurrences replaces RRULE-bearing events with their concrete
// occurrences inside [rangeStart, rangeEnd], applying EXDATE exceptions
// and preserving each occurrence's original duration. Non-recurring
// events pass through untouched, so a feed without recurrence rules comes
// back unchanged.
func ExpandRecurrences(events []Event, rangeStart, rangeEnd time.Time) []Event {
	out := make([]Event, 0, len(events))

	for _, ev := range events {
		if ev.RRule == "" {
			out = append(out, ev)
			continue
		}
		out = append(out, expandEvent(ev, rangeStart, rangeEnd)...)
	}

	return out
}

func expandEvent(ev Event, rangeStart, rangeEnd time.Time) []Event {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		log.Printf("Warning: unparsable RRULE on %s, keeping base occurrence: %v", ev.UID, err)
		base := ev
		base.RRule = ""
		return []Event{base}
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	starts := set.Between(rangeStart.In(ev.Start.Location()), rangeEnd.In(ev.Start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		log.Printf("Warning: recurrence on %s truncated at %d occurrences", ev.UID, maxOccurrencesPerEvent)
		starts = starts[:maxOccurrencesPerEvent]
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Event, 0, len(starts))
	for _, start := range starts {
		occ := ev
		occ.RRule = ""
		occ.ExDates = nil
		occ.Start = start
		occ.End = start.Add(dur)
		out = append(out, occ)
	}
	return out
}
