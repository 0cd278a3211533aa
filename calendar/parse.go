package calendar

import (
	"bytes"
	"log"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ParseError is a structurally invalid top-level document. Individual
// malformed entries never cause one; they are skipped instead.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "calendar feed could not be parsed"
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse converts raw calendar text into the feed's event sequence in
// order of appearance. Order is not significant downstream; the extractor
// re-sorts.
//
// Tolerance rules: a sub-record that fails to parse is skipped, an entry
// without a start time is dropped, and an entry without an end time
// becomes a zero-duration event (end := start).
func Parse(body []byte) ([]Event, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	events := make([]Event, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		ev, ok := parseVEvent(ve)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (Event, bool) {
	var out Event

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	start, err := eventStart(ve)
	if err != nil {
		// Cannot be scheduled without a start.
		if out.UID != "" {
			log.Printf("Warning: skipping calendar entry %s: %v", out.UID, err)
		}
		return out, false
	}
	out.Start = start

	end, err := eventEnd(ve)
	if err != nil {
		end = start
	}
	out.End = end

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(strings.TrimSpace(part)); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, true
}

// eventStart handles both DATE-TIME and all-day DATE forms; Airbnb and
// VRBO feeds use the latter.
func eventStart(ve *ical.VEvent) (time.Time, error) {
	if t, err := ve.GetStartAt(); err == nil {
		return t, nil
	}
	return ve.GetAllDayStartAt()
}

func eventEnd(ve *ical.VEvent) (time.Time, error) {
	if t, err := ve.GetEndAt(); err == nil {
		return t, nil
	}
	return ve.GetAllDayEndAt()
}

// parseICSTime parses the basic EXDATE value forms: UTC date-time, local
// date-time, and date-only.
func parseICSTime(v string) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, time.Local)
	default:
		return time.ParseInLocation("20060102", v, time.Local)
	}
}
