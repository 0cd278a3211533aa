package calendar

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 16, 0, 0, 0, time.UTC)
}

func TestExtractCheckouts_SameDayTurnaround(t *testing.T) {
	events := []Event{
		{UID: "b", Summary: "Reserved", Start: day(10), End: day(12)},
		{UID: "a", Summary: "Reserved", Start: day(5), End: day(10)},
		{UID: "c", Summary: "Reserved", Start: day(13), End: day(15)},
	}

	checkouts := ExtractCheckouts(events)
	if len(checkouts) != 3 {
		t.Fatalf("expected 3 checkouts, got %d", len(checkouts))
	}

	// Sorted by end: a (Jan 10), b (Jan 12), c (Jan 15)
	first := checkouts[0]
	if first.Source.UID != "a" {
		t.Fatalf("expected first checkout from a, got %s", first.Source.UID)
	}
	if !first.HasSameDayCheckin {
		t.Fatal("expected same-day turnaround: b checks in on a's checkout day")
	}
	if first.NextCheckinDate == nil || !first.NextCheckinDate.Equal(day(10)) {
		t.Fatalf("expected next check-in Jan 10, got %v", first.NextCheckinDate)
	}

	second := checkouts[1]
	if second.Source.UID != "b" {
		t.Fatalf("expected second checkout from b, got %s", second.Source.UID)
	}
	if second.HasSameDayCheckin {
		t.Fatal("no booking starts on Jan 12, expected no same-day turnaround")
	}
	if second.NextCheckinDate == nil || !second.NextCheckinDate.Equal(day(13)) {
		t.Fatalf("expected next check-in Jan 13, got %v", second.NextCheckinDate)
	}

	third := checkouts[2]
	if third.Source.UID != "c" {
		t.Fatalf("expected third checkout from c, got %s", third.Source.UID)
	}
	if third.HasSameDayCheckin {
		t.Fatal("expected no same-day turnaround for last checkout")
	}
	if third.NextCheckinDate != nil {
		t.Fatalf("expected no next check-in, got %v", third.NextCheckinDate)
	}
}

func TestExtractCheckouts_BlockedRangesIgnored(t *testing.T) {
	events := []Event{
		{UID: "a", Summary: "Reserved", Start: day(5), End: day(10)},
		{UID: "block", Summary: "Airbnb (Not available)", Start: day(10), End: day(14)},
		{UID: "c", Summary: "Reserved", Start: day(16), End: day(18)},
	}

	checkouts := ExtractCheckouts(events)
	if len(checkouts) != 2 {
		t.Fatalf("expected 2 checkouts, got %d", len(checkouts))
	}

	first := checkouts[0]
	if first.HasSameDayCheckin {
		t.Fatal("blocked range starting Jan 10 must not count as a check-in")
	}
	// The blocked range is skipped for next check-in too
	if first.NextCheckinDate == nil || !first.NextCheckinDate.Equal(day(16)) {
		t.Fatalf("expected next check-in Jan 16, got %v", first.NextCheckinDate)
	}
}

func TestExtractCheckouts_SingleDayBookingIsOwnTurnaround(t *testing.T) {
	events := []Event{
		{UID: "a", Summary: "Reserved",
			Start: time.Date(2024, time.January, 20, 10, 0, 0, 0, time.UTC),
			End:   time.Date(2024, time.January, 20, 15, 0, 0, 0, time.UTC)},
	}

	checkouts := ExtractCheckouts(events)
	if len(checkouts) != 1 {
		t.Fatalf("expected 1 checkout, got %d", len(checkouts))
	}
	// The booking's own start shares the checkout date, so the cleaner is
	// warned about a same-day window.
	if !checkouts[0].HasSameDayCheckin {
		t.Fatal("expected single-day booking to flag same-day turnaround")
	}
}

func TestFilterUpcoming_WindowBounds(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	checkouts := []Checkout{
		{Date: time.Date(2023, time.December, 31, 11, 0, 0, 0, time.UTC)}, // yesterday
		{Date: time.Date(2024, time.January, 1, 11, 0, 0, 0, time.UTC)},   // today, earlier hour
		{Date: time.Date(2024, time.January, 31, 11, 0, 0, 0, time.UTC)},  // last day in window
		{Date: time.Date(2024, time.February, 1, 11, 0, 0, 0, time.UTC)},  // one past
	}

	got := FilterUpcoming(checkouts, now, 30, time.UTC)
	if len(got) != 2 {
		t.Fatalf("expected 2 checkouts in window, got %d", len(got))
	}
	if got[0].Date.Day() != 1 || got[0].Date.Month() != time.January {
		t.Fatalf("expected today's checkout first, got %v", got[0].Date)
	}
	if got[1].Date.Day() != 31 {
		t.Fatalf("expected Jan 31 checkout, got %v", got[1].Date)
	}
}

func TestFilterUpcoming_TimezoneBoundary(t *testing.T) {
	// 2024-01-02 03:00 UTC is still 2024-01-01 19:00 in Los Angeles;
	// a checkout at that instant belongs to Jan 1 locally.
	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	now := time.Date(2024, time.January, 2, 12, 0, 0, 0, la)
	checkouts := []Checkout{
		{Date: time.Date(2024, time.January, 2, 3, 0, 0, 0, time.UTC)},
	}

	got := FilterUpcoming(checkouts, now, 30, la)
	if len(got) != 0 {
		t.Fatalf("expected checkout to fall on Jan 1 locally and be excluded, got %d", len(got))
	}
}
