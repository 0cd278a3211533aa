package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/djdjdallas/Airbnb-cleaner/calendar"
	"github.com/djdjdallas/Airbnb-cleaner/models"
)

func TestPlanJobs_DedupByCalendarDate(t *testing.T) {
	propertyID := uuid.New()

	// Existing job was stored at midnight UTC; the feed delivers the same
	// checkout at mid-afternoon. Same calendar date, so no new job.
	existing := map[string]struct{}{
		"2024-06-01": {},
	}
	checkouts := []calendar.Checkout{
		{Date: time.Date(2024, time.June, 1, 14, 0, 0, 0, time.UTC)},
		{Date: time.Date(2024, time.June, 5, 11, 0, 0, 0, time.UTC)},
	}

	items := PlanJobs(propertyID, checkouts, existing, nil)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Outcome != OutcomeSkippedExisting {
		t.Fatalf("expected June 1 skipped, got %s", items[0].Outcome)
	}
	if items[0].Job != nil {
		t.Fatal("skipped item must not carry a job")
	}
	if items[1].Outcome != OutcomeCreated {
		t.Fatalf("expected June 5 created, got %s", items[1].Outcome)
	}
	job := items[1].Job
	if job == nil {
		t.Fatal("created item must carry a job")
	}
	if job.PropertyID != propertyID {
		t.Fatalf("unexpected property id %s", job.PropertyID)
	}
	if job.Status != models.JobStatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}
}

func TestPlanJobs_DedupWithinOnePass(t *testing.T) {
	propertyID := uuid.New()

	// Two bookings ending on the same calendar date produce one job.
	checkouts := []calendar.Checkout{
		{Date: time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)},
		{Date: time.Date(2024, time.June, 10, 16, 0, 0, 0, time.UTC)},
	}

	items := PlanJobs(propertyID, checkouts, nil, nil)
	if items[0].Outcome != OutcomeCreated {
		t.Fatalf("expected first created, got %s", items[0].Outcome)
	}
	if items[1].Outcome != OutcomeSkippedExisting {
		t.Fatalf("expected second skipped, got %s", items[1].Outcome)
	}
}

func TestPlanJobs_CarriesTurnaroundDetails(t *testing.T) {
	propertyID := uuid.New()
	cleanerID := uuid.New()
	checkin := time.Date(2024, time.June, 1, 16, 0, 0, 0, time.UTC)

	checkouts := []calendar.Checkout{
		{
			Date:              time.Date(2024, time.June, 1, 11, 0, 0, 0, time.UTC),
			HasSameDayCheckin: true,
			NextCheckinDate:   &checkin,
		},
	}

	items := PlanJobs(propertyID, checkouts, nil, &cleanerID)
	job := items[0].Job
	if !job.IsSameDayTurnaround {
		t.Fatal("expected same-day flag carried onto job")
	}
	if job.CheckinDate == nil || !job.CheckinDate.Equal(checkin) {
		t.Fatalf("expected check-in date %v, got %v", checkin, job.CheckinDate)
	}
	if job.CleanerID == nil || *job.CleanerID != cleanerID {
		t.Fatalf("expected cleaner %s, got %v", cleanerID, job.CleanerID)
	}
}

func TestPickCleaner(t *testing.T) {
	primary := uuid.New()
	older := uuid.New()
	newer := uuid.New()

	t0 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	assignments := []models.CleanerAssignment{
		{CleanerID: newer, CreatedAt: t0.Add(48 * time.Hour)},
		{CleanerID: primary, IsPrimary: true, CreatedAt: t0.Add(72 * time.Hour)},
		{CleanerID: older, CreatedAt: t0},
	}
	if got := PickCleaner(assignments); got == nil || *got != primary {
		t.Fatalf("expected primary cleaner, got %v", got)
	}

	// Without a primary, earliest assignment wins regardless of slice order
	noPrimary := []models.CleanerAssignment{
		{CleanerID: newer, CreatedAt: t0.Add(48 * time.Hour)},
		{CleanerID: older, CreatedAt: t0},
	}
	if got := PickCleaner(noPrimary); got == nil || *got != older {
		t.Fatalf("expected earliest cleaner, got %v", got)
	}

	if got := PickCleaner(nil); got != nil {
		t.Fatalf("expected nil for no assignments, got %v", got)
	}
}
