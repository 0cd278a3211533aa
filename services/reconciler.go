package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/djdjdallas/Airbnb-cleaner/calendar"
	"github.com/djdjdallas/Airbnb-cleaner/models"
)

// Outcome is the per-checkout reconciliation verdict.
type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeSkippedExisting Outcome = "skipped-existing"
)

// ReconcileItem pairs a checkout with its verdict. Job is set only for
// OutcomeCreated.
type ReconcileItem struct {
	Checkout calendar.Checkout
	Outcome  Outcome
	Job      *models.CleaningJob
}

// PlanJobs diffs the filtered checkout sequence against the existing job
// date keys for a property and builds the jobs to materialize. It is
// additive-only: a checkout whose calendar date already has a job is
// skipped, never updated, so manual edits to existing jobs survive
// re-syncs. Input order (checkout-date order) is preserved.
func PlanJobs(propertyID uuid.UUID, checkouts []calendar.Checkout, existing map[string]struct{}, cleanerID *uuid.UUID) []ReconcileItem {
	items := make([]ReconcileItem, 0, len(checkouts))
	seen := make(map[string]struct{}, len(existing))
	for k := range existing {
		seen[k] = struct{}{}
	}

	now := time.Now()
	for _, c := range checkouts {
		key := calendar.DateKey(c.Date)
		if _, ok := seen[key]; ok {
			items = append(items, ReconcileItem{Checkout: c, Outcome: OutcomeSkippedExisting})
			continue
		}
		seen[key] = struct{}{}

		job := &models.CleaningJob{
			ID:                  uuid.New(),
			PropertyID:          propertyID,
			CleanerID:           cleanerID,
			CheckoutDate:        c.Date,
			CheckinDate:         c.NextCheckinDate,
			Status:              models.JobStatusPending,
			IsSameDayTurnaround: c.HasSameDayCheckin,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		items = append(items, ReconcileItem{Checkout: c, Outcome: OutcomeCreated, Job: job})
	}

	return items
}

// PickCleaner selects the cleaner to assign: the primary if one is
// configured, else the earliest-created assignment, else none. The
// earliest-created tie-break is deliberate; it replaces a pick that used
// to ride on incidental query order.
func PickCleaner(assignments []models.CleanerAssignment) *uuid.UUID {
	var fallback *models.CleanerAssignment
	for i := range assignments {
		a := &assignments[i]
		if a.IsPrimary {
			id := a.CleanerID
			return &id
		}
		if fallback == nil || a.CreatedAt.Before(fallback.CreatedAt) {
			fallback = a
		}
	}
	if fallback == nil {
		return nil
	}
	id := fallback.CleanerID
	return &id
}
