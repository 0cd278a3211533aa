// Package syncer runs the calendar-to-job pipeline across all active
// properties: fetch, parse, extract checkouts, filter to the horizon, and
// reconcile against persisted jobs.
package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/djdjdallas/Airbnb-cleaner/calendar"
	"github.com/djdjdallas/Airbnb-cleaner/models"
	"github.com/djdjdallas/Airbnb-cleaner/services"
	"github.com/djdjdallas/Airbnb-cleaner/storage"
)

// Store is the persistence collaborator the pipeline needs. The Postgres
// store satisfies it; tests use a fake.
type Store interface {
	ListActiveProperties(ctx context.Context) ([]models.Property, error)
	GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
	ListExistingJobDates(ctx context.Context, propertyID uuid.UUID) (map[string]struct{}, error)
	CreateJob(ctx context.Context, job *models.CleaningJob) error
	MarkPropertySynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
	MarkPropertySyncError(ctx context.Context, id uuid.UUID, message string) error
	GetAssignedCleaners(ctx context.Context, propertyID uuid.UUID) ([]models.CleanerAssignment, error)
}

// Fetcher retrieves raw calendar text for a feed URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RunRecorder persists run records and per-run log lines. Optional; a nil
// recorder disables run bookkeeping.
type RunRecorder interface {
	CreateSyncRun(ctx context.Context, run *models.SyncRun) error
	UpdateSyncRun(ctx context.Context, run *models.SyncRun) error
	CreateSyncLog(ctx context.Context, entry *models.SyncLog) error
}

// Archiver stores raw feed snapshots. Optional and best-effort.
type Archiver interface {
	Archive(ctx context.Context, propertyID string, body []byte) (string, error)
}

// Options tune the orchestrator. Zero values fall back to defaults.
type Options struct {
	HorizonDays int            // default 30
	Timeout     time.Duration  // overall RunSync deadline; 0 disables
	Concurrency int            // property fan-out; default 4
	Location    *time.Location // operating timezone; default time.Local
}

type Orchestrator struct {
	store    Store
	fetcher  Fetcher
	recorder RunRecorder
	ops      *storage.OpsStore
	archiver Archiver
	opts     Options

	mu      sync.Mutex
	paused  bool
	running bool
}

func NewOrchestrator(store Store, fetcher Fetcher, opts Options) *Orchestrator {
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 30
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Orchestrator{
		store:   store,
		fetcher: fetcher,
		opts:    opts,
	}
}

// SetRecorder attaches the domain run recorder (Postgres sync_runs).
func (o *Orchestrator) SetRecorder(r RunRecorder) {
	o.recorder = r
}

// SetOpsStore attaches the local operational store for run history and
// per-property stats.
func (o *Orchestrator) SetOpsStore(ops *storage.OpsStore) {
	o.ops = ops
}

// SetArchiver attaches the raw-feed archiver.
func (o *Orchestrator) SetArchiver(a Archiver) {
	o.archiver = a
}

func (o *Orchestrator) SetPaused(paused bool) {
	o.mu.Lock()
	o.paused = paused
	o.mu.Unlock()
	if paused {
		log.Println("Sync paused")
	} else {
		log.Println("Sync resumed")
	}
}

func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

// RunSync executes one sync pass over every active property. Per-property
// failures are isolated into the summary; RunSync itself errors only when
// the property list cannot be loaded.
//
// Passes never overlap. Two concurrent passes would both read the existing
// job dates before either inserts, duplicating the same checkout; a pass
// requested while one is in flight is skipped instead.
func (o *Orchestrator) RunSync(ctx context.Context) (*models.SyncSummary, error) {
	o.mu.Lock()
	if o.paused {
		o.mu.Unlock()
		log.Println("Sync is paused, skipping run")
		return &models.SyncSummary{StartedAt: time.Now(), FinishedAt: time.Now()}, nil
	}
	if o.running {
		o.mu.Unlock()
		log.Println("Sync already in progress, skipping run")
		return &models.SyncSummary{StartedAt: time.Now(), FinishedAt: time.Now()}, nil
	}
	o.running = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	properties, err := o.store.ListActiveProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active properties: %w", err)
	}

	summary := &models.SyncSummary{
		Attempted: len(properties),
		StartedAt: time.Now(),
		Details:   make([]models.PropertyResult, len(properties)),
	}

	run := o.beginRun(ctx, summary)

	log.Printf("Starting sync for %d properties", len(properties))

	// Bounded fan-out; each property's working set is local to its own
	// pipeline invocation, so no shared state beyond the results slot.
	sem := make(chan struct{}, o.opts.Concurrency)
	var wg sync.WaitGroup
	for i := range properties {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			summary.Details[i] = o.syncProperty(ctx, &properties[i], run)
		}(i)
	}
	wg.Wait()

	for _, d := range summary.Details {
		if d.Success {
			summary.Succeeded++
			summary.JobsCreated += d.JobsCreated
		} else {
			summary.Failed++
		}
	}
	summary.FinishedAt = time.Now()

	o.finishRun(run, summary)

	log.Printf("Sync complete: %d attempted, %d succeeded, %d failed, %d jobs created",
		summary.Attempted, summary.Succeeded, summary.Failed, summary.JobsCreated)

	return summary, nil
}

// RunProperty syncs a single property on demand.
func (o *Orchestrator) RunProperty(ctx context.Context, propertyID uuid.UUID) (*models.PropertyResult, error) {
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	property, err := o.store.GetPropertyByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if property == nil {
		return nil, fmt.Errorf("unknown property: %s", propertyID)
	}

	result := o.syncProperty(ctx, property, nil)
	return &result, nil
}

// syncProperty runs one sync pass: fetch, parse, expand, extract, filter,
// reconcile. Every failure path records the error on the property and
// reports it in the result; nothing escapes to abort sibling properties.
func (o *Orchestrator) syncProperty(ctx context.Context, property *models.Property, run *runRecord) models.PropertyResult {
	result := models.PropertyResult{
		PropertyID:   property.ID,
		PropertyName: property.Name,
	}

	fail := func(err error) models.PropertyResult {
		msg := err.Error()
		if ctx.Err() != nil {
			msg = "sync timed out"
		}
		result.Error = msg
		o.logProperty(run, models.LogLevelError, property.ID, fmt.Sprintf("Sync failed: %s", msg))
		// Use a fresh context: the pipeline context may already be dead.
		markCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if merr := o.store.MarkPropertySyncError(markCtx, property.ID, msg); merr != nil {
			log.Printf("Warning: failed to record sync error for %s: %v", property.Name, merr)
		}
		o.recordStats(property.ID, false, 0)
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	body, err := o.fetcher.Fetch(ctx, property.CalendarURL)
	if err != nil {
		return fail(err)
	}

	if o.archiver != nil {
		if _, aerr := o.archiver.Archive(ctx, property.ID.String(), body); aerr != nil {
			log.Printf("Warning: feed archive failed for %s: %v", property.Name, aerr)
		}
	}

	events, err := calendar.Parse(body)
	if err != nil {
		return fail(err)
	}

	now := time.Now()
	horizonEnd := now.AddDate(0, 0, o.opts.HorizonDays+1)
	events = calendar.ExpandRecurrences(events, now.AddDate(0, 0, -1), horizonEnd)

	checkouts := calendar.ExtractCheckouts(events)
	upcoming := calendar.FilterUpcoming(checkouts, now, o.opts.HorizonDays, o.opts.Location)

	created, err := o.reconcile(ctx, property, upcoming, run)
	if err != nil {
		return fail(err)
	}

	if err := o.store.MarkPropertySynced(ctx, property.ID, time.Now()); err != nil {
		log.Printf("Warning: failed to mark %s synced: %v", property.Name, err)
	}

	result.Success = true
	result.JobsCreated = created
	o.logProperty(run, models.LogLevelInfo, property.ID,
		fmt.Sprintf("Synced: %d events, %d upcoming checkouts, %d jobs created", len(events), len(upcoming), created))
	o.recordStats(property.ID, true, created)
	return result
}

// reconcile materializes new checkouts into jobs in checkout-date order.
// A persistence failure on one job skips that job only; siblings in the
// same property still proceed.
func (o *Orchestrator) reconcile(ctx context.Context, property *models.Property, checkouts []calendar.Checkout, run *runRecord) (int, error) {
	if len(checkouts) == 0 {
		return 0, nil
	}

	existing, err := o.store.ListExistingJobDates(ctx, property.ID)
	if err != nil {
		return 0, fmt.Errorf("list existing jobs: %w", err)
	}

	assignments, err := o.store.GetAssignedCleaners(ctx, property.ID)
	if err != nil {
		return 0, fmt.Errorf("get assigned cleaners: %w", err)
	}
	cleanerID := services.PickCleaner(assignments)

	created := 0
	for _, item := range services.PlanJobs(property.ID, checkouts, existing, cleanerID) {
		if item.Outcome != services.OutcomeCreated {
			continue
		}
		if err := o.store.CreateJob(ctx, item.Job); err != nil {
			log.Printf("Warning: failed to create job for %s on %s: %v",
				property.Name, calendar.DateKey(item.Job.CheckoutDate), err)
			o.logProperty(run, models.LogLevelWarn, property.ID,
				fmt.Sprintf("Job creation failed for %s", calendar.DateKey(item.Job.CheckoutDate)))
			continue
		}
		created++
	}

	return created, nil
}

// runRecord tracks one sync pass across both run stores. The ops store
// and Postgres assign independent row IDs for the same pass.
type runRecord struct {
	rec   models.SyncRun
	opsID int64
	pgID  int64
}

func (o *Orchestrator) beginRun(ctx context.Context, summary *models.SyncSummary) *runRecord {
	run := &runRecord{
		rec: models.SyncRun{
			StartedAt:           summary.StartedAt,
			Status:              models.RunStatusRunning,
			PropertiesAttempted: summary.Attempted,
		},
	}

	if o.ops != nil {
		if id, err := o.ops.CreateRun(&run.rec); err != nil {
			log.Printf("Warning: failed to create ops run record: %v", err)
		} else {
			run.opsID = id
		}
	}
	if o.recorder != nil {
		pgRun := run.rec
		if err := o.recorder.CreateSyncRun(ctx, &pgRun); err != nil {
			log.Printf("Warning: failed to create sync run: %v", err)
		} else {
			run.pgID = pgRun.ID
		}
	}
	return run
}

func (o *Orchestrator) finishRun(run *runRecord, summary *models.SyncSummary) {
	now := time.Now()
	run.rec.FinishedAt = &now
	run.rec.PropertiesAttempted = summary.Attempted
	run.rec.PropertiesSucceeded = summary.Succeeded
	run.rec.PropertiesFailed = summary.Failed
	run.rec.JobsCreated = summary.JobsCreated
	switch {
	case summary.Failed == 0:
		run.rec.Status = models.RunStatusCompleted
	case summary.Succeeded == 0 && summary.Failed > 0:
		run.rec.Status = models.RunStatusFailed
	default:
		run.rec.Status = models.RunStatusPartial
	}

	if o.ops != nil && run.opsID != 0 {
		opsRun := run.rec
		opsRun.ID = run.opsID
		if err := o.ops.UpdateRun(&opsRun); err != nil {
			log.Printf("Warning: failed to update ops run record: %v", err)
		}
	}
	if o.recorder != nil && run.pgID != 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pgRun := run.rec
		pgRun.ID = run.pgID
		if err := o.recorder.UpdateSyncRun(ctx, &pgRun); err != nil {
			log.Printf("Warning: failed to update sync run: %v", err)
		}
	}
}

func (o *Orchestrator) logProperty(run *runRecord, level models.LogLevel, propertyID uuid.UUID, message string) {
	log.Printf("[%s] %s: %s", level, propertyID, message)

	if o.ops != nil {
		var runID *int64
		if run != nil && run.opsID != 0 {
			runID = &run.opsID
		}
		if err := o.ops.Log(runID, level, message, propertyID.String()); err != nil {
			log.Printf("Warning: failed to write ops log: %v", err)
		}
	}
	if o.recorder != nil {
		var runID *int64
		if run != nil && run.pgID != 0 {
			runID = &run.pgID
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		entry := &models.SyncLog{
			RunID:      runID,
			Timestamp:  time.Now(),
			Level:      level,
			Message:    message,
			PropertyID: propertyID.String(),
		}
		if err := o.recorder.CreateSyncLog(ctx, entry); err != nil {
			log.Printf("Warning: failed to write sync log: %v", err)
		}
	}
}

func (o *Orchestrator) recordStats(propertyID uuid.UUID, success bool, jobsCreated int) {
	if o.ops == nil {
		return
	}
	if err := o.ops.RecordPropertySync(propertyID.String(), success, jobsCreated); err != nil {
		log.Printf("Warning: failed to record property stats: %v", err)
	}
}
