package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/djdjdallas/Airbnb-cleaner/calendar"
	"github.com/djdjdallas/Airbnb-cleaner/models"
)

type fakeStore struct {
	mu         sync.Mutex
	properties []models.Property
	jobDates   map[uuid.UUID]map[string]struct{}
	created    []*models.CleaningJob
	failCreate map[string]bool
	synced     map[uuid.UUID]time.Time
	syncErrors map[uuid.UUID]string
}

func newFakeStore(properties ...models.Property) *fakeStore {
	return &fakeStore{
		properties: properties,
		jobDates:   make(map[uuid.UUID]map[string]struct{}),
		failCreate: make(map[string]bool),
		synced:     make(map[uuid.UUID]time.Time),
		syncErrors: make(map[uuid.UUID]string),
	}
}

func (f *fakeStore) ListActiveProperties(ctx context.Context) ([]models.Property, error) {
	return f.properties, nil
}

func (f *fakeStore) GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	for i := range f.properties {
		if f.properties[i].ID == id {
			return &f.properties[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListExistingJobDates(ctx context.Context, propertyID uuid.UUID) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{})
	for k := range f.jobDates[propertyID] {
		out[k] = struct{}{}
	}
	return out, nil
}

func (f *fakeStore) CreateJob(ctx context.Context, job *models.CleaningJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := calendar.DateKey(job.CheckoutDate)
	if f.failCreate[key] {
		return errors.New("insert failed")
	}
	if f.jobDates[job.PropertyID] == nil {
		f.jobDates[job.PropertyID] = make(map[string]struct{})
	}
	f.jobDates[job.PropertyID][key] = struct{}{}
	f.created = append(f.created, job)
	return nil
}

func (f *fakeStore) MarkPropertySynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced[id] = syncedAt
	return nil
}

func (f *fakeStore) MarkPropertySyncError(ctx context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncErrors[id] = message
	return nil
}

func (f *fakeStore) GetAssignedCleaners(ctx context.Context, propertyID uuid.UUID) ([]models.CleanerAssignment, error) {
	return nil, nil
}

type fakeFetcher struct {
	feeds map[string][]byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, ok := f.feeds[url]
	if !ok {
		return nil, &calendar.FetchError{StatusCode: 500, Status: "500 Internal Server Error"}
	}
	return body, nil
}

func testProperty(name, url string) models.Property {
	return models.Property{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Name:        name,
		CalendarURL: url,
		IsActive:    true,
	}
}

// buildFeed renders a minimal reservation feed with one booking per
// checkout day offset from now.
func buildFeed(now time.Time, checkoutOffsets ...int) []byte {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\n")
	for i, off := range checkoutOffsets {
		end := now.AddDate(0, 0, off)
		start := end.AddDate(0, 0, -2)
		fmt.Fprintf(&b, "BEGIN:VEVENT\r\nUID:booking-%d\r\nSUMMARY:Reserved\r\nDTSTART:%s\r\nDTEND:%s\r\nEND:VEVENT\r\n",
			i, start.UTC().Format("20060102T150405Z"), end.UTC().Format("20060102T150405Z"))
	}
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String())
}

func TestRunSync_PartialFailureIsolation(t *testing.T) {
	now := time.Now()
	p1 := testProperty("Beach House", "https://feeds.test/p1.ics")
	p2 := testProperty("City Loft", "https://feeds.test/p2.ics")
	p3 := testProperty("Cabin", "https://feeds.test/p3.ics")

	store := newFakeStore(p1, p2, p3)
	fetcher := &fakeFetcher{feeds: map[string][]byte{
		p1.CalendarURL: buildFeed(now, 3, 7),
		p3.CalendarURL: buildFeed(now, 5),
		// p2 has no feed registered: fetch fails
	}}

	o := NewOrchestrator(store, fetcher, Options{Location: time.UTC})
	summary, err := o.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}

	if summary.Attempted != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.JobsCreated != 3 {
		t.Fatalf("expected 3 jobs created, got %d", summary.JobsCreated)
	}

	if _, ok := store.synced[p1.ID]; !ok {
		t.Fatal("expected p1 marked synced")
	}
	if _, ok := store.synced[p2.ID]; ok {
		t.Fatal("failed property must not be marked synced")
	}
	if msg := store.syncErrors[p2.ID]; msg == "" {
		t.Fatal("expected sync error recorded for p2")
	}
}

func TestRunSync_Idempotent(t *testing.T) {
	now := time.Now()
	p := testProperty("Beach House", "https://feeds.test/p.ics")

	store := newFakeStore(p)
	fetcher := &fakeFetcher{feeds: map[string][]byte{
		p.CalendarURL: buildFeed(now, 3, 7, 10),
	}}

	o := NewOrchestrator(store, fetcher, Options{Location: time.UTC})

	first, err := o.RunSync(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.JobsCreated != 3 {
		t.Fatalf("expected 3 jobs on first run, got %d", first.JobsCreated)
	}

	second, err := o.RunSync(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.JobsCreated != 0 {
		t.Fatalf("expected 0 jobs on re-sync, got %d", second.JobsCreated)
	}
	if second.Succeeded != 1 {
		t.Fatalf("re-sync must still succeed, got %+v", second)
	}
}

func TestRunSync_JobPersistenceFailureDoesNotFailProperty(t *testing.T) {
	now := time.Now()
	p := testProperty("Beach House", "https://feeds.test/p.ics")

	store := newFakeStore(p)
	store.failCreate[calendar.DateKey(now.UTC().AddDate(0, 0, 3))] = true
	fetcher := &fakeFetcher{feeds: map[string][]byte{
		p.CalendarURL: buildFeed(now, 3, 7),
	}}

	o := NewOrchestrator(store, fetcher, Options{Location: time.UTC})
	summary, err := o.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}

	if summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("expected property to succeed despite job failure, got %+v", summary)
	}
	if summary.JobsCreated != 1 {
		t.Fatalf("expected 1 job created, got %d", summary.JobsCreated)
	}
	if _, ok := store.synced[p.ID]; !ok {
		t.Fatal("expected property marked synced")
	}
}

// blockingFetcher parks inside Fetch until released, holding a sync pass
// in flight.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
	body    []byte
}

func (f *blockingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.entered <- struct{}{}
	<-f.release
	return f.body, nil
}

func TestRunSync_OverlappingRunSkipped(t *testing.T) {
	now := time.Now()
	p := testProperty("Beach House", "https://feeds.test/p.ics")

	store := newFakeStore(p)
	// entered is buffered so later passes do not block once release is
	// closed and nobody is reading it.
	fetcher := &blockingFetcher{
		entered: make(chan struct{}, 2),
		release: make(chan struct{}),
		body:    buildFeed(now, 3, 7),
	}

	o := NewOrchestrator(store, fetcher, Options{Location: time.UTC})

	type runResult struct {
		summary *models.SyncSummary
		err     error
	}
	done := make(chan runResult, 1)
	go func() {
		s, err := o.RunSync(context.Background())
		done <- runResult{s, err}
	}()

	// First pass is now parked inside the fetch; a second pass must skip
	// rather than re-read job dates the first pass has yet to write.
	<-fetcher.entered
	second, err := o.RunSync(context.Background())
	if err != nil {
		t.Fatalf("overlapping run errored: %v", err)
	}
	if second.Attempted != 0 || second.JobsCreated != 0 {
		t.Fatalf("overlapping run must be skipped, got %+v", second)
	}

	close(fetcher.release)
	first := <-done
	if first.err != nil {
		t.Fatalf("first run failed: %v", first.err)
	}
	if first.summary.JobsCreated != 2 {
		t.Fatalf("expected 2 jobs from first run, got %d", first.summary.JobsCreated)
	}
	if len(store.created) != 2 {
		t.Fatalf("expected 2 jobs persisted total, got %d", len(store.created))
	}

	// The flag clears once the pass finishes; the next run proceeds and
	// finds nothing new.
	third, err := o.RunSync(context.Background())
	if err != nil {
		t.Fatalf("follow-up run failed: %v", err)
	}
	if third.Attempted != 1 || third.JobsCreated != 0 {
		t.Fatalf("expected idempotent follow-up run, got %+v", third)
	}
}

func TestRunSync_Paused(t *testing.T) {
	p := testProperty("Beach House", "https://feeds.test/p.ics")
	store := newFakeStore(p)
	fetcher := &fakeFetcher{feeds: map[string][]byte{}}

	o := NewOrchestrator(store, fetcher, Options{Location: time.UTC})
	o.SetPaused(true)

	summary, err := o.RunSync(context.Background())
	if err != nil {
		t.Fatalf("RunSync failed: %v", err)
	}
	if summary.Attempted != 0 {
		t.Fatalf("paused run must not touch properties, got %+v", summary)
	}
	if len(store.syncErrors) != 0 {
		t.Fatal("paused run must not record errors")
	}
}

func TestRunProperty(t *testing.T) {
	now := time.Now()
	p := testProperty("Beach House", "https://feeds.test/p.ics")
	store := newFakeStore(p)
	fetcher := &fakeFetcher{feeds: map[string][]byte{
		p.CalendarURL: buildFeed(now, 4),
	}}

	o := NewOrchestrator(store, fetcher, Options{Location: time.UTC})

	result, err := o.RunProperty(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("RunProperty failed: %v", err)
	}
	if !result.Success || result.JobsCreated != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, err := o.RunProperty(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected error for unknown property")
	}
}
