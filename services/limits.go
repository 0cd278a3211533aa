package services

import (
	"context"
	"fmt"
	"log"

	"github.com/djdjdallas/Airbnb-cleaner/models"
	"github.com/djdjdallas/Airbnb-cleaner/storage"
)

// LimitService enforces per-owner active-job plan limits. When an owner
// exceeds their plan's cap, the newest pending jobs are paused and the
// owner is notified.
type LimitService struct {
	store    *storage.PostgresStore
	notifier Notifier
}

func NewLimitService(store *storage.PostgresStore, notifier Notifier) *LimitService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &LimitService{store: store, notifier: notifier}
}

// EnforceOwnerLimits pauses overflow jobs for every owner over their
// limit and returns the number of jobs paused.
func (s *LimitService) EnforceOwnerLimits(ctx context.Context) (int, error) {
	overloaded, err := s.store.ListOwnersOverJobLimit(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners over limit: %w", err)
	}

	paused := 0
	for _, o := range overloaded {
		excess := o.ActiveJobs - o.MaxActiveJobs
		if excess <= 0 {
			continue
		}

		jobs, err := s.store.ListPausableJobs(ctx, o.OwnerID, excess)
		if err != nil {
			log.Printf("Warning: failed to list pausable jobs for owner %s: %v", o.OwnerID, err)
			continue
		}

		count := 0
		for _, job := range jobs {
			if err := s.store.UpdateJobStatus(ctx, job.ID, models.JobStatusPaused); err != nil {
				log.Printf("Warning: failed to pause job %s: %v", job.ID, err)
				continue
			}
			count++
		}
		paused += count

		if count > 0 {
			s.notifier.Notify(ctx, o.OwnerID,
				"Cleaning jobs paused",
				fmt.Sprintf("%d cleaning job(s) were paused because your plan allows %d active jobs.", count, o.MaxActiveJobs),
				models.NotificationTypeJobLimit)
		}
	}

	return paused, nil
}
