package workers

import (
	"context"
	"log"
	"time"

	"github.com/djdjdallas/Airbnb-cleaner/services"
)

// LimitsWorker periodically enforces per-owner active-job caps.
type LimitsWorker struct {
	limits    *services.LimitService
	triggerCh chan struct{}
}

func NewLimitsWorker(limits *services.LimitService) *LimitsWorker {
	return &LimitsWorker{
		limits:    limits,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run immediately
func (w *LimitsWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the limits worker loop
func (w *LimitsWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Limits worker stopping")
			return
		case <-ticker.C:
			w.enforce(ctx)
		case <-w.triggerCh:
			log.Println("Limits worker triggered manually")
			w.enforce(ctx)
		}
	}
}

func (w *LimitsWorker) enforce(ctx context.Context) {
	paused, err := w.limits.EnforceOwnerLimits(ctx)
	if err != nil {
		log.Printf("Limits worker: %v", err)
		return
	}
	if paused > 0 {
		log.Printf("Limits worker: paused %d jobs over plan limits", paused)
	}
}
