package workers

import (
	"context"
	"log"
	"time"

	"github.com/djdjdallas/Airbnb-cleaner/models"
	"github.com/djdjdallas/Airbnb-cleaner/storage"
)

// PushSender delivers one notification to the push endpoint.
type PushSender interface {
	Send(ctx context.Context, n *models.Notification) error
}

// NotifierWorker drains pending notifications and delivers them through
// the push endpoint. Failed deliveries are retried on later passes until
// the attempts cap is hit.
type NotifierWorker struct {
	store     *storage.PostgresStore
	sender    PushSender
	triggerCh chan struct{}
}

func NewNotifierWorker(store *storage.PostgresStore, sender PushSender) *NotifierWorker {
	return &NotifierWorker{
		store:     store,
		sender:    sender,
		triggerCh: make(chan struct{}, 1),
	}
}

// Trigger causes the worker to run immediately
func (w *NotifierWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the notifier worker loop
func (w *NotifierWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Notifier worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx, batchSize)
		case <-w.triggerCh:
			log.Println("Notifier worker triggered manually")
			w.processBatch(ctx, batchSize)
		}
	}
}

func (w *NotifierWorker) processBatch(ctx context.Context, batchSize int) {
	pending, err := w.store.GetPendingNotifications(ctx, batchSize)
	if err != nil {
		log.Printf("Notifier worker: query error: %v", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	log.Printf("Notifier worker: delivering %d notifications", len(pending))

	var sent, failed int
	for i := range pending {
		n := &pending[i]

		if err := w.sender.Send(ctx, n); err != nil {
			log.Printf("Notifier worker: delivery failed for %s: %v", n.ID, err)
			failed++

			newAttempts := n.Attempts + 1
			status := models.NotificationStatusPending
			if newAttempts >= 3 {
				status = models.NotificationStatusFailed
			}
			if uerr := w.store.UpdateNotificationStatus(ctx, n.ID, status, newAttempts, nil); uerr != nil {
				log.Printf("Notifier worker: failed to update %s: %v", n.ID, uerr)
			}
			continue
		}

		now := time.Now()
		if err := w.store.UpdateNotificationStatus(ctx, n.ID, models.NotificationStatusSent, n.Attempts+1, &now); err != nil {
			log.Printf("Notifier worker: failed to update %s: %v", n.ID, err)
			failed++
			continue
		}
		sent++
	}

	if sent > 0 || failed > 0 {
		log.Printf("Notifier worker: sent %d, failed %d", sent, failed)
	}
}
