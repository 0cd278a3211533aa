package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/djdjdallas/Airbnb-cleaner/models"
	"github.com/djdjdallas/Airbnb-cleaner/storage"
)

// Notifier is the fire-and-forget notification capability. Implementations
// swallow and log their own failures; a broken notification channel must
// never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, body, typ string)
}

// QueueNotifier persists notifications for the dispatch worker to drain.
type QueueNotifier struct {
	store *storage.PostgresStore
}

func NewQueueNotifier(store *storage.PostgresStore) *QueueNotifier {
	return &QueueNotifier{store: store}
}

func (n *QueueNotifier) Notify(ctx context.Context, userID uuid.UUID, title, body, typ string) {
	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Type:      typ,
		Status:    models.NotificationStatusPending,
		CreatedAt: time.Now(),
	}
	if err := n.store.CreateNotification(ctx, notification); err != nil {
		log.Printf("Warning: failed to queue notification for %s: %v", userID, err)
	}
}

// NoopNotifier discards notifications; used when no push endpoint is
// configured and in tests.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, userID uuid.UUID, title, body, typ string) {}

// PushClient delivers a notification to the external push endpoint.
type PushClient struct {
	url        string
	serviceKey string
	client     *http.Client
}

func NewPushClient(url, serviceKey string, client *http.Client) *PushClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PushClient{url: url, serviceKey: serviceKey, client: client}
}

func (p *PushClient) Send(ctx context.Context, n *models.Notification) error {
	payload := map[string]string{
		"user_id": n.UserID.String(),
		"title":   n.Title,
		"body":    n.Body,
		"type":    n.Type,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push endpoint error %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
