package scheduler

import (
	"context"
	"testing"

	"github.com/djdjdallas/Airbnb-cleaner/config"
	"github.com/djdjdallas/Airbnb-cleaner/models"
)

type fakeWorker struct {
	triggered int
}

func (f *fakeWorker) Trigger() { f.triggered++ }

func TestHandleCommand_RunNotifierWithoutWorker(t *testing.T) {
	s := New(&config.Config{}, nil, nil)
	limits := &fakeWorker{}
	// Push endpoint unconfigured: no notifier worker is registered.
	s.SetWorkers(nil, limits)

	cmd := &models.Command{Command: models.CmdRunNotifier}
	if err := s.handleCommand(context.Background(), cmd); err != nil {
		t.Fatalf("run_notifier without a worker must be a no-op, got %v", err)
	}
	if limits.triggered != 0 {
		t.Fatalf("limits worker must not fire for run_notifier")
	}
}

func TestHandleCommand_TriggersRegisteredWorkers(t *testing.T) {
	s := New(&config.Config{}, nil, nil)
	notifier := &fakeWorker{}
	limits := &fakeWorker{}
	s.SetWorkers(notifier, limits)

	if err := s.handleCommand(context.Background(), &models.Command{Command: models.CmdRunNotifier}); err != nil {
		t.Fatalf("run_notifier failed: %v", err)
	}
	if notifier.triggered != 1 {
		t.Fatalf("expected notifier triggered once, got %d", notifier.triggered)
	}

	if err := s.handleCommand(context.Background(), &models.Command{Command: models.CmdRunLimits}); err != nil {
		t.Fatalf("run_limits failed: %v", err)
	}
	if limits.triggered != 1 {
		t.Fatalf("expected limits worker triggered once, got %d", limits.triggered)
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	s := New(&config.Config{}, nil, nil)

	if err := s.handleCommand(context.Background(), &models.Command{Command: "reticulate"}); err == nil {
		t.Fatal("expected error for unknown command")
	}
}
