package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/djdjdallas/Airbnb-cleaner/config"
	"github.com/djdjdallas/Airbnb-cleaner/models"
	"github.com/djdjdallas/Airbnb-cleaner/storage"
	"github.com/djdjdallas/Airbnb-cleaner/syncer"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

type Scheduler struct {
	cfg          *config.Config
	orchestrator *syncer.Orchestrator
	ops          *storage.OpsStore
	cron         *cron.Cron
	ticker       *time.Ticker
	stopCh       chan struct{}

	notifierWorker Triggerable
	limitsWorker   Triggerable
}

func New(cfg *config.Config, orchestrator *syncer.Orchestrator, ops *storage.OpsStore) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		ops:          ops,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering
func (s *Scheduler) SetWorkers(notifier, limits Triggerable) {
	s.notifierWorker = notifier
	s.limitsWorker = limits
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", s.cfg.Scheduler.Cron)
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, func() {
			if _, err := s.orchestrator.RunSync(ctx); err != nil {
				log.Printf("Scheduled sync error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", s.cfg.Scheduler.Interval)
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					if _, err := s.orchestrator.RunSync(ctx); err != nil {
						log.Printf("Scheduled sync error: %v", err)
					}
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		log.Println("No schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.ops.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.ops.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdSyncNow:
		_, err := s.orchestrator.RunSync(ctx)
		return err
	case models.CmdSyncProperty:
		params, err := s.ops.ParseCommandParams(cmd)
		if err != nil {
			return fmt.Errorf("parse command params: %w", err)
		}
		propertyID, err := uuid.Parse(params.PropertyID)
		if err != nil {
			return fmt.Errorf("invalid property id %q: %w", params.PropertyID, err)
		}
		result, err := s.orchestrator.RunProperty(ctx, propertyID)
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("property sync failed: %s", result.Error)
		}
		return nil
	case models.CmdPause:
		s.orchestrator.SetPaused(true)
		return nil
	case models.CmdResume:
		s.orchestrator.SetPaused(false)
		return nil
	case models.CmdRunLimits:
		if s.limitsWorker != nil {
			s.limitsWorker.Trigger()
			log.Println("Limits worker triggered via command")
		}
		return nil
	case models.CmdRunNotifier:
		if s.notifierWorker != nil {
			s.notifierWorker.Trigger()
			log.Println("Notifier worker triggered via command")
		}
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

func (s *Scheduler) TriggerNow(ctx context.Context) error {
	_, err := s.orchestrator.RunSync(ctx)
	return err
}
