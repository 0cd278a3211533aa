package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/djdjdallas/Airbnb-cleaner/calendar"
	"github.com/djdjdallas/Airbnb-cleaner/config"
	"github.com/djdjdallas/Airbnb-cleaner/httputil"
	"github.com/djdjdallas/Airbnb-cleaner/logging"
	"github.com/djdjdallas/Airbnb-cleaner/models"
	"github.com/djdjdallas/Airbnb-cleaner/scheduler"
	"github.com/djdjdallas/Airbnb-cleaner/services"
	"github.com/djdjdallas/Airbnb-cleaner/storage"
	"github.com/djdjdallas/Airbnb-cleaner/syncer"
	"github.com/djdjdallas/Airbnb-cleaner/workers"
)

var (
	syncNow = flag.Bool("sync", false, "Run sync once and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting turnover sync...")

	if len(cfg.Properties) > 0 {
		log.Printf("Loaded %d property seeds", len(cfg.Properties))
	}

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	if err := seedProperties(ctx, pgStore, cfg); err != nil {
		log.Fatalf("Failed to seed properties: %v", err)
	}

	opsStore, err := storage.NewOpsStore(cfg.OpsDBPath)
	if err != nil {
		log.Fatalf("Failed to open ops database: %v", err)
	}
	defer opsStore.Close()
	log.Printf("Ops database: %s", cfg.OpsDBPath)

	clients := httputil.NewClients()
	fetcher := calendar.NewFetcher(clients.Feeds)

	orchestrator := syncer.NewOrchestrator(pgStore, fetcher, syncer.Options{
		HorizonDays: cfg.Sync.HorizonDays,
		Timeout:     cfg.Sync.Timeout,
		Concurrency: cfg.Sync.Concurrency,
		Location:    cfg.Location(),
	})
	orchestrator.SetRecorder(pgStore)
	orchestrator.SetOpsStore(opsStore)

	if cfg.Archive.Bucket != "" {
		archiver, err := storage.NewFeedArchiver(ctx, storage.S3Config{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		})
		if err != nil {
			log.Printf("Warning: feed archiver disabled: %v", err)
		} else {
			orchestrator.SetArchiver(archiver)
			log.Printf("Feed archive bucket: %s", cfg.Archive.Bucket)
		}
	}

	// Handle one-shot commands
	if *syncNow {
		log.Println("Running sync...")
		summary, err := orchestrator.RunSync(ctx)
		if err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		log.Printf("Sync complete: %d jobs created", summary.JobsCreated)
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, orchestrator, opsStore)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	limitService := services.NewLimitService(pgStore, services.NewQueueNotifier(pgStore))
	limitsWorker := workers.NewLimitsWorker(limitService)
	go limitsWorker.Run(ctx, 10*time.Minute)
	log.Println("Limits worker started")

	// Assigned only when the worker exists: a typed-nil pointer behind the
	// interface would defeat the scheduler's nil check.
	var notifierTrig scheduler.Triggerable
	if cfg.Push.URL != "" {
		sender := services.NewPushClient(cfg.Push.URL, cfg.Push.ServiceKey, clients.Push)
		notifierWorker := workers.NewNotifierWorker(pgStore, sender)
		go notifierWorker.Run(ctx, 20, 1*time.Minute)
		notifierTrig = notifierWorker
		log.Println("Notifier worker started")
	} else {
		log.Println("No push endpoint configured, notifications stay queued")
	}

	sched.SetWorkers(notifierTrig, limitsWorker)

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// seedProperties upserts declarative property definitions from
// config/properties/*.yaml so deployments can manage the portfolio
// without touching the database by hand.
func seedProperties(ctx context.Context, store *storage.PostgresStore, cfg *config.Config) error {
	for _, seed := range cfg.Properties {
		id, err := uuid.Parse(seed.ID)
		if err != nil {
			log.Printf("Warning: skipping property seed with bad id %q: %v", seed.ID, err)
			continue
		}
		ownerID, err := uuid.Parse(seed.OwnerID)
		if err != nil {
			log.Printf("Warning: skipping property seed %q with bad owner id: %v", seed.Name, err)
			continue
		}

		active := true
		if seed.Active != nil {
			active = *seed.Active
		}

		now := time.Now()
		property := &models.Property{
			ID:          id,
			OwnerID:     ownerID,
			Name:        seed.Name,
			Address:     seed.Address,
			CalendarURL: seed.CalendarURL,
			IsActive:    active,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.UpsertProperty(ctx, property); err != nil {
			return err
		}
		log.Printf("Seeded property: %s", seed.Name)
	}
	return nil
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
