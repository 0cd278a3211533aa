package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/djdjdallas/Airbnb-cleaner/calendar"
	"github.com/djdjdallas/Airbnb-cleaner/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// =============================================================================
// Properties
// =============================================================================

func (s *PostgresStore) UpsertProperty(ctx context.Context, p *models.Property) error {
	query := `
		INSERT INTO properties (
			id, owner_id, name, address, calendar_url, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = COALESCE(NULLIF(EXCLUDED.address, ''), properties.address),
			calendar_url = EXCLUDED.calendar_url,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Address, p.CalendarURL, p.IsActive, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
}

func (s *PostgresStore) GetPropertyByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	query := `
		SELECT id, owner_id, name, address, calendar_url, is_active,
			last_synced_at, COALESCE(last_sync_error, ''), created_at, updated_at
		FROM properties WHERE id = $1`

	var p models.Property
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.CalendarURL, &p.IsActive,
		&p.LastSyncedAt, &p.LastSyncError, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) ListActiveProperties(ctx context.Context) ([]models.Property, error) {
	query := `
		SELECT id, owner_id, name, address, calendar_url, is_active,
			last_synced_at, COALESCE(last_sync_error, ''), created_at, updated_at
		FROM properties
		WHERE is_active = TRUE AND calendar_url <> ''
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.Property
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.CalendarURL, &p.IsActive,
			&p.LastSyncedAt, &p.LastSyncError, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// MarkPropertySynced records a successful sync pass and clears any
// previously recorded error.
func (s *PostgresStore) MarkPropertySynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	query := `UPDATE properties SET last_synced_at = $2, last_sync_error = NULL, updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, syncedAt)
	return err
}

// MarkPropertySyncError records the failure message; the last-synced
// marker is left untouched.
func (s *PostgresStore) MarkPropertySyncError(ctx context.Context, id uuid.UUID, message string) error {
	query := `UPDATE properties SET last_sync_error = $2, updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, message)
	return err
}

// =============================================================================
// Cleaners
// =============================================================================

func (s *PostgresStore) GetAssignedCleaners(ctx context.Context, propertyID uuid.UUID) ([]models.CleanerAssignment, error) {
	query := `
		SELECT pc.property_id, pc.cleaner_id, c.name, pc.is_primary, pc.created_at
		FROM property_cleaners pc
		JOIN cleaners c ON c.id = pc.cleaner_id
		WHERE pc.property_id = $1
		ORDER BY pc.is_primary DESC, pc.created_at`

	rows, err := s.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []models.CleanerAssignment
	for rows.Next() {
		var a models.CleanerAssignment
		if err := rows.Scan(&a.PropertyID, &a.CleanerID, &a.CleanerName, &a.IsPrimary, &a.CreatedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// =============================================================================
// Cleaning jobs
// =============================================================================

// ListExistingJobDates returns the calendar-date keys of every job the
// property already has. The reconciler treats presence of a key as proof
// that the checkout was materialized on an earlier pass.
func (s *PostgresStore) ListExistingJobDates(ctx context.Context, propertyID uuid.UUID) (map[string]struct{}, error) {
	query := `SELECT checkout_date FROM cleaning_jobs WHERE property_id = $1`

	rows, err := s.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make(map[string]struct{})
	for rows.Next() {
		var checkout time.Time
		if err := rows.Scan(&checkout); err != nil {
			return nil, err
		}
		dates[calendar.DateKey(checkout)] = struct{}{}
	}
	return dates, rows.Err()
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.CleaningJob) error {
	query := `
		INSERT INTO cleaning_jobs (
			id, property_id, cleaner_id, checkout_date, checkin_date,
			status, is_same_day_turnaround, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		job.ID, job.PropertyID, job.CleanerID, job.CheckoutDate, job.CheckinDate,
		job.Status, job.IsSameDayTurnaround, job.CreatedAt, job.UpdatedAt,
	).Scan(&job.ID)
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE cleaning_jobs SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, status)
	return err
}

// =============================================================================
// Owner plan limits
// =============================================================================

func (s *PostgresStore) ListOwnersOverJobLimit(ctx context.Context) ([]models.OwnerJobLoad, error) {
	query := `
		SELECT o.id, o.name, o.max_active_jobs, COUNT(j.id)
		FROM owners o
		JOIN properties p ON p.owner_id = o.id
		JOIN cleaning_jobs j ON j.property_id = p.id
		WHERE o.max_active_jobs > 0 AND j.status IN ('pending', 'confirmed')
		GROUP BY o.id, o.name, o.max_active_jobs
		HAVING COUNT(j.id) > o.max_active_jobs`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loads []models.OwnerJobLoad
	for rows.Next() {
		var l models.OwnerJobLoad
		if err := rows.Scan(&l.OwnerID, &l.OwnerName, &l.MaxActiveJobs, &l.ActiveJobs); err != nil {
			return nil, err
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}

// ListPausableJobs returns up to limit pending jobs for the owner,
// furthest checkout first, so the nearest cleanings survive a pause.
func (s *PostgresStore) ListPausableJobs(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.CleaningJob, error) {
	query := `
		SELECT j.id, j.property_id, j.cleaner_id, j.checkout_date, j.checkin_date,
			j.status, j.is_same_day_turnaround, j.created_at, j.updated_at
		FROM cleaning_jobs j
		JOIN properties p ON p.id = j.property_id
		WHERE p.owner_id = $1 AND j.status = 'pending'
		ORDER BY j.checkout_date DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.CleaningJob
	for rows.Next() {
		var j models.CleaningJob
		if err := rows.Scan(
			&j.ID, &j.PropertyID, &j.CleanerID, &j.CheckoutDate, &j.CheckinDate,
			&j.Status, &j.IsSameDayTurnaround, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// =============================================================================
// Notifications
// =============================================================================

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, title, body, type, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		n.ID, n.UserID, n.Title, n.Body, n.Type, n.Status, n.Attempts, n.CreatedAt,
	).Scan(&n.ID)
}

func (s *PostgresStore) GetPendingNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, title, body, type, status, attempts, created_at, sent_at
		FROM notifications
		WHERE status = 'pending' AND attempts < 3
		ORDER BY created_at
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Type, &n.Status, &n.Attempts, &n.CreatedAt, &n.SentAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *PostgresStore) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status string, attempts int, sentAt *time.Time) error {
	query := `UPDATE notifications SET status = $2, attempts = $3, sent_at = $4 WHERE id = $1`
	_, err := s.pool.Exec(ctx, query, id, status, attempts, sentAt)
	return err
}

// =============================================================================
// Sync runs
// =============================================================================

func (s *PostgresStore) CreateSyncRun(ctx context.Context, run *models.SyncRun) error {
	query := `
		INSERT INTO sync_runs (started_at, status, properties_attempted, properties_succeeded, properties_failed, jobs_created, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		run.StartedAt, run.Status, run.PropertiesAttempted, run.PropertiesSucceeded, run.PropertiesFailed, run.JobsCreated, run.ErrorMessage,
	).Scan(&run.ID)
}

func (s *PostgresStore) UpdateSyncRun(ctx context.Context, run *models.SyncRun) error {
	query := `
		UPDATE sync_runs SET
			finished_at = $2, status = $3, properties_attempted = $4,
			properties_succeeded = $5, properties_failed = $6, jobs_created = $7, error_message = $8
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.FinishedAt, run.Status, run.PropertiesAttempted,
		run.PropertiesSucceeded, run.PropertiesFailed, run.JobsCreated, run.ErrorMessage,
	)
	return err
}

func (s *PostgresStore) CreateSyncLog(ctx context.Context, entry *models.SyncLog) error {
	query := `
		INSERT INTO sync_logs (run_id, timestamp, level, message, property_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		entry.RunID, entry.Timestamp, entry.Level, entry.Message, entry.PropertyID,
	).Scan(&entry.ID)
}
