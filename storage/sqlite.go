package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/djdjdallas/Airbnb-cleaner/models"
)

// OpsStore is the local operational database: sync run history, per-run
// logs, the command queue the scheduler polls, and per-property stats.
// Domain data (properties, jobs, cleaners) lives in Postgres.
type OpsStore struct {
	db *sql.DB
}

func NewOpsStore(dbPath string) (*OpsStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &OpsStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *OpsStore) Close() error {
	return s.db.Close()
}

func (s *OpsStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		properties_attempted INTEGER DEFAULT 0,
		properties_succeeded INTEGER DEFAULT 0,
		properties_failed INTEGER DEFAULT 0,
		jobs_created INTEGER DEFAULT 0,
		error_message TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS sync_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		property_id TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS property_stats (
		property_id TEXT PRIMARY KEY,
		last_sync_at DATETIME,
		last_sync_success BOOLEAN,
		total_jobs_created INTEGER DEFAULT 0,
		consecutive_failures INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON sync_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON sync_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Sync runs
// =============================================================================

func (s *OpsStore) CreateRun(run *models.SyncRun) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO sync_runs (started_at, status, properties_attempted, properties_succeeded, properties_failed, jobs_created, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt, run.Status, run.PropertiesAttempted, run.PropertiesSucceeded, run.PropertiesFailed, run.JobsCreated, run.ErrorMessage)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *OpsStore) UpdateRun(run *models.SyncRun) error {
	_, err := s.db.Exec(`
		UPDATE sync_runs SET finished_at = ?, status = ?, properties_attempted = ?,
			properties_succeeded = ?, properties_failed = ?, jobs_created = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PropertiesAttempted, run.PropertiesSucceeded,
		run.PropertiesFailed, run.JobsCreated, run.ErrorMessage, run.ID)
	return err
}

func (s *OpsStore) GetRecentRuns(limit int) ([]models.SyncRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, status, properties_attempted,
			properties_succeeded, properties_failed, jobs_created, error_message
		FROM sync_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.SyncRun
	for rows.Next() {
		var r models.SyncRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Status, &r.PropertiesAttempted,
			&r.PropertiesSucceeded, &r.PropertiesFailed, &r.JobsCreated, &r.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// Sync logs
// =============================================================================

func (s *OpsStore) Log(runID *int64, level models.LogLevel, message, propertyID string) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_logs (run_id, timestamp, level, message, property_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, propertyID)
	return err
}

// =============================================================================
// Commands
// =============================================================================

func (s *OpsStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, COALESCE(params, '{}'), created_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var c models.Command
		if err := rows.Scan(&c.ID, &c.Command, &c.Params, &c.CreatedAt); err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}

func (s *OpsStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *OpsStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error {
	var raw []byte
	if params != nil {
		var err error
		raw, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params) VALUES (?, ?)`, cmd, raw)
	return err
}

func (s *OpsStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	params := &models.CommandParams{}
	if len(cmd.Params) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(cmd.Params, params); err != nil {
		return nil, err
	}
	return params, nil
}

// =============================================================================
// Property stats
// =============================================================================

func (s *OpsStore) RecordPropertySync(propertyID string, success bool, jobsCreated int) error {
	failureDelta := "consecutive_failures + 1"
	if success {
		failureDelta = "0"
	}
	_, err := s.db.Exec(`
		INSERT INTO property_stats (property_id, last_sync_at, last_sync_success, total_jobs_created, consecutive_failures)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (property_id) DO UPDATE SET
			last_sync_at = excluded.last_sync_at,
			last_sync_success = excluded.last_sync_success,
			total_jobs_created = total_jobs_created + excluded.total_jobs_created,
			consecutive_failures = `+failureDelta,
		propertyID, time.Now(), success, jobsCreated, boolToFailures(success))
	return err
}

func boolToFailures(success bool) int {
	if success {
		return 0
	}
	return 1
}
