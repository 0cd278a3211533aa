package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is a short-term rental unit whose booking calendar we sync.
type Property struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	OwnerID       uuid.UUID  `json:"owner_id" db:"owner_id"`
	Name          string     `json:"name" db:"name"`
	Address       string     `json:"address" db:"address"`
	CalendarURL   string     `json:"calendar_url" db:"calendar_url"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	LastSyncedAt  *time.Time `json:"last_synced_at" db:"last_synced_at"`
	LastSyncError string     `json:"last_sync_error" db:"last_sync_error"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Owner is the account that owns one or more properties. MaxActiveJobs
// comes from the owner's plan; zero means unlimited.
type Owner struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Phone         string    `json:"phone" db:"phone"`
	MaxActiveJobs int       `json:"max_active_jobs" db:"max_active_jobs"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// Cleaner is a person who can be assigned to cleaning jobs.
type Cleaner struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CleanerAssignment links a cleaner to a property. At most one assignment
// per property carries IsPrimary; CreatedAt orders the fallback pick.
type CleanerAssignment struct {
	PropertyID  uuid.UUID `json:"property_id" db:"property_id"`
	CleanerID   uuid.UUID `json:"cleaner_id" db:"cleaner_id"`
	CleanerName string    `json:"cleaner_name" db:"cleaner_name"`
	IsPrimary   bool      `json:"is_primary" db:"is_primary"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// CleaningJob is the persisted unit of work a sync pass produces. The
// dedup key is (PropertyID, calendar date of CheckoutDate).
type CleaningJob struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	PropertyID          uuid.UUID  `json:"property_id" db:"property_id"`
	CleanerID           *uuid.UUID `json:"cleaner_id" db:"cleaner_id"`
	CheckoutDate        time.Time  `json:"checkout_date" db:"checkout_date"`
	CheckinDate         *time.Time `json:"checkin_date" db:"checkin_date"`
	Status              string     `json:"status" db:"status"`
	IsSameDayTurnaround bool       `json:"is_same_day_turnaround" db:"is_same_day_turnaround"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// Job status
const (
	JobStatusPending   = "pending"
	JobStatusConfirmed = "confirmed"
	JobStatusCompleted = "completed"
	JobStatusCancelled = "cancelled"
	JobStatusPaused    = "paused"
)

// Notification is a queued push/SMS message. Delivery is fire-and-forget;
// the dispatch worker drains pending rows.
type Notification struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Title     string     `json:"title" db:"title"`
	Body      string     `json:"body" db:"body"`
	Type      string     `json:"type" db:"type"`
	Status    string     `json:"status" db:"status"`
	Attempts  int        `json:"attempts" db:"attempts"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	SentAt    *time.Time `json:"sent_at" db:"sent_at"`
}

// Notification status
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
)

// Notification types
const (
	NotificationTypeJobLimit = "job_limit"
)

// OwnerJobLoad reports an owner whose active job count exceeds the plan
// limit, as returned by the limits query.
type OwnerJobLoad struct {
	OwnerID       uuid.UUID `json:"owner_id" db:"owner_id"`
	OwnerName     string    `json:"owner_name" db:"owner_name"`
	MaxActiveJobs int       `json:"max_active_jobs" db:"max_active_jobs"`
	ActiveJobs    int       `json:"active_jobs" db:"active_jobs"`
}
