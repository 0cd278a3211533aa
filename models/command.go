package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdSyncNow      CommandType = "sync_now"
	CmdSyncProperty CommandType = "sync_property"
	CmdPause        CommandType = "pause"
	CmdResume       CommandType = "resume"
	CmdRunLimits    CommandType = "run_limits"
	CmdRunNotifier  CommandType = "run_notifier"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	PropertyID string `json:"property_id,omitempty"`
}
