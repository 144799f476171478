package core

import "time"

// TaskStatus is the background-task state machine (C12):
// pending -> running -> {completed|failed|cancelled}.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// BackgroundTask is an in-memory record of a named async job; not durable
// across process restarts (C3.2).
type BackgroundTask struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Status         TaskStatus     `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Progress       float64        `json:"progress"` // 0-100
	TotalItems     int            `json:"total_items"`
	ProcessedItems int            `json:"processed_items"`
	CurrentItem    string         `json:"current_item,omitempty"`
	Result         any            `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
