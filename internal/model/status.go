package model

// TaskStatus represents the status of a download task
type TaskStatus string

const (
	// TaskStatusStarted means the task was accepted and workers are running
	TaskStatusStarted TaskStatus = "started"

	// TaskStatusCompleted means every worker returned, whatever their item outcome
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusError means the orchestration itself failed
	TaskStatusError TaskStatus = "error"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task still has running workers
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusStarted
}

// IsFinished returns true if the task is in a terminal state (completed or error)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusError
}

// ItemStatus represents the outcome of downloading a single item
type ItemStatus string

const (
	ItemStatusSuccess   ItemStatus = "success"
	ItemStatusError     ItemStatus = "error"
	ItemStatusCancelled ItemStatus = "cancelled"
	// MergeRequired means both raw streams were saved but could not be muxed
	ItemStatusMergeRequired ItemStatus = "merge_required"
)

// IsFailure returns true for outcomes that count as failed downloads.
// Cancellation is not a failure.
func (s ItemStatus) IsFailure() bool {
	return s == ItemStatusError || s == ItemStatusMergeRequired
}

// EventType is the type tag of a progress event
type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventError     EventType = "error"
)

// IsTerminal returns true for the event that closes a task stream
func (et EventType) IsTerminal() bool {
	return et == EventCompleted || et == EventError
}

// EntryStatus is the readiness of a listed playlist entry
type EntryStatus string

const (
	EntryStatusReady EntryStatus = "Ready"
	EntryStatusError EntryStatus = "Error"
)
