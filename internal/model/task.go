package model

import (
	"fmt"
	"time"
)

// ItemResult is the outcome of downloading one item
type ItemResult struct {
	URL      string     `json:"url"`
	Status   ItemStatus `json:"status"`
	Filename string     `json:"filename,omitempty"`
	Title    string     `json:"title,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// DownloadTask represents one bulk download request
type DownloadTask struct {
	ID         string                `json:"id"`
	Status     TaskStatus            `json:"status"`
	Total      int                   `json:"total"`
	Completed  int                   `json:"completed"`
	Results    map[string]ItemResult `json:"results"`
	SaveDir    string                `json:"save_dir"`
	Quality    string                `json:"quality"`
	LastError  string                `json:"error,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at,omitzero"`
}

// NewDownloadTask creates a task in started state
func NewDownloadTask(id string, total int, saveDir, quality string) *DownloadTask {
	return &DownloadTask{
		ID:        id,
		Status:    TaskStatusStarted,
		Total:     total,
		Results:   make(map[string]ItemResult, total),
		SaveDir:   saveDir,
		Quality:   quality,
		StartedAt: time.Now(),
	}
}

// Clone returns a deep copy safe to hand out of a lock
func (dt *DownloadTask) Clone() DownloadTask {
	c := *dt
	c.Results = make(map[string]ItemResult, len(dt.Results))
	for url, result := range dt.Results {
		c.Results[url] = result
	}
	return c
}

// Summary counts item outcomes
func (dt *DownloadTask) Summary() (succeeded, failed, cancelled int) {
	for _, result := range dt.Results {
		switch {
		case result.Status == ItemStatusSuccess:
			succeeded++
		case result.Status == ItemStatusCancelled:
			cancelled++
		case result.Status.IsFailure():
			failed++
		}
	}
	return succeeded, failed, cancelled
}

// GetDurationString returns the task run time formatted as mm:ss or hh:mm:ss
func (dt *DownloadTask) GetDurationString() string {
	end := dt.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	secs := int(end.Sub(dt.StartedAt).Seconds())
	if secs < 0 {
		secs = 0
	}
	return FormatSeconds(secs)
}

// ProgressEvent is one status update pushed to the live client feed
type ProgressEvent struct {
	Type      EventType  `json:"type"`
	URL       string     `json:"url,omitempty"`
	Status    ItemStatus `json:"status,omitempty"`
	Message   string     `json:"message,omitempty"`
	Filename  string     `json:"filename,omitempty"`
	Completed int        `json:"completed"`
	Total     int        `json:"total"`
	Error     string     `json:"error,omitempty"`
}

// FormatSeconds returns secs formatted as mm:ss, or hh:mm:ss past one hour
func FormatSeconds(secs int) string {
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
