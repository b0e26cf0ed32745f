package orchestrator

import (
	"sync"
	"time"

	"github.com/ytget/social-downloader/internal/model"
)

// Emitter receives progress events. It is called with the tracker lock held
// and must not block.
type Emitter func(model.ProgressEvent)

// Tracker owns the bookkeeping of one download task
type Tracker struct {
	mu   sync.Mutex
	task *model.DownloadTask
	emit Emitter
}

// NewTracker creates a tracker for task
func NewTracker(task *model.DownloadTask, emit Emitter) *Tracker {
	if emit == nil {
		emit = func(model.ProgressEvent) {}
	}
	return &Tracker{task: task, emit: emit}
}

// Start emits the started event
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emit(model.ProgressEvent{Type: model.EventStarted, Total: t.task.Total})
}

// Record stores one item result and emits a progress event with the
// cumulative count. The counter never exceeds the total.
func (t *Tracker) Record(result model.ItemResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.task.Status.IsFinished() || t.task.Completed >= t.task.Total {
		return
	}
	t.task.Completed++
	t.task.Results[result.URL] = result

	t.emit(model.ProgressEvent{
		Type:      model.EventProgress,
		URL:       result.URL,
		Status:    result.Status,
		Message:   result.Message,
		Filename:  result.Filename,
		Completed: t.task.Completed,
		Total:     t.task.Total,
	})
}

// Finish marks the task terminal and emits its single terminal event.
// Later calls are ignored.
func (t *Tracker) Finish(status model.TaskStatus, errMsg string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.task.Status.IsFinished() {
		return false
	}
	t.task.Status = status
	t.task.FinishedAt = time.Now()

	ev := model.ProgressEvent{
		Type:      model.EventCompleted,
		Completed: t.task.Completed,
		Total:     t.task.Total,
	}
	if status == model.TaskStatusError {
		t.task.LastError = errMsg
		ev.Type = model.EventError
		ev.Error = errMsg
	}
	t.emit(ev)
	return true
}

// Snapshot returns a copy of the task
func (t *Tracker) Snapshot() model.DownloadTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.task.Clone()
}
