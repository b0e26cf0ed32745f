package storage

import (
	"context"
	"sync"

	"github.com/ytget/social-downloader/internal/model"
)

// Memory is an in-process history that keeps the latest capacity tasks
type Memory struct {
	mu       sync.RWMutex
	tasks    map[string]model.DownloadTask
	order    []string
	capacity int
}

// NewMemory creates a memory history. A capacity below one keeps everything.
func NewMemory(capacity int) *Memory {
	return &Memory{
		tasks:    make(map[string]model.DownloadTask),
		capacity: capacity,
	}
}

func (m *Memory) Save(ctx context.Context, task model.DownloadTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.ID]; !exists {
		m.order = append(m.order, task.ID)
	}
	m.tasks[task.ID] = task.Clone()

	if m.capacity > 0 && len(m.order) > m.capacity {
		evict := m.order[:len(m.order)-m.capacity]
		for _, id := range evict {
			delete(m.tasks, id)
		}
		m.order = append([]string(nil), m.order[len(evict):]...)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (model.DownloadTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, exists := m.tasks[id]
	if !exists {
		return model.DownloadTask{}, ErrNotFound
	}
	return task.Clone(), nil
}

// Recent returns tasks newest first
func (m *Memory) Recent(ctx context.Context, limit int) ([]model.DownloadTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = normalizeLimit(limit)
	tasks := make([]model.DownloadTask, 0, min(limit, len(m.order)))
	for i := len(m.order) - 1; i >= 0 && len(tasks) < limit; i-- {
		task := m.tasks[m.order[i]]
		tasks = append(tasks, task.Clone())
	}
	return tasks, nil
}
