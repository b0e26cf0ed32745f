// Package storage keeps the history of finished download tasks.
package storage

import (
	"context"
	"errors"

	"github.com/ytget/social-downloader/internal/model"
)

// ErrNotFound is returned when a task is not in the history
var ErrNotFound = errors.New("task not found")

// DefaultRecentLimit caps history listings when no limit is given
const DefaultRecentLimit = 50

// HistoryRepository stores finished download tasks
type HistoryRepository interface {
	Save(ctx context.Context, task model.DownloadTask) error
	Get(ctx context.Context, id string) (model.DownloadTask, error)
	Recent(ctx context.Context, limit int) ([]model.DownloadTask, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
