// Package orchestrator drives download workers for one task under a bounded
// concurrency limit and reports aggregate progress.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/kataras/golog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ytget/social-downloader/internal/model"
)

// Concurrency limits
const (
	DefaultConcurrency = 5
	MinConcurrency     = 1
	MaxConcurrency     = 10
)

// ClampConcurrency keeps limit within MinConcurrency..MaxConcurrency.
// Zero selects DefaultConcurrency.
func ClampConcurrency(limit int) int {
	switch {
	case limit == 0:
		return DefaultConcurrency
	case limit < MinConcurrency:
		return MinConcurrency
	case limit > MaxConcurrency:
		return MaxConcurrency
	}
	return limit
}

// Worker downloads one item and always returns a result
type Worker interface {
	Download(ctx context.Context, item model.DownloadItem) model.ItemResult
}

// Engine runs tasks
type Engine struct {
	worker Worker
	log    *golog.Logger
}

// NewEngine creates an engine around worker
func NewEngine(worker Worker, log *golog.Logger) *Engine {
	if log == nil {
		log = golog.Default
	}
	return &Engine{worker: worker, log: log}
}

// Run downloads items with at most limit workers in flight. Cancelling ctx
// stops running workers at their next check point and marks items that were
// not admitted yet as cancelled. The task always ends with exactly one
// terminal event: completed once every item is accounted for, or error if
// the orchestration itself failed.
func (e *Engine) Run(ctx context.Context, tracker *Tracker, items []model.DownloadItem, limit int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("orchestration failed: %v", r)
			e.log.Errorf("%v", err)
			tracker.Finish(model.TaskStatusError, err.Error())
		}
	}()

	tracker.Start()

	sem := semaphore.NewWeighted(int64(max(limit, MinConcurrency)))
	var g errgroup.Group

	for _, item := range items {
		if err := sem.Acquire(ctx, 1); err != nil {
			tracker.Record(cancelledResult(item))
			continue
		}
		g.Go(func() (err error) {
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("orchestration failed: %v", r)
				}
			}()
			tracker.Record(e.download(ctx, item))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		e.log.Errorf("%v", err)
		tracker.Finish(model.TaskStatusError, err.Error())
		return err
	}

	tracker.Finish(model.TaskStatusCompleted, "")
	return nil
}

func (e *Engine) download(ctx context.Context, item model.DownloadItem) (result model.ItemResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Errorf("worker for %s panicked: %v", item.URL, r)
			result = model.ItemResult{URL: item.URL, Status: model.ItemStatusError, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	if ctx.Err() != nil {
		return cancelledResult(item)
	}
	result = e.worker.Download(ctx, item)
	result.URL = item.URL
	return result
}

func cancelledResult(item model.DownloadItem) model.ItemResult {
	return model.ItemResult{
		URL:     item.URL,
		Status:  model.ItemStatusCancelled,
		Title:   item.Title,
		Message: "download cancelled",
	}
}
