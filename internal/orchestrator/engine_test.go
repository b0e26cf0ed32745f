package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ytget/social-downloader/internal/model"
)

type stubWorker struct {
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	panicOn  string
}

func (w *stubWorker) Download(ctx context.Context, item model.DownloadItem) model.ItemResult {
	w.calls.Add(1)
	n := w.inFlight.Add(1)
	defer w.inFlight.Add(-1)
	for {
		p := w.peak.Load()
		if n <= p || w.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if item.URL == w.panicOn {
		panic("boom")
	}

	select {
	case <-time.After(w.delay):
		return model.ItemResult{URL: item.URL, Status: model.ItemStatusSuccess, Filename: item.URL + ".mp4"}
	case <-ctx.Done():
		return model.ItemResult{URL: item.URL, Status: model.ItemStatusCancelled}
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []model.ProgressEvent
}

func (l *eventLog) emit(ev model.ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []model.ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.ProgressEvent(nil), l.events...)
}

func makeItems(n int) []model.DownloadItem {
	items := make([]model.DownloadItem, n)
	for i := range items {
		items[i] = model.DownloadItem{URLItem: model.URLItem{
			URL:      fmt.Sprintf("https://www.tiktok.com/@u/video/%d", i),
			Platform: model.PlatformTikTok,
			Kind:     model.KindVideo,
		}}
	}
	return items
}

func newTracker(n int, log *eventLog) *Tracker {
	return NewTracker(model.NewDownloadTask("task", n, "/tmp", "best"), log.emit)
}

func countTerminal(events []model.ProgressEvent) int {
	n := 0
	for _, ev := range events {
		if ev.Type.IsTerminal() {
			n++
		}
	}
	return n
}

func TestRunBoundsConcurrency(t *testing.T) {
	tests := []struct {
		name  string
		items int
		limit int
	}{
		{"limit one", 6, 1},
		{"limit three", 12, 3},
		{"limit above items", 4, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			worker := &stubWorker{delay: 20 * time.Millisecond}
			log := &eventLog{}
			tracker := newTracker(tt.items, log)

			if err := NewEngine(worker, nil).Run(context.Background(), tracker, makeItems(tt.items), tt.limit); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}

			if peak := int(worker.peak.Load()); peak > tt.limit {
				t.Errorf("Expected at most %d workers in flight, got %d", tt.limit, peak)
			}
			if calls := int(worker.calls.Load()); calls != tt.items {
				t.Errorf("Expected %d worker calls, got %d", tt.items, calls)
			}

			snap := tracker.Snapshot()
			if snap.Completed != tt.items {
				t.Errorf("Expected completed %d, got %d", tt.items, snap.Completed)
			}
			if snap.Status != model.TaskStatusCompleted {
				t.Errorf("Expected status completed, got %s", snap.Status)
			}
		})
	}
}

func TestRunEventSequence(t *testing.T) {
	log := &eventLog{}
	tracker := newTracker(5, log)

	if err := NewEngine(&stubWorker{}, nil).Run(context.Background(), tracker, makeItems(5), 2); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	events := log.all()
	if len(events) != 7 {
		t.Fatalf("Expected 7 events, got %d", len(events))
	}
	if events[0].Type != model.EventStarted || events[0].Total != 5 {
		t.Errorf("Expected started event with total 5, got %+v", events[0])
	}

	last := 0
	for _, ev := range events[1:6] {
		if ev.Type != model.EventProgress {
			t.Errorf("Expected progress event, got %s", ev.Type)
		}
		if ev.Completed != last+1 {
			t.Errorf("Expected completed %d, got %d", last+1, ev.Completed)
		}
		last = ev.Completed
	}

	final := events[6]
	if final.Type != model.EventCompleted || final.Completed != 5 {
		t.Errorf("Expected completed event with 5/5, got %+v", final)
	}
	if n := countTerminal(events); n != 1 {
		t.Errorf("Expected exactly one terminal event, got %d", n)
	}
}

func TestRunCancellation(t *testing.T) {
	worker := &stubWorker{delay: time.Second}
	log := &eventLog{}
	tracker := newTracker(10, log)
	ctx, cancel := context.WithCancel(context.Background())

	// Two quick items then cancel while the rest wait or run
	items := makeItems(10)
	quick := &quickWorker{slow: worker, quick: map[string]bool{items[0].URL: true, items[1].URL: true}}

	done := make(chan error, 1)
	go func() {
		done <- NewEngine(quick, nil).Run(ctx, tracker, items, 3)
	}()

	deadline := time.After(2 * time.Second)
	for tracker.Snapshot().Completed < 2 {
		select {
		case <-deadline:
			t.Fatal("Expected two items to complete")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected run to return after cancellation")
	}

	snap := tracker.Snapshot()
	_, _, cancelled := snap.Summary()
	if cancelled != 8 {
		t.Errorf("Expected 8 cancelled items, got %d", cancelled)
	}
	if snap.Completed != 10 {
		t.Errorf("Expected completed 10, got %d", snap.Completed)
	}

	events := log.all()
	if n := countTerminal(events); n != 1 {
		t.Errorf("Expected exactly one terminal event, got %d", n)
	}
	final := events[len(events)-1]
	if final.Type != model.EventCompleted || final.Completed != 10 {
		t.Errorf("Expected completed event with 10/10, got %+v", final)
	}
}

type quickWorker struct {
	slow  *stubWorker
	quick map[string]bool
}

func (w *quickWorker) Download(ctx context.Context, item model.DownloadItem) model.ItemResult {
	if w.quick[item.URL] {
		return model.ItemResult{URL: item.URL, Status: model.ItemStatusSuccess}
	}
	return w.slow.Download(ctx, item)
}

func TestRunWorkerPanicBecomesItemError(t *testing.T) {
	items := makeItems(3)
	worker := &stubWorker{panicOn: items[1].URL}
	log := &eventLog{}
	tracker := newTracker(3, log)

	if err := NewEngine(worker, nil).Run(context.Background(), tracker, items, 2); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	snap := tracker.Snapshot()
	if got := snap.Results[items[1].URL].Status; got != model.ItemStatusError {
		t.Errorf("Expected error status for panicking item, got %s", got)
	}
	if snap.Completed != 3 {
		t.Errorf("Expected completed 3, got %d", snap.Completed)
	}
}

func TestRunOrchestrationFailureEmitsError(t *testing.T) {
	tracker := NewTracker(model.NewDownloadTask("task", 2, "", ""), nil)
	var terminal model.ProgressEvent
	tracker.emit = func(ev model.ProgressEvent) {
		if ev.Type == model.EventProgress {
			panic("sink broken")
		}
		if ev.Type.IsTerminal() {
			terminal = ev
		}
	}

	err := NewEngine(&stubWorker{}, nil).Run(context.Background(), tracker, makeItems(1), 1)
	if err == nil {
		t.Fatal("Expected orchestration error")
	}
	if terminal.Type != model.EventError || terminal.Error == "" {
		t.Errorf("Expected error event with message, got %+v", terminal)
	}
	if snap := tracker.Snapshot(); snap.Status != model.TaskStatusError {
		t.Errorf("Expected status error, got %s", snap.Status)
	}
}

func TestTrackerCounterNeverExceedsTotal(t *testing.T) {
	log := &eventLog{}
	tracker := newTracker(2, log)
	for i := 0; i < 5; i++ {
		tracker.Record(model.ItemResult{URL: fmt.Sprint(i), Status: model.ItemStatusSuccess})
	}
	if got := tracker.Snapshot().Completed; got != 2 {
		t.Errorf("Expected completed 2, got %d", got)
	}
	if !tracker.Finish(model.TaskStatusCompleted, "") {
		t.Error("Expected first finish to succeed")
	}
	if tracker.Finish(model.TaskStatusError, "late") {
		t.Error("Expected second finish to be ignored")
	}
}

func TestClampConcurrency(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultConcurrency},
		{-3, MinConcurrency},
		{1, 1},
		{7, 7},
		{50, MaxConcurrency},
	}
	for _, tt := range tests {
		if got := ClampConcurrency(tt.in); got != tt.want {
			t.Errorf("ClampConcurrency(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}
