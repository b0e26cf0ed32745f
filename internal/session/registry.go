// Package session holds the process state shared by the HTTP surface: the
// current playlist and the live download tasks with their event queues.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kataras/golog"

	"github.com/ytget/social-downloader/internal/lister"
	"github.com/ytget/social-downloader/internal/model"
	"github.com/ytget/social-downloader/internal/orchestrator"
	"github.com/ytget/social-downloader/internal/storage"
)

// Defaults for Config
const (
	DefaultBatchSize = 20
	DefaultKeepAlive = 30 * time.Second
	DefaultRetention = 10 * time.Minute
)

// Config tunes the registry
type Config struct {
	BatchSize int
	KeepAlive time.Duration
	// Retention bounds how long a finished task waits for its consumer
	Retention          time.Duration
	DefaultSaveDir     string
	DefaultQuality     string
	DefaultConcurrency int
	Delay              func() time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = DefaultKeepAlive
	}
	if c.Retention <= 0 {
		c.Retention = DefaultRetention
	}
	c.DefaultConcurrency = orchestrator.ClampConcurrency(c.DefaultConcurrency)
	if c.Delay == nil {
		c.Delay = GaussianDelay
	}
	return c
}

// Runner executes one task
type Runner interface {
	Run(ctx context.Context, tracker *orchestrator.Tracker, items []model.DownloadItem, limit int) error
}

// DownloadRequest describes a bulk download
type DownloadRequest struct {
	URLs        []string
	SaveDir     string
	Quality     string
	Concurrency int
}

type liveTask struct {
	tracker   *orchestrator.Tracker
	events    chan model.ProgressEvent
	cancel    context.CancelFunc
	done      chan struct{}
	streaming bool
	// pending holds an event taken from the queue that no consumer received
	pending *model.ProgressEvent
}

// Registry is the shared session state
type Registry struct {
	mu       sync.Mutex
	playlist *model.Playlist
	tasks    map[string]*liveTask

	lister  lister.Lister
	runner  Runner
	history storage.HistoryRepository
	log     *golog.Logger
	cfg     Config
}

// NewRegistry creates a registry. A nil history keeps a small in-memory one.
func NewRegistry(l lister.Lister, runner Runner, history storage.HistoryRepository, log *golog.Logger, cfg Config) *Registry {
	if log == nil {
		log = golog.Default
	}
	if history == nil {
		history = storage.NewMemory(storage.DefaultRecentLimit)
	}
	return &Registry{
		playlist: model.NewPlaylist(""),
		tasks:    make(map[string]*liveTask),
		lister:   l,
		runner:   runner,
		history:  history,
		log:      log,
		cfg:      cfg.withDefaults(),
	}
}

// SetDefaults changes the save directory, quality and parallelism used when
// a request leaves them empty
func (r *Registry) SetDefaults(saveDir, quality string, concurrency int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.DefaultSaveDir = saveDir
	r.cfg.DefaultQuality = quality
	r.cfg.DefaultConcurrency = orchestrator.ClampConcurrency(concurrency)
}

// Playlist returns a copy of the current playlist entries
func (r *Registry) Playlist() []model.PlaylistEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.playlist.Entries()
	out := make([]model.PlaylistEntry, len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out
}

// StartDownload validates req against the playlist, starts the task in the
// background and returns its id and item count.
func (r *Registry) StartDownload(req DownloadRequest) (string, int, error) {
	urls := dedupe(req.URLs)
	if len(urls) == 0 {
		return "", 0, ErrEmptyRequest
	}

	r.mu.Lock()
	saveDir := req.SaveDir
	if saveDir == "" {
		saveDir = r.cfg.DefaultSaveDir
	}
	quality := req.Quality
	if quality == "" {
		quality = r.cfg.DefaultQuality
	}
	limit := r.cfg.DefaultConcurrency
	if req.Concurrency != 0 {
		limit = orchestrator.ClampConcurrency(req.Concurrency)
	}

	if missing := r.playlist.Missing(urls); len(missing) > 0 {
		r.mu.Unlock()
		return "", 0, fmt.Errorf("%w: %v", ErrUnknownURL, missing)
	}
	items := make([]model.DownloadItem, len(urls))
	for i, url := range urls {
		entry, _ := r.playlist.Get(url)
		items[i] = entry.DownloadItem(saveDir, quality)
	}

	id := newTaskID()
	task := model.NewDownloadTask(id, len(items), saveDir, quality)
	// started, one progress per item and the terminal event
	events := make(chan model.ProgressEvent, len(items)+2)
	ctx, cancel := context.WithCancel(context.Background())
	live := &liveTask{
		tracker: orchestrator.NewTracker(task, func(ev model.ProgressEvent) { events <- ev }),
		events:  events,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.tasks[id] = live
	r.mu.Unlock()

	r.log.Infof("starting download %s: %d items, %d parallel, quality %s", id, len(items), limit, quality)

	go r.run(ctx, id, live, items, limit)
	return id, len(items), nil
}

func (r *Registry) run(ctx context.Context, id string, live *liveTask, items []model.DownloadItem, limit int) {
	defer close(live.done)
	defer live.cancel()

	if err := r.runner.Run(ctx, live.tracker, items, limit); err != nil {
		r.log.Errorf("download %s failed: %v", id, err)
	}

	snap := live.tracker.Snapshot()
	succeeded, failed, cancelled := snap.Summary()
	r.log.Infof("download %s finished in %s: %d succeeded, %d failed, %d cancelled",
		id, snap.GetDurationString(), succeeded, failed, cancelled)

	if err := r.history.Save(context.Background(), snap); err != nil {
		r.log.Warnf("failed to save download %s to history: %v", id, err)
	}

	time.AfterFunc(r.cfg.Retention, func() { r.drop(id, live) })
}

// Stream delivers the events of task id to send in order until the terminal
// event. keepAlive is called after every KeepAlive of silence. When ctx ends
// or send fails first, the task stays available for another consumer and an
// undelivered event is replayed to it.
func (r *Registry) Stream(ctx context.Context, id string, send func(model.ProgressEvent) error, keepAlive func() error) error {
	r.mu.Lock()
	live, exists := r.tasks[id]
	if !exists {
		r.mu.Unlock()
		return ErrTaskNotFound
	}
	if live.streaming {
		r.mu.Unlock()
		return ErrAlreadyStreaming
	}
	live.streaming = true
	pending := live.pending
	live.pending = nil
	r.mu.Unlock()

	release := func(undelivered *model.ProgressEvent) {
		r.mu.Lock()
		live.streaming = false
		if undelivered != nil {
			live.pending = undelivered
		}
		r.mu.Unlock()
	}

	timer := time.NewTimer(r.cfg.KeepAlive)
	defer timer.Stop()

	deliver := func(ev model.ProgressEvent) (bool, error) {
		if err := send(ev); err != nil {
			release(&ev)
			return false, err
		}
		if ev.Type.IsTerminal() {
			r.drop(id, live)
			return true, nil
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(r.cfg.KeepAlive)
		return false, nil
	}

	if pending != nil {
		if done, err := deliver(*pending); done || err != nil {
			return err
		}
	}

	for {
		select {
		case ev := <-live.events:
			if done, err := deliver(ev); done || err != nil {
				return err
			}
		case <-timer.C:
			if err := keepAlive(); err != nil {
				release(nil)
				return err
			}
			timer.Reset(r.cfg.KeepAlive)
		case <-ctx.Done():
			release(nil)
			return ctx.Err()
		}
	}
}

func (r *Registry) drop(id string, live *liveTask) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, exists := r.tasks[id]; exists && current == live {
		delete(r.tasks, id)
	}
}

// Task returns a snapshot of a live or finished task
func (r *Registry) Task(ctx context.Context, id string) (model.DownloadTask, error) {
	r.mu.Lock()
	live, exists := r.tasks[id]
	r.mu.Unlock()
	if exists {
		return live.tracker.Snapshot(), nil
	}

	task, err := r.history.Get(ctx, id)
	if err != nil {
		return model.DownloadTask{}, fmt.Errorf("%w: %v", ErrTaskNotFound, err)
	}
	return task, nil
}

// History returns recently finished tasks
func (r *Registry) History(ctx context.Context, limit int) ([]model.DownloadTask, error) {
	return r.history.Recent(ctx, limit)
}

// Stop cancels every running task and waits until each has finished
// reacting or ctx ends.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	running := make([]*liveTask, 0, len(r.tasks))
	for _, live := range r.tasks {
		running = append(running, live)
	}
	r.mu.Unlock()

	active := 0
	for _, live := range running {
		if live.tracker.Snapshot().Status.IsActive() {
			active++
		}
	}
	r.log.Infof("stopping %d running downloads", active)
	for _, live := range running {
		live.cancel()
	}
	for _, live := range running {
		select {
		case <-live.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func newTaskID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, url)
	}
	return out
}
