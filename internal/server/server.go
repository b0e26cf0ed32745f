// Package server exposes the session registry over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/kataras/golog"
	"github.com/rs/cors"

	"github.com/ytget/social-downloader/internal/model"
	"github.com/ytget/social-downloader/internal/session"
)

// Registry is the session state the handlers drive
type Registry interface {
	ListChannel(ctx context.Context, channelURL string, emit session.Batch) error
	ListURLs(ctx context.Context, text string, emit session.Batch) error
	Playlist() []model.PlaylistEntry
	StartDownload(req session.DownloadRequest) (string, int, error)
	Stream(ctx context.Context, id string, send func(model.ProgressEvent) error, keepAlive func() error) error
	Stop(ctx context.Context) error
	Task(ctx context.Context, id string) (model.DownloadTask, error)
	History(ctx context.Context, limit int) ([]model.DownloadTask, error)
}

// DirectoryPicker opens a native folder dialog. An empty path means the
// user cancelled.
type DirectoryPicker func(ctx context.Context) (string, error)

// Server routes API requests
type Server struct {
	registry Registry
	picker   DirectoryPicker
	shutdown func()
	log      *golog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithDirectoryPicker sets the dialog used by choose-directory
func WithDirectoryPicker(p DirectoryPicker) Option {
	return func(s *Server) { s.picker = p }
}

// WithShutdown sets the function triggered by POST /shutdown
func WithShutdown(fn func()) Option {
	return func(s *Server) { s.shutdown = fn }
}

// New creates a server
func New(registry Registry, log *golog.Logger, opts ...Option) *Server {
	if log == nil {
		log = golog.Default
	}
	s := &Server{
		registry: registry,
		log:      log,
		picker:   func(context.Context) (string, error) { return "", nil },
		shutdown: func() {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with permissive CORS
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/load_videos_by_user", s.loadByUser)
	mux.HandleFunc("POST /api/load_videos_by_list", s.loadByList)
	mux.HandleFunc("GET /api/playlist", s.playlist)
	mux.HandleFunc("POST /api/download_videos", s.downloadVideos)
	mux.HandleFunc("GET /api/download_progress/{download_id}", s.downloadProgress)
	mux.HandleFunc("POST /api/download/stop", s.stop)
	mux.HandleFunc("GET /api/downloads/history", s.history)
	mux.HandleFunc("GET /api/downloads/{download_id}", s.task)
	mux.HandleFunc("GET /api/choose-directory", s.chooseDirectory)
	mux.HandleFunc("POST /api/choose-directory", s.chooseDirectory)
	mux.HandleFunc("POST /shutdown", s.shutdownServer)

	return cors.AllowAll().Handler(s.logRequests(mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming responses working through the recorder
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debugf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
