package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ytget/social-downloader/internal/model"
	"github.com/ytget/social-downloader/internal/session"
)

type downloadRequest struct {
	VideoURLs           []string `json:"video_urls"`
	SavePath            string   `json:"save_path"`
	Quality             string   `json:"quality"`
	ConcurrentDownloads int      `json:"concurrent_downloads"`
}

type downloadResponse struct {
	DownloadID string           `json:"download_id"`
	Status     model.TaskStatus `json:"status"`
	Total      int              `json:"total"`
}

func (s *Server) downloadVideos(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	id, total, err := s.registry.StartDownload(session.DownloadRequest{
		URLs:        req.VideoURLs,
		SaveDir:     req.SavePath,
		Quality:     req.Quality,
		Concurrency: req.ConcurrentDownloads,
	})
	switch {
	case errors.Is(err, session.ErrEmptyRequest):
		Error(w, http.StatusBadRequest, "No video URLs provided", err)
		return
	case errors.Is(err, session.ErrUnknownURL):
		Error(w, http.StatusBadRequest, "Some videos are not in the current list", err)
		return
	case err != nil:
		s.log.Errorf("failed to start download: %v", err)
		Error(w, http.StatusInternalServerError, "Could not start download", err)
		return
	}

	JSON(w, http.StatusOK, downloadResponse{DownloadID: id, Status: model.TaskStatusStarted, Total: total})
}

func (s *Server) downloadProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("download_id")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, _ := w.(http.Flusher)

	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	send := func(ev model.ProgressEvent) error {
		body, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", body); err != nil {
			return err
		}
		flush()
		return nil
	}
	keepAlive := func() error {
		if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
			return err
		}
		flush()
		return nil
	}

	err := s.registry.Stream(r.Context(), id, send, keepAlive)
	switch {
	case errors.Is(err, session.ErrTaskNotFound):
		fmt.Fprint(w, "data: {\"error\":\"Invalid download_id\"}\n\n")
		flush()
	case errors.Is(err, session.ErrAlreadyStreaming):
		fmt.Fprintf(w, "data: {\"error\":%q}\n\n", err.Error())
		flush()
	case err != nil && r.Context().Err() == nil:
		s.log.Warnf("progress stream for %s ended: %v", id, err)
	}
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	s.log.Info("waiting for downloads to stop")
	if err := s.registry.Stop(r.Context()); err != nil {
		Error(w, http.StatusInternalServerError, "Could not stop downloads", err)
		return
	}
	s.log.Info("downloads stopped")
	Message(w, http.StatusOK, "Stop command received")
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "Invalid limit", fmt.Errorf("limit %q is not a positive number", v))
			return
		}
		limit = n
	}

	tasks, err := s.registry.History(r.Context(), limit)
	if err != nil {
		Error(w, http.StatusInternalServerError, "Could not load history", err)
		return
	}
	JSON(w, http.StatusOK, tasks)
}

func (s *Server) task(w http.ResponseWriter, r *http.Request) {
	task, err := s.registry.Task(r.Context(), r.PathValue("download_id"))
	switch {
	case errors.Is(err, session.ErrTaskNotFound):
		Error(w, http.StatusNotFound, "Invalid download_id", err)
		return
	case err != nil:
		Error(w, http.StatusInternalServerError, "Could not load download", err)
		return
	}
	JSON(w, http.StatusOK, task)
}
