package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ytget/social-downloader/internal/model"
	"github.com/ytget/social-downloader/internal/session"
)

type listError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ndjson writes one JSON document per line and flushes after each one.
// The status code is sent with the first line.
type ndjson struct {
	w       http.ResponseWriter
	started bool
}

func (n *ndjson) write(status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !n.started {
		n.w.Header().Set("Content-Type", "application/x-ndjson")
		n.w.WriteHeader(status)
		n.started = true
	}
	if _, err := n.w.Write(append(body, '\n')); err != nil {
		return err
	}
	if f, ok := n.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

func (n *ndjson) batch(entries []model.PlaylistEntry) error {
	return n.write(http.StatusOK, entries)
}

func (n *ndjson) fail(err error) {
	status := http.StatusBadGateway
	message := err.Error()
	switch {
	case errors.Is(err, session.ErrEmptyRequest):
		status, message = http.StatusBadRequest, "Empty input"
	case errors.Is(err, session.ErrNotChannel):
		status = http.StatusBadRequest
	}
	n.write(status, listError{Error: true, Message: message, Status: status})
}

func (s *Server) loadByUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChannelURL string `json:"channel_url"`
	}
	out := &ndjson{w: w}
	if err := decode(r, &req); err != nil {
		out.write(http.StatusBadRequest, listError{Error: true, Message: err.Error(), Status: http.StatusBadRequest})
		return
	}

	if err := s.registry.ListChannel(r.Context(), req.ChannelURL, out.batch); err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.log.Warnf("channel listing failed: %v", err)
		out.fail(err)
		return
	}
	if !out.started {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) loadByList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs string `json:"urls"`
	}
	out := &ndjson{w: w}
	if err := decode(r, &req); err != nil {
		out.write(http.StatusBadRequest, listError{Error: true, Message: err.Error(), Status: http.StatusBadRequest})
		return
	}

	if err := s.registry.ListURLs(r.Context(), req.URLs, out.batch); err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.log.Warnf("list loading failed: %v", err)
		out.fail(err)
		return
	}
	if !out.started {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) playlist(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.registry.Playlist())
}
