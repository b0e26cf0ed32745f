package server

import (
	"net/http"
)

func (s *Server) chooseDirectory(w http.ResponseWriter, r *http.Request) {
	path, err := s.picker(r.Context())
	if err != nil {
		s.log.Warnf("directory picker failed: %v", err)
		Error(w, http.StatusInternalServerError, "Could not open directory picker", err)
		return
	}

	response := struct {
		Path *string `json:"path"`
	}{}
	if path != "" {
		response.Path = &path
	}
	JSON(w, http.StatusOK, response)
}

func (s *Server) shutdownServer(w http.ResponseWriter, r *http.Request) {
	s.log.Info("shutdown requested")
	Message(w, http.StatusOK, "Server shutting down...")
	go s.shutdown()
}
