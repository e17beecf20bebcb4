package handlers

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	ChecksTotal   int64     `json:"checks_total"`
	ChecksValid   int64     `json:"checks_valid"`
	ChecksInvalid int64     `json:"checks_invalid"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Version:       s.Version,
		Timestamp:     time.Now(),
		ChecksTotal:   s.checks.Load(),
		ChecksValid:   s.valid.Load(),
		ChecksInvalid: s.invalid.Load(),
	})
}
