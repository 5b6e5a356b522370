package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trafficaz/internal/assistant"
	"trafficaz/internal/history"
	"trafficaz/internal/speech"
)

type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type StatusResponse struct {
	State    string          `json:"state"`
	Session  uint64          `json:"session"`
	Settings speech.Settings `json:"settings"`
}

type TranscriptRequest struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) status() StatusResponse {
	return StatusResponse{
		State:    s.disp.State().String(),
		Session:  s.disp.Session(),
		Settings: s.disp.Settings(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.disp.Start(r.Context()); err != nil {
		s.writeDispatchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.disp.Stop(r.Context()); err != nil {
		s.writeDispatchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleWake(w http.ResponseWriter, r *http.Request) {
	if err := s.disp.Wake(r.Context()); err != nil {
		s.writeDispatchError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.status())
}

// handleTranscript feeds a remote recognizer's output into the dispatcher.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req TranscriptRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if s.disp.State() == assistant.StateInactive {
		s.writeError(w, http.StatusConflict, assistant.ErrInactive.Error())
		return
	}

	s.disp.Hear(req.Text, req.Final)
	respondJSON(w, http.StatusAccepted, s.status())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.disp.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var set speech.Settings
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&set); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := set.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.disp.UpdateSettings(set)
	s.logger.Info("Voice settings updated", "language", set.Language, "rate", set.Rate, "pitch", set.Pitch, "voice", set.Voice)
	respondJSON(w, http.StatusOK, set)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeError(w, http.StatusNotImplemented, "history is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to read history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, speech.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, assistant.ErrInactive):
		status = http.StatusConflict
	case errors.Is(err, assistant.ErrNotRunning):
		status = http.StatusServiceUnavailable
	}
	s.writeError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
