package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/casesync/internal/core"
)

const (
	// healthTimeout bounds the dependency ping in /healthz.
	healthTimeout = 2 * time.Second

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type healthResponse struct {
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	ActiveRuns   int    `json:"activeRuns"`
	StashedFiles int    `json:"stashedFiles"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", StashedFiles: s.stash.Len()}
	if l := s.service.Limiter(); l != nil {
		resp.ActiveRuns = l.ActiveCount()
	}

	status := http.StatusOK
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	writeJSONStatus(w, status, resp)
}

type limiterResponse struct {
	Enabled bool `json:"enabled"`
	core.ProcessLimiterStatus
}

func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	l := s.service.Limiter()
	if l == nil {
		writeJSON(w, limiterResponse{})
		return
	}
	writeJSON(w, limiterResponse{Enabled: true, ProcessLimiterStatus: l.Status()})
}

// runResponse is one entry of GET /api/history.
type runResponse struct {
	ID             string    `json:"id"`
	FileName       string    `json:"fileName,omitempty"`
	AccountID      string    `json:"accountId,omitempty"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	SuccessCount   int       `json:"successCount"`
	ErrorCount     int       `json:"errorCount"`
	TotalProcessed int       `json:"totalProcessed"`
	Errors         []string  `json:"errors"`
	IPAddress      string    `json:"ipAddress,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	StartedAt      time.Time `json:"startedAt"`
	DurationMS     int64     `json:"durationMs"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, r, errNoHistory, 0)
		return
	}

	limit := min(parseIntParam(r, "limit", defaultHistoryLimit), maxHistoryLimit)
	runs, err := s.history.RecentRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	out := make([]runResponse, len(runs))
	for i, run := range runs {
		errs := run.Errors
		if errs == nil {
			errs = []string{}
		}
		out[i] = runResponse{
			ID:             run.ID,
			FileName:       run.FileName,
			AccountID:      run.AccountID,
			Status:         string(run.Status),
			Error:          run.Error,
			SuccessCount:   run.SuccessCount,
			ErrorCount:     run.ErrorCount,
			TotalProcessed: run.TotalProcessed,
			Errors:         errs,
			IPAddress:      run.IPAddress,
			UserAgent:      run.UserAgent,
			StartedAt:      run.StartedAt,
			DurationMS:     run.Duration.Milliseconds(),
		}
	}
	writeJSON(w, out)
}
