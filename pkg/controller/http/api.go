package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stridelog/stridelog/pkg/domain/model"
	"github.com/stridelog/stridelog/pkg/domain/model/auth"
	"github.com/stridelog/stridelog/pkg/domain/types"
	"github.com/stridelog/stridelog/pkg/usecase"
	"github.com/stridelog/stridelog/pkg/utils/errutil"
)

// apiHistoryHandler serves daily step totals, newest first.
func (s *Server) apiHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		days := 0
		if raw := r.URL.Query().Get("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "days must be an integer"})
				return
			}
			days = parsed
		}

		history, err := s.uc.Fitness.History(r.Context(), token.UserID, days)
		if err != nil {
			if errors.Is(err, usecase.ErrNoCredentials) {
				writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "fitness provider not connected"})
				return
			}
			errutil.Handle(r.Context(), err, "history fetch failed")
			writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Error: "failed to fetch history"})
			return
		}

		// Provider order is oldest first; the API serves newest first.
		reversed := make([]model.DailySteps, 0, len(history))
		for i := len(history) - 1; i >= 0; i-- {
			reversed = append(reversed, history[i])
		}

		writeJSON(r.Context(), w, http.StatusOK, reversed)
	}
}

type syncStatusResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
	Error   string `json:"error,omitempty"`
}

// apiSyncStatusHandler reports the state of one force-sync job.
func (s *Server) apiSyncStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		jobID := types.SyncJobID(r.URL.Query().Get("id"))
		if jobID == "" {
			writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "id parameter required"})
			return
		}

		job, err := s.uc.Fitness.JobStatus(r.Context(), token.UserID, jobID)
		if err != nil {
			if errors.Is(err, usecase.ErrJobNotFound) {
				writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Error: "sync job not found"})
				return
			}
			errutil.Handle(r.Context(), err, "sync job lookup failed")
			writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Error: "failed to load sync job"})
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, syncStatusResponse{
			ID:      job.ID.String(),
			Status:  job.Status.String(),
			Outcome: job.Outcome.String(),
			Error:   job.Error,
		})
	}
}

type ingestRequest struct {
	TodaySteps  int64              `json:"todaySteps"`
	StepHistory []model.DailySteps `json:"stepHistory"`
}

// apiIngestHandler accepts step data pushed by a mobile client. The
// history shape is taken as-is; only JSON decoding is validated.
func (s *Server) apiIngestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}

		if err := s.uc.Fitness.IngestMobile(r.Context(), token.UserID, req.TodaySteps, req.StepHistory); err != nil {
			errutil.Handle(r.Context(), err, "mobile ingestion failed")
			writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Error: "failed to store step data"})
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
	}
}

type fitnessDataResponse struct {
	Connected   bool                   `json:"connected"`
	StepCount   *model.LegacyStepCount `json:"stepCount,omitempty"`
	Metrics     *model.MetricsSnapshot `json:"metrics,omitempty"`
	StepHistory []model.DailySteps     `json:"stepHistory,omitempty"`
	RetrievedAt time.Time              `json:"retrievedAt"`
}

// apiFitnessDataHandler dumps the stored per-user fitness state.
func (s *Server) apiFitnessDataHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := auth.TokenFromContext(r.Context())

		user, err := s.uc.Fitness.GetUser(r.Context(), token.UserID)
		if err != nil {
			errutil.Handle(r.Context(), goerr.Wrap(err, "failed to load user for fitness data"), "fitness data lookup failed")
			writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Error: "failed to load fitness data"})
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, fitnessDataResponse{
			Connected:   user.HasFitnessConnection(),
			StepCount:   user.StepCount,
			Metrics:     user.Metrics,
			StepHistory: user.StepHistory,
			RetrievedAt: time.Now(),
		})
	}
}
