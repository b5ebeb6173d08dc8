package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"catalog-console/internal/domain"
	red "catalog-console/internal/infra/redis"
	"catalog-console/internal/usecase"
)

type runRequest struct {
	CategoryIDs []string `json:"category_ids"`
	Count       int      `json:"count"`
	Difficulty  string   `json:"difficulty"`
	Model       string   `json:"model"`
	Operator    string   `json:"operator"`
}

// runHandler launches a batch in the background and returns immediately.
// The batch itself is strictly sequential; the lock inside the orchestrator
// rejects a second launch while one runs.
func (s *Server) runHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req runRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		operator := req.Operator
		if operator == "" {
			operator = "default"
		}

		if s.limiter != nil {
			ok, err := s.limiter.Allow(r.Context(), red.LaunchKey(operator), s.launchLimit, time.Hour)
			if err != nil {
				s.log.Error().Err(err).Msg("launch rate limiter unavailable")
			} else if !ok {
				http.Error(w, "Too many batch launches, try later", http.StatusTooManyRequests)
				return
			}
		}

		// Fail preconditions synchronously so the operator sees them.
		if len(req.CategoryIDs) == 0 {
			http.Error(w, domain.ErrNoCategoriesSelected.Error(), http.StatusBadRequest)
			return
		}
		if req.Count < 1 {
			http.Error(w, domain.ErrInvalidItemCount.Error(), http.StatusBadRequest)
			return
		}

		go func() {
			// Detached from the request: closing the browser tab must not
			// cancel an already-started batch.
			job, err := s.genUC.Run(context.Background(), usecase.RunParams{
				CategoryIDs:      req.CategoryIDs,
				CountPerCategory: req.Count,
				Difficulty:       req.Difficulty,
				Model:            req.Model,
			})
			switch {
			case errors.Is(err, domain.ErrBatchInProgress):
				s.log.Warn().Msg("batch launch rejected, another batch is running")
			case err != nil:
				s.log.Error().Err(err).Msg("batch run failed")
			default:
				s.log.Info().Str("job_id", job.ID).Msg(job.Summary())
			}
		}()

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("batch accepted"))
	}
}
