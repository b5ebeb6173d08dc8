package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"catalog-console/internal/domain"
	"catalog-console/internal/domain/model"
	"catalog-console/internal/usecase"
)

type duplicateGroupView struct {
	Key     string                  `json:"key"`
	State   string                  `json:"state"`
	Members []duplicateMemberView   `json:"members"`
	Scores  []model.SimilarityScore `json:"scores,omitempty"`
}

type duplicateMemberView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	IsDuplicate bool   `json:"is_duplicate"`
}

// duplicatesHandler lists detected duplicate groups with similarity-ranked
// member pairs for the console to display.
func duplicatesHandler(dedupUC usecase.DedupUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		groups, err := dedupUC.ScanStore(r.Context())
		if err != nil {
			http.Error(w, "Failed to scan for duplicates", http.StatusInternalServerError)
			return
		}

		views := make([]duplicateGroupView, 0, len(groups))
		for _, g := range groups {
			view := duplicateGroupView{
				Key:    g.Key,
				State:  string(g.State),
				Scores: dedupUC.ScorePairs(g.Members),
			}
			for _, m := range g.Members {
				view.Members = append(view.Members, duplicateMemberView{
					ID:          m.ID,
					Title:       m.Title,
					Summary:     m.Summary,
					IsDuplicate: m.IsDuplicate,
				})
			}
			views = append(views, view)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(views)
	}
}

// cleanupHandler runs bulk duplicate cleanup and reports the mutation counts.
func cleanupHandler(resolveUC usecase.ResolveUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		res, err := resolveUC.BulkCleanup(r.Context())
		if err != nil {
			http.Error(w, "Bulk cleanup failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Groups  int `json:"groups"`
			Kept    int `json:"kept"`
			Deleted int `json:"deleted"`
			Failed  int `json:"failed"`
		}{res.Groups, res.Kept, res.Deleted, res.Failed})
	}
}

type resolveRequest struct {
	Key     string `json:"key"`
	KeepID  string `json:"keep_id"`
	Rewrite bool   `json:"rewrite"`
	Model   string `json:"model"`
}

// resolveHandler drives the state machine for one duplicate group: the kept
// member is designated and every other member is rewritten or deleted.
func resolveHandler(dedupUC usecase.DedupUseCase, resolveUC usecase.ResolveUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req resolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		groups, err := dedupUC.ScanStore(r.Context())
		if err != nil {
			http.Error(w, "Failed to scan for duplicates", http.StatusInternalServerError)
			return
		}
		var group *model.DuplicateGroup
		for i := range groups {
			if groups[i].Key == req.Key {
				group = &groups[i]
				break
			}
		}
		if group == nil {
			http.Error(w, "Duplicate group not found", http.StatusNotFound)
			return
		}
		group.KeepID = req.KeepID

		err = resolveUC.ResolveGroup(r.Context(), group, req.Model, req.Rewrite)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case errors.Is(err, domain.ErrNotInGroup), errors.Is(err, domain.ErrEmptyGroup):
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		case errors.Is(err, domain.ErrPartialResolution):
			w.WriteHeader(http.StatusConflict)
		case err != nil:
			http.Error(w, "Resolving duplicate group failed", http.StatusInternalServerError)
			return
		}

		_ = json.NewEncoder(w).Encode(struct {
			Key     string   `json:"key"`
			State   string   `json:"state"`
			KeepID  string   `json:"keep_id"`
			Members []string `json:"members"`
		}{group.Key, string(group.State), group.KeepID, group.MemberIDs()})
	}
}

// statusHandler reports the in-progress marker and the last finished batch.
func statusHandler(genUC usecase.GenerationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		stalled, err := genUC.CheckStalled(r.Context())
		if err != nil {
			http.Error(w, "Failed to read in-progress marker", http.StatusInternalServerError)
			return
		}

		resp := struct {
			InProgress bool   `json:"in_progress"`
			Warning    string `json:"warning,omitempty"`
			LastJob    any    `json:"last_job,omitempty"`
		}{InProgress: stalled}
		if stalled {
			resp.Warning = "a previous batch may still be running"
		}
		if job := genUC.LastJob(); job != nil {
			resp.LastJob = struct {
				ID       string                  `json:"id"`
				Summary  string                  `json:"summary"`
				Progress model.Progress          `json:"progress"`
				Outcomes []model.CategoryOutcome `json:"outcomes"`
			}{job.ID, job.Summary(), job.Progress, job.Outcomes}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
