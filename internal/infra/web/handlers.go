package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"podcast-content-pipeline/internal/domain"
	"podcast-content-pipeline/internal/domain/model"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnknownPlatform):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidStateTransition), errors.Is(err, domain.ErrDuplicateDelivery):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type loginRequest struct {
	Secret string `json:"secret"`
}

// loginHandler exchanges the collaborator key for a dashboard session.
func loginHandler(auth *AuthManager, apiKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if apiKey == "" || req.Secret != apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		token, err := auth.Mint(w)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

type jobSubmitRequest struct {
	EpisodeRef string `json:"episode_ref"`
	Kind       string `json:"kind"` // empty means the full chain
	Priority   int    `json:"priority"`
}

func jobSubmitHandler(ingest IngestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jobSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if req.Kind == "" {
			jobs, err := ingest.SubmitEpisode(r.Context(), req.EpisodeRef, req.Priority)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, jobs)
			return
		}

		job, err := ingest.SubmitJob(r.Context(), req.EpisodeRef, model.JobKind(req.Kind), req.Priority)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, job)
	}
}

func jobGetHandler(ingest IngestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := ingest.GetJob(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func episodePostsHandler(status StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := status.ListPostsByEpisode(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			writeError(w, err)
			return
		}
		if posts == nil {
			posts = []*model.MarketingPost{}
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

func transcriptHandler(status StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transcript, err := status.GetTranscript(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, transcript)
	}
}

func postGetHandler(status StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := status.GetPost(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

type scheduleRequest struct {
	At time.Time `json:"at"`
}

func postScheduleHandler(review ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req scheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		post, err := review.SchedulePost(r.Context(), chi.URLParam(r, "id"), req.At)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func postCancelHandler(review ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := review.CancelPost(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

type contentUpdateRequest struct {
	Content   string   `json:"content"`
	MediaRefs []string `json:"media_refs"`
}

func postContentHandler(review ReviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contentUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		post, err := review.UpdateDraftContent(r.Context(), chi.URLParam(r, "id"), req.Content, req.MediaRefs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func eventsHandler(status StatusService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		since := time.Time{}
		if raw := r.URL.Query().Get("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				http.Error(w, "since must be RFC3339", http.StatusBadRequest)
				return
			}
			since = parsed
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				http.Error(w, "limit must be an integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		events, err := status.ListEvents(r.Context(), since, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if events == nil {
			events = []*model.StatusEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}
