package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"podcast-content-pipeline/internal/domain/model"
)

// IngestService accepts episodes and exposes job status.
type IngestService interface {
	SubmitEpisode(ctx context.Context, episodeRef string, priority int) ([]*model.ProcessingJob, error)
	SubmitJob(ctx context.Context, episodeRef string, kind model.JobKind, priority int) (*model.ProcessingJob, error)
	GetJob(ctx context.Context, id string) (*model.ProcessingJob, error)
}

// ReviewService covers draft editing, scheduling and cancellation.
type ReviewService interface {
	SchedulePost(ctx context.Context, postID string, at time.Time) (*model.MarketingPost, error)
	CancelPost(ctx context.Context, postID string) (*model.MarketingPost, error)
	UpdateDraftContent(ctx context.Context, postID, content string, mediaRefs []string) (*model.MarketingPost, error)
}

// StatusService is the read side for dashboards.
type StatusService interface {
	GetPost(ctx context.Context, id string) (*model.MarketingPost, error)
	ListPostsByEpisode(ctx context.Context, episodeRef string) ([]*model.MarketingPost, error)
	GetTranscript(ctx context.Context, episodeRef string) (*model.Transcript, error)
	ListEvents(ctx context.Context, since time.Time, limit int) ([]*model.StatusEvent, error)
}

type Server struct {
	ingest IngestService
	review ReviewService
	status StatusService
	auth   *AuthManager
	apiKey string
	log    *zerolog.Logger
}

func NewServer(
	ingest IngestService,
	review ReviewService,
	status StatusService,
	auth *AuthManager,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	webLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		ingest: ingest,
		review: review,
		status: status,
		auth:   auth,
		apiKey: apiKey,
		log:    &webLog,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", loginHandler(s.auth, s.apiKey))

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/jobs", jobSubmitHandler(s.ingest))
			r.Get("/jobs/{id}", jobGetHandler(s.ingest))

			r.Get("/episodes/{ref}/posts", episodePostsHandler(s.status))
			r.Get("/episodes/{ref}/transcript", transcriptHandler(s.status))

			r.Get("/posts/events", eventsHandler(s.status))
			r.Get("/posts/{id}", postGetHandler(s.status))
			r.Post("/posts/{id}/schedule", postScheduleHandler(s.review))
			r.Post("/posts/{id}/cancel", postCancelHandler(s.review))
			r.Put("/posts/{id}/content", postContentHandler(s.review))
		})
	})

	return r
}

// authMiddleware admits either the static collaborator key or a minted
// dashboard session token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if hdr := r.Header.Get("Authorization"); hdr != "" {
			parts := strings.SplitN(hdr, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] == s.apiKey {
				next.ServeHTTP(w, r)
				return
			}
		}
		if _, err := s.auth.ParseFromRequest(r); err == nil {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
