package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"catalog-console/internal/infra/logging"
	"catalog-console/internal/usecase"
)

// LaunchLimiter caps batch launches per operator; the redis rate limiter
// satisfies this.
type LaunchLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Server exposes the operator-facing endpoints of the console core:
// duplicate inspection, bulk cleanup, batch launch and batch status. The
// catalog CRUD UI lives elsewhere and talks to the same store.
type Server struct {
	genUC       usecase.GenerationUseCase
	dedupUC     usecase.DedupUseCase
	resolveUC   usecase.ResolveUseCase
	limiter     LaunchLimiter
	launchLimit int
	apiKey      string
	log         *zerolog.Logger
}

func NewServer(
	genUC usecase.GenerationUseCase,
	dedupUC usecase.DedupUseCase,
	resolveUC usecase.ResolveUseCase,
	limiter LaunchLimiter,
	launchLimit int,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	if launchLimit <= 0 {
		launchLimit = 10
	}
	return &Server{
		genUC:       genUC,
		dedupUC:     dedupUC,
		resolveUC:   resolveUC,
		limiter:     limiter,
		launchLimit: launchLimit,
		apiKey:      apiKey,
		log:         logger,
	}
}

// RegisterRoutes sets up the routing for the ops API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	ops := func(h http.Handler) http.Handler {
		return s.traceMiddleware(s.authMiddleware(h))
	}
	mux.Handle("/api/v1/duplicates", ops(duplicatesHandler(s.dedupUC)))
	mux.Handle("/api/v1/duplicates/cleanup", ops(cleanupHandler(s.resolveUC)))
	mux.Handle("/api/v1/duplicates/resolve", ops(resolveHandler(s.dedupUC, s.resolveUC)))
	mux.Handle("/api/v1/generation/run", ops(s.runHandler()))
	mux.Handle("/api/v1/generation/status", ops(statusHandler(s.genUC)))

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

// traceMiddleware assigns a trace id to every ops request and logs method,
// path, status and duration when it completes.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Dur("duration", time.Since(start)).
			Msg("http_request")
	})
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// authMiddleware provides simple Bearer token authentication for the ops API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("ops API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
