package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes. The record endpoints answer on both
// the root path, which is what webhook style clients call, and /api/v1/earnings.
func SetupRoutes(handler *Handler, allowedOrigin string) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods(http.MethodGet)

	for _, path := range []string{"/", "/api/v1/earnings"} {
		r.HandleFunc(path, handler.ListRecords).Methods(http.MethodGet)
		r.HandleFunc(path, handler.SaveRecord).Methods(http.MethodPost)
		r.HandleFunc(path, handler.UpdateRecord).Methods(http.MethodPut)
		r.HandleFunc(path, handler.Preflight).Methods(http.MethodOptions)
	}

	r.Use(corsMiddleware(allowedOrigin))
	r.Use(mux.CORSMethodMiddleware(r))
	r.Use(loggingMiddleware(handler.logger))

	return r
}

func corsMiddleware(origin string) mux.MiddlewareFunc {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}
