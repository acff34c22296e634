package webhook

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Options configures the ingestion router.
type Options struct {
	// Token, when set, must be presented as "Authorization: Bearer <token>".
	Token   string
	Metrics http.Handler // served on GET /metrics when set
	Logger  zerolog.Logger
}

// NewRouter mounts POST /events, GET /healthz and optionally GET /metrics.
func NewRouter(em Emitter, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	r.Group(func(r chi.Router) {
		if opts.Token != "" {
			r.Use(requireToken(opts.Token))
		}
		r.Post("/events", Handler(em, opts.Logger.With().Str("component", "webhook").Logger()))
	})
	return r
}

func requireToken(token string) func(http.Handler) http.Handler {
	want := "Bearer " + token
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != want {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
