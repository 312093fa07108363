package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

type RouterOptions struct {
	// Verifier guards /push when set.
	Verifier       TokenVerifier
	AllowedOrigins []string
}

func NewRouter(h *Handler, log *slog.Logger, opts RouterOptions) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler)

	router.Get("/ping", h.Ping)
	router.Get("/health", h.Health)
	router.Handle("/metrics", promhttp.Handler())

	router.Get("/fetch_events", h.FetchEvents)
	router.Get("/fetch_states", h.FetchStates)
	router.Get("/fetch_state", h.FetchState)

	router.Group(func(r chi.Router) {
		if opts.Verifier != nil {
			r.Use(RequireToken(opts.Verifier, log))
		}
		r.Post("/push", h.Push)
	})

	return router
}
