package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Sets up chi router, middlewares and defines all api endpoints
func (s *Server) routes() {
	s.r = chi.NewRouter()

	s.r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	s.r.Use(middleware.Logger)
	s.r.Use(middleware.Recoverer)

	// metrics are served as text, outside the JSON group
	s.r.Handle("/metrics", s.opts.Metrics.Handler())

	s.r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(httprate.Limit(
			s.opts.RateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "60")
				JSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			}),
		))

		// health
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			JSON(w, http.StatusOK, map[string]interface{}{"health_status": "online"})
		})

		r.Get("/state", s.handleStateGet)
		r.Post("/network", s.handleNetworkPost)

		// operations
		r.Post("/spin", s.handleSpinPost)
		r.Post("/tickets", s.handleTicketsPost)
		r.Post("/claim", s.handleClaimPost)

		// reads
		r.Get("/rounds/{lotteryType}", s.handleRoundGet)
		r.Get("/quote", s.handleQuoteGet)
		r.Get("/history", s.handleHistoryGet)
		r.Get("/winners", s.handleWinnersGet)
	})
}
