package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/avelins/dotalog/internal/api/handler"
	"github.com/avelins/dotalog/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(h *handler.Handler, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI, dev and staging only
	if !cfg.IsProduction() {
		r.Get("/docs/*", httpSwagger.Handler(
			httpSwagger.URL("/docs/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Status-text parsing (preview before commit)
		r.Post("/parse-preview", h.ParsePreview)

		// Matches
		r.Route("/matches", func(r chi.Router) {
			r.Get("/", h.ListMatches)
			r.Post("/", h.CreateMatch)
			r.Get("/{matchID}", h.GetMatch)
			r.Delete("/{matchID}", h.DeleteMatch)
			r.Put("/{matchID}/team", h.SetMatchTeam)
			r.Put("/{matchID}/players/{playerID}/team", h.ReassignPlayerTeam)
			r.Post("/{matchID}/opendota", h.FetchOpenDota)
		})

		// Players
		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.ListPlayers)
			r.Get("/search", h.SearchPlayers)
			r.Get("/{playerID}", h.GetPlayer)
			r.Delete("/{playerID}", h.DeletePlayer)
			r.Post("/{playerID}/merge", h.MergePlayers)
			r.Post("/{playerID}/refresh-heroes", h.RefreshPlayerHeroes)
			r.Post("/{playerID}/tags/{tagID}", h.AttachTag)
			r.Delete("/{playerID}/tags/{tagID}", h.DetachTag)
			r.Get("/{playerID}/notes", h.ListNotes)
			r.Post("/{playerID}/notes", h.CreateNote)
		})

		// Tags
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.ListTags)
			r.Post("/", h.CreateTag)
			r.Put("/{tagID}", h.UpdateTag)
			r.Delete("/{tagID}", h.DeleteTag)
		})

		// Notes
		r.Route("/notes", func(r chi.Router) {
			r.Put("/{noteID}", h.UpdateNote)
			r.Delete("/{noteID}", h.DeleteNote)
		})

		// Profiles
		r.Get("/profiles", h.ListProfiles)

		// Hero catalog (cached OpenDota passthrough)
		r.Get("/heroes", h.GetHeroes)

		// Change feed (SSE)
		r.Get("/events", h.Events)
	})

	return r
}
