package router

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leca/dt-image-store/internal/api"
	"github.com/leca/dt-image-store/internal/config"
	"github.com/leca/dt-image-store/internal/database"
	"github.com/leca/dt-image-store/internal/handler"
	"github.com/leca/dt-image-store/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	DB     database.Database
	Store  storage.Storage
	Config *config.Config
	Logger *slog.Logger
	Router chi.Router
}

// New creates a new Server with a fully configured chi router. When gatherer
// is non-nil its metrics are served on /metrics.
func New(db database.Database, store storage.Storage, cfg *config.Config, logger *slog.Logger, gatherer prometheus.Gatherer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{DB: db, Store: store, Config: cfg, Logger: logger}

	h := &handler.Handler{
		DB:     db,
		Store:  store,
		Config: cfg,
		Logger: logger,
	}

	r := chi.NewRouter()

	// CORS must be before other middleware to handle preflight OPTIONS.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RequestID)
	r.Use(api.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	// Health check and metrics (no auth required).
	r.Get("/health", s.Health)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(api.AuthMiddleware(cfg.AuthToken))

		r.Post("/images", h.UploadImage)
		r.Get("/images", h.ListImages)
		r.Get("/images/{key}", h.GetImage)
		r.Delete("/images/{key}", h.DeleteImage)
		r.Post("/images/{key}/sizes/{preset}", h.AddSize)

		r.Post("/presets", h.CreatePreset)
		r.Get("/presets", h.ListPresets)
		r.Get("/presets/{name}", h.GetPreset)
		r.Patch("/presets/{name}", h.UpdatePreset)
		r.Delete("/presets/{name}", h.DeletePreset)

		r.Get("/cleanup", h.GetCleanup)
		r.Post("/cleanup", h.RunCleanup)

		r.Get("/stats", h.GetStats)
	})

	// Image delivery (no auth required).
	r.Get("/cdn/{key}", h.DeliverImage)
	r.Head("/cdn/{key}", h.DeliverImage)
	r.Get("/cdn/{key}/{size}", h.DeliverImage)
	r.Head("/cdn/{key}/{size}", h.DeliverImage)

	s.Router = r
	return s
}

// Health returns a simple health-check response.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		s.Logger.Warn("Health: failed to encode response", "error", err)
	}
}
