package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig holds everything the router mounts
type RouterConfig struct {
	Store  *StoreHandler
	Events http.Handler // SSE stream, optional
	// Metrics serves /metrics and observes every request when set
	Metrics interface {
		RequestObserver
		Handler() http.Handler
	}
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Logger(logger))
	if cfg.Metrics != nil {
		r.Use(Metrics(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := cfg.Store
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", h.ListNodes)
			r.Post("/", h.CreateNode)
			r.Get("/{id}", h.GetNode)
			r.Put("/{id}", h.UpdateNode)
			r.Delete("/{id}", h.DeleteNode)
		})
		r.Route("/connections", func(r chi.Router) {
			r.Get("/", h.ListConnections)
			r.Post("/", h.CreateConnection)
			r.Delete("/{id}", h.DeleteConnection)
		})
		r.Route("/gameElements", func(r chi.Router) {
			r.Get("/", h.ListGameElements)
			r.Post("/", h.CreateGameElements)
			r.Put("/{id}", h.UpdateGameElements)
		})
		r.Get("/export", h.Export)
		r.Post("/import", h.Import)
	})

	if cfg.Events != nil {
		r.Method(http.MethodGet, "/events", cfg.Events)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	return r
}
