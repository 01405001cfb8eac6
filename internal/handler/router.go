package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AllowedOrigins []string
}

func NewRouter(tasks *TaskHandler, store Pinger, cfg RouterConfig, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	// UI живет на другом origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300,
	}))

	r.Get("/health", Health(store, logger))

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", tasks.List)
		r.Post("/", tasks.Create)
		r.Get("/{id}", tasks.Get)
		r.Put("/{id}", tasks.Update)
		r.Patch("/{id}", tasks.Update)
		r.Delete("/{id}", tasks.Delete)
	})

	return r
}
