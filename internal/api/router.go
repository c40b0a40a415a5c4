package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler, staticDir string) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	r.Get("/rates/today", h.GetToday)
	r.Get("/rates/latest", h.GetLatest)
	r.Get("/rates/{date}", h.GetByDate)
	r.Get("/rates", h.GetRange)

	r.Handle("/metrics", promhttp.Handler())

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}

	return r
}
