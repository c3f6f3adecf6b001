package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// Liveness
	r.Get("/healthz", h.handleHealthz)

	// Wall view
	r.Get("/", h.handleHome)
	r.Get("/wall", h.handleWall)

	// Control API
	r.Get("/api/status", h.handleStatus)
	r.Post("/api/connect", h.handleConnect)
	r.Post("/api/refresh", h.handleRefresh)
	r.Post("/api/disconnect", h.handleDisconnect)
	r.Get("/api/pairing/qr", h.handlePairingQR)
	r.Get("/api/sessions", h.handleSessions)
	r.Get("/api/widgets/{widgetID}", h.handleWidget)
	r.Post("/api/layout", h.handleLayout)
	r.Post("/api/assets/loaded", h.handleAssetLoaded)

	return r
}
