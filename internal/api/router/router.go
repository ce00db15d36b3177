// Package router assembles the HTTP surface: the WhatsApp webhook, the staff
// conversation-history endpoint, health, and metrics.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/amanahealth/clinic-concierge/internal/dialog"
	"github.com/amanahealth/clinic-concierge/internal/whatsapp"
	"github.com/amanahealth/clinic-concierge/pkg/logging"
)

// Config holds the handlers the router wires up. Nil handlers leave their
// routes unregistered, which keeps tests small.
type Config struct {
	Logger         *logging.Logger
	Webhook        *whatsapp.WebhookHandler
	DialogHandler  *dialog.Handler
	MetricsHandler http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if cfg.Webhook != nil {
		r.Get("/webhooks/whatsapp", cfg.Webhook.HandleVerification)
		r.Post("/webhooks/whatsapp", cfg.Webhook.HandleInbound)
	}

	if cfg.DialogHandler != nil {
		r.Get("/conversations/{user_id}/turns", cfg.DialogHandler.Turns)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}
