package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/atomic"

	"licensemanager.app/cloud/internal/config"
	"licensemanager.app/cloud/internal/logger"
	"licensemanager.app/cloud/licensing"
	"licensemanager.app/cloud/storage"
)

type Server struct {
	Router  *chi.Mux
	Service *licensing.Service
	Storage storage.Storage
	Config  *config.Config
	Version string

	checks  atomic.Int64
	valid   atomic.Int64
	invalid atomic.Int64
}

func NewHTTPServer(cfg *config.Config, db storage.Storage, service *licensing.Service) *Server {
	router := chi.NewRouter()

	s := &Server{
		Router:  router,
		Service: service,
		Storage: db,
		Config:  cfg,
		Version: "dev",
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Secret"},
	}))
	router.Use(s.recoverer)

	router.Get("/health", s.Health)

	// Verification and billing callbacks authenticate themselves; no
	// session required.
	router.Post("/api/v1/licenses/check", s.CheckLicense)
	router.Post("/api/v1/webhooks/stripe", s.Stripe)

	router.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/api/v1/licenses", s.ListLicenses)
		r.Post("/api/v1/licenses", s.IssueLicense)
		r.Put("/api/v1/licenses", s.UpgradeLicense)
		r.Delete("/api/v1/licenses", s.DeleteLicense)
		r.Post("/api/v1/licenses/toggle", s.ToggleLicense)
	})

	return s
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
