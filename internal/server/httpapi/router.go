// Package httpapi exposes the REST surface consumed by the dashboard client:
// login and token lifecycle, the spin item catalog, the wheel ordering and
// member spins.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/KreatechIT/mrs-sub000/internal/server/config"
	"github.com/KreatechIT/mrs-sub000/internal/server/service"
)

type Router struct {
	services *service.Services
	log      *zap.Logger
	mediaDir string
}

func NewRouter(services *service.Services, cfg config.Config, log *zap.Logger) http.Handler {
	r := &Router{services: services, log: log, mediaDir: cfg.MediaDir}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	mux.Use(r.requestLogger)

	mux.Get("/health", r.handleHealth)
	mux.Handle("/media/*", http.StripPrefix("/media/", http.FileServer(http.Dir(cfg.MediaDir))))

	mux.Post("/login/admin-access-token/", r.handleAdminLogin)
	mux.Post("/login/member-code/", r.handleMemberLogin)
	mux.Post("/login/refresh-token/", r.handleRefresh)
	mux.Post("/login/verify-token/", r.handleVerifyToken)
	mux.Post("/login/logout/", r.handleLogout)

	mux.Group(func(pr chi.Router) {
		pr.Use(r.authMiddleware)

		pr.Route("/lucky-spin", func(lr chi.Router) {
			lr.Use(r.requireAdmin)
			lr.Get("/lucky-spin-items/", r.handleListItems)
			lr.Post("/lucky-spin-items/", r.handleCreateItem)
			lr.Get("/lucky-spin-items/{uuid}/", r.handleGetItem)
			lr.Put("/lucky-spin-items/{uuid}/", r.handleUpdateItem)
			lr.Delete("/lucky-spin-items/{uuid}/", r.handleDeleteItem)
			lr.Patch("/lucky-spin-items/{uuid}/archive/", r.handleArchiveItem)

			lr.Get("/lucky-spin-sequences/", r.handleListSequences)
			lr.Post("/lucky-spin-sequences/", r.handleCreateSequence)
			lr.Delete("/lucky-spin-sequences/{uuid}/", r.handleDeleteSequence)
			lr.Post("/lucky-spin-sequences/change-spin-sequences/", r.handleReorderSequences)
		})

		pr.Route("/member", func(mr chi.Router) {
			mr.With(r.requireAdmin).Get("/members/", r.handleListMembers)
			mr.Get("/members/{uuid}/", r.handleGetMember)
			mr.Post("/{uuid}/one-spin/", r.handleOneSpin)
			mr.Post("/{uuid}/ten-spin/", r.handleTenSpin)
			mr.Get("/{uuid}/spin-history/", r.handleSpinHistory)
		})
	})

	return mux
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
