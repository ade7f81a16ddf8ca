package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	"github.com/frahmantamala/farm-management/internal/auth"
	"github.com/frahmantamala/farm-management/internal/farmer"
	"github.com/frahmantamala/farm-management/internal/file"
	"github.com/frahmantamala/farm-management/internal/transport/middleware"
	"github.com/frahmantamala/farm-management/internal/transport/swagger"
)

// RegisterAllRoutes mounts the API surface. Health and swagger live outside
// the /api/v1 group; everything behind the auth middleware sees a resolved
// current user in context.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	farmerHandler *farmer.Handler,
	fileHandler *file.Handler,
	rateLimitPerMin int,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Get("/health", healthHandler.healthCheckHandler)
	router.Get("/ping", healthHandler.pingHandler)

	router.Route("/api/v1", func(r chi.Router) {
		if rateLimitPerMin > 0 {
			r.Use(httprate.LimitByIP(rateLimitPerMin, time.Minute))
		}

		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/register", authHandler.Register)
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})

			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				pr.Get("/users/me", authHandler.GetCurrentUser)
				pr.Get("/policy/permissions", authHandler.GetPermissions)

				if farmerHandler != nil {
					pr.Route("/farmers", func(fr chi.Router) {
						fr.Get("/", farmerHandler.SearchFarmers)
						fr.Post("/", farmerHandler.CreateFarmer)
						fr.Patch("/", farmerHandler.UpdateFarmers)
						fr.Delete("/", farmerHandler.DeleteFarmers)
					})
				}

				if fileHandler != nil {
					pr.Route("/files", func(fr chi.Router) {
						fr.Post("/upload", fileHandler.UploadFiles)
						fr.Get("/", fileHandler.ListFiles)
						fr.Patch("/", fileHandler.UpdateFiles)
						fr.Delete("/", fileHandler.DeleteFiles)
						fr.Post("/type", fileHandler.GetFileType)
						fr.Post("/path", fileHandler.GetUploadPath)
					})
				}
			})
		}
	})
}
