package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-license-api/internal/application/license"
	"github.com/go-license-api/internal/config"
	"github.com/go-license-api/internal/transport/http/handler"
	appmiddleware "github.com/go-license-api/internal/transport/http/middleware"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	CodeStore CodeStore
	Tokens    TokenAuthority
	Generator CodeGenerator
	Admin     CredentialMatcher
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", appmiddleware.AdminSecretHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	licenseSvc := license.NewService(license.ServiceDeps{
		Store:        deps.CodeStore,
		Generator:    deps.Generator,
		Tokens:       deps.Tokens,
		Admin:        deps.Admin,
		MaxBatchSize: cfg.MaxBatchSize,
	})

	healthH := handler.NewHealthHandler()
	licenseH := handler.NewLicenseHandler(licenseSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		// Admin: credential travels in the JSON body as "password".
		r.Post("/gen", licenseH.Generate)

		// Devices
		r.Post("/activate", licenseH.Activate)
		r.Get("/verify", licenseH.Verify)

		// Admin inspection
		r.With(appmiddleware.AdminCredential).Get("/codes/{code}", licenseH.Lookup)
	})

	return r
}
