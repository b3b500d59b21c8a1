// Package app contains the application setup for the CRM service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/gocrm/internal/config"
	"github.com/abgdnv/gocrm/internal/service"
	"github.com/abgdnv/gocrm/internal/store"
	"github.com/abgdnv/gocrm/internal/transport/rest"
	"github.com/abgdnv/gocrm/pkg/server"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependencies struct {
	CRMService service.CRMService
	Logger     *slog.Logger
}

func SetupDependencies(dbPool *pgxpool.Pool, logger *slog.Logger) *Dependencies {
	crmService := service.NewService(store.NewPgStore(dbPool), logger)

	return &Dependencies{
		CRMService: crmService,
		Logger:     logger,
	}
}

// SetupHttpHandler initializes the HTTP routes for the CRM application.
// Used by tests to exercise the full HTTP surface without a listener.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the CRM application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	crmHandler := rest.NewHandler(deps.CRMService, deps.Logger)
	crmHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the CRM application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
