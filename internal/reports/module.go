// Package reports provides the reporting bounded context: funnel,
// summary and manager activity views over leads and payments.
package reports

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "nashcrm_backend/internal/http"
	"nashcrm_backend/internal/reports/handler"
	"nashcrm_backend/internal/reports/repository"
	"nashcrm_backend/internal/reports/service"
	"nashcrm_backend/platform/cache"
	"nashcrm_backend/platform/logger"
)

// Module is the reports bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the reports module. The cache store may be nil, in
// which case every request recomputes.
func NewModule(pool *pgxpool.Pool, store *cache.Store, log *logger.Logger) *Module {
	repo := repository.New(pool)

	var c service.Cache
	if store != nil {
		c = store
	}
	svc := service.New(repo, c, log)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reports"
}

// Service returns the reports service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts report routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/reports")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
