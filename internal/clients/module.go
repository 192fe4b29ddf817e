// Package clients provides the client base bounded context module: client
// cards, classification metrics, follow-up tasks and interactions.
package clients

import (
	"nashcrm_backend/internal/clients/handler"
	"nashcrm_backend/internal/clients/repository"
	"nashcrm_backend/internal/clients/service"
	"nashcrm_backend/internal/events"
	apphttp "nashcrm_backend/internal/http"
	"nashcrm_backend/platform/logger"
	"nashcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the clients bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the clients module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "clients"
}

// Service returns the clients service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the clients repository for cross-module wiring.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts clients routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/clients"))
}

var _ apphttp.Module = (*Module)(nil)
