// Package auth provides the authentication bounded context module:
// manager accounts, sign-in and token lifecycle.
package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"nashcrm_backend/internal/auth/handler"
	"nashcrm_backend/internal/auth/repository"
	"nashcrm_backend/internal/auth/service"
	apphttp "nashcrm_backend/internal/http"
	"nashcrm_backend/platform/config"
	"nashcrm_backend/platform/logger"
	"nashcrm_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	// Protected account routes
	ctx.Protected.GET("/users/me", m.handler.GetMe)
	ctx.Protected.POST("/users/me/password", m.handler.ChangePassword)

	// Admin routes
	ctx.Admin.GET("/users", m.handler.ListManagers)
	ctx.Admin.POST("/users", m.handler.CreateManager)
	ctx.Admin.PUT("/users/:id/role", m.handler.SetRole)
	ctx.Admin.PUT("/users/:id/active", m.handler.SetActive)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
