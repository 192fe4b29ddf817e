// Package service implements manager sign-in with short-lived JWT access
// tokens and database-backed refresh tokens. Refresh tokens rotate on
// every use; only their SHA-256 hash is stored.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"nashcrm_backend/internal/auth/password"
	"nashcrm_backend/internal/auth/repository"
	"nashcrm_backend/internal/auth/token"
	"nashcrm_backend/internal/auth/transport"
	"nashcrm_backend/platform/apperr"
	"nashcrm_backend/platform/config"
	"nashcrm_backend/platform/logger"
)

const refreshTokenTTL = 30 * 24 * time.Hour

// Repository defines the data access interface needed by the auth service.
type Repository interface {
	CreateManager(ctx context.Context, p repository.CreateManagerParams) (repository.Manager, error)
	GetByEmail(ctx context.Context, email string) (repository.Manager, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Manager, error)
	List(ctx context.Context) ([]repository.Manager, error)
	SetRole(ctx context.Context, id uuid.UUID, role string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	CreateRefreshToken(ctx context.Context, managerID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllRefreshTokens(ctx context.Context, managerID uuid.UUID) error
}

type Service struct {
	repo Repository
	cfg  config.AuthServiceConfig
	log  *logger.Logger
	now  func() time.Time
}

func New(repo Repository, cfg config.AuthServiceConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, log: log, now: time.Now}
}

// SignIn checks the credentials and issues an access/refresh token pair.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (transport.AuthResponse, error) {
	manager, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return transport.AuthResponse{}, apperr.Unauthorized("invalid credentials")
	}
	if err := password.Compare(manager.PasswordHash, plainPassword); err != nil {
		return transport.AuthResponse{}, apperr.Unauthorized("invalid credentials")
	}
	if !manager.IsActive {
		return transport.AuthResponse{}, apperr.Forbidden("account is deactivated")
	}

	resp, err := s.issueTokens(ctx, manager)
	if err != nil {
		return transport.AuthResponse{}, err
	}
	s.log.Info("manager signed in", "manager_id", manager.ID, "role", manager.Role)
	return resp, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (transport.AuthResponse, error) {
	hash := token.HashSHA256(refreshToken)
	managerID, expiresAt, err := s.repo.GetRefreshToken(ctx, hash)
	if err != nil {
		return transport.AuthResponse{}, apperr.Unauthorized("invalid refresh token")
	}
	if s.now().After(expiresAt) {
		_ = s.repo.RevokeRefreshToken(ctx, hash)
		return transport.AuthResponse{}, apperr.Unauthorized("refresh token expired")
	}

	manager, err := s.repo.GetByID(ctx, managerID)
	if err != nil {
		return transport.AuthResponse{}, apperr.Unauthorized("invalid refresh token")
	}
	if !manager.IsActive {
		return transport.AuthResponse{}, apperr.Forbidden("account is deactivated")
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return transport.AuthResponse{}, err
	}
	return s.issueTokens(ctx, manager)
}

// SignOut revokes the presented refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.HashSHA256(refreshToken))
}

// CreateManager registers a new staff account. Admin only.
func (s *Service) CreateManager(ctx context.Context, req transport.CreateManagerRequest) (transport.ManagerResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return transport.ManagerResponse{}, err
	}

	manager, err := s.repo.CreateManager(ctx, repository.CreateManagerParams{
		Email:        req.Email,
		FullName:     req.FullName,
		Role:         req.Role,
		PasswordHash: hash,
	})
	if err != nil {
		return transport.ManagerResponse{}, err
	}
	s.log.Info("manager created", "manager_id", manager.ID, "role", manager.Role)
	return transport.ToManagerResponse(manager), nil
}

func (s *Service) GetMe(ctx context.Context, managerID uuid.UUID) (transport.ManagerResponse, error) {
	manager, err := s.repo.GetByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.ManagerResponse{}, apperr.NotFound("manager not found")
		}
		return transport.ManagerResponse{}, err
	}
	return transport.ToManagerResponse(manager), nil
}

func (s *Service) ListManagers(ctx context.Context) ([]transport.ManagerResponse, error) {
	managers, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return transport.ToManagerResponses(managers), nil
}

func (s *Service) SetRole(ctx context.Context, managerID uuid.UUID, role string) error {
	if err := s.repo.SetRole(ctx, managerID, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("manager not found")
		}
		return err
	}
	return nil
}

func (s *Service) SetActive(ctx context.Context, managerID uuid.UUID, active bool) error {
	if err := s.repo.SetActive(ctx, managerID, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("manager not found")
		}
		return err
	}
	if !active {
		// A deactivated account must not ride out existing sessions.
		return s.repo.RevokeAllRefreshTokens(ctx, managerID)
	}
	return nil
}

// ChangePassword verifies the current password before setting the new
// one, then revokes every open refresh token.
func (s *Service) ChangePassword(ctx context.Context, managerID uuid.UUID, currentPassword, newPassword string) error {
	manager, err := s.repo.GetByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("manager not found")
		}
		return err
	}
	if err := password.Compare(manager.PasswordHash, currentPassword); err != nil {
		return apperr.Unauthorized("current password is wrong")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, managerID, hash); err != nil {
		return err
	}
	return s.repo.RevokeAllRefreshTokens(ctx, managerID)
}

// ManagerEmail resolves a manager's email address. Used by the
// notification module for alert mail.
func (s *Service) ManagerEmail(ctx context.Context, id uuid.UUID) (string, error) {
	manager, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return manager.Email, nil
}

func (s *Service) issueTokens(ctx context.Context, manager repository.Manager) (transport.AuthResponse, error) {
	accessToken, err := s.signJWT(manager)
	if err != nil {
		return transport.AuthResponse{}, err
	}

	refreshToken, err := token.GenerateRandomToken(48)
	if err != nil {
		return transport.AuthResponse{}, err
	}
	hash := token.HashSHA256(refreshToken)
	if err := s.repo.CreateRefreshToken(ctx, manager.ID, hash, s.now().Add(refreshTokenTTL)); err != nil {
		return transport.AuthResponse{}, err
	}

	return transport.AuthResponse{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) signJWT(manager repository.Manager) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  manager.ID.String(),
		"role": manager.Role,
		"type": "access",
		"exp":  now.Add(s.cfg.GetAccessTokenTTL()).Unix(),
		"iat":  now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
