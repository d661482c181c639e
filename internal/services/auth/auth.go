// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth authenticates admin accounts: password check, bearer token
// issuance and the optional TOTP second factor.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/verify-portal/internal/config"
	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
)

// ErrInvalidCredentials is returned for a wrong email/password pair and for
// a wrong or replayed second-factor code.
var ErrInvalidCredentials = errors.New("invalid credentials")

// twoFactorWindow bounds how long a login may wait for its second factor.
const twoFactorWindow = 5 * time.Minute

// dummyHash is a real full-cost hash compared against when the email is
// unknown, so that path takes as long as a wrong password does.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("login-timing-filler"), bcrypt.DefaultCost)

// LoginResult carries the outcome of a successful credential check.
type LoginResult struct {
	Admin       *models.Admin
	Token       string
	Requires2FA bool
}

// Service implements admin authentication.
type Service struct {
	repo            *repository.Repository
	tokens          *TokenSigner
	sessionDuration time.Duration
}

// New creates a new auth service.
func New(repo *repository.Repository, cfg *config.AuthConfig) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	duration := time.Duration(cfg.SessionDuration) * time.Hour
	if duration <= 0 {
		duration = 24 * time.Hour
	}

	return &Service{
		repo:            repo,
		tokens:          NewTokenSigner([]byte(cfg.JWTSecret)),
		sessionDuration: duration,
	}, nil
}

// Login checks the credentials. When the account has a second factor enabled
// the returned token is only good for the 2FA verification step; otherwise
// it is a full session token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.twoFactorEnabled(ctx, admin.ID) {
		pending, err := s.tokens.Sign(admin.ID, admin.Email, StagePending2FA, twoFactorWindow)
		if err != nil {
			return nil, err
		}
		return &LoginResult{Admin: admin, Token: pending, Requires2FA: true}, nil
	}

	full, err := s.tokens.Sign(admin.ID, admin.Email, StageFull, s.sessionDuration)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Admin: admin, Token: full}, nil
}

// VerifyTwoFactor checks a TOTP code against the admin's secret and returns
// a full session token.
func (s *Service) VerifyTwoFactor(ctx context.Context, adminID int64, code string) (string, error) {
	admin, err := s.repo.GetAdminByID(ctx, adminID)
	if err != nil {
		return "", err
	}

	sec, err := s.repo.GetAdminSecurity(ctx, adminID)
	if err != nil || !sec.TwoFactorEnabled || !sec.TwoFactorSecret.Valid {
		return "", ErrInvalidCredentials
	}

	if !totp.Validate(code, sec.TwoFactorSecret.String) {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Sign(admin.ID, admin.Email, StageFull, s.sessionDuration)
}

// SetupTwoFactor generates a fresh TOTP secret for the admin and stores it
// disabled. The admin enables it by proving possession via EnableTwoFactor.
func (s *Service) SetupTwoFactor(ctx context.Context, adminID int64) (secret, otpauthURL string, err error) {
	admin, err := s.repo.GetAdminByID(ctx, adminID)
	if err != nil {
		return "", "", err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "verify-portal",
		AccountName: admin.Email,
	})
	if err != nil {
		return "", "", fmt.Errorf("generating TOTP secret: %w", err)
	}

	if err := s.repo.UpsertAdminSecurity(ctx, adminID, key.Secret(), false); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// EnableTwoFactor turns the second factor on after the admin proves they
// hold the secret.
func (s *Service) EnableTwoFactor(ctx context.Context, adminID int64, code string) error {
	sec, err := s.repo.GetAdminSecurity(ctx, adminID)
	if err != nil {
		return ErrInvalidCredentials
	}
	if !sec.TwoFactorSecret.Valid || !totp.Validate(code, sec.TwoFactorSecret.String) {
		return ErrInvalidCredentials
	}
	return s.repo.UpsertAdminSecurity(ctx, adminID, sec.TwoFactorSecret.String, true)
}

// ParseToken validates a bearer token and returns its claims.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	return s.tokens.Parse(tokenString)
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) twoFactorEnabled(ctx context.Context, adminID int64) bool {
	sec, err := s.repo.GetAdminSecurity(ctx, adminID)
	if err != nil {
		return false
	}
	return sec.TwoFactorEnabled
}
