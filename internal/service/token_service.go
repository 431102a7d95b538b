package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

const (
	// SessionTTL bounds the lifetime of login tokens.
	SessionTTL = 24 * time.Hour
	// ResetTTL bounds the lifetime of password reset tokens.
	ResetTTL = 30 * time.Minute
)

// TokenService issues and verifies the two token kinds used by the auth flows.
// It composes the TokenManager with fixed per-purpose lifetimes.
type TokenService struct {
	manager model.TokenManager
	logger  *logger.Logger
}

func NewTokenService(manager model.TokenManager, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, logger: logger}
}

// IssueSession signs a session token carrying the user's id and role.
func (s *TokenService) IssueSession(user model.User) (string, error) {
	token, err := s.manager.Issue(user.ID, model.SessionClaims{Role: user.Role}, SessionTTL)
	if err != nil {
		return "", fmt.Errorf("issue session: %w", err)
	}
	return token, nil
}

// IssueReset signs a password reset token carrying only the user's id.
func (s *TokenService) IssueReset(user model.User) (string, error) {
	token, err := s.manager.Issue(user.ID, model.ResetClaims{}, ResetTTL)
	if err != nil {
		return "", fmt.Errorf("issue reset: %w", err)
	}
	return token, nil
}

// VerifyReset returns the subject of a valid reset token.
func (s *TokenService) VerifyReset(token string) (uuid.UUID, error) {
	return s.manager.VerifyReset(token)
}

// Authenticate resolves the principal of a session token.
func (s *TokenService) Authenticate(_ context.Context, token string) (model.Principal, error) {
	userID, claims, err := s.manager.VerifySession(token)
	if err != nil {
		s.logger.Debug("Token service: session token rejected", "error", err.Error())
		return model.Principal{}, err
	}
	return model.Principal{UserID: userID, Role: claims.Role}, nil
}
