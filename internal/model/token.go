package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenPurpose tells session tokens and reset tokens apart.
type TokenPurpose string

const (
	PurposeSession TokenPurpose = "session"
	PurposeReset   TokenPurpose = "reset"
)

// Claims is the purpose-specific payload carried by a token.
type Claims interface {
	Purpose() TokenPurpose
}

// SessionClaims are embedded in login tokens.
type SessionClaims struct {
	Role string
}

// Purpose implements Claims.
func (SessionClaims) Purpose() TokenPurpose { return PurposeSession }

// ResetClaims are embedded in password-reset tokens. They carry nothing but the subject.
type ResetClaims struct{}

// Purpose implements Claims.
func (ResetClaims) Purpose() TokenPurpose { return PurposeReset }

// TokenManager signs and verifies stateless tokens.
type TokenManager interface {
	Issue(subject uuid.UUID, claims Claims, ttl time.Duration) (string, error)
	VerifySession(token string) (uuid.UUID, SessionClaims, error)
	VerifyReset(token string) (uuid.UUID, error)
}

// Principal is the identity decoded from a session token.
type Principal struct {
	UserID uuid.UUID
	Role   string
}
