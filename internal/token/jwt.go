package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/model"
)

// Claims represents JWT claims with token purpose and optional role.
type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
}

// JWT implements TokenManager backed by symmetric HMAC.
type JWT struct {
	secretKey []byte
	now       func() time.Time
}

var _ model.TokenManager = (*JWT)(nil)

// Option configures a JWT manager.
type Option func(*JWT)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		j.now = now
	}
}

// NewJWT creates a new JWT token manager with the provided secret key.
func NewJWT(secretKey string, opts ...Option) *JWT {
	j := &JWT{secretKey: []byte(secretKey), now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Issue signs a token for subject carrying claims, valid for ttl.
func (j *JWT) Issue(subject uuid.UUID, claims model.Claims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", fmt.Errorf("failed to sign token: claims are required")
	}

	now := j.now()
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: string(claims.Purpose()),
	}
	if session, ok := claims.(model.SessionClaims); ok {
		c.Role = session.Role
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.Purpose(), err)
	}

	return tokenString, nil
}

// VerifySession validates a session token and returns its subject and role.
func (j *JWT) VerifySession(tokenString string) (uuid.UUID, model.SessionClaims, error) {
	claims, subject, err := j.parse(tokenString, model.PurposeSession)
	if err != nil {
		return uuid.Nil, model.SessionClaims{}, err
	}
	return subject, model.SessionClaims{Role: claims.Role}, nil
}

// VerifyReset validates a password-reset token and returns its subject.
func (j *JWT) VerifyReset(tokenString string) (uuid.UUID, error) {
	_, subject, err := j.parse(tokenString, model.PurposeReset)
	return subject, err
}

func (j *JWT) parse(tokenString string, purpose model.TokenPurpose) (*Claims, uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, uuid.Nil, mapJWTError(err)
	}
	if !token.Valid {
		return nil, uuid.Nil, model.ErrInvalidToken
	}
	if claims.TokenType != string(purpose) {
		return nil, uuid.Nil, fmt.Errorf("%w: token type mismatch: %s", model.ErrInvalidToken, claims.TokenType)
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || subject == uuid.Nil {
		return nil, uuid.Nil, fmt.Errorf("%w: bad subject", model.ErrInvalidToken)
	}

	return claims, subject, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return model.ErrExpiredToken
	}
	return fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
}
