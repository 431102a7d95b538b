package middleware

import (
	"context"
	"net/http"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// TokenService resolves the principal of a session token.
type TokenService interface {
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

// Authenticate gates protected routes on the session cookie.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
	cookieName     string
}

// NewAuthenticate creates a new Authenticate middleware reading the given cookie.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger, cookieName string) *Authenticate {
	return &Authenticate{
		tokenService:   tokenService,
		contextManager: contextManager,
		logger:         logger,
		cookieName:     cookieName,
	}
}

// Handle rejects requests without a valid session token and attaches the
// principal to the request context otherwise.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		principal, err := m.tokenService.Authenticate(r.Context(), cookie.Value)
		if err != nil {
			m.logger.Debug("Authenticate middleware: token rejected",
				"path", r.URL.Path,
				"error", err.Error())
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := m.contextManager.SetPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
