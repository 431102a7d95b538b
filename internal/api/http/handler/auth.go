package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dtroode/authkeeper/internal/apperr"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/service"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "token"

// AuthService is the set of auth flows exposed over HTTP.
type AuthService interface {
	Register(ctx context.Context, params service.RegisterParams) error
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	Profile(ctx context.Context, userID uuid.UUID) (model.User, error)
}

// CookieOptions controls attributes of the session cookie.
type CookieOptions struct {
	Secure bool
}

// Auth serves the /api/users endpoints.
type Auth struct {
	service        AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
	cookie         CookieOptions
}

func NewAuth(authService AuthService, contextManager model.ContextManager, logger *logger.Logger, cookie CookieOptions) *Auth {
	return &Auth{
		service:        authService,
		contextManager: contextManager,
		logger:         logger,
		cookie:         cookie,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

type loginUser struct {
	ID    uuid.UUID `json:"id"`
	Role  string    `json:"role"`
	Email string    `json:"email"`
}

type loginResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Token   string    `json:"token"`
	User    loginUser `json:"user"`
}

type profileResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	err := h.service.Register(r.Context(), service.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "User registered successfully!"})
}

func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(service.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "Login successful!",
		Token:   result.Token,
		User: loginUser{
			ID:    result.User.ID,
			Role:  result.User.Role,
			Email: result.User.Email,
		},
	})
}

func (h *Auth) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset link sent to your email!"})
}

func (h *Auth) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	resetToken := mux.Vars(r)["resetToken"]
	if err := h.service.ResetPassword(r.Context(), resetToken, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{
		Message: "Password reset successful! A confirmation email has been sent to your inbox.",
	})
}

// Profile returns the authenticated user. It must run behind the access gate.
func (h *Auth) Profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.contextManager.GetPrincipal(r.Context())
	if !ok {
		h.writeError(w, r, apperr.NewErrUnauthorized("Unauthorized"))
		return
	}

	user, err := h.service.Profile(r.Context(), principal.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}

// Logout expires the session cookie. The token itself stays valid until exp.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *Auth) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := handleError(err)
	h.logFailure(r, status, err)
	writeJSON(w, status, resp)
}

func (h *Auth) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := handleError(err)
	h.logFailure(r, status, err)

	failure := false
	resp.Success = &failure
	if status == http.StatusInternalServerError {
		resp.Message = "Internal server error. Please try again later."
	}
	writeJSON(w, status, resp)
}

func (h *Auth) logFailure(r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("Auth handler: request failed",
			"path", r.URL.Path,
			"status", status,
			"error", err.Error())
		return
	}
	h.logger.Debug("Auth handler: request rejected",
		"path", r.URL.Path,
		"status", status,
		"error", err.Error())
}
