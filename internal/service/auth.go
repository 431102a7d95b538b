package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/apperr"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/notify"
)

// EventRecorder counts auth flow outcomes.
type EventRecorder interface {
	RecordAuthEvent(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthEvent(string, string) {}

// AuthOptions tunes the reset flow and instrumentation.
type AuthOptions struct {
	// ResetLinkBaseURL is prefixed to reset tokens to build the emailed link.
	ResetLinkBaseURL string
	// ConcealUnknownEmail makes forgot-password succeed silently for unknown addresses.
	ConcealUnknownEmail bool
	Recorder            EventRecorder
}

// RegisterParams holds registration input.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// LoginResult is returned after successful authentication.
type LoginResult struct {
	Token string
	User  model.User
}

type Auth struct {
	userStore    model.UserStore
	hasher       model.PasswordHasher
	tokenService *TokenService
	notifier     model.Notifier
	logger       *logger.Logger
	opts         AuthOptions
}

func NewAuth(
	userStore model.UserStore,
	hasher model.PasswordHasher,
	tokenService *TokenService,
	notifier model.Notifier,
	logger *logger.Logger,
	opts AuthOptions,
) *Auth {
	if opts.Recorder == nil {
		opts.Recorder = noopRecorder{}
	}
	return &Auth{
		userStore:    userStore,
		hasher:       hasher,
		tokenService: tokenService,
		notifier:     notifier,
		logger:       logger,
		opts:         opts,
	}
}

func (a *Auth) Register(ctx context.Context, params RegisterParams) (err error) {
	defer func() { a.record("register", err) }()

	name := strings.TrimSpace(params.Name)
	email := strings.TrimSpace(params.Email)

	switch {
	case name == "":
		return apperr.NewErrValidation("Name is required")
	case email == "":
		return apperr.NewErrValidation("Email is required")
	case strings.TrimSpace(params.Password) == "":
		return apperr.NewErrValidation("Password is required")
	}
	if !isValidEmail(email) {
		return apperr.NewErrValidation("Invalid email format")
	}
	if err := checkPassword(params.Password); err != nil {
		return err
	}

	a.logger.Debug("Auth service: starting user registration",
		"email", email)

	_, err = a.userStore.GetByEmail(ctx, email)
	if err == nil {
		a.logger.Info("Auth service: user already exists",
			"email", email)
		return apperr.NewErrDuplicateEmail()
	}
	if !errors.Is(err, model.ErrNotFound) {
		a.logger.Error("Auth service: failed to get user by email",
			"email", email,
			"error", err.Error())
		return apperr.NewErrInternal(fmt.Errorf("failed to get user by email: %w", err))
	}

	hash, err := a.hasher.Hash(params.Password)
	if err != nil {
		return apperr.NewErrInternal(err)
	}

	role := strings.TrimSpace(params.Role)
	if role == "" {
		role = model.DefaultRole
	}

	user, err := a.userStore.Create(ctx, model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, model.ErrDuplicateEmail) {
		return apperr.NewErrDuplicateEmail()
	}
	if err != nil {
		a.logger.Error("Auth service: failed to create user",
			"email", email,
			"error", err.Error())
		return apperr.NewErrInternal(fmt.Errorf("failed to create user: %w", err))
	}

	a.logger.Info("Auth service: user registration completed successfully",
		"email", email,
		"user_id", user.ID)

	return nil
}

func (a *Auth) Login(ctx context.Context, email, password string) (result LoginResult, err error) {
	defer func() { a.record("login", err) }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.NewErrValidation("Email and password are required")
	}
	if !isValidEmail(email) {
		return LoginResult{}, apperr.NewErrValidation("Invalid email format. Please enter a valid email address.")
	}

	a.logger.Debug("Auth service: starting user login",
		"email", email)

	user, err := a.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		return LoginResult{}, apperr.NewErrNotFound("User not found. Please register first.")
	}
	if err != nil {
		return LoginResult{}, apperr.NewErrInternal(fmt.Errorf("failed to get user by email: %w", err))
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		a.logger.Info("Auth service: password mismatch",
			"user_id", user.ID)
		return LoginResult{}, apperr.NewErrUnauthorized("Incorrect password. Please try again.")
	}

	token, err := a.tokenService.IssueSession(user)
	if err != nil {
		return LoginResult{}, apperr.NewErrInternal(fmt.Errorf("failed to issue token: %w", err))
	}

	a.logger.Info("Auth service: login completed successfully",
		"user_id", user.ID)

	return LoginResult{Token: token, User: user}, nil
}

func (a *Auth) ForgotPassword(ctx context.Context, email string) (err error) {
	defer func() { a.record("forgot_password", err) }()

	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.NewErrValidation("Email is required")
	}

	user, err := a.userStore.GetByEmail(ctx, email)
	if errors.Is(err, model.ErrNotFound) {
		if a.opts.ConcealUnknownEmail {
			a.logger.Info("Auth service: reset requested for unknown email",
				"email", email)
			return nil
		}
		return apperr.NewErrNotFound("User not found")
	}
	if err != nil {
		return apperr.NewErrInternal(fmt.Errorf("failed to get user by email: %w", err))
	}

	token, err := a.tokenService.IssueReset(user)
	if err != nil {
		return apperr.NewErrInternal(fmt.Errorf("failed to issue reset token: %w", err))
	}

	link := a.opts.ResetLinkBaseURL + token
	if err := a.notifier.Send(ctx, notify.ResetRequestMessage(user.Email, link, ResetTTL)); err != nil {
		a.logger.Error("Auth service: failed to send reset link",
			"user_id", user.ID,
			"error", err.Error())
		return apperr.NewErrInternal(err)
	}

	a.logger.Info("Auth service: reset link sent",
		"user_id", user.ID)

	return nil
}

func (a *Auth) ResetPassword(ctx context.Context, resetToken, newPassword string) (err error) {
	defer func() { a.record("reset_password", err) }()

	if newPassword == "" {
		return apperr.NewErrValidation("New password is required")
	}
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	userID, err := a.tokenService.VerifyReset(resetToken)
	if err != nil {
		a.logger.Info("Auth service: reset token rejected",
			"error", err.Error())
		return apperr.NewErrBadRequest("Invalid or expired token", err)
	}

	user, err := a.userStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return apperr.NewErrNotFound("User not found")
	}
	if err != nil {
		return apperr.NewErrInternal(fmt.Errorf("failed to get user by id: %w", err))
	}

	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return apperr.NewErrInternal(err)
	}

	err = a.userStore.UpdatePasswordHash(ctx, user.ID, hash)
	if errors.Is(err, model.ErrNotFound) {
		return apperr.NewErrNotFound("User not found")
	}
	if err != nil {
		return apperr.NewErrInternal(err)
	}

	a.logger.Info("Auth service: password reset completed",
		"user_id", user.ID)

	// The password is already changed; a lost confirmation must not report failure.
	if err := a.notifier.Send(ctx, notify.ResetConfirmationMessage(user.Email, user.Name)); err != nil {
		a.logger.Warn("Auth service: failed to send reset confirmation",
			"user_id", user.ID,
			"error", err.Error())
	}

	return nil
}

// Profile returns the stored user for an authenticated principal.
func (a *Auth) Profile(ctx context.Context, userID uuid.UUID) (model.User, error) {
	user, err := a.userStore.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.User{}, apperr.NewErrNotFound("User not found")
	}
	if err != nil {
		return model.User{}, apperr.NewErrInternal(fmt.Errorf("failed to get user by id: %w", err))
	}
	return user, nil
}

func (a *Auth) record(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(apperr.KindInternal)
		if apiErr, ok := apperr.As(err); ok {
			outcome = string(apiErr.Kind)
		}
	}
	a.opts.Recorder.RecordAuthEvent(operation, outcome)
}
