package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/authkeeper/internal/apperr"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/mocks"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/notify"
	"github.com/dtroode/authkeeper/internal/password"
	"github.com/dtroode/authkeeper/internal/repository/memory"
	"github.com/dtroode/authkeeper/internal/testutil"
	"github.com/dtroode/authkeeper/internal/token"
)

const resetBase = "http://localhost:5000/api/users/reset-password/"

type authDeps struct {
	store    *mocks.UserStore
	hasher   *mocks.PasswordHasher
	manager  *mocks.TokenManager
	notifier *mocks.Notifier
	recorder *recordingRecorder
}

type recordingRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingRecorder) RecordAuthEvent(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, operation+":"+outcome)
}

func newTestAuth(t *testing.T, opts AuthOptions) (*Auth, authDeps) {
	t.Helper()

	deps := authDeps{
		store:    mocks.NewUserStore(t),
		hasher:   mocks.NewPasswordHasher(t),
		manager:  mocks.NewTokenManager(t),
		notifier: mocks.NewNotifier(t),
		recorder: &recordingRecorder{},
	}
	if opts.ResetLinkBaseURL == "" {
		opts.ResetLinkBaseURL = resetBase
	}
	opts.Recorder = deps.recorder

	log := testutil.MakeNoopLogger()
	a := NewAuth(deps.store, deps.hasher, NewTokenService(deps.manager, log), deps.notifier, log, opts)
	return a, deps
}

func requireKind(t *testing.T, err error, kind apperr.Kind, message string) {
	t.Helper()

	apiErr, ok := apperr.As(err)
	require.True(t, ok, "expected APIError, got %v", err)
	assert.Equal(t, kind, apiErr.Kind)
	if message != "" {
		assert.Equal(t, message, apiErr.Message)
	}
}

func TestAuth_Register_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  RegisterParams
		message string
	}{
		{"missing name", RegisterParams{Name: "  ", Email: "ann@x.com", Password: "Passw0rd"}, "Name is required"},
		{"missing email", RegisterParams{Name: "Ann", Email: "", Password: "Passw0rd"}, "Email is required"},
		{"missing password", RegisterParams{Name: "Ann", Email: "ann@x.com", Password: ""}, "Password is required"},
		{"bad email", RegisterParams{Name: "Ann", Email: "ann@x", Password: "Passw0rd"}, "Invalid email format"},
		{"weak password", RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "password1"}, passwordRequirement},
		{"short password", RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "Pa1"}, passwordRequirement},
		{"password over bcrypt limit", RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "A1" + strings.Repeat("a", 78)}, passwordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, deps := newTestAuth(t, AuthOptions{})

			err := a.Register(context.Background(), tt.params)
			requireKind(t, err, apperr.KindValidation, tt.message)
			deps.store.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
			assert.Equal(t, []string{"register:validation"}, deps.recorder.events)
		})
	}
}

func TestAuth_Register_Success(t *testing.T) {
	a, deps := newTestAuth(t, AuthOptions{})
	ctx := context.Background()

	deps.store.On("GetByEmail", ctx, "ann@x.com").Return(model.User{}, model.ErrNotFound).Once()
	deps.hasher.On("Hash", "Passw0rd").Return("hashed", nil).Once()
	deps.store.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
		return u.Name == "Ann" && u.Email == "ann@x.com" && u.PasswordHash == "hashed" &&
			u.Role == model.DefaultRole && u.ID != uuid.Nil
	})).Return(func(_ context.Context, u model.User) model.User { return u }, nil).Once()

	err := a.Register(ctx, RegisterParams{Name: " Ann ", Email: " ann@x.com ", Password: "Passw0rd"})
	require.NoError(t, err)
	assert.Equal(t, []string{"register:success"}, deps.recorder.events)
}

func TestAuth_Register_KeepsExplicitRole(t *testing.T) {
	a, deps := newTestAuth(t, AuthOptions{})
	ctx := context.Background()

	deps.store.On("GetByEmail", ctx, "boss@x.com").Return(model.User{}, model.ErrNotFound).Once()
	deps.hasher.On("Hash", "Passw0rd").Return("hashed", nil).Once()
	deps.store.On("Create", ctx, mock.MatchedBy(func(u model.User) bool {
		return u.Role == "admin"
	})).Return(func(_ context.Context, u model.User) model.User { return u }, nil).Once()

	require.NoError(t, a.Register(ctx, RegisterParams{Name: "Boss", Email: "boss@x.com", Password: "Passw0rd", Role: "admin"}))
}

func TestAuth_Register_ExistingEmail(t *testing.T) {
	a, deps := newTestAuth(t, AuthOptions{})
	ctx := context.Background()

	deps.store.On("GetByEmail", ctx, "ann@x.com").Return(model.User{ID: uuid.New()}, nil).Once()

	err := a.Register(ctx, RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "Passw0rd"})
	requireKind(t, err, apperr.KindDuplicateEmail, "User already exists")
	deps.hasher.AssertNotCalled(t, "Hash", mock.Anything)
}

func TestAuth_Register_LostRace(t *testing.T) {
	a, deps := newTestAuth(t, AuthOptions{})
	ctx := context.Background()

	deps.store.On("GetByEmail", ctx, "ann@x.com").Return(model.User{}, model.ErrNotFound).Once()
	deps.hasher.On("Hash", "Passw0rd").Return("hashed", nil).Once()
	deps.store.On("Create", ctx, mock.Anything).Return(model.User{}, model.ErrDuplicateEmail).Once()

	err := a.Register(ctx, RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "Passw0rd"})
	requireKind(t, err, apperr.KindDuplicateEmail, "User already exists")
}

func TestAuth_Register_InfrastructureErrors(t *testing.T) {
	t.Run("lookup fails", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		dbErr := errors.New("connection refused")
		deps.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(model.User{}, dbErr).Once()

		err := a.Register(context.Background(), RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "Passw0rd"})
		requireKind(t, err, apperr.KindInternal, "Internal server error")
		assert.ErrorIs(t, err, dbErr)
		assert.Equal(t, []string{"register:internal"}, deps.recorder.events)
	})

	t.Run("hash fails", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(model.User{}, model.ErrNotFound).Once()
		deps.hasher.On("Hash", "Passw0rd").Return("", errors.New("hash failed")).Once()

		err := a.Register(context.Background(), RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "Passw0rd"})
		requireKind(t, err, apperr.KindInternal, "")
	})

	t.Run("create fails", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(model.User{}, model.ErrNotFound).Once()
		deps.hasher.On("Hash", "Passw0rd").Return("hashed", nil).Once()
		deps.store.On("Create", mock.Anything, mock.Anything).Return(model.User{}, errors.New("disk full")).Once()

		err := a.Register(context.Background(), RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "Passw0rd"})
		requireKind(t, err, apperr.KindInternal, "")
		assert.Contains(t, err.Error(), "failed to create user")
	})
}

func TestAuth_Login(t *testing.T) {
	user := model.User{ID: uuid.New(), Name: "Ann", Email: "ann@x.com", PasswordHash: "hashed", Role: "user"}

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(d authDeps)
		wantKind apperr.Kind
		wantMsg  string
	}{
		{
			name:     "missing password",
			email:    "ann@x.com",
			wantKind: apperr.KindValidation,
			wantMsg:  "Email and password are required",
		},
		{
			name:     "missing email",
			password: "Passw0rd",
			wantKind: apperr.KindValidation,
			wantMsg:  "Email and password are required",
		},
		{
			name:     "bad email",
			email:    "ann",
			password: "Passw0rd",
			wantKind: apperr.KindValidation,
			wantMsg:  "Invalid email format. Please enter a valid email address.",
		},
		{
			name:     "unknown user",
			email:    "ann@x.com",
			password: "Passw0rd",
			setup: func(d authDeps) {
				d.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(model.User{}, model.ErrNotFound).Once()
			},
			wantKind: apperr.KindNotFound,
			wantMsg:  "User not found. Please register first.",
		},
		{
			name:     "wrong password",
			email:    "ann@x.com",
			password: "Wr0ngpass",
			setup: func(d authDeps) {
				d.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(user, nil).Once()
				d.hasher.On("Verify", "Wr0ngpass", "hashed").Return(false).Once()
			},
			wantKind: apperr.KindUnauthorized,
			wantMsg:  "Incorrect password. Please try again.",
		},
		{
			name:     "token issue fails",
			email:    "ann@x.com",
			password: "Passw0rd",
			setup: func(d authDeps) {
				d.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(user, nil).Once()
				d.hasher.On("Verify", "Passw0rd", "hashed").Return(true).Once()
				d.manager.On("Issue", user.ID, model.SessionClaims{Role: "user"}, SessionTTL).Return("", errors.New("sign")).Once()
			},
			wantKind: apperr.KindInternal,
			wantMsg:  "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, deps := newTestAuth(t, AuthOptions{})
			if tt.setup != nil {
				tt.setup(deps)
			}

			_, err := a.Login(context.Background(), tt.email, tt.password)
			requireKind(t, err, tt.wantKind, tt.wantMsg)
			assert.Equal(t, []string{"login:" + string(tt.wantKind)}, deps.recorder.events)
		})
	}

	t.Run("success", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(user, nil).Once()
		deps.hasher.On("Verify", "Passw0rd", "hashed").Return(true).Once()
		deps.manager.On("Issue", user.ID, model.SessionClaims{Role: "user"}, SessionTTL).Return("signed", nil).Once()

		result, err := a.Login(context.Background(), "ann@x.com", "Passw0rd")
		require.NoError(t, err)
		assert.Equal(t, "signed", result.Token)
		assert.Equal(t, user.ID, result.User.ID)
		assert.Equal(t, []string{"login:success"}, deps.recorder.events)
	})
}

func TestAuth_ForgotPassword(t *testing.T) {
	user := model.User{ID: uuid.New(), Name: "Ann", Email: "ann@x.com", Role: "user"}

	t.Run("missing email", func(t *testing.T) {
		a, _ := newTestAuth(t, AuthOptions{})
		requireKind(t, a.ForgotPassword(context.Background(), " "), apperr.KindValidation, "Email is required")
	})

	t.Run("unknown email", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.store.On("GetByEmail", mock.Anything, "nobody@x.com").Return(model.User{}, model.ErrNotFound).Once()

		requireKind(t, a.ForgotPassword(context.Background(), "nobody@x.com"), apperr.KindNotFound, "User not found")
		deps.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("unknown email concealed", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{ConcealUnknownEmail: true})
		deps.store.On("GetByEmail", mock.Anything, "nobody@x.com").Return(model.User{}, model.ErrNotFound).Once()

		require.NoError(t, a.ForgotPassword(context.Background(), "nobody@x.com"))
		deps.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("sends link", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(user, nil).Once()
		deps.manager.On("Issue", user.ID, model.ResetClaims{}, ResetTTL).Return("reset-token", nil).Once()
		deps.notifier.On("Send", mock.Anything, mock.MatchedBy(func(m model.Message) bool {
			return m.To == "ann@x.com" &&
				m.Subject == "Password Reset Request" &&
				strings.Contains(m.Body, resetBase+"reset-token") &&
				strings.Contains(m.Body, "30 minutes")
		})).Return(nil).Once()

		require.NoError(t, a.ForgotPassword(context.Background(), "ann@x.com"))
		assert.Equal(t, []string{"forgot_password:success"}, deps.recorder.events)
	})

	t.Run("send fails", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		sendErr := errors.New("smtp down")
		deps.store.On("GetByEmail", mock.Anything, "ann@x.com").Return(user, nil).Once()
		deps.manager.On("Issue", user.ID, model.ResetClaims{}, ResetTTL).Return("reset-token", nil).Once()
		deps.notifier.On("Send", mock.Anything, mock.Anything).Return(sendErr).Once()

		err := a.ForgotPassword(context.Background(), "ann@x.com")
		requireKind(t, err, apperr.KindInternal, "Internal server error")
		assert.ErrorIs(t, err, sendErr)
	})
}

func TestAuth_ResetPassword(t *testing.T) {
	user := model.User{ID: uuid.New(), Name: "Ann", Email: "ann@x.com", Role: "user"}

	t.Run("missing password", func(t *testing.T) {
		a, _ := newTestAuth(t, AuthOptions{})
		requireKind(t, a.ResetPassword(context.Background(), "tok", ""), apperr.KindValidation, "New password is required")
	})

	t.Run("weak password", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		requireKind(t, a.ResetPassword(context.Background(), "tok", "weakpass"), apperr.KindValidation, passwordRequirement)
		deps.manager.AssertNotCalled(t, "VerifyReset", mock.Anything)
	})

	t.Run("password over bcrypt limit", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		err := a.ResetPassword(context.Background(), "tok", "A1"+strings.Repeat("a", 71))
		requireKind(t, err, apperr.KindValidation, passwordTooLong)
		deps.manager.AssertNotCalled(t, "VerifyReset", mock.Anything)
	})

	t.Run("invalid token", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.manager.On("VerifyReset", "tok").Return(uuid.Nil, model.ErrExpiredToken).Once()

		err := a.ResetPassword(context.Background(), "tok", "NewPassw0rd")
		requireKind(t, err, apperr.KindBadRequest, "Invalid or expired token")
		assert.ErrorIs(t, err, model.ErrExpiredToken)
		deps.store.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("user gone", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.manager.On("VerifyReset", "tok").Return(user.ID, nil).Once()
		deps.store.On("GetByID", mock.Anything, user.ID).Return(model.User{}, model.ErrNotFound).Once()

		requireKind(t, a.ResetPassword(context.Background(), "tok", "NewPassw0rd"), apperr.KindNotFound, "User not found")
	})

	t.Run("update fails", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.manager.On("VerifyReset", "tok").Return(user.ID, nil).Once()
		deps.store.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()
		deps.hasher.On("Hash", "NewPassw0rd").Return("new-hash", nil).Once()
		deps.store.On("UpdatePasswordHash", mock.Anything, user.ID, "new-hash").Return(errors.New("db")).Once()

		requireKind(t, a.ResetPassword(context.Background(), "tok", "NewPassw0rd"), apperr.KindInternal, "")
		deps.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.manager.On("VerifyReset", "tok").Return(user.ID, nil).Once()
		deps.store.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()
		deps.hasher.On("Hash", "NewPassw0rd").Return("new-hash", nil).Once()
		deps.store.On("UpdatePasswordHash", mock.Anything, user.ID, "new-hash").Return(nil).Once()
		deps.notifier.On("Send", mock.Anything, mock.MatchedBy(func(m model.Message) bool {
			return m.To == "ann@x.com" && m.Subject == "Password Reset Successful" && strings.HasPrefix(m.Body, "Hello Ann,")
		})).Return(nil).Once()

		require.NoError(t, a.ResetPassword(context.Background(), "tok", "NewPassw0rd"))
		assert.Equal(t, []string{"reset_password:success"}, deps.recorder.events)
	})

	t.Run("confirmation failure is not fatal", func(t *testing.T) {
		a, deps := newTestAuth(t, AuthOptions{})
		deps.manager.On("VerifyReset", "tok").Return(user.ID, nil).Once()
		deps.store.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()
		deps.hasher.On("Hash", "NewPassw0rd").Return("new-hash", nil).Once()
		deps.store.On("UpdatePasswordHash", mock.Anything, user.ID, "new-hash").Return(nil).Once()
		deps.notifier.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

		require.NoError(t, a.ResetPassword(context.Background(), "tok", "NewPassw0rd"))
	})
}

func TestAuth_Profile(t *testing.T) {
	user := model.User{ID: uuid.New(), Name: "Ann", Email: "ann@x.com", Role: "user"}

	a, deps := newTestAuth(t, AuthOptions{})
	deps.store.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()
	missing := uuid.New()
	deps.store.On("GetByID", mock.Anything, missing).Return(model.User{}, model.ErrNotFound).Once()

	got, err := a.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = a.Profile(context.Background(), missing)
	requireKind(t, err, apperr.KindNotFound, "User not found")
}

func TestNewAuth_NilRecorder(t *testing.T) {
	log := testutil.MakeNoopLogger()
	a := NewAuth(mocks.NewUserStore(t), mocks.NewPasswordHasher(t), NewTokenService(mocks.NewTokenManager(t), log), mocks.NewNotifier(t), log, AuthOptions{})

	assert.NotPanics(t, func() {
		_ = a.Register(context.Background(), RegisterParams{})
	})
}

type outbox struct {
	mu       sync.Mutex
	messages []model.Message
}

func (o *outbox) Send(_ context.Context, msg model.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

func (o *outbox) last() model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.messages[len(o.messages)-1]
}

func TestAuth_ResetFlow(t *testing.T) {
	ctx := context.Background()
	log := testutil.MakeNoopLogger()
	store := memory.NewUserRepository()
	mail := &outbox{}
	tokens := NewTokenService(token.NewJWT("test-secret"), log)
	a := NewAuth(store, password.NewBcrypt(bcrypt.MinCost), tokens, mail, log, AuthOptions{ResetLinkBaseURL: resetBase})

	require.NoError(t, a.Register(ctx, RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "Passw0rd"}))

	result, err := a.Login(ctx, "ann@x.com", "Passw0rd")
	require.NoError(t, err)
	principal, err := tokens.Authenticate(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, principal.UserID)
	assert.Equal(t, model.DefaultRole, principal.Role)

	// Session tokens are not accepted as reset tokens.
	requireKind(t, a.ResetPassword(ctx, result.Token, "NewPassw0rd"), apperr.KindBadRequest, "Invalid or expired token")

	require.NoError(t, a.ForgotPassword(ctx, "ann@x.com"))
	body := mail.last().Body
	start := strings.Index(body, resetBase)
	require.GreaterOrEqual(t, start, 0)
	resetToken := strings.Fields(body[start+len(resetBase):])[0]

	// A tampered signature is rejected and leaves the stored hash alone.
	before, err := store.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	tampered := resetToken[:len(resetToken)-2] + flipChars(resetToken[len(resetToken)-2:])
	requireKind(t, a.ResetPassword(ctx, tampered, "NewPassw0rd"), apperr.KindBadRequest, "Invalid or expired token")
	after, err := store.GetByEmail(ctx, "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	require.NoError(t, a.ResetPassword(ctx, resetToken, "NewPassw0rd"))
	assert.Equal(t, "Password Reset Successful", mail.last().Subject)

	_, err = a.Login(ctx, "ann@x.com", "Passw0rd")
	requireKind(t, err, apperr.KindUnauthorized, "Incorrect password. Please try again.")

	_, err = a.Login(ctx, "ann@x.com", "NewPassw0rd")
	require.NoError(t, err)
}

func flipChars(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c == 'A' {
			out[i] = 'B'
		} else {
			out[i] = 'A'
		}
	}
	return string(out)
}

func TestAuth_ForgotPassword_LogMailerKeepsTokenOutOfLogs(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, -4, "text")
	store := memory.NewUserRepository()
	a := NewAuth(store, password.NewBcrypt(bcrypt.MinCost), NewTokenService(token.NewJWT("test-secret"), log),
		notify.NewLogMailer(log), log, AuthOptions{ResetLinkBaseURL: resetBase})

	require.NoError(t, a.Register(ctx, RegisterParams{Name: "Ann", Email: "ann@x.com", Password: "Passw0rd"}))
	require.NoError(t, a.ForgotPassword(ctx, "ann@x.com"))

	assert.Contains(t, buf.String(), "reset link sent")
	assert.NotContains(t, buf.String(), resetBase)
	assert.NotContains(t, buf.String(), "eyJ")
}
