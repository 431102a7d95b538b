package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dtroode/authkeeper/internal/api/http/handler"
	"github.com/dtroode/authkeeper/internal/api/http/middleware"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/observability"
)

// Router wires HTTP handlers and middleware.
type Router struct {
	authService    handler.AuthService
	tokenService   middleware.TokenService
	contextManager model.ContextManager
	pinger         handler.Pinger
	metrics        *observability.Metrics
	cookie         handler.CookieOptions
	logger         *logger.Logger
}

// New creates new HTTP Router instance.
func New(
	authService handler.AuthService,
	tokenService middleware.TokenService,
	contextManager model.ContextManager,
	pinger handler.Pinger,
	metrics *observability.Metrics,
	cookie handler.CookieOptions,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		tokenService:   tokenService,
		contextManager: contextManager,
		pinger:         pinger,
		metrics:        metrics,
		cookie:         cookie,
		logger:         logger,
	}
}

// Register builds the handler tree with logging, metrics and panic recovery
// applied to every matched route.
func (r *Router) Register() http.Handler {
	root := mux.NewRouter()
	root.Use(
		middleware.NewRecovery(r.logger).Handle,
		middleware.NewLogging(r.logger).Handle,
		middleware.NewMetrics(r.metrics).Handle,
	)

	health := handler.NewHealth(r.pinger, r.logger)
	root.HandleFunc("/healthz", health.Check).Methods(http.MethodGet)
	root.Handle("/metrics", r.metrics.Handler()).Methods(http.MethodGet)

	r.registerUserRoutes(root.PathPrefix("/api/users").Subrouter())

	return root
}

func (r *Router) registerUserRoutes(users *mux.Router) {
	auth := handler.NewAuth(r.authService, r.contextManager, r.logger, r.cookie)
	gate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger, handler.SessionCookieName)

	users.HandleFunc("/register", auth.Register).Methods(http.MethodPost)
	users.HandleFunc("/login", auth.Login).Methods(http.MethodPost)
	users.HandleFunc("/forgot-password", auth.ForgotPassword).Methods(http.MethodPost)
	users.HandleFunc("/reset-password/{resetToken}", auth.ResetPassword).Methods(http.MethodPost)

	users.Handle("/me", gate.Handle(http.HandlerFunc(auth.Profile))).Methods(http.MethodGet)
	users.Handle("/logout", gate.Handle(http.HandlerFunc(auth.Logout))).Methods(http.MethodPost)
}
