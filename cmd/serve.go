package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health"

	"github.com/dtroode/authkeeper/internal/api/grpc/probe"
	grpcrouter "github.com/dtroode/authkeeper/internal/api/grpc/router"
	grpcserver "github.com/dtroode/authkeeper/internal/api/grpc/server"
	httpctx "github.com/dtroode/authkeeper/internal/api/http/context"
	"github.com/dtroode/authkeeper/internal/api/http/handler"
	httprouter "github.com/dtroode/authkeeper/internal/api/http/router"
	httpserver "github.com/dtroode/authkeeper/internal/api/http/server"
	"github.com/dtroode/authkeeper/internal/config"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/notify"
	"github.com/dtroode/authkeeper/internal/observability"
	"github.com/dtroode/authkeeper/internal/password"
	"github.com/dtroode/authkeeper/internal/repository/memory"
	"github.com/dtroode/authkeeper/internal/repository/postgres"
	"github.com/dtroode/authkeeper/internal/server"
	"github.com/dtroode/authkeeper/internal/service"
	"github.com/dtroode/authkeeper/internal/token"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	logAppVersion(cmd.OutOrStdout())

	return runApp(ctx, cfg, log)
}

// runApp wires every component from cfg and serves until ctx is done or a
// server fails.
func runApp(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	userStore, closeStore, err := openUserStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, err := newNotifier(cfg.SMTP, log)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	tokenService := service.NewTokenService(token.NewJWT(cfg.JWT.Secret), log)
	authService := service.NewAuth(
		userStore,
		password.NewBcrypt(cfg.Bcrypt.Cost),
		tokenService,
		notifier,
		log,
		service.AuthOptions{
			ResetLinkBaseURL:    cfg.Reset.LinkBaseURL,
			ConcealUnknownEmail: cfg.Reset.ConcealUnknownMail,
			Recorder:            metrics,
		},
	)

	r := httprouter.New(
		authService,
		tokenService,
		httpctx.NewManager(),
		userStore,
		metrics,
		handler.CookieOptions{Secure: cfg.IsProduction()},
		log,
	)
	servers := []serverEntry{{
		server:   httpserver.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port)),
		security: server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName),
	}}

	var wg sync.WaitGroup

	if cfg.GRPC.Enabled {
		healthServer := health.NewServer()
		servers = append(servers, serverEntry{
			server:   grpcserver.NewGRPCServer(grpcrouter.New(healthServer, log).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port)),
			security: server.NewPlainListener(),
		})

		p := probe.New(userStore, healthServer, metrics, probe.DefaultInterval, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(ctx)
		}()
	}

	errCh := make(chan error, len(servers))
	for _, entry := range servers {
		wg.Add(1)
		go func(e serverEntry) {
			defer wg.Done()
			log.Info("Starting server on", "address", e.server.Address())
			if err := e.server.Start(e.security); err != nil {
				log.Error("failed to start server", "error", err, "address", e.server.Address())
				errCh <- err
			}
		}(entry)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received interruption signal, shutting down")
	case runErr = <-errCh:
		log.Info("server failed, shutting down")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, entry := range servers {
		if err := entry.server.Stop(shutdownCtx); err != nil {
			log.Error("error during server shutdown", "error", err, "address", entry.server.Address())
		}
	}

	wg.Wait()
	log.Info("shutdown complete")

	return runErr
}

type serverEntry struct {
	server   model.Server
	security model.SecurityLayer
}

// openUserStore returns the configured store and a func releasing it.
func openUserStore(ctx context.Context, cfg config.Database, log *logger.Logger) (model.UserStore, func(), error) {
	if cfg.UsesMemoryStore() {
		log.Warn("using in-memory user store; data is lost on restart")
		return memory.NewUserRepository(), func() {}, nil
	}

	conn, err := postgres.NewConnection(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return postgres.NewUserRepository(conn), func() { _ = conn.Close() }, nil
}

// newNotifier delivers over SMTP when a host is configured and logs messages otherwise.
func newNotifier(cfg config.SMTP, log *logger.Logger) (model.Notifier, error) {
	if cfg.Host == "" {
		log.Warn("SMTP_HOST is empty; reset emails are only logged")
		return notify.NewLogMailer(log), nil
	}

	mailer, err := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}
	return mailer, nil
}
