// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"codeberg.org/oliverandrich/verify-portal/internal/config"
	"codeberg.org/oliverandrich/verify-portal/internal/database"
	"codeberg.org/oliverandrich/verify-portal/internal/handlers"
	"codeberg.org/oliverandrich/verify-portal/internal/i18n"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
	"codeberg.org/oliverandrich/verify-portal/internal/services/auth"
	"codeberg.org/oliverandrich/verify-portal/internal/services/importer"
	"codeberg.org/oliverandrich/verify-portal/internal/services/mailer"
	"codeberg.org/oliverandrich/verify-portal/internal/sse"
	"codeberg.org/oliverandrich/verify-portal/internal/token"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Services
	repo := repository.New(db)
	issuer := token.NewIssuer(repo)

	authSvc, err := auth.New(repo, &cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to init auth: %w", err)
	}

	dispatcher, err := mailer.NewDispatcher(&cfg.SMTP, cfg.Server.BaseURL, issuer)
	if err != nil {
		return fmt.Errorf("failed to init mail dispatcher: %w", err)
	}

	hub := sse.NewHub()
	importSvc := importer.New(repo, issuer, dispatcher, hub)

	if err := bootstrapAdmin(ctx, repo, cfg.Auth.BootstrapAdmin); err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, repo, authSvc, issuer, importSvc, dispatcher, hub)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, authSvc *auth.Service, issuer *token.Issuer, importSvc *importer.Service, dispatcher *mailer.Dispatcher, hub *sse.Hub) {
	authH := handlers.NewAuth(repo, authSvc)
	adminH := handlers.NewAdmin(repo, importSvc, dispatcher)
	verifyH := handlers.NewVerify(repo, issuer)
	sseH := handlers.NewSSE(hub)

	fullAuth := requireAuth(authSvc, auth.StageFull)

	e.GET("/health", handlers.Health)

	api := e.Group("/api")

	// Admin authentication
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/verify-2fa", authH.Verify2FA, requireAuth(authSvc, auth.StagePending2FA))
	api.GET("/auth/me", authH.Me, fullAuth)
	api.POST("/auth/2fa/setup", authH.Setup2FA, fullAuth)
	api.POST("/auth/2fa/enable", authH.Enable2FA, fullAuth)

	// Roster administration
	admin := api.Group("/admin", fullAuth)
	admin.GET("/users", adminH.ListUsers)
	admin.PUT("/users/:id", adminH.UpdateUser)
	admin.POST("/import", adminH.Import)
	admin.POST("/resend-email/:id", adminH.ResendEmail)
	admin.GET("/export", adminH.Export)
	admin.GET("/stats", adminH.Stats)

	// Public verification flow; the token is the only credential
	api.GET("/verify/:token", verifyH.Get)
	api.POST("/verify/:token", verifyH.Post)

	// Import progress push channel
	api.GET("/progress/:channel", sseH.Events)
}

// bootstrapAdmin creates the initial admin account from an "email:password"
// spec if no admin exists yet. A populated admins table wins over the flag.
func bootstrapAdmin(ctx context.Context, repo *repository.Repository, spec string) error {
	if spec == "" {
		return nil
	}

	email, password, ok := strings.Cut(spec, ":")
	if !ok || email == "" || password == "" {
		return fmt.Errorf("bootstrap-admin must be email:password")
	}

	count, err := repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := repo.CreateAdmin(ctx, email, hash); err != nil {
		return err
	}

	slog.Info("created bootstrap admin account", "email", email)
	return nil
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	// Setup TLS
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	// Channel for server errors
	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		// Plain HTTP on configured port
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		// HTTPS on :443
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		// HTTP redirect server on :80
		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP→HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeSelfSigned, TLSModeManual:
		// HTTPS on configured port
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown main server
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	// Shutdown HTTP redirect server if running
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
