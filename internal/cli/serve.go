package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rpattn/esgdash/internal/api"
	"github.com/rpattn/esgdash/internal/auth"
	"github.com/rpattn/esgdash/internal/config"
	"github.com/rpattn/esgdash/internal/db"
	"github.com/rpattn/esgdash/internal/export"
	"github.com/rpattn/esgdash/internal/ingestion"
	"github.com/rpattn/esgdash/internal/reports"
	"github.com/rpattn/esgdash/internal/repository"
	"github.com/rpattn/esgdash/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Auth.Validate(); err != nil {
		return err
	}
	if cfg.Auth.UsesDefaultSecret() {
		logrus.Warn("auth.jwt_secret is the development default; set ESG_AUTH_JWT_SECRET before exposing the API")
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database); err != nil {
		return err
	}

	handler, err := buildHandler(ctx, cfg, conn)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", cfg.Server.Addr).Info("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logrus.Info("server exited")
	return nil
}

func buildHandler(ctx context.Context, cfg config.Config, conn *db.Connection) (http.Handler, error) {
	pool := conn.Pool

	employees := repository.NewEmployeeRepository(pool)
	fleet := repository.NewFleetRepository(pool)
	routes := repository.NewRouteRepository(pool)
	bills := repository.NewBillRepository(pool)
	lookups := repository.NewLookupRepository(pool)
	users := repository.NewUserRepository(pool)
	importLogs := repository.NewImportLogRepository(pool)

	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	reportService := reports.NewService(employees, fleet, routes, bills, lookups)
	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)

	return api.NewRouter(api.Dependencies{
		Employees:      employees,
		Fleet:          fleet,
		Routes:         routes,
		Bills:          bills,
		Lookups:        lookups,
		ImportLogs:     importLogs,
		Reports:        reportService,
		Export:         export.NewService(reportService),
		Ingestion:      ingestion.NewService(employees, fleet, importLogs),
		Documents:      storage.NewDocuments(store, cfg.Storage.URLTTL, cfg.Server.MaxUploadBytes),
		Auth:           auth.NewService(users, tokens),
		Ping:           pool.Ping,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AuthRequired:   cfg.Auth.Required,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logrus.StandardLogger(),
	}), nil
}
