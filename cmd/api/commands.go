package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"

	"github.com/tiermaster/backend/internal/config"
	"github.com/tiermaster/backend/internal/database"
	"github.com/tiermaster/backend/internal/models"
	"github.com/tiermaster/backend/internal/observability"
	"github.com/tiermaster/backend/internal/server"
)

const shutdownTimeout = 10 * time.Second

var (
	envFile string
	port    int
	cfg     config.Config

	rootCmd = &cobra.Command{
		Use:           "tiermaster",
		Short:         "Tier Master API server and maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(envFile)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Port = port
			}
			setupLogger(cfg)
			return nil
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Migrate the schema and serve the HTTP API",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: withDB(func(ctx context.Context, db database.Service, _ []string) error {
			return db.Migrate(ctx)
		}),
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in groups, categories and items (idempotent)",
		RunE: withDB(func(ctx context.Context, db database.Service, _ []string) error {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			res, err := database.NewMaintenance(db.GetDB(), nil).Seed(ctx)
			if err != nil {
				return err
			}
			slog.Info("seed complete", "groups", res.Groups, "categories", res.Categories, "items", res.Items)
			return nil
		}),
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Delete all catalog data, votes and suggestions",
		RunE: withDB(func(ctx context.Context, db database.Service, _ []string) error {
			if err := database.NewMaintenance(db.GetDB(), nil).Reset(ctx); err != nil {
				return err
			}
			slog.Warn("catalog reset")
			return nil
		}),
	}

	setTierCmd = &cobra.Command{
		Use:   "set-tier [email] [free|premium|pro|admin]",
		Short: "Change a user's subscription tier",
		Args:  cobra.ExactArgs(2),
		RunE: withDB(func(ctx context.Context, db database.Service, args []string) error {
			t := models.SubscriptionTier(args[1])
			if models.ParseSubscriptionTier(args[1]) != t {
				return fmt.Errorf("unknown tier %q", args[1])
			}
			if err := database.NewUserStore(db.GetDB()).SetTier(ctx, args[0], t); err != nil {
				if errors.Is(err, models.ErrNotFound) {
					return fmt.Errorf("no user with email %s", args[0])
				}
				return err
			}
			slog.Info("tier updated", "email", args[0], "tier", t)
			return nil
		}),
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "HTTP port, overrides PORT")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, resetCmd, setTierCmd)
}

func setupLogger(cfg config.Config) {
	var handler slog.Handler
	if cfg.IsLocal() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(handler))
}

func openDB(ctx context.Context) (database.Service, error) {
	level := logger.Warn
	if cfg.IsLocal() {
		level = logger.Info
	}
	return database.New(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		LogLevel:        level,
	})
}

// withDB runs fn with an open database that is closed afterwards.
func withDB(fn func(ctx context.Context, db database.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("closing database", "error", err)
			}
		}()
		return fn(ctx, db, args)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		cleanup, err := observability.InitTracer(ctx, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("setting up tracer: %w", err)
		}
		defer cleanup(context.Background())
	}

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("closing database", "error", err)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	srv := server.NewServer(cfg, db, observability.NewMetrics())

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
