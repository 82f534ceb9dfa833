package cli

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

	"github.com/agentgate/agentgate/internal/audit"
	"github.com/agentgate/agentgate/internal/config"
	"github.com/agentgate/agentgate/internal/guard"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agentgate server",
		Long: `Start the agentgate server.

The server wires the full pipeline and exposes the read-only audit API plus
prometheus metrics. When audit storage is configured, events are also signed
into an HMAC-chained SQLite log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadLocalConfig(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.Logging)

			suite, err := guard.NewSuite(cfg)
			if err != nil {
				return err
			}
			defer suite.Close()

			if path := cfg.Audit.Storage.SQLitePath; path != "" {
				store, err := openStore(cfg.Audit.Storage)
				if err != nil {
					return err
				}
				defer store.Close()
				go store.Run(ctx, suite.Broker.Subscribe(256))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "agentgate listening on %s\n", cfg.Server.Addr)
			return runServer(ctx, cfg.Server, suite)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config YAML (default: ./agentgate.yml, ./agentgate.yaml, or /etc/agentgate/config.yaml)")
	return cmd
}

func openStore(storage config.AuditStorageConfig) (*audit.Store, error) {
	key, err := audit.LoadKey(storage.KeyFile, storage.KeyEnv)
	if err != nil {
		return nil, fmt.Errorf("audit storage key: %w", err)
	}
	return audit.OpenStore(storage.SQLitePath, key)
}

// runServer serves the audit API until the context is cancelled or an
// interrupt arrives, then shuts down gracefully.
func runServer(ctx context.Context, cfg config.ServerConfig, suite *guard.Suite) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      audit.NewHandler(suite.Log, suite.Monitor).Routes(),
		ReadTimeout:  parseDuration(cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: parseDuration(cfg.WriteTimeout, 30*time.Second),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
