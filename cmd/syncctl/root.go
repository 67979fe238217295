package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/bootstrap"
	"github.com/erp/storesync/internal/infrastructure/config"
	"github.com/erp/storesync/internal/infrastructure/logger"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// cli carries the state shared by every subcommand
type cli struct {
	logLevel string
	timeout  time.Duration

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Operate the ERP to storefront sync",
		Long: `syncctl runs storesync operations from the command line. Sync and
maintenance commands execute inline against the configured database and
storefront; they do not go through the task queue.

Configuration is read the same way as the server: config.toml, an optional
.env file and SYNC_ prefixed environment variables.`,
		Example: `  syncctl sync SKU-001 SKU-002
  syncctl bulk --file skus.txt
  syncctl status SKU-001
  syncctl report --hours 48
  syncctl token issue --operator alice --scopes sync:read,sync:write
  syncctl migrate up`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Minute, "overall deadline for the command")

	cmd.AddCommand(
		newSyncCmd(c),
		newBulkCmd(c),
		newStatusCmd(c),
		newResetCmd(c),
		newTestConnectionCmd(c),
		newSweepCmd(c),
		newBackfillCmd(c),
		newPurgeCmd(c),
		newReportCmd(c),
		newHealthCmd(c),
		newArchiveURLCmd(c),
		newTokenCmd(c),
		newMigrateCmd(c),
	)
	return cmd
}

func (c *cli) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(&logger.Config{
		Level:  c.logLevel,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	c.cfg, c.log = cfg, log
	return nil
}

// withApp opens the application without the queue or telemetry, runs fn and
// closes it
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	app, err := bootstrap.New(ctx, c.cfg, c.log, bootstrap.Options{Version: version})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			c.log.Warn("Close failed", zap.Error(err))
		}
	}()
	return fn(ctx, app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
