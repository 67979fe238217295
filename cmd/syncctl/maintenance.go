package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	integrationapp "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/bootstrap"
)

func newPurgeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete audit entries past their retention",
		Long: `Purge removes successful audit entries older than the success retention
and failed entries older than the error retention. Both retentions come
from the integration settings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Maintenance.PurgeAudit(ctx)
				if err != nil {
					return err
				}
				c.log.Info("Audit purge finished")
				return printJSON(cmd.OutOrStdout(), struct {
					integrationapp.PurgeResult
					Total int64 `json:"total"`
				}{res, res.Total()})
			})
		},
	}
}

func newReportCmd(c *cli) *cobra.Command {
	var hours int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize sync activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if hours < 1 || hours > 720 {
				return fmt.Errorf("--hours must be between 1 and 720, got %d", hours)
			}
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				since := time.Now().Add(-time.Duration(hours) * time.Hour)
				report, err := app.Maintenance.Report(ctx, since)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 24, "window size in hours")
	return cmd
}

func newHealthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the storefront and record the result",
		Long: `Health runs the scheduled health check once. The outcome is stored in
the integration settings; an unhealthy storefront exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Maintenance.HealthCheck(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if res.Status == integrationapp.HealthStatusUnhealthy {
					return errors.New(res.Message)
				}
				return nil
			})
		},
	}
}

func newArchiveURLCmd(c *cli) *cobra.Command {
	var expires time.Duration

	cmd := &cobra.Command{
		Use:   "archive-url <key>",
		Short: "Print a presigned download link for an archived report",
		Long: `Archive-url signs a GET for a report stored by the daily report job. The
key is the archive_key field of the report. Requires SYNC_ARCHIVE_ENABLED.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.cfg.Archive.Enabled {
				return errors.New("report archive is disabled; set SYNC_ARCHIVE_ENABLED=true")
			}
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				url, expiresAt, err := app.Archive.DownloadURL(ctx, args[0], expires)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"key":        args[0],
					"url":        url,
					"expires_at": expiresAt,
				})
			})
		},
	}
	cmd.Flags().DurationVar(&expires, "expires", 0, "link lifetime (0 uses archive.presign_expiration)")
	return cmd
}
