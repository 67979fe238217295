package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	integrationapp "github.com/erp/storesync/internal/application/integration"
	"github.com/erp/storesync/internal/bootstrap"
	"github.com/erp/storesync/internal/domain/integration"
)

// errSyncFailed makes the process exit non-zero when any item failed
var errSyncFailed = errors.New("one or more items failed to sync")

func newSyncCmd(c *cli) *cobra.Command {
	var deleteRemote bool

	cmd := &cobra.Command{
		Use:   "sync <local_id>...",
		Short: "Sync catalog items to the storefront now",
		Long: `Sync pushes each catalog item to the storefront, creating the remote
product on first sync and updating it afterwards. Eligibility rules still
apply; ineligible items are reported as skipped. With --delete the remote
products are removed instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				failed := false
				for _, id := range args {
					run := app.Sync.SyncEntity
					if deleteRemote {
						run = app.Sync.DeleteEntity
					}
					res, err := run(ctx, id, integration.TriggerManual)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", id, err)
						failed = true
						continue
					}
					if !res.Success && !res.Skipped {
						failed = true
					}
					if err := printJSON(cmd.OutOrStdout(), res); err != nil {
						return err
					}
				}
				if failed {
					return errSyncFailed
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&deleteRemote, "delete", false, "delete the remote products instead of pushing them")
	return cmd
}

func newBulkCmd(c *cli) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "bulk [local_id...]",
		Short: "Sync many catalog items in one bounded batch",
		Long: `Bulk syncs up to the configured batch size. Items beyond the batch are
listed as deferred in the summary. Ids come from the arguments, from --file
(one per line, # comments allowed) or from stdin with --file -.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if file != "" {
				fromFile, err := readIDs(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				ids = append(ids, fromFile...)
			}
			if len(ids) == 0 {
				return errors.New("no local ids given")
			}
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				summary, err := app.Sync.BulkSync(ctx, ids)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
				if summary.Failed > 0 {
					return errSyncFailed
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read ids from a file, - for stdin")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status <local_id>",
		Short: "Show the sync state of a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				view, err := app.Sync.GetSyncStatus(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
}

func newResetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <local_id>",
		Short: "Clear the error and retry state of a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				view, err := app.Sync.ResetSyncStatus(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
}

func newTestConnectionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Check the storefront credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Sync.TestConnection(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return errors.New(res.Message)
				}
				return nil
			})
		},
	}
}

func newSweepCmd(c *cli) *cobra.Command {
	var (
		limit     int
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep <retry|pending|inventory|stale>",
		Short: "Run one scheduled sweep now",
		Long: `Sweep runs a scheduler job once in the foreground:

  retry      re-sync failed entities whose retry time has passed
  pending    sync entities that were never pushed
  inventory  push stock levels for synced products
  stale      return entities stuck in pending for longer than --older-than`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"retry", "pending", "inventory", "stale"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				var (
					res any
					err error
				)
				switch args[0] {
				case "retry":
					res, err = app.Sync.RetryFailed(ctx, limit)
				case "pending":
					res, err = app.Sync.SyncPending(ctx, limit)
				case "inventory":
					res, err = app.Sync.InventorySweep(ctx, limit)
				case "stale":
					var n int
					n, err = app.Sync.ResetStalePending(ctx, olderThan)
					res = map[string]int{"reset": n}
				default:
					return fmt.Errorf("unknown sweep %q", args[0])
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entities to process")
	cmd.Flags().DurationVar(&olderThan, "older-than", time.Hour, "age after which a pending entity is stale")
	return cmd
}

func newBackfillCmd(c *cli) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Create mappings for items synced before mappings were kept",
		Long: `Backfill walks catalog items whose storefront remote id column is set
and creates the missing product mapping for each, carrying over the remote
id, sync status and last sync time. Items that already have a mapping are
left alone, so the command can be run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Sync.BackfillMappings(ctx, batch)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if res.Failed > 0 {
					return errSyncFailed
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", integrationapp.DefaultBackfillBatch, "catalog items read per page")
	return cmd
}

// readIDs reads one id per line. Blank lines and # comments are skipped.
func readIDs(stdin io.Reader, path string) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, sc.Err()
}
