package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erp/storesync/internal/infrastructure/migration"
	"github.com/erp/storesync/migrations"
)

const defaultMigrationsDir = "migrations"

// migrateOpts is shared by the migrate subcommands
type migrateOpts struct {
	path string
}

func newMigrateCmd(c *cli) *cobra.Command {
	o := &migrateOpts{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Migrate applies the schema migrations. Without --path the migrations
compiled into the binary are used; create always writes to --path or
./migrations.`,
		Example: `  syncctl migrate up
  syncctl migrate step -1
  syncctl migrate create add_price_list "Store remote price lists"`,
	}
	cmd.PersistentFlags().StringVar(&o.path, "path", "", "migrations directory (default: embedded)")

	cmd.AddCommand(
		o.dbCmd(c, "up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		o.dbCmd(c, "down", "Roll back all migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		o.dbCmd(c, "step <n>", "Apply n migrations, negative to roll back", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		o.dbCmd(c, "goto <version>", "Migrate to a specific version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		o.dbCmd(c, "force <version>", "Set the version without running migrations", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		o.versionCmd(c),
		o.dropCmd(c),
		o.createCmd(c),
		o.listCmd(),
	)
	return cmd
}

// dbCmd builds a subcommand that runs fn against an open migrator
func (o *migrateOpts) dbCmd(c *cli, use, short string, args cobra.PositionalArgs, fn func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			return o.withMigrator(cmd.Context(), c, func(m *migration.Migrator) error {
				return fn(m, a)
			})
		},
	}
}

func (o *migrateOpts) versionCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied migration version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withMigrator(cmd.Context(), c, func(m *migration.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"version": v, "dirty": dirty})
			})
		},
	}
}

func (o *migrateOpts) dropCmd(c *cli) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every database object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("drop cancelled, pass --confirm to drop all database objects")
			}
			return o.withMigrator(cmd.Context(), c, func(m *migration.Migrator) error {
				return m.Drop()
			})
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm dropping all objects")
	return cmd
}

func (o *migrateOpts) createCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create a new up/down migration pair",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := o.path
			if dir == "" {
				dir = defaultMigrationsDir
			}
			desc := ""
			if len(args) > 1 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], desc)
			if err != nil {
				return err
			}
			c.log.Info("Migration created", zap.String("version", mf.Version))
			return printJSON(cmd.OutOrStdout(), mf)
		},
	}
}

func (o *migrateOpts) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				names []string
				err   error
			)
			if o.path == "" {
				names, err = migration.ListMigrationsFS(migrations.FS)
			} else {
				names, err = migration.ListMigrations(o.path)
			}
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

// withMigrator opens a plain lib/pq connection, separate from the GORM pool
func (o *migrateOpts) withMigrator(ctx context.Context, c *cli, fn func(*migration.Migrator) error) error {
	db, err := sql.Open("postgres", c.cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, o.path, c.log)
	if err != nil {
		return err
	}
	// Close also closes db; the deferred db.Close then returns an ignored error
	defer func() { _ = m.Close() }()
	return fn(m)
}
