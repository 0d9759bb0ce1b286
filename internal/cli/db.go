package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/velozfibra/portal/internal/app"
	"github.com/velozfibra/portal/internal/db"
)

// NewDBCommand manages the schema of the SQL document store.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the document database (STORE_DRIVER sqlite or pgx)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				applied, err := db.RunMigrations(ctx, a.DB.DB, a.Cfg.StoreDriver)
				if err != nil {
					return err
				}
				for _, v := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied migration %d\n", v)
				}

				version, err := db.SchemaVersion(ctx, a.DB.DB, a.Cfg.StoreDriver)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", version)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				version, err := db.MigrateDown(ctx, a.DB.DB, a.Cfg.StoreDriver)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d\n", version)
				return nil
			})
		},
	})

	return cmd
}

func withDB(rootOpts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
		if a.DB == nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("store driver %q has no database", a.Cfg.StoreDriver))
		}
		return fn(ctx, a)
	})
}
