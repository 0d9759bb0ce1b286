package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/velozfibra/portal/internal/app"
)

// NewBackupCommand uploads a snapshot of the stored documents to S3.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of the goal document to S3-compatible storage",
		Long: `Upload a snapshot of the goal document to S3-compatible storage.

Requires S3_BUCKET (and credentials unless the default AWS chain applies).
Each run writes a new object under <S3_BACKUP_PREFIX>/goals/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				if a.BackupService == nil {
					return NewExitError(ExitCommandError, "backups are not configured (missing S3_BUCKET)")
				}

				if a.Cfg.BackupTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, a.Cfg.BackupTimeout)
					defer cancel()
				}

				objects, err := a.BackupService.Backup(ctx)
				if err != nil {
					return err
				}

				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(objects, func(w io.Writer) error {
					if len(objects) == 0 {
						_, err := fmt.Fprintln(w, "nothing to back up")
						return err
					}
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "DOCUMENT\tKEY\tSIZE\tURL")
					for _, o := range objects {
						fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", o.Document, o.Key, o.Size, o.URL)
					}
					return tw.Flush()
				})
			})
		},
	}
}
