package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/velozfibra/portal/internal/app"
)

// NewDigestCommand emails the overdue goals to DIGEST_RECIPIENTS.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Email the list of overdue goals",
		Long: `Email the list of overdue goals to DIGEST_RECIPIENTS.

In development (APP_ENV=development) the email is logged instead of sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				sent, err := a.DigestService.SendOverdue(ctx)
				if err != nil {
					return err
				}

				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				result := map[string]any{
					"overdue_goals": sent,
					"recipients":    a.Cfg.DigestRecipients,
				}
				return out.Print(result, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%d overdue goal(s) reported to %d recipient(s)\n", sent, len(a.Cfg.DigestRecipients))
					return err
				})
			})
		},
	}
}
