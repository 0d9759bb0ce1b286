package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/natefinch/atomic"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/velozfibra/portal/internal/app"
	"github.com/velozfibra/portal/internal/model"
	"github.com/velozfibra/portal/internal/service"
)

// NewGoalsCommand groups the goal subcommands.
func NewGoalsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage goals and inspect commissions",
	}

	cmd.AddCommand(newGoalsListCommand(rootOpts))
	cmd.AddCommand(newGoalsShowCommand(rootOpts))
	cmd.AddCommand(newGoalsCreateCommand(rootOpts))
	cmd.AddCommand(newGoalsUpdateCommand(rootOpts))
	cmd.AddCommand(newGoalsProgressCommand(rootOpts))
	cmd.AddCommand(newGoalsDeleteCommand(rootOpts))
	cmd.AddCommand(newGoalsSummaryCommand(rootOpts))
	cmd.AddCommand(newGoalsOverdueCommand(rootOpts))
	cmd.AddCommand(newGoalsPeriodCommand(rootOpts))
	cmd.AddCommand(newGoalsReportCommand(rootOpts))

	return cmd
}

func newGoalsListCommand(rootOpts *RootOptions) *cobra.Command {
	var assignee, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				var goals []*model.Goal
				var err error
				switch {
				case status != "":
					goals, err = a.GoalService.GoalsByStatus(ctx, status)
					if assignee != "" {
						goals = lo.Filter(goals, func(g *model.Goal, _ int) bool { return g.AssignedTo == assignee })
					}
				case assignee != "":
					goals, err = a.GoalService.GoalsByUser(ctx, assignee)
				default:
					goals, err = a.GoalService.Goals(ctx)
				}
				if err != nil {
					return err
				}

				return printGoals(rootOpts, cmd, goals, a.GoalService.Today())
			})
		},
	}

	cmd.Flags().StringVar(&assignee, "assignee", "", "only goals assigned to this user")
	cmd.Flags().StringVar(&status, "status", "", "only goals with this status (pending|in_progress|completed|cancelled)")

	return cmd
}

func newGoalsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one goal with its derived values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				goal, err := a.GoalService.GoalByID(ctx, id)
				if err != nil {
					return err
				}
				if goal == nil {
					return notFound(id)
				}
				return printGoal(rootOpts, cmd, goal, a.GoalService.Today())
			})
		},
	}
}

// goalFlags binds the field flags shared by create and update.
type goalFlags struct {
	title, description, target, current string
	goalType, status, assignedTo        string
	createdBy, start, end               string
}

func (f *goalFlags) bind(cmd *cobra.Command, withCreatedBy bool) {
	cmd.Flags().StringVar(&f.title, "title", "", "goal title")
	cmd.Flags().StringVar(&f.description, "description", "", "goal description")
	cmd.Flags().StringVar(&f.target, "target", "", "target value")
	cmd.Flags().StringVar(&f.current, "current", "", "current value")
	cmd.Flags().StringVar(&f.goalType, "type", "", "goal type (renewals|upgrades|new_customers|revenue|customer_satisfaction)")
	cmd.Flags().StringVar(&f.status, "status", "", "status (pending|in_progress|completed|cancelled)")
	cmd.Flags().StringVar(&f.assignedTo, "assigned-to", "", "user the goal is assigned to")
	cmd.Flags().StringVar(&f.start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.end, "end", "", "end date (YYYY-MM-DD)")
	if withCreatedBy {
		cmd.Flags().StringVar(&f.createdBy, "created-by", "", "user creating the goal")
	}
}

// fields returns only the flags set on the command line.
func (f *goalFlags) fields(cmd *cobra.Command) service.Fields {
	values := map[string]struct {
		key   string
		value string
	}{
		"title":       {service.FieldTitle, f.title},
		"description": {service.FieldDescription, f.description},
		"target":      {service.FieldTargetValue, f.target},
		"current":     {service.FieldCurrentValue, f.current},
		"type":        {service.FieldGoalType, f.goalType},
		"status":      {service.FieldStatus, f.status},
		"assigned-to": {service.FieldAssignedTo, f.assignedTo},
		"created-by":  {service.FieldCreatedBy, f.createdBy},
		"start":       {service.FieldStartDate, f.start},
		"end":         {service.FieldEndDate, f.end},
	}

	fields := service.Fields{}
	for flag, v := range values {
		if cmd.Flags().Changed(flag) {
			fields[v.key] = v.value
		}
	}
	return fields
}

func newGoalsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &goalFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a goal",
		Example: `  portal goals create --title "Renovações Q1" --type renewals --target 150 \
    --assigned-to joao --created-by admin --start 2024-01-01 --end 2024-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				goal, err := a.GoalService.CreateGoal(ctx, flags.fields(cmd))
				if err != nil {
					return err
				}
				return printGoal(rootOpts, cmd, goal, a.GoalService.Today())
			})
		},
	}
	flags.bind(cmd, true)

	return cmd
}

func newGoalsUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &goalFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				goal, err := a.GoalService.UpdateGoal(ctx, id, flags.fields(cmd))
				if err != nil {
					return err
				}
				return printGoal(rootOpts, cmd, goal, a.GoalService.Today())
			})
		},
	}
	flags.bind(cmd, false)

	return cmd
}

func newGoalsProgressCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id> <value>",
		Short: "Set the current value of a goal and re-derive its status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid value %q", args[1]), err)
			}

			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				goal, err := a.GoalService.UpdateGoalProgress(ctx, id, value)
				if err != nil {
					return err
				}
				return printGoal(rootOpts, cmd, goal, a.GoalService.Today())
			})
		},
	}
}

func newGoalsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				deleted, err := a.GoalService.DeleteGoal(ctx, id)
				if err != nil {
					return err
				}
				if !deleted {
					return notFound(id)
				}

				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(map[string]any{"id": id, "deleted": true}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "goal %d deleted\n", id)
					return err
				})
			})
		},
	}
}

func newGoalsSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show aggregate goal figures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				summary, err := a.GoalService.Summary(ctx)
				if err != nil {
					return err
				}

				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(summary, func(w io.Writer) error {
					tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintf(tw, "Total goals:\t%d\n", summary.TotalGoals)
					fmt.Fprintf(tw, "Completed:\t%d\n", summary.CompletedGoals)
					fmt.Fprintf(tw, "In progress:\t%d\n", summary.InProgressGoals)
					fmt.Fprintf(tw, "Overdue:\t%d\n", summary.OverdueGoals)
					fmt.Fprintf(tw, "Average progress:\t%.2f%%\n", summary.AvgProgress)
					fmt.Fprintf(tw, "Completion rate:\t%.2f%%\n", summary.CompletionRate)
					fmt.Fprintf(tw, "Total commission:\t%.2f\n", summary.TotalRevenue)
					return tw.Flush()
				})
			})
		},
	}
}

func newGoalsOverdueCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List goals past their end date that are not completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				goals, err := a.GoalService.OverdueGoals(ctx)
				if err != nil {
					return err
				}
				return printGoals(rootOpts, cmd, goals, a.GoalService.Today())
			})
		},
	}
}

func newGoalsPeriodCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "period <start> <end>",
		Short: "List goals whose period overlaps [start, end]",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := model.ParseDate(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid start", err)
			}
			end, err := model.ParseDate(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid end", err)
			}
			if end.Before(start) {
				return NewExitError(ExitCommandError, "end must not be before start")
			}

			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				goals, err := a.GoalService.GoalsByPeriod(ctx, start, end)
				if err != nil {
					return err
				}
				return printGoals(rootOpts, cmd, goals, a.GoalService.Today())
			})
		},
	}
}

func newGoalsReportCommand(rootOpts *RootOptions) *cobra.Command {
	var html bool
	var output, generatedBy string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the goals and commissions report (markdown or HTML)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.ReportService.Generate(ctx, generatedBy)
				if err != nil {
					return err
				}

				content := report.Markdown
				if html {
					content = report.HTML
				}

				if output == "" {
					_, err = cmd.OutOrStdout().Write(content)
					return err
				}

				err = atomic.WriteFile(output, bytes.NewReader(content))
				if err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}

				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				result := map[string]any{
					"title":        report.Title,
					"generated_by": report.GeneratedBy,
					"generated_at": report.GeneratedAt,
					"output":       output,
					"bytes":        len(content),
				}
				return out.Print(result, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "report written to %s (%d bytes)\n", output, len(content))
					return err
				})
			})
		},
	}

	cmd.Flags().BoolVar(&html, "html", false, "render HTML instead of markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&generatedBy, "by", defaultUser(), "name shown as the report author")

	return cmd
}

func printGoals(rootOpts *RootOptions, cmd *cobra.Command, goals []*model.Goal, today model.Date) error {
	views := model.Views(goals, today)
	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

	return out.Print(views, func(w io.Writer) error {
		if len(views) == 0 {
			_, err := fmt.Fprintln(w, "no goals")
			return err
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tSTATUS\tASSIGNED\tPROGRESS\tCOMMISSION\tEND\tOVERDUE")
		for _, v := range views {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%.1f%%\t%.2f\t%s\t%t\n",
				v.ID, v.Title, v.GoalType, v.Status, v.AssignedTo,
				v.ProgressPercentage, v.CommissionValue, formatDate(v.EndDate), v.IsOverdue)
		}
		return tw.Flush()
	})
}

func printGoal(rootOpts *RootOptions, cmd *cobra.Command, goal *model.Goal, today model.Date) error {
	v := goal.View(today)
	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

	return out.Print(v, func(w io.Writer) error {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "ID:\t%d\n", v.ID)
		fmt.Fprintf(tw, "Title:\t%s\n", v.Title)
		if v.Description != "" {
			fmt.Fprintf(tw, "Description:\t%s\n", v.Description)
		}
		fmt.Fprintf(tw, "Type:\t%s\n", v.GoalType)
		fmt.Fprintf(tw, "Status:\t%s\n", v.Status)
		fmt.Fprintf(tw, "Assigned to:\t%s\n", v.AssignedTo)
		fmt.Fprintf(tw, "Created by:\t%s\n", v.CreatedBy)
		fmt.Fprintf(tw, "Progress:\t%.2f / %.2f (%.1f%%)\n", v.CurrentValue, v.TargetValue, v.ProgressPercentage)
		fmt.Fprintf(tw, "Commission:\t%.2f\n", v.CommissionValue)
		fmt.Fprintf(tw, "Period:\t%s to %s\n", formatDate(v.StartDate), formatDate(v.EndDate))
		fmt.Fprintf(tw, "Days remaining:\t%d\n", v.DaysRemaining)
		fmt.Fprintf(tw, "Overdue:\t%t\n", v.IsOverdue)
		return tw.Flush()
	})
}

func formatDate(d *model.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid goal id %q", s))
	}
	return id, nil
}

func defaultUser() string {
	user := os.Getenv("USER")
	if user == "" {
		return "portal"
	}
	return user
}
