package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/cli/formatter"
	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/repository"
	"github.com/alexanderramin/timekeeper/internal/service"
	"github.com/spf13/cobra"
)

func newStartCmd(app *App) *cobra.Command {
	var req service.StartRequest
	var severity, source string

	cmd := &cobra.Command{
		Use:   "start [DESCRIPTION]",
		Short: "Start a new time session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			req.UserID = app.requesterID()
			if len(args) == 1 {
				req.Description = args[0]
			}
			req.Classification.Severity = domain.Severity(severity)
			req.Classification.Source = domain.WorkSource(source)

			res, err := app.Timer.Start(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Stopped != nil {
				fmt.Fprint(out, formatter.FormatTransition("Stopped", res.Stopped, app.now()))
			}
			fmt.Fprint(out, formatter.FormatTransition("Started", res.Session, app.now()))
			fmt.Fprintln(out, res.Session.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.ProjectID, "project", "", "Project ID")
	f.StringVar(&req.Classification.Module, "module", "", "Module label")
	f.StringVar(&req.Classification.TaskCategory, "task", "", "Task category label")
	f.StringVar(&req.Classification.WorkCategory, "work", "", "Work category label")
	f.StringVar(&severity, "severity", "", "Severity: low, medium, high or critical")
	f.StringVar(&source, "source", "", "Source: manual, ticket, meeting or support")
	f.StringVar(&req.Classification.TicketRef, "ticket", "", "Ticket reference such as OPS-42")
	f.BoolVar(&req.Force, "force", false, "Stop your running session instead of refusing to start")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

// newActionCmd builds pause, resume and stop. Without an ID they act on the
// requester's active session.
func newActionCmd(app *App, action domain.Action, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " [ID]",
		Short: fmt.Sprintf("%s a session (default: your active one)", strings.ToUpper(string(action[:1]))+string(action[1:])),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveSessionID(ctx, app, args)
			if err != nil {
				return err
			}
			s, err := app.timerAction(action)(ctx, id, app.requesterID())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTransition(verb, s, app.now()))
			return nil
		},
	}
}

func newCancelCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cancel [ID]",
		Short: "Cancel a session; cancelled sessions can never become work logs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveSessionID(ctx, app, args)
			if err != nil {
				return err
			}
			if !yes && app.interactive() {
				ok, err := app.confirm(fmt.Sprintf("Cancel session %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			s, err := app.Timer.Cancel(ctx, id, app.requesterID())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTransition("Cancelled", s, app.now()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newUpdateCmd(app *App) *cobra.Command {
	var description, projectID string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Edit the description or project of a running or paused session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.UpdateRequest
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("project") {
				req.ProjectID = &projectID
			}
			s, err := app.Timer.Update(context.Background(), args[0], app.requesterID(), req)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTransition("Updated", s, app.now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&projectID, "project", "", "New project ID")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a session that has not been converted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !app.interactive() {
					return apperr.WithMetadata(apperr.CodeValidation,
						"refusing to delete without --yes when not attached to a terminal",
						map[string]string{"field": "yes"})
				}
				ok, err := app.confirm(fmt.Sprintf("Delete session %s? This cannot be undone.", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			if err := app.Timer.Delete(context.Background(), args[0], app.requesterID()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "show [ID]",
		Aliases: []string{"status"},
		Short:   "Show a session (default: your active one)",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			var s *domain.TimeSession
			var err error
			if len(args) == 1 {
				s, err = app.Timer.Get(ctx, args[0], app.requesterID())
			} else {
				s, err = app.Timer.Active(ctx, app.requesterID())
			}
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No running or paused session.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSession(s, app.now()))
			return nil
		},
	}
}

func newListCmd(app *App) *cobra.Command {
	var owner ownerFlags
	var pages pageFlags
	var statuses statusList
	var projectID, search, filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := repository.SessionFilter{
				UserID:    owner.userID(app),
				ProjectID: projectID,
				Statuses:  statuses,
				Search:    search,
				Expr:      filter,
			}
			page, err := app.Timer.List(context.Background(), app.requesterID(), f,
				repository.Page{Page: pages.page, Limit: pages.limit})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSessionTable(page, app.now()))
			return nil
		},
	}

	fs := cmd.Flags()
	owner.bind(fs)
	pages.bind(fs)
	fs.Var(&statuses, "status", "Only these statuses, comma-separated (RUNNING,PAUSED,COMPLETED,CANCELLED)")
	fs.StringVar(&projectID, "project", "", "Only this project")
	fs.StringVar(&search, "search", "", "Case-insensitive description substring")
	fs.StringVar(&filter, "filter", "", `Filter expression, e.g. 'severity = "high" AND start_time > timestamp("2025-01-01T00:00:00Z")'`)
	cmd.MarkFlagsMutuallyExclusive("user", "all")

	return cmd
}
