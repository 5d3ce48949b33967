package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/timekeeper/internal/cli/formatter"
	"github.com/alexanderramin/timekeeper/internal/repository"
	"github.com/spf13/cobra"
)

func newConvertCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "convert ID",
		Short: "Turn a completed session into a work log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.Converter.Convert(context.Background(), args[0], app.requesterID())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatWorkLog(w))
			return nil
		},
	}
}

func newWorkLogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worklog",
		Aliases: []string{"wl"},
		Short:   "Inspect work logs",
	}
	cmd.AddCommand(newWorkLogListCmd(app), newWorkLogShowCmd(app))
	return cmd
}

func newWorkLogListCmd(app *App) *cobra.Command {
	var owner ownerFlags
	var pages pageFlags
	var projectID, filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work logs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := repository.WorkLogFilter{
				UserID:    owner.userID(app),
				ProjectID: projectID,
				Expr:      filter,
			}
			page, err := app.Converter.List(context.Background(), app.requesterID(), f,
				repository.Page{Page: pages.page, Limit: pages.limit})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatWorkLogTable(page))
			return nil
		},
	}

	fs := cmd.Flags()
	owner.bind(fs)
	pages.bind(fs)
	fs.StringVar(&projectID, "project", "", "Only this project")
	fs.StringVar(&filter, "filter", "", `Filter expression, e.g. 'duration_ms > 3600000'`)
	cmd.MarkFlagsMutuallyExclusive("user", "all")

	return cmd
}

func newWorkLogShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a work log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.Converter.Get(context.Background(), args[0], app.requesterID())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatWorkLog(w))
			return nil
		},
	}
}
