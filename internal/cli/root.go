package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/config"
	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/service"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"
)

// App holds the services and settings used by CLI commands.
type App struct {
	Timer     service.TimerService
	Converter service.ConverterService
	Config    *config.Config

	// IsInteractive reports whether stdin is a terminal. Nil means never.
	IsInteractive func() bool
	// Now defaults to time.Now.
	Now func() time.Time
	// Confirm asks a yes/no question. Nil uses a huh form.
	Confirm func(title string) (bool, error)

	requester string
}

// NewRootCmd creates the top-level "timekeeper" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "timekeeper",
		Short:         "Track time sessions and turn them into work logs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&app.requester, "as", "", "Act as this user instead of the configured one")

	root.AddCommand(
		newStartCmd(app),
		newActionCmd(app, domain.ActionPause, "Paused"),
		newActionCmd(app, domain.ActionResume, "Resumed"),
		newActionCmd(app, domain.ActionStop, "Stopped"),
		newCancelCmd(app),
		newUpdateCmd(app),
		newDeleteCmd(app),
		newShowCmd(app),
		newListCmd(app),
		newConvertCmd(app),
		newWorkLogCmd(app),
		newWatchCmd(app),
	)

	return root
}

// FormatError renders err for stderr. Errors with an unknown outcome carry
// a hint to re-fetch before retrying.
func FormatError(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return fmt.Sprintf("Error: %v", err)
	}
	msg := fmt.Sprintf("Error: %s", appErr.Message)
	switch appErr.Code {
	case apperr.CodeUnavailable:
		msg += "\nHint: run `timekeeper show` to see whether the action was applied before retrying."
	case apperr.CodeAlreadyRunning:
		if id := appErr.Metadata["running_session_id"]; id != "" {
			msg += fmt.Sprintf("\nHint: session %s is running; stop it first or pass --force.", id)
		}
	case apperr.CodeConflict:
		msg += "\nHint: the session changed concurrently; re-run the command."
	}
	return msg
}

// ExitCode is the process status for err. Engine errors exit with 64 plus
// their gRPC status code, so scripts can tell a conflict (74) from a
// missing session (69); anything else exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if st, ok := status.FromError(err); ok {
		return exitCodeBase + int(st.Code())
	}
	if code := apperr.CodeOf(err); code == apperr.CodeUnavailable {
		return exitCodeBase + int(code.GRPCCode())
	}
	return 1
}

const exitCodeBase = 64

func (a *App) requesterID() string {
	if a.requester != "" {
		return a.requester
	}
	if a.Config != nil {
		return a.Config.User
	}
	return ""
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// resolveSessionID returns the explicit ID argument or falls back to the
// requester's active session.
func resolveSessionID(ctx context.Context, app *App, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	active, err := app.Timer.Active(ctx, app.requesterID())
	if err != nil {
		return "", err
	}
	if active == nil {
		return "", apperr.New(apperr.CodeNotFound, "no running or paused session; pass a session ID")
	}
	return active.ID, nil
}

// timerAction maps an action to the service call that performs it.
func (a *App) timerAction(action domain.Action) func(ctx context.Context, sessionID, requesterID string) (*domain.TimeSession, error) {
	switch action {
	case domain.ActionPause:
		return a.Timer.Pause
	case domain.ActionResume:
		return a.Timer.Resume
	case domain.ActionStop:
		return a.Timer.Stop
	case domain.ActionCancel:
		return a.Timer.Cancel
	default:
		return nil
	}
}
