package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/cli/formatter"
	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/reconcile"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live view of your active session with pause/resume/stop keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return fmt.Errorf("watch needs an interactive terminal")
			}
			var dbPath string
			if app.Config != nil {
				dbPath = app.Config.DBPath
			}
			changes, closeWatcher, err := watchDatabase(dbPath)
			if err != nil {
				return err
			}
			defer closeWatcher()

			m := newWatchModel(app, app.requesterID(), changes, interval)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(cmd.OutOrStdout())).Run()
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Redraw interval")
	return cmd
}

// watchDatabase signals on the returned channel whenever the database file
// or its WAL changes. In-memory databases never signal.
func watchDatabase(path string) (<-chan struct{}, func() error, error) {
	if path == "" || path == ":memory:" {
		return nil, func() error { return nil }, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("watching database: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	base := filepath.Base(path)
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !strings.HasPrefix(filepath.Base(ev.Name), base) || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, w.Close, nil
}

// ── messages ─────────────────────────────────────────────────────────────────

type watchTickMsg time.Time

type watchLoadedMsg struct {
	session *domain.TimeSession
	err     error
}

type watchActionMsg struct {
	id      reconcile.RequestID
	action  domain.Action
	session *domain.TimeSession
	err     error
}

type watchChangedMsg struct{}

// ── model ────────────────────────────────────────────────────────────────────

// watchModel renders the tentative session state from a reconcile.View so
// key presses show up before the store confirms them.
type watchModel struct {
	app      *App
	user     string
	view     *reconcile.View
	changes  <-chan struct{}
	interval time.Duration

	loaded bool
	err    error
	notice string
}

func newWatchModel(app *App, user string, changes <-chan struct{}, interval time.Duration) watchModel {
	return watchModel{
		app:      app,
		user:     user,
		view:     reconcile.New(nil),
		changes:  changes,
		interval: interval,
	}
}

type watchKeyMap struct {
	Pause   key.Binding
	Resume  key.Binding
	Stop    key.Binding
	Cancel  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var watchKeys = watchKeyMap{
	Pause:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
	Resume:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
	Stop:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Cancel:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
	Refresh: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp lists the bindings in the order the help line shows them.
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Resume, k.Stop, k.Cancel, k.Refresh, k.Quit}
}

// action maps msg to the timer action bound to it.
func (k watchKeyMap) action(msg tea.KeyMsg) (domain.Action, bool) {
	switch {
	case key.Matches(msg, k.Pause):
		return domain.ActionPause, true
	case key.Matches(msg, k.Resume):
		return domain.ActionResume, true
	case key.Matches(msg, k.Stop):
		return domain.ActionStop, true
	case key.Matches(msg, k.Cancel):
		return domain.ActionCancel, true
	}
	return "", false
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick(), m.waitForChange())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, watchKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, watchKeys.Refresh):
			return m, m.load()
		}
		if action, ok := watchKeys.action(msg); ok {
			return m.act(action)
		}
		return m, nil

	case watchTickMsg:
		return m, m.tick()

	case watchChangedMsg:
		return m, tea.Batch(m.load(), m.waitForChange())

	case watchLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if msg.session != nil {
			m.view.Refresh(msg.session)
		} else if cur := m.view.Current(); cur == nil || !cur.IsTerminal() {
			// Keep showing a session we just finished; drop one that
			// someone else finished.
			m.view.Refresh(nil)
		}
		return m, nil

	case watchActionMsg:
		if msg.err != nil {
			m.view.Fail(msg.id)
			m.err = msg.err
			m.notice = ""
			// The store disagreed with us; re-read what it holds.
			return m, m.load()
		}
		m.view.Confirm(msg.id, msg.session)
		m.notice = fmt.Sprintf("%s confirmed", msg.action)
		return m, nil
	}
	return m, nil
}

// act applies action tentatively and sends it to the service.
func (m watchModel) act(action domain.Action) (tea.Model, tea.Cmd) {
	cur := m.view.Current()
	if cur == nil {
		m.err = apperr.New(apperr.CodeNotFound, "no running or paused session")
		return m, nil
	}
	id, _, err := m.view.Begin(action, m.app.now())
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.notice = ""

	call := m.app.timerAction(action)
	sessionID, user := cur.ID, m.user
	return m, func() tea.Msg {
		s, err := call(context.Background(), sessionID, user)
		return watchActionMsg{id: id, action: action, session: s, err: err}
	}
}

func (m watchModel) load() tea.Cmd {
	timer, user := m.app.Timer, m.user
	return func() tea.Msg {
		s, err := timer.Active(context.Background(), user)
		return watchLoadedMsg{session: s, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	if m.interval <= 0 {
		return nil
	}
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return watchTickMsg(t) })
}

func (m watchModel) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	ch := m.changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return watchChangedMsg{}
	}
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(formatter.Header("timekeeper"))
	b.WriteString("\n\n")

	cur := m.view.Current()
	switch {
	case !m.loaded:
		b.WriteString(formatter.Dim("Loading..."))
		b.WriteString("\n")
	case cur == nil:
		b.WriteString(formatter.Dim("No running or paused session. Start one with `timekeeper start`."))
		b.WriteString("\n")
	default:
		d := m.view.Measure(m.app.now())
		fields := [][2]string{
			{"Session", formatter.TruncID(cur.ID)},
			{"Status", formatter.StatusPill(cur.Status())},
			{"Project", cur.ProjectID},
			{"Description", formatter.OrDash(cur.Description)},
			{"Active", formatter.Bold(formatter.FormatDuration(d.Active))},
			{"Paused", formatter.FormatDuration(d.Paused)},
			{"Total", formatter.FormatDuration(d.Total)},
		}
		b.WriteString(formatter.RenderFields(fields))
	}

	b.WriteString("\n")
	if n := m.view.Pending(); n > 0 {
		b.WriteString(formatter.Warn(fmt.Sprintf("syncing %d change(s)...", n)))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(formatter.Dim(m.notice))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(formatter.StyleRed.Render(FormatError(m.err)))
		b.WriteString("\n")
	}

	bindings := watchKeys.ShortHelp()
	help := make([]string, len(bindings))
	for i, k := range bindings {
		h := k.Help()
		help[i] = h.Key + " " + h.Desc
	}
	b.WriteString(formatter.Dim(strings.Join(help, " · ")))
	b.WriteString("\n")
	return b.String()
}
