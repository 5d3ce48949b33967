package cli

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/service"
	"github.com/alexanderramin/timekeeper/internal/teatest"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatched(t *testing.T, app *App) (*teatest.Driver, *domain.TimeSession) {
	t.Helper()
	res, err := app.Timer.Start(context.Background(), service.StartRequest{
		UserID: "alice", ProjectID: "api", Description: "watching",
	})
	require.NoError(t, err)

	d := teatest.New(t, newWatchModel(app, "alice", nil, 0),
		teatest.WithSize(80, 24),
		teatest.WithCmdTimeout(5*time.Second))
	d.DrainInit()
	return d, res.Session
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestWatch_InitialLoad(t *testing.T) {
	app, clock := testApp(t)
	d, s := startWatched(t, app)
	clock.advance(90 * time.Second)

	view := d.View()
	assert.Contains(t, view, "RUNNING")
	assert.Contains(t, view, s.ID[:8])
	assert.Contains(t, view, "watching")
	assert.Contains(t, view, "1m 30s")
}

func TestWatch_EmptyState(t *testing.T) {
	app, _ := testApp(t)
	d := teatest.New(t, newWatchModel(app, "alice", nil, 0), teatest.WithCmdTimeout(5*time.Second))
	d.DrainInit()
	assert.Contains(t, d.View(), "No running or paused session")

	d.PressKey('p')
	assert.Contains(t, d.View(), "no running or paused session")
}

func TestWatch_ActionIsTentativeUntilConfirmed(t *testing.T) {
	app, clock := testApp(t)
	d, s := startWatched(t, app)
	clock.advance(10 * time.Minute)

	m := d.Model.(watchModel)
	updated, cmd := m.Update(keyMsg('p'))
	require.NotNil(t, cmd)

	view := updated.View()
	assert.Contains(t, view, "PAUSED", "shown before the store answers")
	assert.Contains(t, view, "syncing 1 change(s)")

	stored, err := app.Timer.Get(context.Background(), s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, stored.Status(), "nothing written yet")

	updated, _ = updated.Update(cmd())
	view = updated.View()
	assert.Contains(t, view, "PAUSED")
	assert.Contains(t, view, "pause confirmed")
	assert.NotContains(t, view, "syncing")
	assert.Equal(t, 0, updated.(watchModel).view.Pending())

	stored, err = app.Timer.Get(context.Background(), s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, stored.Status())
}

func TestWatch_PauseResumeStop(t *testing.T) {
	app, clock := testApp(t)
	d, s := startWatched(t, app)

	clock.advance(10 * time.Minute)
	d.PressKey('p')
	clock.advance(5 * time.Minute)
	d.PressKey('r')
	clock.advance(20 * time.Minute)
	d.PressKey('s')

	view := d.View()
	assert.Contains(t, view, "COMPLETED")
	assert.Contains(t, view, "30m 00s")
	assert.Contains(t, view, "stop confirmed")

	stored, err := app.Timer.Get(context.Background(), s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status())
	assert.Equal(t, 5*time.Minute, stored.PausedDuration)

	// A reload after stopping keeps showing the finished session.
	d.PressKey('g')
	assert.Contains(t, d.View(), "COMPLETED")
}

func TestWatch_LocallyIllegalActionIsRejected(t *testing.T) {
	app, _ := testApp(t)
	d, _ := startWatched(t, app)

	d.PressKey('r')
	view := d.View()
	assert.Contains(t, view, "cannot resume a RUNNING session")
	assert.Contains(t, view, "RUNNING")
	assert.Equal(t, 0, d.Model.(watchModel).view.Pending())
}

func TestWatch_ServerRejectionRollsBackAndReloads(t *testing.T) {
	app, clock := testApp(t)
	d, s := startWatched(t, app)
	clock.advance(time.Minute)

	m := d.Model.(watchModel)
	updated, cmd := m.Update(keyMsg('p'))
	require.NotNil(t, cmd)
	assert.Contains(t, updated.View(), "PAUSED")

	// Another client stops the session before the pause lands.
	_, err := app.Timer.Stop(context.Background(), s.ID, "alice")
	require.NoError(t, err)

	d.Model = updated
	d.Send(cmd())

	view := d.View()
	assert.Contains(t, view, "cannot pause a COMPLETED session")
	assert.Contains(t, view, "No running or paused session", "reloaded after the rejection")
	assert.Equal(t, 0, d.Model.(watchModel).view.Pending())
}

func TestWatch_ExternalChangeReloads(t *testing.T) {
	app, _ := testApp(t)
	d, s := startWatched(t, app)

	_, err := app.Timer.Pause(context.Background(), s.ID, "alice")
	require.NoError(t, err)
	assert.Contains(t, d.View(), "RUNNING", "stale until notified")

	d.Send(watchChangedMsg{})
	assert.Contains(t, d.View(), "PAUSED")

	_, err = app.Timer.Cancel(context.Background(), s.ID, "alice")
	require.NoError(t, err)
	d.Send(watchChangedMsg{})
	assert.Contains(t, d.View(), "No running or paused session")
}

func TestWatch_Quit(t *testing.T) {
	app, _ := testApp(t)
	d, _ := startWatched(t, app)

	d.PressKey('q')
	assert.True(t, d.Quitting)
}

func TestWatchDatabase_MemoryNeverSignals(t *testing.T) {
	ch, closeFn, err := watchDatabase(":memory:")
	require.NoError(t, err)
	assert.Nil(t, ch)
	assert.NoError(t, closeFn())
}

func TestWatchKeys_HelpMatchesBehaviour(t *testing.T) {
	app, _ := testApp(t)
	d, _ := startWatched(t, app)
	view := d.View()

	for _, b := range watchKeys.ShortHelp() {
		h := b.Help()
		assert.Contains(t, view, h.Key+" "+h.Desc)

		msg := keyMsg([]rune(h.Key)[0])
		action, ok := watchKeys.action(msg)
		switch h.Desc {
		case "quit", "refresh":
			assert.False(t, ok, "key %q", h.Key)
		default:
			if assert.True(t, ok, "key %q", h.Key) {
				assert.Equal(t, domain.Action(h.Desc), action)
			}
		}
	}
}

func TestWatch_EscQuits(t *testing.T) {
	app, _ := testApp(t)
	d, _ := startWatched(t, app)

	d.Send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, d.Quitting)
}
