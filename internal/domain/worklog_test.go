package domain

import (
	"testing"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkLog_UsesFrozenEndTime(t *testing.T) {
	s := newRunning(t)
	s.Classification = Classification{Module: "api", Severity: SeverityLow}
	s = mustApply(t, s, ActionPause, testNow.Add(10*time.Minute))
	s = mustApply(t, s, ActionResume, testNow.Add(25*time.Minute))
	s = mustApply(t, s, ActionStop, testNow.Add(40*time.Minute))

	wl, err := NewWorkLog("wl-1", s, "alice", testNow.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, (25 * time.Minute).Milliseconds(), wl.DurationMs)
	assert.Equal(t, (15 * time.Minute).Milliseconds(), wl.PausedMs)
	assert.Equal(t, s.StartTime, wl.StartTime)
	assert.Equal(t, testNow.Add(40*time.Minute), wl.EndTime)
	assert.Equal(t, s.Classification, wl.Classification)
	assert.Equal(t, "s-1", wl.SessionID)
}

func TestNewWorkLog_RequiresCompleted(t *testing.T) {
	running := newRunning(t)
	_, err := NewWorkLog("wl", running, "alice", testNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	cancelled := mustApply(t, running, ActionCancel, testNow.Add(time.Minute))
	_, err = NewWorkLog("wl", cancelled, "alice", testNow)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestNewWorkLog_RejectsConvertedSession(t *testing.T) {
	s := mustApply(t, newRunning(t), ActionStop, testNow.Add(time.Minute))
	id := "wl-0"
	s.WorkLogID = &id
	_, err := NewWorkLog("wl-1", s, "alice", testNow)
	assert.ErrorIs(t, err, apperr.ErrAlreadyConverted)
}
