package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/repository"
	"github.com/alexanderramin/timekeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedSession(t *testing.T, f *fixture, userID string) string {
	t.Helper()
	ctx := context.Background()
	id := f.start(t, userID)
	f.clock.Set(t0.Add(10 * time.Minute))
	_, err := f.timer.Pause(ctx, id, userID)
	require.NoError(t, err)
	f.clock.Set(t0.Add(25 * time.Minute))
	_, err = f.timer.Resume(ctx, id, userID)
	require.NoError(t, err)
	f.clock.Set(t0.Add(40 * time.Minute))
	_, err = f.timer.Stop(ctx, id, userID)
	require.NoError(t, err)
	return id
}

func TestConvert_FrozenDurations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := completedSession(t, f, "alice")

	// Converting much later must not change the numbers.
	f.clock.Set(t0.Add(48 * time.Hour))
	w, err := f.conv.Convert(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, w.SessionID)
	assert.Equal(t, int64(25*time.Minute/time.Millisecond), w.DurationMs)
	assert.Equal(t, int64(15*time.Minute/time.Millisecond), w.PausedMs)
	assert.True(t, t0.Add(40*time.Minute).Equal(w.EndTime))
	assert.Equal(t, "alice", w.CreatedBy)

	s, err := f.timer.Get(ctx, id, "alice")
	require.NoError(t, err)
	require.NotNil(t, s.WorkLogID)
	assert.Equal(t, w.ID, *s.WorkLogID)
}

func TestConvert_Idempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := completedSession(t, f, "alice")
	_, err := f.conv.Convert(ctx, id, "alice")
	require.NoError(t, err)

	_, err = f.conv.Convert(ctx, id, "alice")
	assertCode(t, err, apperr.CodeAlreadyConverted)

	page, err := f.conv.List(ctx, "alice", repository.WorkLogFilter{UserID: "alice"}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestConvert_RequiresCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.start(t, "alice")
	_, err := f.conv.Convert(ctx, id, "alice")
	assertCode(t, err, apperr.CodeInvalidState)

	_, err = f.timer.Cancel(ctx, id, "alice")
	require.NoError(t, err)
	_, err = f.conv.Convert(ctx, id, "alice")
	assertCode(t, err, apperr.CodeInvalidState)

	_, err = f.conv.Convert(ctx, "missing", "alice")
	assertCode(t, err, apperr.CodeNotFound)
}

func TestConvert_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := completedSession(t, f, "alice")
	_, err := f.conv.Convert(ctx, id, "auditor")
	assertCode(t, err, apperr.CodeForbidden)

	w, err := f.conv.Convert(ctx, id, "lead")
	require.NoError(t, err)
	assert.Equal(t, "alice", w.UserID)
	assert.Equal(t, "lead", w.CreatedBy)

	_, err = f.conv.Get(ctx, w.ID, "bob")
	assertCode(t, err, apperr.CodeForbidden)
	got, err := f.conv.Get(ctx, w.ID, "auditor")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}

func TestConvert_RollsBackOnLinkFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	injected := errors.New("disk full")
	uow := &testutil.FailingUoW{DB: database, Match: "work_log_id = ?", Err: injected}
	f := newFixture(t, withDB(database), withUoW(uow))
	ctx := context.Background()

	id := completedSession(t, f, "alice")
	_, err := f.conv.Convert(ctx, id, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, injected)
	assert.Equal(t, 1, uow.Failures())

	page, err := f.conv.List(ctx, "alice", repository.WorkLogFilter{UserID: "alice"}, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total, "work log insert must roll back with the failed link")

	s, err := f.timer.Get(ctx, id, "alice")
	require.NoError(t, err)
	assert.Nil(t, s.WorkLogID)
	assert.Equal(t, domain.StatusCompleted, s.Status())
}
