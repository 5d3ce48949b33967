package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = testutil.FixedNow

func newSessionRepo(t *testing.T) *SQLiteSessionRepo {
	t.Helper()
	return NewSQLiteSessionRepo(testutil.NewTestDB(t))
}

func TestSessionRepo_CreateAndGetByID(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	s := testutil.NewTestSession("alice", "api",
		testutil.WithDescription("Investigate outage"),
		testutil.WithClassification(domain.Classification{
			Module:    "billing",
			Severity:  domain.SeverityHigh,
			Source:    domain.SourceTicket,
			TicketRef: "OPS-42",
		}),
	)
	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, 1, s.Version)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "api", got.ProjectID)
	assert.Equal(t, "Investigate outage", got.Description)
	assert.Equal(t, s.Classification, got.Classification)
	assert.Equal(t, domain.StatusRunning, got.Status())
	assert.True(t, testNow.Equal(got.StartTime))
	assert.Nil(t, got.EndTime())
	assert.Nil(t, got.PauseStartedAt())
	assert.Equal(t, 1, got.Version)
}

func TestSessionRepo_GetByID_NotFound(t *testing.T) {
	repo := newSessionRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSessionRepo_RoundTripsEveryState(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	pausedAt := testNow.Add(10 * time.Minute)
	endedAt := testNow.Add(40*time.Minute + 123*time.Millisecond)

	sessions := []*domain.TimeSession{
		testutil.NewTestSession("u-running", "p"),
		testutil.NewTestSession("u-paused", "p", testutil.WithPausedSince(pausedAt), testutil.WithPausedDuration(90*time.Second)),
		testutil.NewTestSession("u-done", "p", testutil.WithCompletedAt(endedAt), testutil.WithPausedDuration(15*time.Minute)),
		testutil.NewTestSession("u-cancel", "p", testutil.WithCancelledAt(endedAt)),
	}
	for _, s := range sessions {
		require.NoError(t, repo.Create(ctx, s))

		got, err := repo.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.State, got.State, "user=%s", s.UserID)
		assert.Equal(t, s.PausedDuration, got.PausedDuration, "user=%s", s.UserID)
	}
}

func TestSessionRepo_Update_VersionConditioned(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	s := testutil.NewTestSession("alice", "api")
	require.NoError(t, repo.Create(ctx, s))

	paused, err := domain.Apply(s, domain.ActionPause, testNow.Add(10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, paused, s.Version))
	assert.Equal(t, 2, paused.Version)

	// A writer still holding version 1 loses.
	stale, err := domain.Apply(s, domain.ActionStop, testNow.Add(11*time.Minute))
	require.NoError(t, err)
	err = repo.Update(ctx, stale, s.Version)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, got.Status())
	assert.Equal(t, 2, got.Version)
}

func TestSessionRepo_Update_NotFound(t *testing.T) {
	repo := newSessionRepo(t)

	s := testutil.NewTestSession("alice", "api")
	err := repo.Update(context.Background(), s, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSessionRepo_FindRunningByUser(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	got, err := repo.FindRunningByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Create(ctx, testutil.NewTestSession("alice", "api", testutil.WithPausedSince(testNow))))
	running := testutil.NewTestSession("alice", "api")
	require.NoError(t, repo.Create(ctx, running))

	got, err = repo.FindRunningByUser(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, running.ID, got.ID)
}

func TestSessionRepo_Delete(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	s := testutil.NewTestSession("alice", "api")
	require.NoError(t, repo.Create(ctx, s))

	assert.ErrorIs(t, repo.Delete(ctx, s.ID, s.Version+1), apperr.ErrConflict)
	require.NoError(t, repo.Delete(ctx, s.ID, s.Version))

	_, err := repo.GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, s.ID, 1), apperr.ErrNotFound)
}

func TestSessionRepo_List_FiltersAndPaginates(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s := testutil.NewTestSession("alice", "api",
			testutil.WithStartTime(testNow.Add(time.Duration(i)*time.Hour)),
			testutil.WithCompletedAt(testNow.Add(time.Duration(i)*time.Hour+30*time.Minute)),
			testutil.WithDescription(fmt.Sprintf("Fix bug %d", i)),
		)
		require.NoError(t, repo.Create(ctx, s))
	}
	require.NoError(t, repo.Create(ctx, testutil.NewTestSession("alice", "web",
		testutil.WithStartTime(testNow.Add(10*time.Hour)),
		testutil.WithDescription("Review 100% coverage_report"))))
	require.NoError(t, repo.Create(ctx, testutil.NewTestSession("bob", "api")))

	page, err := repo.List(ctx, SessionFilter{UserID: "alice"}, Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Review 100% coverage_report", page.Data[0].Description, "newest first")

	page, err = repo.List(ctx, SessionFilter{UserID: "alice"}, Page{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Fix bug 0", page.Data[1].Description)

	page, err = repo.List(ctx, SessionFilter{UserID: "alice"}, Page{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 6, page.Total)

	page, err = repo.List(ctx, SessionFilter{
		Statuses: []domain.SessionStatus{domain.StatusRunning},
	}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, DefaultLimit, page.Limit)

	page, err = repo.List(ctx, SessionFilter{ProjectID: "web"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = repo.List(ctx, SessionFilter{Search: "BUG"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total, "search is case-insensitive")

	page, err = repo.List(ctx, SessionFilter{Search: "100%"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	page, err = repo.List(ctx, SessionFilter{Search: "g_1"}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total, "underscore matches literally")
}

func TestSessionRepo_List_Expr(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	high := testutil.NewTestSession("alice", "api",
		testutil.WithClassification(domain.Classification{Severity: domain.SeverityHigh}),
		testutil.WithCompletedAt(testNow.Add(time.Hour)))
	low := testutil.NewTestSession("alice", "api",
		testutil.WithStartTime(testNow.Add(2*time.Hour)),
		testutil.WithClassification(domain.Classification{Severity: domain.SeverityLow}))
	require.NoError(t, repo.Create(ctx, high))
	require.NoError(t, repo.Create(ctx, low))

	tests := []struct {
		expr string
		want []string
	}{
		{`severity = "high"`, []string{high.ID}},
		{`status = "running"`, []string{low.ID}},
		{`start_time > timestamp("2025-06-15T11:00:00Z")`, []string{low.ID}},
		{`severity = "high" OR severity = "low"`, []string{low.ID, high.ID}},
		{`NOT status = "COMPLETED"`, []string{low.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			page, err := repo.List(ctx, SessionFilter{Expr: tt.expr}, Page{})
			require.NoError(t, err)
			var ids []string
			for _, s := range page.Data {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	_, err := repo.List(ctx, SessionFilter{Expr: `colour = "red"`}, Page{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSessionRepo_List_PageValidation(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	_, err := repo.List(ctx, SessionFilter{}, Page{Page: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	page, err := repo.List(ctx, SessionFilter{}, Page{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, page.Limit)
	assert.Equal(t, 0, page.TotalPages)
	assert.NotNil(t, page.Data)
}

func TestSessionRepo_MarkConverted(t *testing.T) {
	repo := newSessionRepo(t)
	ctx := context.Background()

	running := testutil.NewTestSession("alice", "api")
	require.NoError(t, repo.Create(ctx, running))
	assert.ErrorIs(t, repo.MarkConverted(ctx, running.ID, "wl-1", running.Version, testNow), apperr.ErrConflict,
		"only COMPLETED sessions accept a work log")

	done := testutil.NewTestSession("bob", "api", testutil.WithCompletedAt(testNow.Add(time.Hour)))
	require.NoError(t, repo.Create(ctx, done))
	require.NoError(t, repo.MarkConverted(ctx, done.ID, "wl-2", done.Version, testNow.Add(2*time.Hour)))

	got, err := repo.GetByID(ctx, done.ID)
	require.NoError(t, err)
	require.NotNil(t, got.WorkLogID)
	assert.Equal(t, "wl-2", *got.WorkLogID)
	assert.Equal(t, 2, got.Version)

	assert.ErrorIs(t, repo.MarkConverted(ctx, done.ID, "wl-3", got.Version, testNow), apperr.ErrConflict)
}
