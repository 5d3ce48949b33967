package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/timekeeper/internal/access"
	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/config"
	"github.com/alexanderramin/timekeeper/internal/db"
	"github.com/alexanderramin/timekeeper/internal/repository"
	"github.com/alexanderramin/timekeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
)

var t0 = testutil.FixedNow

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) last() UseCaseEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

type fixture struct {
	db       *sql.DB
	clock    *testClock
	observer *recordingObserver
	timer    TimerService
	conv     ConverterService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	db       *sql.DB
	uow      db.UnitOfWork
	authz    access.Authorizer
	opts     Options
	sessions func(repository.SessionRepo) repository.SessionRepo
}

func withPolicy(p config.StartPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.opts.StartPolicy = p }
}

func withDB(database *sql.DB) fixtureOption {
	return func(c *fixtureConfig) { c.db = database }
}

func withUoW(uow db.UnitOfWork) fixtureOption {
	return func(c *fixtureConfig) { c.uow = uow }
}

func withAuthorizer(a access.Authorizer) fixtureOption {
	return func(c *fixtureConfig) { c.authz = a }
}

// withSessions wraps the pool-backed session repo the timer service uses.
func withSessions(wrap func(repository.SessionRepo) repository.SessionRepo) fixtureOption {
	return func(c *fixtureConfig) { c.sessions = wrap }
}

func withTimeout(d time.Duration) fixtureOption {
	return func(c *fixtureConfig) { c.opts.ActionTimeout = d }
}

// testGrants: lead may do anything, auditor may only read.
var testGrants = []config.Grant{
	{User: "lead", Permissions: []string{"time_sessions.read", "time_sessions.update", "time_sessions.delete"}},
	{User: "auditor", Permissions: []string{"time_sessions.read"}},
}

var testProjects = []config.Project{
	{ID: "api", Name: "API"},
	{ID: "web", Name: "Web"},
	{ID: "legacy", Name: "Legacy", Archived: true},
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	clock := &testClock{now: t0}
	cfg := fixtureConfig{authz: access.NewStaticAuthorizer(testGrants)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.db == nil {
		cfg.db = testutil.NewTestDB(t)
	}
	if cfg.uow == nil {
		cfg.uow = testutil.NewTestUoW(cfg.db)
	}
	cfg.opts.Now = clock.Now

	var sessions repository.SessionRepo = repository.NewSQLiteSessionRepo(cfg.db)
	if cfg.sessions != nil {
		sessions = cfg.sessions(sessions)
	}

	obs := &recordingObserver{}
	projects := access.NewProjectRegistry(testProjects)
	return &fixture{
		db:       cfg.db,
		clock:    clock,
		observer: obs,
		timer: NewTimerService(sessions, cfg.uow,
			cfg.authz, projects, cfg.opts, obs),
		conv: NewConverterService(repository.NewSQLiteWorkLogRepo(cfg.db), cfg.uow,
			cfg.authz, cfg.opts, obs),
	}
}

func (f *fixture) start(t *testing.T, userID string) string {
	t.Helper()
	res, err := f.timer.Start(context.Background(), StartRequest{UserID: userID, ProjectID: "api", Description: "work"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return res.Session.ID
}

func assertCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, code, apperr.CodeOf(err), "err=%v", err)
	}
}
