package formatter

import (
	"regexp"
	"testing"
	"time"

	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/alexanderramin/timekeeper/internal/repository"
	"github.com/alexanderramin/timekeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want string
	}{
		{"zero", 0, "0s"},
		{"negative clamps", -time.Minute, "0s"},
		{"sub-second truncates", 999 * time.Millisecond, "0s"},
		{"seconds", 42 * time.Second, "42s"},
		{"minutes", 5*time.Minute + 7*time.Second, "5m 07s"},
		{"hours", time.Hour + 5*time.Minute + 7*time.Second, "1h 05m 07s"},
		{"exact hour", 2 * time.Hour, "2h 00m 00s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
	assert.Equal(t, "1m 30s", FormatMillis(90_000))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "héllo wo...", Truncate("héllo world, again", 11))
}

func TestTruncID(t *testing.T) {
	assert.Equal(t, "01234567", stripANSI(TruncID("0123456789abcdef")))
	assert.Equal(t, "abc", stripANSI(TruncID("abc")))
}

func TestStatusPill(t *testing.T) {
	assert.Equal(t, "● RUNNING", stripANSI(StatusPill(domain.StatusRunning)))
	assert.Equal(t, "‖ PAUSED", stripANSI(StatusPill(domain.StatusPaused)))
	assert.Equal(t, "✔ COMPLETED", stripANSI(StatusPill(domain.StatusCompleted)))
	assert.Equal(t, "✖ CANCELLED", stripANSI(StatusPill(domain.StatusCancelled)))
}

func TestRenderTable_AlignsStyledCells(t *testing.T) {
	out := stripANSI(RenderTable(
		[]string{"ID", "STATUS"},
		[][]string{
			{"a", StatusPill(domain.StatusRunning)},
			{"abcd", StatusPill(domain.StatusPaused)},
		},
	))
	want := "ID    STATUS\n" +
		"────  ─────────\n" +
		"a     ● RUNNING\n" +
		"abcd  ‖ PAUSED\n"
	assert.Equal(t, want, out)
	assert.Empty(t, RenderTable(nil, nil))
}

func TestRenderFields(t *testing.T) {
	out := stripANSI(RenderFields([][2]string{{"ID", "s-1"}, {"Status", "RUNNING"}}))
	assert.Equal(t, "ID      s-1\nStatus  RUNNING\n", out)
}

func TestFormatSession_Paused(t *testing.T) {
	now := testutil.FixedNow
	s := testutil.NewTestSession("alice", "api",
		testutil.WithStartTime(now.Add(-time.Hour)),
		testutil.WithPausedSince(now.Add(-10*time.Minute)),
		testutil.WithClassification(domain.Classification{
			Module: "billing", Severity: domain.SeverityHigh, TicketRef: "OPS-12",
		}),
	)

	out := stripANSI(FormatSession(s, now))
	assert.Contains(t, out, "SESSION")
	assert.Contains(t, out, "‖ PAUSED")
	assert.Contains(t, out, "Paused since")
	assert.Contains(t, out, "50m 00s")
	assert.Contains(t, out, "10m 00s")
	assert.Contains(t, out, "OPS-12")
	assert.Contains(t, out, "high")
	assert.NotContains(t, out, "Ended")
}

func TestFormatSessionTable(t *testing.T) {
	now := testutil.FixedNow
	s := testutil.NewTestSession("alice", "api", testutil.WithStartTime(now.Add(-90*time.Second)))

	out := stripANSI(FormatSessionTable(&repository.SessionPage{
		Data: []*domain.TimeSession{s}, Total: 1, Page: 1, Limit: 20, TotalPages: 1,
	}, now))
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "1m 30s")
	assert.Contains(t, out, "page 1 of 1 · 1 result")

	empty := FormatSessionTable(&repository.SessionPage{Page: 1, Limit: 20}, now)
	assert.Equal(t, "No sessions found.\n", empty)
}

func TestFormatWorkLog(t *testing.T) {
	now := testutil.FixedNow
	s := testutil.NewTestSession("alice", "api",
		testutil.WithStartTime(now.Add(-time.Hour)),
		testutil.WithCompletedAt(now),
	)
	w := testutil.NewTestWorkLog(s)

	out := stripANSI(FormatWorkLog(w))
	assert.Contains(t, out, "WORK LOG")
	assert.Contains(t, out, "1h 00m 00s")
	assert.Contains(t, out, s.ID)

	table := stripANSI(FormatWorkLogTable(&repository.WorkLogPage{
		Data: []*domain.WorkLog{w}, Total: 3, Page: 2, Limit: 1, TotalPages: 3,
	}))
	assert.Contains(t, table, "page 2 of 3 · 3 results")
}
