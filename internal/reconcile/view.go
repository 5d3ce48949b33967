// Package reconcile keeps a client-side view of one session that applies
// timer actions tentatively before the server answers.
//
// Every action goes through the same rule: Begin applies it on top of the
// current tentative state with the same transition and duration functions
// the server uses; Confirm adopts the server snapshot; Fail rolls back to
// the last confirmed snapshot plus whatever was issued before the failed
// request.
package reconcile

import (
	"sync"
	"time"

	"github.com/alexanderramin/timekeeper/internal/apperr"
	"github.com/alexanderramin/timekeeper/internal/domain"
	"github.com/google/uuid"
)

// RequestID tags one in-flight action.
type RequestID string

type pendingAction struct {
	id     RequestID
	action domain.Action
	at     time.Time
}

// View is safe for concurrent use.
type View struct {
	mu        sync.Mutex
	confirmed *domain.TimeSession
	pending   []pendingAction
}

// New returns a view whose confirmed snapshot is s (which may be nil).
func New(s *domain.TimeSession) *View {
	v := &View{}
	if s != nil {
		v.confirmed = s.Clone()
	}
	return v
}

// Begin applies action tentatively and returns the request id to confirm
// or fail later along with the tentative snapshot. A rejected transition
// records nothing.
func (v *View) Begin(action domain.Action, at time.Time) (RequestID, *domain.TimeSession, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	cur := v.currentLocked()
	if cur == nil {
		return "", nil, apperr.New(apperr.CodeInvalidState, "no session to act on")
	}
	next, err := domain.Apply(cur, action, at)
	if err != nil {
		return "", nil, err
	}
	id := RequestID(uuid.New().String())
	v.pending = append(v.pending, pendingAction{id: id, action: action, at: domain.Truncate(at)})
	return id, next, nil
}

// Confirm adopts the server's snapshot for id. The request and every
// request issued before it are settled. Later requests stay pending and
// are replayed on the new snapshot; any that no longer apply are dropped
// together with their successors. Unknown ids report false.
func (v *View) Confirm(id RequestID, authoritative *domain.TimeSession) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	i := v.indexLocked(id)
	if i < 0 {
		return false
	}
	v.confirmed = authoritative.Clone()
	v.pending = append([]pendingAction(nil), v.pending[i+1:]...)
	v.pruneLocked()
	return true
}

// Fail rolls back id and every request issued after it.
func (v *View) Fail(id RequestID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	i := v.indexLocked(id)
	if i < 0 {
		return false
	}
	v.pending = v.pending[:i]
	return true
}

// Refresh replaces the confirmed snapshot with one read independently of
// any request, e.g. after another client changed the session.
func (v *View) Refresh(authoritative *domain.TimeSession) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if authoritative == nil {
		v.confirmed = nil
		v.pending = nil
		return
	}
	v.confirmed = authoritative.Clone()
	v.pruneLocked()
}

// Current returns the tentative snapshot, or nil when the view is empty.
func (v *View) Current() *domain.TimeSession {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentLocked()
}

// Confirmed returns the last server-confirmed snapshot.
func (v *View) Confirmed() *domain.TimeSession {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.confirmed == nil {
		return nil
	}
	return v.confirmed.Clone()
}

// Pending reports how many requests are in flight.
func (v *View) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}

// Measure computes durations of the tentative snapshot at now.
func (v *View) Measure(now time.Time) domain.Durations {
	cur := v.Current()
	if cur == nil {
		return domain.Durations{}
	}
	return domain.Measure(cur, now)
}

func (v *View) currentLocked() *domain.TimeSession {
	if v.confirmed == nil {
		return nil
	}
	cur := v.confirmed
	for _, p := range v.pending {
		next, err := domain.Apply(cur, p.action, p.at)
		if err != nil {
			break
		}
		cur = next
	}
	return cur.Clone()
}

// pruneLocked drops the first pending action that no longer applies to the
// confirmed snapshot, and everything after it.
func (v *View) pruneLocked() {
	cur := v.confirmed
	for i, p := range v.pending {
		next, err := domain.Apply(cur, p.action, p.at)
		if err != nil {
			v.pending = v.pending[:i]
			return
		}
		cur = next
	}
}

func (v *View) indexLocked(id RequestID) int {
	for i, p := range v.pending {
		if p.id == id {
			return i
		}
	}
	return -1
}
