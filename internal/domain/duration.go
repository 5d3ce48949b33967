package domain

import "time"

// Durations is a point-in-time measurement of a session.
// Active + Paused == Total always holds.
type Durations struct {
	Active time.Duration
	Paused time.Duration
	Total  time.Duration
}

func (d Durations) ActiveMs() int64 { return d.Active.Milliseconds() }
func (d Durations) PausedMs() int64 { return d.Paused.Milliseconds() }
func (d Durations) TotalMs() int64  { return d.Total.Milliseconds() }

// Measure computes active, paused and total time for s as of now. Terminal
// sessions are measured against their end time and ignore now. Clock skew
// never produces a negative value: each delta is clamped to zero and paused
// time is capped at the total.
func Measure(s *TimeSession, now time.Time) Durations {
	end := now
	if e := s.EndTime(); e != nil {
		end = *e
	}

	total := nonNegative(end.Sub(s.StartTime))
	paused := nonNegative(s.PausedDuration)
	if p, ok := s.State.(Paused); ok {
		paused += nonNegative(end.Sub(p.Since))
	}
	if paused > total {
		paused = total
	}

	return Durations{
		Active: total - paused,
		Paused: paused,
		Total:  total,
	}
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
