package domain

import "time"

// Truncate drops sub-millisecond precision and normalizes to UTC, matching
// what storage round-trips.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
