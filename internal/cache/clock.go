package cache

import "time"

// clock abstracts time for TTL checks so tests can advance it.
type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
