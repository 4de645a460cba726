package services

import "time"

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func (c Clock) orSystem() Clock {
	if c == nil {
		return time.Now
	}
	return c
}
