// Package out defines outbound ports the core depends on: repositories,
// the external calendar provider, the webhook collaborator, and the clock.
package out

import "time"

// Clock returns the current instant as epoch milliseconds. Injected so tests
// can construct controlled instants instead of calling the wall clock.
type Clock interface {
	NowMS() int64
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) NowMS() int64 { return time.Now().UnixMilli() }
