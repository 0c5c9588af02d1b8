package engine

import (
	"fmt"
	"time"
)

const (
	DefaultJoinWindow   = time.Hour
	DefaultRevealWindow = time.Hour
)

// Params are the deadline windows every new transition is scheduled with.
type Params struct {
	// JoinWindow is how long the opponent has to join after creation.
	JoinWindow time.Duration
	// RevealWindow is how long players have to reveal after both committed,
	// and again after the first reveal.
	RevealWindow time.Duration
}

func DefaultParams() Params {
	return Params{
		JoinWindow:   DefaultJoinWindow,
		RevealWindow: DefaultRevealWindow,
	}
}

func (p Params) Validate() error {
	if p.JoinWindow < time.Second {
		return fmt.Errorf("join window must be at least 1s, got %s", p.JoinWindow)
	}
	if p.RevealWindow < time.Second {
		return fmt.Errorf("reveal window must be at least 1s, got %s", p.RevealWindow)
	}
	return nil
}

func windowSecs(d time.Duration) uint64 {
	return uint64(d / time.Second)
}

func joinDeadline(p Params, nowUnix int64) (int64, error) {
	return addInt64AndU64Checked(nowUnix, windowSecs(p.JoinWindow), "join deadline")
}

func revealDeadline(p Params, nowUnix int64) (int64, error) {
	return addInt64AndU64Checked(nowUnix, windowSecs(p.RevealWindow), "reveal deadline")
}
