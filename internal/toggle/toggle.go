// internal/toggle/toggle.go
//
// Package toggle implements a countdown that flips a boolean every period ticks.
package toggle

import "fmt"

// Timer is a square wave driven by tick count: after the first flip the
// state holds for exactly period ticks.
type Timer struct {
	countdown int
	period    int
	state     bool
}

// New returns a timer whose first flip lands on tick start.
// A start of 0 flips on the very first tick.
func New(period, start int) (*Timer, error) {
	if period <= 0 {
		return nil, fmt.Errorf("toggle: period must be > 0 (got %d)", period)
	}
	if start < 0 {
		return nil, fmt.Errorf("toggle: start must be >= 0 (got %d)", start)
	}
	return &Timer{countdown: start, period: period}, nil
}

// Tick advances the countdown by one. When it reaches zero or below it
// reloads with period and flips the state. Reports whether a flip happened.
func (t *Timer) Tick() bool {
	t.countdown--
	if t.countdown > 0 {
		return false
	}
	t.countdown = t.period
	t.state = !t.state
	return true
}

func (t *Timer) State() bool    { return t.state }
func (t *Timer) Period() int    { return t.period }
func (t *Timer) Countdown() int { return t.countdown }
