package hal

import (
	"time"

	"github.com/benbjohnson/clock"
)

// ClockDelay implements Delay on top of a clock.Clock.
// Production uses clock.New(); tests can drive a clock.Mock.
type ClockDelay struct {
	clk clock.Clock
}

// NewClockDelay wraps clk. A nil clk means the wall clock.
func NewClockDelay(clk clock.Clock) *ClockDelay {
	if clk == nil {
		clk = clock.New()
	}
	return &ClockDelay{clk: clk}
}

func (d *ClockDelay) Sleep(dur time.Duration) {
	if dur <= 0 {
		return
	}
	d.clk.Sleep(dur)
}
