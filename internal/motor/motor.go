// internal/motor/motor.go
//
// Package motor turns signed velocities into differential duty cycles.
package motor

import (
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/hal"
	"github.com/tamzrod/openracer/internal/link"
)

// Velocity limits.
const (
	MaxVelocity = 255
	MinVelocity = -255
)

// Clamp limits v to [MinVelocity, MaxVelocity].
func Clamp(v int) int {
	if v > MaxVelocity {
		return MaxVelocity
	}
	if v < MinVelocity {
		return MinVelocity
	}
	return v
}

// DutyPair is the duty applied to the two outputs of one motor.
// At most one side is nonzero.
type DutyPair struct {
	Positive uint8
	Negative uint8
}

// Map converts a clamped velocity into its duty pair.
//
// Negative velocities go through the 8-bit complement, so magnitude n
// yields n-1 on the negative output (-255 -> 254, -1 -> 0).
func Map(v int) DutyPair {
	v = Clamp(v)
	if v >= 0 {
		return DutyPair{Positive: uint8(v & 0xFF)}
	}
	return DutyPair{Negative: 0xFF - uint8(v&0xFF)}
}

// Reporter receives status lines.
type Reporter interface {
	Send(p []byte) error
}

// Controller owns the steering and drive velocities.
// Not safe for concurrent use; the supervisor loop is the only caller.
type Controller struct {
	duty     hal.DutyDriver
	reporter Reporter
	log      zerolog.Logger

	steer int
	drive int
}

// NewController returns a controller at rest. Outputs are not touched
// until the first Set call.
func NewController(duty hal.DutyDriver, reporter Reporter, log zerolog.Logger) (*Controller, error) {
	if duty == nil {
		return nil, errors.New("motor: duty driver required")
	}
	if reporter == nil {
		return nil, errors.New("motor: reporter required")
	}
	return &Controller{
		duty:     duty,
		reporter: reporter,
		log:      log,
	}, nil
}

func (c *Controller) Drive() int { return c.drive }
func (c *Controller) Steer() int { return c.steer }

// SetDrive clamps v, reports "drive=<v>" and applies it.
func (c *Controller) SetDrive(v int) {
	c.drive = Clamp(v)
	c.report("drive=", c.drive)
	c.apply(hal.DriveForward, hal.DriveReverse, c.drive)
}

// SetSteer clamps v, reports "steer=<v>" and applies it.
func (c *Controller) SetSteer(v int) {
	c.steer = Clamp(v)
	c.report("steer=", c.steer)
	c.apply(hal.SteerRight, hal.SteerLeft, c.steer)
}

// Stop zeroes drive then steer.
func (c *Controller) Stop() {
	c.SetDrive(0)
	c.SetSteer(0)
}

func (c *Controller) apply(pos, neg hal.Channel, v int) {
	p := Map(v)
	if err := c.duty.SetDuty(pos, p.Positive); err != nil {
		c.log.Error().Err(err).Stringer("channel", pos).Msg("set duty failed")
	}
	if err := c.duty.SetDuty(neg, p.Negative); err != nil {
		c.log.Error().Err(err).Stringer("channel", neg).Msg("set duty failed")
	}
}

func (c *Controller) report(prefix string, v int) {
	line := make([]byte, 0, 16)
	line = append(line, prefix...)
	line = strconv.AppendInt(line, int64(v), 10)
	line = append(line, '\n')
	Report(c.reporter, c.log, line)
}

// Report sends a status line. A missing or stalled peer is routine and
// logged at debug.
func Report(r Reporter, log zerolog.Logger, line []byte) {
	err := r.Send(line)
	switch {
	case err == nil:
	case errors.Is(err, link.ErrNoPeer), errors.Is(err, link.ErrBackpressure):
		log.Debug().Err(err).Bytes("line", line).Msg("status line dropped")
	default:
		log.Warn().Err(err).Msg("status line send failed")
	}
}
