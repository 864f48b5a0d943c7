// internal/supervisor/supervisor.go
//
// Package supervisor runs the boot sequence and the watchdog-guarded control loop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/command"
	"github.com/tamzrod/openracer/internal/connwatch"
	"github.com/tamzrod/openracer/internal/diag"
	"github.com/tamzrod/openracer/internal/hal"
	"github.com/tamzrod/openracer/internal/link"
	"github.com/tamzrod/openracer/internal/motor"
	"github.com/tamzrod/openracer/internal/telemetry"
)

// Config is the minimal runtime config the supervisor needs.
type Config struct {
	Interval        time.Duration
	WatchdogTimeout time.Duration
	LowThreshold    uint8

	// TelemetryEvery is the number of iterations between snapshots.
	TelemetryEvery int

	SelfTestSpeed  uint8
	SelfTestRepeat int
	SelfTestSweep  bool

	Name        string
	NameOnBoot  bool
	NameTimeout time.Duration
}

// Deps are the collaborators wired by Build.
type Deps struct {
	Outputs   hal.Board
	Link      link.Transport
	Watchdog  hal.Watchdog
	Delay     hal.Delay
	Decoder   command.Decoder
	Conn      *connwatch.Watchdog
	Diag      *diag.Diagnostics
	Publisher *telemetry.Publisher // optional
	Cause     hal.ResetCause
}

// Supervisor is the single-goroutine loop orchestrator.
type Supervisor struct {
	cfg   Config
	state *State
	deps  Deps
	log   zerolog.Logger

	warnLit bool
}

// New creates a supervisor with immutable config.
func New(cfg Config, state *State, deps Deps, log zerolog.Logger) (*Supervisor, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("supervisor: interval must be > 0")
	}
	if cfg.WatchdogTimeout <= cfg.Interval {
		return nil, errors.New("supervisor: watchdog timeout must exceed interval")
	}
	if state == nil || state.Motors == nil || state.Battery == nil || state.Display == nil || state.Warning == nil {
		return nil, errors.New("supervisor: incomplete state")
	}
	if deps.Outputs == nil || deps.Link == nil || deps.Watchdog == nil || deps.Delay == nil ||
		deps.Decoder == nil || deps.Conn == nil || deps.Diag == nil {
		return nil, errors.New("supervisor: missing dependency")
	}
	if cfg.TelemetryEvery <= 0 {
		cfg.TelemetryEvery = 1
	}
	return &Supervisor{cfg: cfg, state: state, deps: deps, log: log}, nil
}

// State exposes the loop state. Only safe to read from the loop goroutine
// or after Run returned.
func (s *Supervisor) State() *State { return s.state }

// ---- BOOT ----

// Boot runs everything that happens once before the loop: the optional
// link naming handshake, the reset cause display, the self-test actuation
// and finally arming the watchdog.
func (s *Supervisor) Boot(ctx context.Context) error {
	s.log.Info().Stringer("reset_cause", s.deps.Cause).Msg("boot")

	if s.cfg.NameOnBoot {
		s.nameLink(ctx)
	}

	s.deps.Diag.FlashResetCause(s.deps.Cause, 10)
	s.deps.Diag.PulseSteering(s.cfg.SelfTestSpeed, s.cfg.SelfTestRepeat)
	s.deps.Diag.PulseDrive(s.cfg.SelfTestSpeed, s.cfg.SelfTestRepeat)
	if s.cfg.SelfTestSweep {
		s.deps.Diag.SweepDrive()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.deps.Watchdog.Arm(s.cfg.WatchdogTimeout); err != nil {
		return fmt.Errorf("supervisor: arm watchdog: %w", err)
	}
	s.log.Info().Dur("timeout", s.cfg.WatchdogTimeout).Msg("watchdog armed")

	s.publish()
	return nil
}

func (s *Supervisor) nameLink(ctx context.Context) {
	nctx, cancel := context.WithTimeout(ctx, s.cfg.NameTimeout)
	defer cancel()

	ok, err := link.SetName(nctx, s.deps.Link, s.cfg.Name)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("name", s.cfg.Name).Msg("link naming failed")
		s.deps.Diag.NameFailed()
	case !ok:
		s.log.Warn().Str("name", s.cfg.Name).Msg("link naming not acknowledged")
		s.deps.Diag.NameFailed()
	default:
		s.log.Info().Str("name", s.cfg.Name).Msg("link named")
	}
}

// ---- LOOP ----

// Iterate runs one loop body. The order is load-bearing: later steps may
// override what earlier ones did in the same iteration.
func (s *Supervisor) Iterate() {
	st := s.state

	// 1. watchdog
	s.deps.Watchdog.Kick()

	// 2. link presence
	st.LinkPresent = s.deps.Conn.Check()

	// 3. at most one command byte; without a link it is consumed unheard
	if s.deps.Link.ByteAvailable() {
		s.led(hal.LED4, true)
		b, err := s.deps.Link.ReceiveByte()
		s.led(hal.LED4, false)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("receive failed")
		case !st.LinkPresent:
			s.log.Debug().Uint8("byte", b).Msg("command dropped, link absent")
		default:
			s.deps.Decoder.Dispatch(b)
		}
	}

	// 4. toggles
	st.Display.Tick()
	st.Warning.Tick()

	// 5. battery
	if st.Display.State() {
		level := st.Battery.Sample()
		s.duty(hal.Breathe, 0xFF-level)
	} else {
		s.duty(hal.Breathe, 0)
	}

	st.BatteryLow = false
	if level := st.Battery.Level(); level < s.cfg.LowThreshold {
		line := strconv.AppendUint([]byte("batt="), uint64(level), 10)
		motor.Report(s.deps.Link, s.log, append(line, '\n'))

		if st.Battery.IsPersistentlyLow(s.cfg.LowThreshold) {
			st.BatteryLow = true
			s.led(hal.LED3, st.Warning.State())
			s.warnLit = true
			st.Motors.Stop()
		}
	}
	if !st.BatteryLow && s.warnLit {
		s.led(hal.LED3, false)
		s.warnLit = false
	}

	st.Iteration++

	// 6. telemetry
	if st.Iteration%uint32(s.cfg.TelemetryEvery) == 0 {
		s.publish()
	}

	// 7. pace
	s.deps.Delay.Sleep(s.cfg.Interval)
}

// Run loops until ctx is done, then stops the motors and disarms the watchdog.
// One goroutine. No overlap.
func (s *Supervisor) Run(ctx context.Context) {
	defer s.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.Iterate()
	}
}

func (s *Supervisor) shutdown() {
	s.state.Motors.Stop()
	s.duty(hal.Breathe, 0)
	if err := s.deps.Watchdog.Disarm(); err != nil {
		s.log.Error().Err(err).Msg("watchdog disarm failed")
	}
	s.publish()
	s.log.Info().Uint32("iterations", s.state.Iteration).Msg("loop stopped")
}

func (s *Supervisor) publish() {
	if !s.deps.Publisher.Enabled() {
		return
	}
	snap := s.state.Snapshot()
	snap.ResetCause = uint8(s.deps.Cause)
	s.deps.Publisher.Offer(snap)
}

func (s *Supervisor) led(id hal.LED, on bool) {
	if err := s.deps.Outputs.SetLED(id, on); err != nil {
		s.log.Warn().Err(err).Uint8("led", uint8(id)).Msg("set led failed")
	}
}

func (s *Supervisor) duty(ch hal.Channel, v uint8) {
	if err := s.deps.Outputs.SetDuty(ch, v); err != nil {
		s.log.Warn().Err(err).Stringer("channel", ch).Msg("set duty failed")
	}
}
