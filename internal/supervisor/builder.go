// internal/supervisor/builder.go
package supervisor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/battery"
	"github.com/tamzrod/openracer/internal/command"
	"github.com/tamzrod/openracer/internal/config"
	"github.com/tamzrod/openracer/internal/connwatch"
	"github.com/tamzrod/openracer/internal/diag"
	"github.com/tamzrod/openracer/internal/hal"
	"github.com/tamzrod/openracer/internal/link"
	"github.com/tamzrod/openracer/internal/motor"
	"github.com/tamzrod/openracer/internal/telemetry"
	"github.com/tamzrod/openracer/internal/toggle"
)

// Hardware is the opened HAL backend.
type Hardware struct {
	Board hal.Board
	// Presence overrides the board's link input when set.
	Presence hal.LinkSignal
	Store    hal.Store
	Delay    hal.Delay
	Watchdog hal.Watchdog
	Cause    hal.ResetCause
}

// Build wires a supervisor from a normalized, validated config.
func Build(cfg config.RacerConfig, hw Hardware, lnk link.Transport, pub *telemetry.Publisher, log zerolog.Logger) (*Supervisor, error) {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }

	ctl, err := motor.NewController(hw.Board, lnk, log.With().Str("component", "motor").Logger())
	if err != nil {
		return nil, err
	}

	initial := cfg.Battery.LowThreshold + 1
	if cfg.Battery.Initial != nil {
		initial = *cfg.Battery.Initial
	}
	mon, err := battery.NewMonitor(hw.Board, hw.Delay, lnk, battery.Config{
		Offset:  intOr(cfg.Battery.Offset, config.DefaultBatteryOffset),
		Gain:    cfg.Battery.Gain,
		Spacing: ms(intOr(cfg.Battery.SampleSpacingMs, config.DefaultSampleSpacingMs)),
		Initial: uint8(initial),
	}, log.With().Str("component", "battery").Logger())
	if err != nil {
		return nil, err
	}

	display, err := toggle.New(cfg.Toggles.DisplayPeriod, intOr(cfg.Toggles.DisplayStart, config.DefaultDisplayStart))
	if err != nil {
		return nil, fmt.Errorf("display toggle: %w", err)
	}
	warning, err := toggle.New(cfg.Toggles.WarningPeriod, intOr(cfg.Toggles.WarningStart, config.DefaultWarningStart))
	if err != nil {
		return nil, fmt.Errorf("warning toggle: %w", err)
	}

	presence := hw.Presence
	if presence == nil {
		presence = hw.Board
	}
	conn, err := connwatch.New(presence, ctl, log.With().Str("component", "connwatch").Logger())
	if err != nil {
		return nil, err
	}

	dg, err := diag.New(hw.Board, hw.Board, hw.Delay, hw.Store, log.With().Str("component", "diag").Logger())
	if err != nil {
		return nil, err
	}

	dec, err := command.New(cfg.Protocol, command.Deps{
		Motors:   ctl,
		Reporter: lnk,
		ADC:      hw.Board,
		Age:      dg,
		Log:      log.With().Str("component", "command").Logger(),
	}, command.Options{
		BaseSpeed: cfg.Commands.BaseSpeed,
		Step:      cfg.Commands.Step,
	})
	if err != nil {
		return nil, err
	}

	state := &State{
		Motors:  ctl,
		Battery: mon,
		Display: display,
		Warning: warning,
	}

	return New(Config{
		Interval:        ms(cfg.Loop.IntervalMs),
		WatchdogTimeout: ms(cfg.Loop.WatchdogTimeoutMs),
		LowThreshold:    uint8(cfg.Battery.LowThreshold),
		TelemetryEvery:  cfg.Telemetry.Every,
		SelfTestSpeed:   uint8(intOr(cfg.SelfTest.Speed, config.DefaultSelfTestSpeed)),
		SelfTestRepeat:  intOr(cfg.SelfTest.Repeat, config.DefaultSelfTestRepeat),
		SelfTestSweep:   cfg.SelfTest.Sweep,
		Name:            cfg.Link.Name,
		NameOnBoot:      cfg.Link.NameOnBoot,
		NameTimeout:     ms(cfg.Link.NameTimeoutMs),
	}, state, Deps{
		Outputs:   hw.Board,
		Link:      lnk,
		Watchdog:  hw.Watchdog,
		Delay:     hw.Delay,
		Decoder:   dec,
		Conn:      conn,
		Diag:      dg,
		Publisher: pub,
		Cause:     hw.Cause,
	}, log)
}

// intOr reads an optional knob where 0 is a legitimate value.
func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
