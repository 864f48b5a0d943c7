// internal/config/validate.go
package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}
	r := cfg.Racer

	switch r.Protocol {
	case "discrete", "packed":
	default:
		return fmt.Errorf("racer.protocol: unknown protocol %q (want discrete or packed)", r.Protocol)
	}

	// ------------------------------------------------------------
	// LOOP
	// ------------------------------------------------------------

	if r.Loop.IntervalMs <= 0 {
		return fmt.Errorf("racer.loop.interval_ms must be > 0 (got %d)", r.Loop.IntervalMs)
	}
	// watchdog devices count whole seconds
	if r.Loop.WatchdogTimeoutMs < 1000 {
		return fmt.Errorf("racer.loop.watchdog_timeout_ms must be >= 1000 (got %d)", r.Loop.WatchdogTimeoutMs)
	}
	if r.Loop.WatchdogTimeoutMs <= r.Loop.IntervalMs {
		return fmt.Errorf(
			"racer.loop.watchdog_timeout_ms (%d) must exceed interval_ms (%d)",
			r.Loop.WatchdogTimeoutMs,
			r.Loop.IntervalMs,
		)
	}

	// ------------------------------------------------------------
	// LINK
	// ------------------------------------------------------------

	switch r.Link.Kind {
	case "serial":
		if r.Link.Serial.Address == "" {
			return errors.New("racer.link.serial.address is required for kind serial")
		}
		if r.Link.Serial.BaudRate <= 0 {
			return fmt.Errorf("racer.link.serial.baud_rate must be > 0 (got %d)", r.Link.Serial.BaudRate)
		}
	case "websocket":
		if r.Link.WebSocket.Listen == "" {
			return errors.New("racer.link.websocket.listen is required for kind websocket")
		}
	case "stdio":
	default:
		return fmt.Errorf("racer.link.kind: unknown kind %q (want serial, websocket or stdio)", r.Link.Kind)
	}

	if err := asciiOnly("racer.link.name", r.Link.Name); err != nil {
		return err
	}
	if r.Link.NameOnBoot {
		if r.Link.Name == "" {
			return errors.New("racer.link.name_on_boot is set but racer.link.name is empty")
		}
		if r.Link.Kind != "serial" {
			return fmt.Errorf("racer.link.name_on_boot needs kind serial (got %q)", r.Link.Kind)
		}
	}

	// ------------------------------------------------------------
	// BATTERY
	// ------------------------------------------------------------

	b := r.Battery
	if b.Gain <= 0 {
		return fmt.Errorf("racer.battery.gain must be > 0 (got %d)", b.Gain)
	}
	if b.Offset != nil {
		if err := byteRange("racer.battery.offset", *b.Offset); err != nil {
			return err
		}
	}
	if b.LowThreshold < 1 || b.LowThreshold > 255 {
		return fmt.Errorf("racer.battery.low_threshold must be 1..255 (got %d)", b.LowThreshold)
	}
	if b.SampleSpacingMs != nil && *b.SampleSpacingMs < 0 {
		return fmt.Errorf("racer.battery.sample_spacing_ms must be >= 0 (got %d)", *b.SampleSpacingMs)
	}
	if b.Initial != nil {
		if err := byteRange("racer.battery.initial", *b.Initial); err != nil {
			return err
		}
	}

	// ------------------------------------------------------------
	// TOGGLES
	// ------------------------------------------------------------

	tg := r.Toggles
	if tg.DisplayPeriod <= 0 || tg.WarningPeriod <= 0 {
		return fmt.Errorf(
			"racer.toggles periods must be > 0 (display=%d warning=%d)",
			tg.DisplayPeriod,
			tg.WarningPeriod,
		)
	}
	if (tg.DisplayStart != nil && *tg.DisplayStart < 0) || (tg.WarningStart != nil && *tg.WarningStart < 0) {
		return errors.New("racer.toggles starts must be >= 0")
	}

	// ------------------------------------------------------------
	// COMMANDS
	// ------------------------------------------------------------

	// the packed protocol adds up to 15 to the base
	if bs := r.Commands.BaseSpeed; bs != nil && (*bs < 0 || *bs+15 > 255) {
		return fmt.Errorf("racer.commands.base_speed must be 0..240 (got %d)", *bs)
	}
	if r.Commands.Step < 1 || r.Commands.Step > 255 {
		return fmt.Errorf("racer.commands.step must be 1..255 (got %d)", r.Commands.Step)
	}

	// ------------------------------------------------------------
	// SELF TEST
	// ------------------------------------------------------------

	if r.SelfTest.Speed != nil {
		if err := byteRange("racer.self_test.speed", *r.SelfTest.Speed); err != nil {
			return err
		}
	}
	if r.SelfTest.Repeat != nil && *r.SelfTest.Repeat < 0 {
		return fmt.Errorf("racer.self_test.repeat must be >= 0 (got %d)", *r.SelfTest.Repeat)
	}

	// ------------------------------------------------------------
	// HAL
	// ------------------------------------------------------------

	h := r.HAL
	switch h.Backend {
	case "sim":
	case "periph":
		if h.PWMFrequencyHz <= 0 {
			return fmt.Errorf("racer.hal.pwm_frequency_hz must be > 0 (got %d)", h.PWMFrequencyHz)
		}
		pins := map[string]string{
			"steer_right":   h.Pins.SteerRight,
			"steer_left":    h.Pins.SteerLeft,
			"drive_forward": h.Pins.DriveForward,
			"drive_reverse": h.Pins.DriveReverse,
			"breathe":       h.Pins.Breathe,
			"led1":          h.Pins.LED1,
			"led2":          h.Pins.LED2,
			"led3":          h.Pins.LED3,
			"led4":          h.Pins.LED4,
			"led5":          h.Pins.LED5,
			"link":          h.Pins.Link,
		}
		owner := make(map[string]string)
		for _, role := range pinOrder {
			name := pins[role]
			if name == "" {
				return fmt.Errorf("racer.hal.pins.%s is required for backend periph", role)
			}
			if prev, exists := owner[name]; exists {
				return fmt.Errorf("pin collision: %s used by %s and %s", name, prev, role)
			}
			owner[name] = role
		}
		if h.ADC.Path == "" {
			return errors.New("racer.hal.adc.path is required for backend periph")
		}
		if h.ADC.Bits < 8 || h.ADC.Bits > 16 {
			return fmt.Errorf("racer.hal.adc.bits must be 8..16 (got %d)", h.ADC.Bits)
		}
		if h.StorePath == "" {
			return errors.New("racer.hal.store_path is required for backend periph")
		}
	default:
		return fmt.Errorf("racer.hal.backend: unknown backend %q (want periph or sim)", h.Backend)
	}

	// ------------------------------------------------------------
	// TELEMETRY
	// ------------------------------------------------------------

	t := r.Telemetry
	if t.Every <= 0 {
		return fmt.Errorf("racer.telemetry.every must be > 0 (got %d)", t.Every)
	}
	if t.JSON && r.Link.Kind != "websocket" {
		return fmt.Errorf("racer.telemetry.json needs link kind websocket (got %q)", r.Link.Kind)
	}
	if m := t.Modbus; m != nil {
		if m.Endpoint == "" {
			return errors.New("racer.telemetry.modbus.endpoint is required when modbus is set")
		}
		if err := asciiOnly("racer.telemetry.modbus.device_name", m.DeviceName); err != nil {
			return err
		}
		if m.TimeoutMs < 0 {
			return fmt.Errorf("racer.telemetry.modbus.timeout_ms must be >= 0 (got %d)", m.TimeoutMs)
		}
	}

	// ------------------------------------------------------------
	// LOG
	// ------------------------------------------------------------

	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want console or json)", cfg.Log.Format)
	}

	return nil
}

// pinOrder fixes the reporting order of pin checks.
var pinOrder = []string{
	"steer_right", "steer_left", "drive_forward", "drive_reverse", "breathe",
	"led1", "led2", "led3", "led4", "led5", "link",
}

func asciiOnly(field, s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return fmt.Errorf("%s must contain ASCII characters only", field)
		}
	}
	return nil
}

func byteRange(field string, v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("%s must be 0..255 (got %d)", field, v)
	}
	return nil
}
