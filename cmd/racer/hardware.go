// cmd/racer/hardware.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"

	"github.com/tamzrod/openracer/internal/config"
	"github.com/tamzrod/openracer/internal/hal"
	"github.com/tamzrod/openracer/internal/hal/fake"
	"github.com/tamzrod/openracer/internal/hal/periph"
	"github.com/tamzrod/openracer/internal/hal/sysfs"
	"github.com/tamzrod/openracer/internal/link"
	"github.com/tamzrod/openracer/internal/supervisor"
	"github.com/tamzrod/openracer/internal/telemetry"
)

// openHardware opens the configured HAL backend. The returned closer drives
// every output low.
func openHardware(cfg config.RacerConfig, log zerolog.Logger) (supervisor.Hardware, func() error, error) {
	log = log.With().Str("component", "hal").Logger()
	delay := hal.NewClockDelay(clock.New())

	switch cfg.HAL.Backend {
	case "sim":
		b := fake.NewSimBoard()
		return supervisor.Hardware{
			Board:    b,
			Store:    fake.NewStore(),
			Delay:    delay,
			Watchdog: softWatchdog(log),
			Cause:    hal.ResetPowerOn,
		}, b.Close, nil

	case "periph":
		// ---- reset cause: first, before anything else ----
		cause, err := sysfs.ReadResetCause(cfg.HAL.BootstatusPath)
		if err != nil {
			log.Warn().Err(err).Msg("reset cause unavailable, assuming power-on")
		}

		adc, err := sysfs.NewIIOADC(cfg.HAL.ADC.Path, cfg.HAL.ADC.Bits, log)
		if err != nil {
			return supervisor.Hardware{}, nil, err
		}

		p := cfg.HAL.Pins
		board, err := periph.Open(periph.Config{
			Pins: periph.Pins{
				Duty: [hal.NumChannels]string{
					hal.SteerRight:   p.SteerRight,
					hal.SteerLeft:    p.SteerLeft,
					hal.DriveForward: p.DriveForward,
					hal.DriveReverse: p.DriveReverse,
					hal.Breathe:      p.Breathe,
				},
				LEDs: [hal.NumLEDs]string{p.LED1, p.LED2, p.LED3, p.LED4, p.LED5},
				Link: p.Link,
			},
			PWMFrequency: physic.Frequency(cfg.HAL.PWMFrequencyHz) * physic.Hertz,
			ADC:          adc,
		})
		if err != nil {
			return supervisor.Hardware{}, nil, err
		}

		store, err := sysfs.OpenFileStore(cfg.HAL.StorePath)
		if err != nil {
			return supervisor.Hardware{}, nil, multierr.Append(err, board.Close())
		}

		var wdt hal.Watchdog
		if dev, err := sysfs.NewDevWatchdog(cfg.HAL.WatchdogDevice); err != nil {
			log.Warn().Err(err).Msg("no hardware watchdog, using soft watchdog")
			wdt = softWatchdog(log)
		} else {
			wdt = dev
		}

		return supervisor.Hardware{
			Board:    board,
			Store:    store,
			Delay:    delay,
			Watchdog: wdt,
			Cause:    cause,
		}, board.Close, nil

	default:
		return supervisor.Hardware{}, nil, fmt.Errorf("unknown backend %q", cfg.HAL.Backend)
	}
}

// softWatchdog exits the process on a missed kick; the service manager restarts us.
func softWatchdog(log zerolog.Logger) *hal.SoftWatchdog {
	return hal.NewSoftWatchdog(func() {
		log.Error().Msg("watchdog expired, restarting")
		os.Exit(3)
	})
}

// openLink opens the configured transport. For websocket links on the sim
// backend the connected peer also stands in for the presence input.
func openLink(cfg config.RacerConfig, log zerolog.Logger) (link.Transport, hal.LinkSignal, error) {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }

	switch cfg.Link.Kind {
	case "serial":
		s, err := link.OpenSerial(link.SerialConfig{
			Address:  cfg.Link.Serial.Address,
			BaudRate: cfg.Link.Serial.BaudRate,
			Timeout:  ms(cfg.Link.Serial.TimeoutMs),
		}, log)
		return s, nil, err

	case "websocket":
		ws, err := link.ListenWebSocket(link.WebSocketConfig{
			Listen:      cfg.Link.WebSocket.Listen,
			Path:        cfg.Link.WebSocket.Path,
			ReadTimeout: ms(cfg.Link.WebSocket.ReadTimeoutMs),
		}, log)
		if err != nil {
			return nil, nil, err
		}
		if cfg.HAL.Backend == "sim" {
			return ws, ws, nil
		}
		return ws, nil, nil

	case "stdio":
		return link.NewStream(os.Stdin, os.Stdout, nil, log.With().Str("link", "stdio").Logger()), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown link kind %q", cfg.Link.Kind)
	}
}

// buildTelemetry attaches the configured sinks. A sink that cannot be
// reached at startup is skipped; telemetry never keeps the car from driving.
func buildTelemetry(cfg config.RacerConfig, lnk link.Transport, log zerolog.Logger) *telemetry.Publisher {
	var sinks []telemetry.Sink

	if m := cfg.Telemetry.Modbus; m != nil {
		cli, err := telemetry.DialModbus(telemetry.ModbusConfig{
			Endpoint: m.Endpoint,
			Timeout:  time.Duration(m.TimeoutMs) * time.Millisecond,
		})
		if err != nil {
			log.Warn().Err(err).Msg("modbus telemetry disabled")
		} else {
			sw, err := telemetry.NewStatusWriter(telemetry.StatusPlan{
				Endpoint:   m.Endpoint,
				UnitID:     m.UnitID,
				BaseSlot:   m.BaseSlot,
				DeviceName: m.DeviceName,
			}, cli)
			if err != nil {
				log.Warn().Err(err).Msg("modbus telemetry disabled")
				_ = cli.Close()
			} else {
				sinks = append(sinks, sw)
			}
		}
	}

	if cfg.Telemetry.JSON {
		jp, err := telemetry.NewJSONPublisher(lnk, cfg.Link.Name)
		if err != nil {
			log.Warn().Err(err).Msg("json telemetry disabled")
		} else {
			sinks = append(sinks, jp)
		}
	}

	return telemetry.NewPublisher(log, sinks...)
}
