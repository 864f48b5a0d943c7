// internal/battery/battery.go
//
// Package battery scales the supply divider reading and debounces low-voltage warnings.
package battery

import (
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/hal"
	"github.com/tamzrod/openracer/internal/motor"
)

// Debounce window: DebounceSamples readings, more than DebounceRequired low.
const (
	DebounceSamples  = 20
	DebounceRequired = 17
)

// Config holds the calibration of the divider and the debounce spacing.
type Config struct {
	Offset  int
	Gain    int
	Spacing time.Duration
	// Initial is the level reported before the first sample.
	Initial uint8
}

// Scale maps a raw reading to a 0..255 level: (raw-offset)*gain, clamped.
func Scale(raw uint8, offset, gain int) uint8 {
	v := (int(raw) - offset) * gain
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Monitor samples the supply. Single-goroutine, like the rest of the loop state.
type Monitor struct {
	adc      hal.ADC
	delay    hal.Delay
	reporter motor.Reporter
	log      zerolog.Logger
	cfg      Config

	level uint8
	raw   uint8
}

func NewMonitor(adc hal.ADC, delay hal.Delay, reporter motor.Reporter, cfg Config, log zerolog.Logger) (*Monitor, error) {
	if adc == nil {
		return nil, errors.New("battery: adc required")
	}
	if delay == nil {
		return nil, errors.New("battery: delay required")
	}
	if reporter == nil {
		return nil, errors.New("battery: reporter required")
	}
	if cfg.Gain <= 0 {
		return nil, errors.New("battery: gain must be > 0")
	}
	return &Monitor{
		adc:      adc,
		delay:    delay,
		reporter: reporter,
		log:      log,
		cfg:      cfg,
		level:    cfg.Initial,
	}, nil
}

// Sample takes one reading, updates and returns the level.
func (m *Monitor) Sample() uint8 {
	m.raw = m.adc.ReadADC()
	m.level = Scale(m.raw, m.cfg.Offset, m.cfg.Gain)
	return m.level
}

// Level is the most recent scaled level.
func (m *Monitor) Level() uint8 { return m.level }

// Raw is the most recent unscaled reading.
func (m *Monitor) Raw() uint8 { return m.raw }

// IsPersistentlyLow takes exactly DebounceSamples readings, each after one
// spacing delay, and reports whether more than DebounceRequired were below
// threshold. The check is narrated on the link as a single line,
// "batt long check: batt=<n> ... done.", sent once the window is complete.
func (m *Monitor) IsPersistentlyLow(threshold uint8) bool {
	line := append(make([]byte, 0, 160), "batt long check:"...)

	low := 0
	for i := 0; i < DebounceSamples; i++ {
		m.delay.Sleep(m.cfg.Spacing)
		lvl := m.Sample()
		if lvl < threshold {
			low++
			line = append(line, " batt="...)
			line = strconv.AppendUint(line, uint64(lvl), 10)
		}
	}

	line = append(line, " done.\n"...)
	motor.Report(m.reporter, m.log, line)

	persistent := low > DebounceRequired
	m.log.Debug().Int("low", low).Bool("persistent", persistent).Msg("battery debounce")
	return persistent
}
