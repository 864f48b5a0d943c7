// internal/hal/sysfs/adc.go
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// IIOADC reads one Industrial-I/O voltage channel, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw, and keeps the top 8 bits.
type IIOADC struct {
	path  string
	shift uint
	log   zerolog.Logger

	last    uint8
	failing bool
}

// NewIIOADC builds a reader for a converter of the given resolution (8..16 bits).
func NewIIOADC(path string, bits int, log zerolog.Logger) (*IIOADC, error) {
	if path == "" {
		return nil, errors.New("sysfs adc: path required")
	}
	if bits < 8 || bits > 16 {
		return nil, fmt.Errorf("sysfs adc: resolution %d out of range 8..16", bits)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sysfs adc: %w", err)
	}
	return &IIOADC{
		path:  path,
		shift: uint(bits - 8),
		log:   log.With().Str("adc", path).Logger(),
	}, nil
}

// ReadADC returns the latest conversion. A failed read repeats the previous value.
func (a *IIOADC) ReadADC() uint8 {
	raw, err := a.readRaw()
	if err != nil {
		if !a.failing {
			a.log.Warn().Err(err).Msg("adc read failed, holding last value")
			a.failing = true
		}
		return a.last
	}
	if a.failing {
		a.log.Info().Msg("adc read recovered")
		a.failing = false
	}
	v := raw >> a.shift
	if v > 0xFF {
		v = 0xFF
	}
	a.last = uint8(v)
	return a.last
}

func (a *IIOADC) readRaw() (uint64, error) {
	data, err := os.ReadFile(a.path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
}
