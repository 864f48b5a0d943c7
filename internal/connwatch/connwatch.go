// internal/connwatch/connwatch.go
//
// Package connwatch stops the car while the link-presence input is low.
package connwatch

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/hal"
)

// Stopper zeroes both motors.
type Stopper interface {
	Stop()
}

// Watchdog acts only on the negative reading: a high input proves nothing
// about the link, a low input means it is gone.
type Watchdog struct {
	signal  hal.LinkSignal
	stopper Stopper
	log     zerolog.Logger

	lost bool
}

func New(signal hal.LinkSignal, stopper Stopper, log zerolog.Logger) (*Watchdog, error) {
	if signal == nil {
		return nil, errors.New("connwatch: link signal required")
	}
	if stopper == nil {
		return nil, errors.New("connwatch: stopper required")
	}
	return &Watchdog{signal: signal, stopper: stopper, log: log}, nil
}

// Check reads the input once. While low it forces a stop on every call.
// The returned value is for reporting only.
func (w *Watchdog) Check() bool {
	present := w.signal.LinkPresent()
	if !present {
		w.stopper.Stop()
	}

	// edge logging only
	if !present && !w.lost {
		w.log.Warn().Msg("link lost, motors stopped")
	} else if present && w.lost {
		w.log.Info().Msg("link signal back")
	}
	w.lost = !present

	return present
}
