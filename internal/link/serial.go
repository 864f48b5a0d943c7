// internal/link/serial.go
package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/serial"
	"github.com/rs/zerolog"
)

// SerialConfig is minimal port config. The wireless module talks 8N1.
type SerialConfig struct {
	Address  string
	BaudRate int
	// Timeout bounds each driver read so Close can stop the reader.
	Timeout time.Duration
}

// OpenSerial opens the UART bridged to the wireless module.
func OpenSerial(cfg SerialConfig, log zerolog.Logger) (*Stream, error) {
	if cfg.Address == "" {
		return nil, errors.New("link serial: address required")
	}
	if cfg.BaudRate <= 0 {
		return nil, errors.New("link serial: baud rate must be > 0")
	}

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("link serial: open %s: %w", cfg.Address, err)
	}

	isTimeout := func(err error) bool {
		return errors.Is(err, serial.ErrTimeout)
	}

	l := log.With().Str("link", "serial").Str("port", cfg.Address).Logger()
	return newStream(port, port, port, isTimeout, l), nil
}
