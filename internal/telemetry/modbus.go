// internal/telemetry/modbus.go
package telemetry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusClient carries the car's status block to one Modbus TCP endpoint.
//
// goburrow keeps the unit id on the shared handler rather than per request,
// so setting SlaveId and issuing the write happen under one lock. Today the
// publisher goroutine is the only writer; the lock keeps Close from tearing
// the socket down mid-frame during shutdown.
type ModbusClient struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

type ModbusConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// DialModbus connects eagerly so a bad endpoint is reported at startup
// instead of on the first snapshot.
func DialModbus(cfg ModbusConfig) (*ModbusClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("telemetry modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("telemetry modbus: connect %s: %w", cfg.Endpoint, err)
	}

	return &ModbusClient{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (c *ModbusClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler.Close()
}

// WriteRegisters writes regs as one FC16 request addressed to unitID.
func (c *ModbusClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handler.SlaveId = unitID

	_, err := c.client.WriteMultipleRegisters(addr, uint16(len(regs)), packRegisters(regs))
	return err
}

// packRegisters lays registers out big-endian, as FC16 expects.
func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
