// internal/telemetry/status_writer.go
package telemetry

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/tamzrod/openracer/internal/status"
)

// endpointClient is the register write surface of a Modbus endpoint.
type endpointClient interface {
	WriteRegisters(unitID uint8, addr uint16, regs []uint16) error
}

// StatusPlan places the vehicle status block on a Modbus endpoint.
type StatusPlan struct {
	Endpoint   string
	UnitID     uint8
	BaseSlot   uint16
	DeviceName string
}

// StatusWriter delivers snapshots into holding registers.
// No logic, no interpretation: the snapshot is written verbatim.
type StatusWriter struct {
	plan StatusPlan
	cli  endpointClient

	needFull bool
	last     []uint16
	nameRegs []uint16
}

// liveSlots are the slots compared and rewritten on incremental updates.
var liveSlots = []int{
	status.SlotHealthCode,
	status.SlotSteer,
	status.SlotDrive,
	status.SlotBattery,
	status.SlotFlags,
	status.SlotIterationHi,
	status.SlotIterationLo,
	status.SlotResetCause,
}

func NewStatusWriter(plan StatusPlan, cli endpointClient) (*StatusWriter, error) {
	if cli == nil {
		return nil, fmt.Errorf("status writer: missing client for endpoint %s", plan.Endpoint)
	}
	return &StatusWriter{
		plan:     plan,
		cli:      cli,
		needFull: true, // full re-assert on first successful write
		last:     status.Encode(status.Snapshot{Health: status.HealthUnknown}),
		nameRegs: status.EncodeDeviceName(plan.DeviceName),
	}, nil
}

// WriteStatus delivers one snapshot.
// On any write failure, the next successful call will re-assert the full block.
func (sw *StatusWriter) WriteStatus(s status.Snapshot) error {
	if sw == nil || sw.cli == nil {
		return errors.New("status writer: disabled")
	}

	regs := status.Encode(s)
	base := sw.baseAddr()

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if sw.needFull {
		full := sw.fullBlockRegs(regs)
		if err := sw.cli.WriteRegisters(sw.plan.UnitID, base, full); err != nil {
			return fmt.Errorf("status writer: full block write failed: %w", err)
		}
		sw.needFull = false
		sw.last = regs
		return nil
	}

	var errs error
	for _, slot := range liveSlots {
		if sw.last[slot] == regs[slot] {
			continue
		}
		if err := sw.cli.WriteRegisters(
			sw.plan.UnitID,
			base+uint16(slot),
			[]uint16{regs[slot]},
		); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("slot%d write failed: %w", slot, err))
			continue
		}
		sw.last[slot] = regs[slot]
	}

	if errs != nil {
		// Any partial failure introduces doubt: re-assert on next success.
		sw.needFull = true
		return fmt.Errorf("status writer: %w", errs)
	}
	return nil
}

// Close releases the endpoint when the client owns a connection.
func (sw *StatusWriter) Close() error {
	if c, ok := sw.cli.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (sw *StatusWriter) baseAddr() uint16 {
	// Each vehicle owns a fixed SlotsPerDevice block.
	return sw.plan.BaseSlot * status.SlotsPerDevice
}

func (sw *StatusWriter) fullBlockRegs(live []uint16) []uint16 {
	regs := make([]uint16, status.SlotsPerDevice)
	copy(regs, live)

	// Device name always lives at the end of the block
	for i := 0; i < status.SlotDeviceNameSlots && i < len(sw.nameRegs); i++ {
		regs[status.SlotDeviceNameStart+i] = sw.nameRegs[i]
	}
	return regs
}
