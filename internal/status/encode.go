// internal/status/encode.go
package status

// Encode converts a Snapshot into a full vehicle status block.
// Layout is protocol-locked. Reserved and device name slots are left zero.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerDevice)

	regs[SlotHealthCode] = s.Health
	regs[SlotSteer] = uint16(s.Steer)
	regs[SlotDrive] = uint16(s.Drive)
	regs[SlotBattery] = uint16(s.Battery)
	regs[SlotFlags] = s.Flags
	regs[SlotIterationHi] = uint16(s.Iteration >> 16)
	regs[SlotIterationLo] = uint16(s.Iteration)
	regs[SlotResetCause] = uint16(s.ResetCause)

	return regs
}

// EncodeDeviceName packs up to 16 ASCII characters into 8 registers.
// Each register stores two ASCII bytes in big-endian order.
func EncodeDeviceName(name string) []uint16 {
	out := make([]uint16, SlotDeviceNameSlots)

	b := []byte(name)
	if len(b) > DeviceNameMaxChars {
		b = b[:DeviceNameMaxChars]
	}

	// sanitize to printable ASCII
	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < DeviceNameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}
