package hal

import "strings"

// ResetCause is a snapshot of which reset sources fired before boot.
// Bit order follows the classic MCU status register: POR, EXT, BOR, WDR.
type ResetCause uint8

const (
	ResetPowerOn  ResetCause = 1 << 0
	ResetExternal ResetCause = 1 << 1
	ResetBrownOut ResetCause = 1 << 2
	ResetWatchdog ResetCause = 1 << 3
)

// Has reports whether every bit of flag is set.
func (r ResetCause) Has(flag ResetCause) bool {
	return r&flag == flag
}

func (r ResetCause) String() string {
	if r == 0 {
		return "none"
	}
	var parts []string
	if r.Has(ResetPowerOn) {
		parts = append(parts, "power-on")
	}
	if r.Has(ResetExternal) {
		parts = append(parts, "external")
	}
	if r.Has(ResetBrownOut) {
		parts = append(parts, "brown-out")
	}
	if r.Has(ResetWatchdog) {
		parts = append(parts, "watchdog")
	}
	return strings.Join(parts, ",")
}
