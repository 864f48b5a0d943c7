// internal/status/snapshot.go
package status

// Snapshot represents exactly what the writers are allowed to deliver.
// It contains no logic and no memory of the past beyond current state.
type Snapshot struct {
	Health     uint16 `json:"health"`
	Steer      int16  `json:"steer"`
	Drive      int16  `json:"drive"`
	Battery    uint8  `json:"battery"`
	Flags      uint16 `json:"flags"`
	Iteration  uint32 `json:"iteration"`
	ResetCause uint8  `json:"reset_cause"`
}

// Has reports whether flag is set.
func (s Snapshot) Has(flag uint16) bool {
	return s.Flags&flag == flag
}

// HealthFor derives the health code. A lost link outranks a low battery.
func HealthFor(linkPresent, batteryLow bool) uint16 {
	switch {
	case !linkPresent:
		return HealthLinkLost
	case batteryLow:
		return HealthBatteryLow
	default:
		return HealthOK
	}
}

// HealthName is the lower-case label for a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthLinkLost:
		return "link-lost"
	case HealthBatteryLow:
		return "battery-low"
	default:
		return "unknown"
	}
}
