// internal/supervisor/state.go
package supervisor

import (
	"github.com/tamzrod/openracer/internal/battery"
	"github.com/tamzrod/openracer/internal/motor"
	"github.com/tamzrod/openracer/internal/status"
	"github.com/tamzrod/openracer/internal/toggle"
)

// State is everything the loop mutates. Owned by the loop goroutine only.
type State struct {
	Motors  *motor.Controller
	Battery *battery.Monitor
	Display *toggle.Timer
	Warning *toggle.Timer

	Iteration   uint32
	LinkPresent bool
	BatteryLow  bool
}

// Snapshot copies the reportable part of the state.
func (st *State) Snapshot() status.Snapshot {
	var flags uint16
	if st.LinkPresent {
		flags |= status.FlagLinkPresent
	}
	if st.Display.State() {
		flags |= status.FlagDisplay
	}
	if st.Warning.State() {
		flags |= status.FlagWarning
	}
	if st.BatteryLow {
		flags |= status.FlagBatteryLow
	}

	health := status.HealthFor(st.LinkPresent, st.BatteryLow)
	if st.Iteration == 0 {
		health = status.HealthUnknown
	}

	return status.Snapshot{
		Health:    health,
		Steer:     int16(st.Motors.Steer()),
		Drive:     int16(st.Motors.Drive()),
		Battery:   st.Battery.Level(),
		Flags:     flags,
		Iteration: st.Iteration,
	}
}
