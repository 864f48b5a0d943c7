// internal/hal/hal.go
package hal

import "time"

// Channel identifies one duty-cycle output.
type Channel uint8

const (
	SteerRight Channel = iota
	SteerLeft
	DriveForward
	DriveReverse
	Breathe
)

// NumChannels is the number of duty-cycle outputs on the board.
const NumChannels = 5

func (c Channel) String() string {
	switch c {
	case SteerRight:
		return "steer_right"
	case SteerLeft:
		return "steer_left"
	case DriveForward:
		return "drive_forward"
	case DriveReverse:
		return "drive_reverse"
	case Breathe:
		return "breathe"
	default:
		return "unknown"
	}
}

// LED identifies one of the indicator LEDs. LED1..LED4 form the diagnostic row.
type LED uint8

const (
	LED1 LED = iota + 1
	LED2
	LED3
	LED4
	LED5
)

// NumLEDs is the number of indicator LEDs.
const NumLEDs = 5

// ---- OUTPUTS ----

// DutyDriver writes 8-bit duty cycles. 0 is off, 255 is full on.
type DutyDriver interface {
	SetDuty(ch Channel, value uint8) error
}

// LEDDriver switches indicator LEDs.
type LEDDriver interface {
	SetLED(id LED, on bool) error
}

// ---- INPUTS ----

// ADC returns the most recent 8-bit conversion of the battery divider.
// Free-running; never blocks.
type ADC interface {
	ReadADC() uint8
}

// LinkSignal reads the link-presence input.
// Low reliably means no link. High only means "not known absent".
type LinkSignal interface {
	LinkPresent() bool
}

// ---- PERSISTENCE ----

// Non-volatile slots.
const (
	SlotMagic uint8 = 0
	SlotAge   uint8 = 1
)

// Magic is the marker expected in SlotMagic.
const Magic uint8 = 0x47

// Store is a tiny non-volatile byte store.
type Store interface {
	Load(slot uint8) (uint8, error)
	Save(slot uint8, value uint8) error
}

// ---- TIME ----

// Delay is the blocking delay primitive.
type Delay interface {
	Sleep(d time.Duration)
}

// ---- SUPERVISION ----

// Watchdog is the hardware watchdog. Once armed, Kick must be called before
// the timeout elapses or the system restarts.
type Watchdog interface {
	Arm(timeout time.Duration) error
	Kick()
	Disarm() error
}

// Board bundles every collaborator the core talks to.
type Board interface {
	DutyDriver
	LEDDriver
	ADC
	LinkSignal
	Close() error
}
