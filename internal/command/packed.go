// internal/command/packed.go
package command

import "github.com/rs/zerolog"

// Packed direction codes, high nibble of the command byte.
const (
	DirStop uint8 = iota
	DirForward
	DirReverse
	DirStopLeft
	DirStopRight
	DirForwardLeft
	DirForwardRight
	DirReverseLeft
	DirReverseRight
)

// DefaultBaseSpeed is the speed for offset 0.
const DefaultBaseSpeed = 105

// Packed decodes direction in the high nibble and a speed offset in the low nibble.
type Packed struct {
	motors Motors
	base   int
	log    zerolog.Logger
}

// Decode returns the (steer, drive) pair for b. ok is false for undefined
// direction codes.
func Decode(b byte, base int) (steer, drive int, ok bool) {
	speed := base + int(b&0x0F)

	switch b >> 4 {
	case DirStop:
		return 0, 0, true
	case DirForward:
		return 0, speed, true
	case DirReverse:
		return 0, -speed, true
	case DirStopLeft:
		return -255, 0, true
	case DirStopRight:
		return 255, 0, true
	case DirForwardLeft:
		return -255, speed, true
	case DirForwardRight:
		return 255, speed, true
	case DirReverseLeft:
		return -255, -speed, true
	case DirReverseRight:
		return 255, -speed, true
	default:
		return 0, 0, false
	}
}

// Dispatch applies steer before drive. Undefined codes change nothing.
func (p *Packed) Dispatch(b byte) {
	steer, drive, ok := Decode(b, p.base)
	if !ok {
		p.log.Debug().Uint8("byte", b).Msg("packed direction ignored")
		return
	}
	p.motors.SetSteer(steer)
	p.motors.SetDrive(drive)
}
