// internal/command/discrete.go
package command

import (
	"strconv"

	"github.com/tamzrod/openracer/internal/motor"
)

// Help is the text sent for '?'.
const Help = "steering: RrslL\ngas: FfhbB\n"

var (
	steerKeys = map[byte]int{'R': 255, 'r': 127, 's': 0, 'l': -127, 'L': -255}
	driveKeys = map[byte]int{'F': 255, 'f': 127, 'h': 0, 'b': -127, 'B': -255}
)

// Discrete maps ASCII keys to fixed velocities.
type Discrete struct {
	deps Deps
	step int
}

func (d *Discrete) Dispatch(b byte) {
	if v, ok := steerKeys[b]; ok {
		d.deps.Motors.SetSteer(v)
		return
	}
	if v, ok := driveKeys[b]; ok {
		d.deps.Motors.SetDrive(v)
		return
	}

	switch b {
	case 'p':
		d.deps.Motors.SetDrive(d.deps.Motors.Drive() + d.step)
	case 'u':
		d.deps.Motors.SetDrive(d.deps.Motors.Drive() - d.step)

	case ' ':
		d.deps.Motors.SetDrive(0)
		d.deps.Motors.SetSteer(0)

	case 'A':
		d.deps.Age.ShowAge()
		d.deps.Age.BumpAge()
		d.deps.Age.ShowAge()

	case '?':
		motor.Report(d.deps.Reporter, d.deps.Log, []byte(Help))
		line := strconv.AppendUint([]byte("batt="), uint64(d.deps.ADC.ReadADC()), 10)
		motor.Report(d.deps.Reporter, d.deps.Log, append(line, '\n'))

	default:
		d.deps.Log.Debug().Uint8("byte", b).Msg("unknown command")
		motor.Report(d.deps.Reporter, d.deps.Log, []byte("?\n"))
	}
}
