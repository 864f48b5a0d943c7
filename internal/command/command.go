// internal/command/command.go
//
// Package command decodes single input bytes into motor actions.
package command

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/hal"
	"github.com/tamzrod/openracer/internal/motor"
)

// Protocol names accepted by New.
const (
	ProtocolDiscrete = "discrete"
	ProtocolPacked   = "packed"
)

// Decoder handles exactly one byte per call and never blocks.
type Decoder interface {
	Dispatch(b byte)
}

// Motors is the part of the motor controller the decoders drive.
type Motors interface {
	SetDrive(v int)
	SetSteer(v int)
	Drive() int
}

// AgeDisplay is the diagnostic age display behind the 'A' command.
type AgeDisplay interface {
	ShowAge()
	BumpAge()
}

// Deps are the collaborators a decoder may need.
type Deps struct {
	Motors   Motors
	Reporter motor.Reporter
	ADC      hal.ADC
	Age      AgeDisplay
	Log      zerolog.Logger
}

// DefaultStep is the discrete increment for 'p' and 'u'.
const DefaultStep = 5

// Options tune the command set. A nil BaseSpeed or a zero Step takes the default.
type Options struct {
	// BaseSpeed is the packed protocol speed for offset 0. 0 is a valid base.
	BaseSpeed *int
	// Step is the discrete protocol increment for 'p' and 'u'.
	Step int
}

// New picks the decoder for protocol.
func New(protocol string, deps Deps, opts Options) (Decoder, error) {
	if deps.Motors == nil {
		return nil, errors.New("command: motors required")
	}
	base := DefaultBaseSpeed
	if opts.BaseSpeed != nil {
		base = *opts.BaseSpeed
	}
	if opts.Step == 0 {
		opts.Step = DefaultStep
	}

	switch protocol {
	case ProtocolDiscrete:
		if deps.Reporter == nil {
			return nil, errors.New("command: reporter required")
		}
		if deps.ADC == nil {
			return nil, errors.New("command: adc required")
		}
		if deps.Age == nil {
			return nil, errors.New("command: age display required")
		}
		return &Discrete{deps: deps, step: opts.Step}, nil

	case ProtocolPacked:
		return &Packed{motors: deps.Motors, base: base, log: deps.Log}, nil

	default:
		return nil, fmt.Errorf("command: unknown protocol %q", protocol)
	}
}
