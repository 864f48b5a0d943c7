// internal/hal/periph/board.go
//
// Package periph drives the motor bridge, LEDs and link-presence input
// through periph.io GPIO pins.
package periph

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/tamzrod/openracer/internal/hal"
)

// Pins names every GPIO the board uses, as understood by gpioreg.ByName.
type Pins struct {
	Duty [hal.NumChannels]string
	LEDs [hal.NumLEDs]string
	Link string
}

// Config is the minimal runtime config the board needs.
type Config struct {
	Pins         Pins
	PWMFrequency physic.Frequency

	// ADC is read-through; periph has no generic analog pin registry.
	ADC hal.ADC
}

// Board implements hal.Board on periph.io pins.
type Board struct {
	duty [hal.NumChannels]gpio.PinIO
	leds [hal.NumLEDs]gpio.PinIO
	link gpio.PinIO
	freq physic.Frequency
	adc  hal.ADC
}

// Open initialises the host drivers and resolves every pin.
// All duty outputs are driven low and all LEDs off before returning.
func Open(cfg Config) (*Board, error) {
	if cfg.ADC == nil {
		return nil, errors.New("periph board: adc required")
	}
	if cfg.PWMFrequency <= 0 {
		return nil, errors.New("periph board: pwm frequency must be > 0")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph board: host init: %w", err)
	}

	b := &Board{freq: cfg.PWMFrequency, adc: cfg.ADC}

	for i, name := range cfg.Pins.Duty {
		p, err := lookup(name)
		if err != nil {
			return nil, fmt.Errorf("periph board: %s: %w", hal.Channel(i), err)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("periph board: %s: %w", hal.Channel(i), err)
		}
		b.duty[i] = p
	}

	for i, name := range cfg.Pins.LEDs {
		p, err := lookup(name)
		if err != nil {
			return nil, fmt.Errorf("periph board: led%d: %w", i+1, err)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, fmt.Errorf("periph board: led%d: %w", i+1, err)
		}
		b.leds[i] = p
	}

	link, err := lookup(cfg.Pins.Link)
	if err != nil {
		return nil, fmt.Errorf("periph board: link: %w", err)
	}
	// The module's status line idles high through the pull-up.
	if err := link.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("periph board: link: %w", err)
	}
	b.link = link

	return b, nil
}

func lookup(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, errors.New("pin name required")
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no pin named %q", name)
	}
	return p, nil
}

// SetDuty maps 0..255 onto the full gpio.Duty range. 0 drives the pin low.
func (b *Board) SetDuty(ch hal.Channel, value uint8) error {
	if int(ch) >= hal.NumChannels {
		return fmt.Errorf("periph board: channel %d out of range", ch)
	}
	p := b.duty[ch]
	if value == 0 {
		return p.Out(gpio.Low)
	}
	return p.PWM(dutyFor(value), b.freq)
}

func dutyFor(value uint8) gpio.Duty {
	return gpio.Duty(uint64(value) * uint64(gpio.DutyMax) / 0xFF)
}

func (b *Board) SetLED(id hal.LED, on bool) error {
	if id < hal.LED1 || id > hal.LED5 {
		return fmt.Errorf("periph board: led %d out of range", id)
	}
	l := gpio.Low
	if on {
		l = gpio.High
	}
	return b.leds[id-1].Out(l)
}

func (b *Board) ReadADC() uint8 {
	return b.adc.ReadADC()
}

func (b *Board) LinkPresent() bool {
	return b.link.Read() == gpio.High
}

// Close drives every output low.
func (b *Board) Close() error {
	var last error
	for _, p := range b.duty {
		if p == nil {
			continue
		}
		if err := p.Out(gpio.Low); err != nil {
			last = err
		}
	}
	for _, p := range b.leds {
		if p == nil {
			continue
		}
		if err := p.Out(gpio.Low); err != nil {
			last = err
		}
	}
	return last
}
