// internal/diag/diag.go
//
// Package diag runs the boot-time LED displays and the self-test actuation.
// Everything here blocks on the delay primitive; none of it runs inside the
// watchdog-guarded loop except ShowAge and BumpAge.
package diag

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/hal"
)

// Diagnostics drives LEDs 1-4, the motor outputs and the age counter.
type Diagnostics struct {
	leds  hal.LEDDriver
	duty  hal.DutyDriver
	delay hal.Delay
	store hal.Store
	log   zerolog.Logger
}

func New(leds hal.LEDDriver, duty hal.DutyDriver, delay hal.Delay, store hal.Store, log zerolog.Logger) (*Diagnostics, error) {
	if leds == nil {
		return nil, errors.New("diag: led driver required")
	}
	if duty == nil {
		return nil, errors.New("diag: duty driver required")
	}
	if delay == nil {
		return nil, errors.New("diag: delay required")
	}
	if store == nil {
		return nil, errors.New("diag: store required")
	}
	return &Diagnostics{
		leds:  leds,
		duty:  duty,
		delay: delay,
		store: store,
		log:   log,
	}, nil
}

var row = [4]hal.LED{hal.LED1, hal.LED2, hal.LED3, hal.LED4}

func (d *Diagnostics) led(id hal.LED, on bool) {
	if err := d.leds.SetLED(id, on); err != nil {
		d.log.Warn().Err(err).Uint8("led", uint8(id)).Msg("set led failed")
	}
}

func (d *Diagnostics) set(ch hal.Channel, v uint8) {
	if err := d.duty.SetDuty(ch, v); err != nil {
		d.log.Warn().Err(err).Stringer("channel", ch).Msg("set duty failed")
	}
}

// showNibble puts the low four bits of v on LED1..LED4 (bit 0 on LED1).
func (d *Diagnostics) showNibble(v uint8) {
	for i, id := range row {
		d.led(id, v&(1<<i) != 0)
	}
}

func (d *Diagnostics) clearRow() {
	d.showNibble(0)
}

// ---- RESET CAUSE ----

// FlashResetCause first marks LED1 with five quick flashes, then shows the
// reset cause repeat times: power-on on LED1, external on LED2, brown-out on
// LED3, watchdog on LED4.
func (d *Diagnostics) FlashResetCause(cause hal.ResetCause, repeat int) {
	d.log.Info().Stringer("cause", cause).Msg("reset cause")

	for i := 0; i < 5; i++ {
		d.led(hal.LED1, true)
		d.delay.Sleep(20 * time.Millisecond)
		d.led(hal.LED1, false)
		d.delay.Sleep(20 * time.Millisecond)
	}

	for i := 0; i < repeat; i++ {
		d.led(hal.LED1, cause.Has(hal.ResetPowerOn))
		d.led(hal.LED2, cause.Has(hal.ResetExternal))
		d.led(hal.LED3, cause.Has(hal.ResetBrownOut))
		d.led(hal.LED4, cause.Has(hal.ResetWatchdog))
		d.delay.Sleep(40 * time.Millisecond)

		d.clearRow()
		d.delay.Sleep(40 * time.Millisecond)
	}

	d.delay.Sleep(500 * time.Millisecond)
}

// FlashLED1 blinks LED1 count times. rate 0 is slow, 1 medium, 2 fast.
func (d *Diagnostics) FlashLED1(count, rate int) {
	d.led(hal.LED1, false)
	d.delay.Sleep(100 * time.Millisecond)

	half := 100 * time.Millisecond
	switch rate {
	case 1:
		half = 50 * time.Millisecond
	case 2:
		half = 20 * time.Millisecond
	}

	for i := 0; i < count; i++ {
		d.led(hal.LED1, true)
		d.delay.Sleep(half)
		d.led(hal.LED1, false)
		d.delay.Sleep(half)
	}
}

// ---- AGE COUNTER ----

// Age reads the persisted counter and reports whether the magic marker is intact.
func (d *Diagnostics) Age() (age uint8, magicOK bool, err error) {
	m, err := d.store.Load(hal.SlotMagic)
	if err != nil {
		return 0, false, err
	}
	age, err = d.store.Load(hal.SlotAge)
	if err != nil {
		return 0, false, err
	}
	return age, m == hal.Magic, nil
}

// ShowAge shows the age counter's low nibble on LED1..LED4 for one second.
// A bad magic marker is signalled first with a burst of fast LED1 flashes.
func (d *Diagnostics) ShowAge() {
	d.FlashLED1(4, 1)
	d.delay.Sleep(200 * time.Millisecond)

	age, ok, err := d.Age()
	if err != nil {
		d.log.Error().Err(err).Msg("read age failed")
	}
	if !ok {
		d.FlashLED1(20, 2)
	}

	d.clearRow()
	d.showNibble(age)
	d.delay.Sleep(time.Second)

	d.clearRow()
	d.delay.Sleep(500 * time.Millisecond)
}

// BumpAge increments the persisted counter, wrapping at 256.
func (d *Diagnostics) BumpAge() {
	a, err := d.store.Load(hal.SlotAge)
	if err != nil {
		d.log.Error().Err(err).Msg("read age failed")
		return
	}
	if err := d.store.Save(hal.SlotAge, a+1); err != nil {
		d.log.Error().Err(err).Msg("write age failed")
		return
	}
	d.log.Info().Uint8("age", a+1).Msg("age bumped")
}

// NameFailed signals a failed link naming handshake.
func (d *Diagnostics) NameFailed() {
	d.FlashLED1(2, 0)
}

// ---- SELF TEST ----

// PulseSteering swings right then left repeat times, tracking the
// direction on LED1..LED3.
func (d *Diagnostics) PulseSteering(speed uint8, repeat int) {
	d.set(hal.SteerRight, 0)
	d.set(hal.SteerLeft, 0)

	frame := func(ch hal.Channel, v uint8, lit hal.LED) {
		d.set(ch, v)
		d.led(hal.LED1, lit == hal.LED1)
		d.led(hal.LED2, lit == hal.LED2)
		d.led(hal.LED3, lit == hal.LED3)
		d.delay.Sleep(100 * time.Millisecond)
	}

	for i := 0; i < repeat; i++ {
		frame(hal.SteerRight, speed, hal.LED1)
		frame(hal.SteerRight, 0, hal.LED2)
		frame(hal.SteerLeft, speed, hal.LED3)
		frame(hal.SteerLeft, 0, hal.LED2)
	}

	d.led(hal.LED1, false)
	d.led(hal.LED2, false)
	d.led(hal.LED3, false)
	d.delay.Sleep(200 * time.Millisecond)
}

// PulseDrive kicks the drive motor reverse then forward repeat times.
func (d *Diagnostics) PulseDrive(speed uint8, repeat int) {
	d.set(hal.DriveReverse, 0)
	d.set(hal.DriveForward, 0)

	for i := 0; i < repeat; i++ {
		d.set(hal.DriveReverse, speed)
		d.delay.Sleep(100 * time.Millisecond)
		d.set(hal.DriveReverse, 0)
		d.delay.Sleep(100 * time.Millisecond)
		d.set(hal.DriveForward, speed)
		d.delay.Sleep(100 * time.Millisecond)
		d.set(hal.DriveForward, 0)
		d.delay.Sleep(100 * time.Millisecond)
	}
}

// SweepDrive ramps the drive motor up and down in reverse, then forward.
func (d *Diagnostics) SweepDrive() {
	for _, ch := range []hal.Channel{hal.DriveReverse, hal.DriveForward} {
		for v := 1; v < 255; v++ {
			d.set(ch, uint8(v))
			d.delay.Sleep(5 * time.Millisecond)
		}
		for v := 254; v > 0; v-- {
			d.set(ch, uint8(v))
			d.delay.Sleep(5 * time.Millisecond)
		}
		d.set(ch, 0)
	}
}
