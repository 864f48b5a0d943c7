// internal/hal/fake/fake.go
//
// Package fake is an in-memory board. It backs the "sim" HAL backend and
// every package test that needs hardware.
package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/tamzrod/openracer/internal/hal"
)

// DutyWrite is one recorded SetDuty call.
type DutyWrite struct {
	Channel hal.Channel
	Value   uint8
}

// Board records outputs and serves scripted inputs.
type Board struct {
	mu sync.Mutex

	duty [hal.NumChannels]uint8
	leds [hal.NumLEDs + 1]bool

	// DutyLog holds every SetDuty call in order (recording boards only).
	DutyLog []DutyWrite
	// Trace holds a coarse ordered log of hardware interactions.
	Trace []string

	adcScript []uint8
	adcLast   uint8
	adcReads  int

	link   bool
	record bool
}

// NewBoard returns a recording board with the link present and the ADC reading 255.
func NewBoard() *Board {
	return &Board{link: true, adcLast: 255, record: true}
}

// NewSimBoard returns a board that keeps only current state, for long runs.
func NewSimBoard() *Board {
	return &Board{link: true, adcLast: 255}
}

func (b *Board) trace(ev string) {
	if b.record {
		b.Trace = append(b.Trace, ev)
	}
}

func (b *Board) SetDuty(ch hal.Channel, value uint8) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if int(ch) >= hal.NumChannels {
		return fmt.Errorf("fake: channel %d out of range", ch)
	}
	b.duty[ch] = value
	if b.record {
		b.DutyLog = append(b.DutyLog, DutyWrite{Channel: ch, Value: value})
	}
	b.trace(fmt.Sprintf("duty:%s=%d", ch, value))
	return nil
}

// Duty returns the current value of one channel.
func (b *Board) Duty(ch hal.Channel) uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.duty[ch]
}

func (b *Board) SetLED(id hal.LED, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id < hal.LED1 || id > hal.LED5 {
		return fmt.Errorf("fake: led %d out of range", id)
	}
	b.leds[id] = on
	return nil
}

// LED returns the current state of one LED.
func (b *Board) LED(id hal.LED) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leds[id]
}

// ScriptADC queues readings. Once exhausted, the last reading repeats.
func (b *Board) ScriptADC(values ...uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adcScript = append(b.adcScript, values...)
}

// SetADC drops any script and holds a fixed reading.
func (b *Board) SetADC(v uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adcScript = nil
	b.adcLast = v
}

func (b *Board) ReadADC() uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adcReads++
	b.trace("adc")
	if len(b.adcScript) > 0 {
		b.adcLast = b.adcScript[0]
		b.adcScript = b.adcScript[1:]
	}
	return b.adcLast
}

// ADCReads returns how many conversions were consumed.
func (b *Board) ADCReads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adcReads
}

// SetLink drives the link-presence input.
func (b *Board) SetLink(present bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.link = present
}

func (b *Board) LinkPresent() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trace("link")
	return b.link
}

func (b *Board) Close() error { return nil }

// ---- NV STORE ----

// Store is an in-memory non-volatile store.
type Store struct {
	mu    sync.Mutex
	bytes map[uint8]uint8
	// FailWrites makes every Save fail.
	FailWrites bool
}

// NewStore returns a store already holding the magic marker and age 0.
func NewStore() *Store {
	return &Store{bytes: map[uint8]uint8{
		hal.SlotMagic: hal.Magic,
		hal.SlotAge:   0,
	}}
}

func (s *Store) Load(slot uint8) (uint8, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes[slot], nil
}

func (s *Store) Save(slot uint8, value uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return fmt.Errorf("fake store: write slot %d refused", slot)
	}
	s.bytes[slot] = value
	return nil
}

// ---- DELAY ----

// Delay records sleeps without blocking.
type Delay struct {
	mu    sync.Mutex
	Total time.Duration
	Calls []time.Duration
	// OnSleep, when set, runs on every Sleep (e.g. to change inputs mid-sequence).
	OnSleep func(d time.Duration)
}

func (d *Delay) Sleep(dur time.Duration) {
	d.mu.Lock()
	d.Total += dur
	d.Calls = append(d.Calls, dur)
	fn := d.OnSleep
	d.mu.Unlock()
	if fn != nil {
		fn(dur)
	}
}

// ---- WATCHDOG ----

// Watchdog counts kicks.
type Watchdog struct {
	mu      sync.Mutex
	Armed   bool
	Timeout time.Duration
	Kicks   int
	// Board, when set, receives a "kick" trace entry per Kick.
	Board *Board
}

func (w *Watchdog) Arm(timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Armed = true
	w.Timeout = timeout
	return nil
}

func (w *Watchdog) Kick() {
	w.mu.Lock()
	w.Kicks++
	b := w.Board
	w.mu.Unlock()
	if b != nil {
		b.mu.Lock()
		b.trace("kick")
		b.mu.Unlock()
	}
}

func (w *Watchdog) Disarm() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Armed = false
	return nil
}
