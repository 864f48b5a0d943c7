// internal/supervisor/supervisor_test.go
package supervisor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/config"
	"github.com/tamzrod/openracer/internal/hal"
	"github.com/tamzrod/openracer/internal/hal/fake"
	"github.com/tamzrod/openracer/internal/link"
	"github.com/tamzrod/openracer/internal/status"
	"github.com/tamzrod/openracer/internal/telemetry"
)

type rig struct {
	board *fake.Board
	store *fake.Store
	delay *fake.Delay
	wdt   *fake.Watchdog
	link  *link.Buffer
	sup   *Supervisor
}

func racerConfig(mutate func(*config.RacerConfig)) config.RacerConfig {
	cfg := &config.Config{
		Racer: config.RacerConfig{
			Protocol: "discrete",
			Link:     config.LinkConfig{Kind: "stdio"},
			HAL:      config.HALConfig{Backend: "sim"},
		},
	}
	if mutate != nil {
		mutate(&cfg.Racer)
	}
	config.Normalize(cfg)
	return cfg.Racer
}

func newRig(t *testing.T, cfg config.RacerConfig, pub *telemetry.Publisher) *rig {
	t.Helper()
	r := &rig{
		board: fake.NewBoard(),
		store: fake.NewStore(),
		delay: &fake.Delay{},
		link:  link.NewBuffer(),
	}
	r.wdt = &fake.Watchdog{Board: r.board}

	sup, err := Build(cfg, Hardware{
		Board:    r.board,
		Store:    r.store,
		Delay:    r.delay,
		Watchdog: r.wdt,
		Cause:    hal.ResetWatchdog,
	}, r.link, pub, zerolog.Nop())
	if err != nil {
		t.Fatalf("Build err=%v", err)
	}
	r.sup = sup
	return r
}

func intp(v int) *int { return &v }

// ---- iteration order ----

func TestIterate_Order(t *testing.T) {
	r := newRig(t, racerConfig(func(c *config.RacerConfig) {
		c.Toggles.DisplayStart = intp(0)
	}), nil)
	r.link.FeedString("F")

	r.sup.Iterate()

	// collapse to the first occurrence of each step
	var steps []string
	seen := map[string]bool{}
	for _, ev := range r.board.Trace {
		key := ev
		if strings.HasPrefix(ev, "duty:drive") {
			key = "command"
		} else if strings.HasPrefix(ev, "duty:breathe") {
			key = "breathe"
		} else if strings.HasPrefix(ev, "duty:") {
			continue
		}
		if !seen[key] {
			seen[key] = true
			steps = append(steps, key)
		}
	}

	want := []string{"kick", "link", "command", "adc", "breathe"}
	if diff := cmp.Diff(want, steps); diff != "" {
		t.Fatalf("iteration order (-want +got):\n%s", diff)
	}
	if got := r.delay.Calls[len(r.delay.Calls)-1]; got != 4*time.Millisecond {
		t.Fatalf("trailing sleep: got=%v want=4ms", got)
	}
}

func TestIterate_KicksEveryIteration(t *testing.T) {
	r := newRig(t, racerConfig(nil), nil)

	for i := 0; i < 50; i++ {
		r.sup.Iterate()
	}
	if r.wdt.Kicks != 50 {
		t.Fatalf("kicks: got=%d want=50", r.wdt.Kicks)
	}
	if r.sup.State().Iteration != 50 {
		t.Fatalf("iteration: got=%d want=50", r.sup.State().Iteration)
	}
}

func TestIterate_OneByteEachIteration(t *testing.T) {
	r := newRig(t, racerConfig(nil), nil)
	r.link.FeedString("Fsb")

	r.sup.Iterate()
	if r.sup.State().Motors.Drive() != 255 {
		t.Fatalf("after 1: drive=%d want=255", r.sup.State().Motors.Drive())
	}
	r.sup.Iterate()
	r.sup.Iterate()

	st := r.sup.State()
	if st.Motors.Drive() != -127 || st.Motors.Steer() != 0 {
		t.Fatalf("final drive=%d steer=%d want=-127,0", st.Motors.Drive(), st.Motors.Steer())
	}
	want := []string{"drive=255\n", "steer=0\n", "drive=-127\n"}
	if diff := cmp.Diff(want, r.link.Sent()); diff != "" {
		t.Fatalf("status lines (-want +got):\n%s", diff)
	}
	if r.board.LED(hal.LED4) {
		t.Fatalf("LED4 left on after receive")
	}
}

// ---- link loss ----

func TestIterate_LinkLossForcesStopEveryIteration(t *testing.T) {
	r := newRig(t, racerConfig(nil), nil)
	r.link.FeedString("F")
	r.sup.Iterate()

	r.board.SetLink(false)
	for i := 0; i < 5; i++ {
		r.link.FeedString("F")
		r.sup.Iterate()

		st := r.sup.State()
		if st.Motors.Drive() != 0 || st.Motors.Steer() != 0 {
			t.Fatalf("iteration %d: drive=%d steer=%d want=0,0", i, st.Motors.Drive(), st.Motors.Steer())
		}
		if r.board.Duty(hal.DriveForward) != 0 {
			t.Fatalf("iteration %d: forward duty=%d", i, r.board.Duty(hal.DriveForward))
		}
	}

	r.board.SetLink(true)
	r.link.FeedString("F")
	r.sup.Iterate()
	if r.sup.State().Motors.Drive() != 255 {
		t.Fatalf("after link back: drive=%d want=255", r.sup.State().Motors.Drive())
	}
}

// ---- battery ----

func TestIterate_BatteryOverridesCommandSameIteration(t *testing.T) {
	r := newRig(t, racerConfig(func(c *config.RacerConfig) {
		c.Toggles.DisplayStart = intp(0)
		c.Toggles.WarningStart = intp(0)
	}), nil)
	r.board.SetADC(142) // level 0
	r.link.FeedString("F")

	r.sup.Iterate()

	st := r.sup.State()
	if st.Motors.Drive() != 0 || st.Motors.Steer() != 0 {
		t.Fatalf("drive=%d steer=%d want=0,0", st.Motors.Drive(), st.Motors.Steer())
	}
	if !st.BatteryLow {
		t.Fatalf("BatteryLow=false want=true")
	}

	check := "batt long check:" + strings.Repeat(" batt=0", 20) + " done.\n"
	want := []string{"drive=255\n", "batt=0\n", check, "drive=0\n", "steer=0\n"}
	if diff := cmp.Diff(want, r.link.Sent()); diff != "" {
		t.Fatalf("status lines (-want +got):\n%s", diff)
	}

	// warning toggle started at 0: flipped on in the first iteration
	if !r.board.LED(hal.LED3) {
		t.Fatalf("warning LED off")
	}
	if r.board.Duty(hal.Breathe) != 0xFF {
		t.Fatalf("breathe duty: got=%d want=255", r.board.Duty(hal.Breathe))
	}
}

func TestIterate_BatteryStopDoesNotLatch(t *testing.T) {
	r := newRig(t, racerConfig(func(c *config.RacerConfig) {
		c.Toggles.DisplayStart = intp(0)
		c.Toggles.WarningStart = intp(0)
	}), nil)

	r.board.SetADC(142) // level 0
	r.link.FeedString("F")
	r.sup.Iterate()
	if !r.sup.State().BatteryLow || !r.board.LED(hal.LED3) {
		t.Fatalf("low iteration: low=%v led3=%v want=true,true", r.sup.State().BatteryLow, r.board.LED(hal.LED3))
	}

	r.board.SetADC(160) // level 90
	r.link.FeedString("F")
	r.sup.Iterate()

	st := r.sup.State()
	if st.Motors.Drive() != 255 {
		t.Fatalf("drive after recovery: got=%d want=255", st.Motors.Drive())
	}
	if r.board.Duty(hal.DriveForward) != 255 {
		t.Fatalf("forward duty after recovery: got=%d want=255", r.board.Duty(hal.DriveForward))
	}
	if st.BatteryLow {
		t.Fatalf("BatteryLow=true after recovery")
	}
	if r.board.LED(hal.LED3) {
		t.Fatalf("warning LED still on after recovery")
	}
}

func TestIterate_WarningToggleFirstFlipsOnIteration256(t *testing.T) {
	r := newRig(t, racerConfig(nil), nil)

	for i := 1; i <= 255; i++ {
		r.sup.Iterate()
		if r.sup.State().Warning.State() {
			t.Fatalf("warning toggle flipped on iteration %d", i)
		}
	}
	r.sup.Iterate()
	if !r.sup.State().Warning.State() {
		t.Fatalf("warning toggle not flipped on iteration 256")
	}
}

func TestIterate_SingleLowReadingDoesNotStop(t *testing.T) {
	r := newRig(t, racerConfig(func(c *config.RacerConfig) {
		c.Toggles.DisplayStart = intp(0)
	}), nil)
	// one sag, then a healthy supply for the debounce window
	r.board.ScriptADC(142, 160)
	r.link.FeedString("F")

	r.sup.Iterate()

	st := r.sup.State()
	if st.Motors.Drive() != 255 || st.BatteryLow {
		t.Fatalf("drive=%d low=%v want=255,false", st.Motors.Drive(), st.BatteryLow)
	}
	if r.board.LED(hal.LED3) {
		t.Fatalf("warning LED on without persistent low")
	}
}

func TestIterate_BreatheFollowsDisplayToggle(t *testing.T) {
	r := newRig(t, racerConfig(func(c *config.RacerConfig) {
		c.Toggles.DisplayPeriod = 2
		c.Toggles.DisplayStart = intp(0)
	}), nil)
	r.board.SetADC(160) // level 90

	r.sup.Iterate() // display on
	if r.board.Duty(hal.Breathe) != 0xFF-90 {
		t.Fatalf("breathe on: got=%d want=%d", r.board.Duty(hal.Breathe), 0xFF-90)
	}
	r.sup.Iterate() // still on
	r.sup.Iterate() // off
	if r.board.Duty(hal.Breathe) != 0 {
		t.Fatalf("breathe off: got=%d want=0", r.board.Duty(hal.Breathe))
	}
	if r.board.ADCReads() != 2 {
		t.Fatalf("adc reads: got=%d want=2", r.board.ADCReads())
	}
}

// ---- boot ----

func TestBoot_ArmsWatchdogAfterDiagnostics(t *testing.T) {
	r := newRig(t, racerConfig(nil), nil)

	var armedDuringDiag bool
	r.delay.OnSleep = func(time.Duration) {
		if r.wdt.Armed {
			armedDuringDiag = true
		}
	}

	if err := r.sup.Boot(context.Background()); err != nil {
		t.Fatalf("Boot err=%v", err)
	}
	if !r.wdt.Armed || r.wdt.Timeout != 8*time.Second {
		t.Fatalf("watchdog armed=%v timeout=%v", r.wdt.Armed, r.wdt.Timeout)
	}
	if armedDuringDiag {
		t.Fatalf("watchdog armed before boot diagnostics finished")
	}

	// self-test pulses leave both motors idle
	for _, ch := range []hal.Channel{hal.SteerRight, hal.SteerLeft, hal.DriveForward, hal.DriveReverse} {
		if r.board.Duty(ch) != 0 {
			t.Fatalf("%s left at %d", ch, r.board.Duty(ch))
		}
	}
	var peak uint8
	for _, w := range r.board.DutyLog {
		if w.Value > peak {
			peak = w.Value
		}
	}
	if peak != 0x60 {
		t.Fatalf("self-test peak: got=%d want=%d", peak, 0x60)
	}
}

func TestBoot_NameHandshake(t *testing.T) {
	cfg := racerConfig(func(c *config.RacerConfig) {
		c.Link.Name = "OpenRacer"
		c.Link.NameOnBoot = true
	})

	ok := newRig(t, cfg, nil)
	ok.link.FeedString("OKsetname")
	if err := ok.sup.Boot(context.Background()); err != nil {
		t.Fatalf("Boot err=%v", err)
	}
	if ok.link.Sent()[0] != "AT+NAMEOpenRacer" {
		t.Fatalf("handshake: got=%q", ok.link.Sent()[0])
	}

	bad := newRig(t, cfg, nil)
	bad.link.FeedString("ERR")
	if err := bad.sup.Boot(context.Background()); err != nil {
		t.Fatalf("Boot err=%v", err)
	}

	// the failure flash adds a lead-in plus two slow flashes
	if got, want := len(bad.delay.Calls)-len(ok.delay.Calls), 1+2*2; got != want {
		t.Fatalf("extra sleeps on failure: got=%d want=%d", got, want)
	}
}

func TestBoot_CancelledContextSkipsArm(t *testing.T) {
	r := newRig(t, racerConfig(nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.sup.Boot(ctx); err == nil {
		t.Fatalf("expected context error")
	}
	if r.wdt.Armed {
		t.Fatalf("watchdog armed after cancel")
	}
}

// ---- run ----

func TestRun_StopsAndDisarms(t *testing.T) {
	r := newRig(t, racerConfig(nil), nil)
	if err := r.sup.Boot(context.Background()); err != nil {
		t.Fatalf("Boot err=%v", err)
	}
	r.link.FeedString("F")

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	r.delay.OnSleep = func(d time.Duration) {
		if r.sup.State().Iteration >= 10 {
			once.Do(cancel)
		}
	}

	r.sup.Run(ctx)

	st := r.sup.State()
	if st.Iteration != 10 {
		t.Fatalf("iterations: got=%d want=10", st.Iteration)
	}
	if st.Motors.Drive() != 0 || st.Motors.Steer() != 0 {
		t.Fatalf("after Run drive=%d steer=%d", st.Motors.Drive(), st.Motors.Steer())
	}
	if r.wdt.Armed {
		t.Fatalf("watchdog still armed after Run")
	}
}

// ---- telemetry ----

type sinkFunc func(status.Snapshot) error

func (f sinkFunc) WriteStatus(s status.Snapshot) error { return f(s) }

func TestIterate_PublishesEveryN(t *testing.T) {
	var mu sync.Mutex
	var got []status.Snapshot
	pub := telemetry.NewPublisher(zerolog.Nop(), sinkFunc(func(s status.Snapshot) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
		return nil
	}))

	r := newRig(t, racerConfig(func(c *config.RacerConfig) {
		c.Telemetry.Every = 5
	}), pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Run(ctx)

	r.link.FeedString("R")
	for i := 0; i < 5; i++ {
		r.sup.Iterate()
	}

	deadline := time.Now().Add(2 * time.Second)
	for pub.Delivered() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("snapshots: got=%d want=1", len(got))
	}
	s := got[0]
	if s.Iteration != 5 || s.Steer != 255 || s.Health != status.HealthOK {
		t.Fatalf("snapshot=%+v", s)
	}
	if !s.Has(status.FlagLinkPresent) || s.ResetCause != uint8(hal.ResetWatchdog) {
		t.Fatalf("flags=0x%X cause=%d", s.Flags, s.ResetCause)
	}
}
