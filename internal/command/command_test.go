// internal/command/command_test.go
package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/openracer/internal/hal/fake"
	"github.com/tamzrod/openracer/internal/link"
	"github.com/tamzrod/openracer/internal/motor"
)

// ---- fakes ----

type fakeAge struct {
	calls []string
}

func (f *fakeAge) ShowAge() { f.calls = append(f.calls, "show") }
func (f *fakeAge) BumpAge() { f.calls = append(f.calls, "bump") }

type rig struct {
	ctl   *motor.Controller
	board *fake.Board
	link  *link.Buffer
	age   *fakeAge
	dec   Decoder
}

func newRig(t *testing.T, protocol string) *rig {
	t.Helper()
	r := &rig{
		board: fake.NewBoard(),
		link:  link.NewBuffer(),
		age:   &fakeAge{},
	}
	ctl, err := motor.NewController(r.board, r.link, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewController err=%v", err)
	}
	r.ctl = ctl

	dec, err := New(protocol, Deps{
		Motors:   ctl,
		Reporter: r.link,
		ADC:      r.board,
		Age:      r.age,
		Log:      zerolog.Nop(),
	}, Options{})
	if err != nil {
		t.Fatalf("New(%s) err=%v", protocol, err)
	}
	r.dec = dec
	return r
}

// ---- discrete ----

func TestDiscrete_EndToEnd_FsB(t *testing.T) {
	r := newRig(t, ProtocolDiscrete)

	for _, b := range []byte("Fsb") {
		r.dec.Dispatch(b)
	}

	if r.ctl.Drive() != -127 || r.ctl.Steer() != 0 {
		t.Fatalf("final drive=%d steer=%d want=-127,0", r.ctl.Drive(), r.ctl.Steer())
	}
	want := []string{"drive=255\n", "steer=0\n", "drive=-127\n"}
	if diff := cmp.Diff(want, r.link.Sent()); diff != "" {
		t.Fatalf("status lines (-want +got):\n%s", diff)
	}
}

func TestDiscrete_FixedKeys(t *testing.T) {
	cases := []struct {
		key   byte
		steer int
		drive int
	}{
		{'R', 255, 0},
		{'r', 127, 0},
		{'s', 0, 0},
		{'l', -127, 0},
		{'L', -255, 0},
		{'F', 0, 255},
		{'f', 0, 127},
		{'h', 0, 0},
		{'b', 0, -127},
		{'B', 0, -255},
	}
	for _, c := range cases {
		r := newRig(t, ProtocolDiscrete)
		r.dec.Dispatch(c.key)
		if r.ctl.Steer() != c.steer || r.ctl.Drive() != c.drive {
			t.Fatalf("key %q: steer=%d drive=%d want=%d,%d",
				c.key, r.ctl.Steer(), r.ctl.Drive(), c.steer, c.drive)
		}
	}
}

func TestDiscrete_StepKeysClamp(t *testing.T) {
	r := newRig(t, ProtocolDiscrete)

	r.dec.Dispatch('p')
	if r.ctl.Drive() != 5 {
		t.Fatalf("after p: drive=%d want=5", r.ctl.Drive())
	}
	r.dec.Dispatch('u')
	r.dec.Dispatch('u')
	if r.ctl.Drive() != -5 {
		t.Fatalf("after uu: drive=%d want=-5", r.ctl.Drive())
	}

	r.dec.Dispatch('F')
	r.dec.Dispatch('p')
	if r.ctl.Drive() != 255 {
		t.Fatalf("p at max: drive=%d want=255", r.ctl.Drive())
	}
}

func TestDiscrete_SpaceStopsDriveThenSteer(t *testing.T) {
	r := newRig(t, ProtocolDiscrete)
	r.dec.Dispatch('R')
	r.dec.Dispatch('F')
	r.link.Reset()

	r.dec.Dispatch(' ')

	want := []string{"drive=0\n", "steer=0\n"}
	if diff := cmp.Diff(want, r.link.Sent()); diff != "" {
		t.Fatalf("status lines (-want +got):\n%s", diff)
	}
}

func TestDiscrete_AgeSequence(t *testing.T) {
	r := newRig(t, ProtocolDiscrete)
	r.dec.Dispatch('A')

	want := []string{"show", "bump", "show"}
	if diff := cmp.Diff(want, r.age.calls); diff != "" {
		t.Fatalf("age calls (-want +got):\n%s", diff)
	}
}

func TestDiscrete_HelpReportsRawADC(t *testing.T) {
	r := newRig(t, ProtocolDiscrete)
	r.board.SetADC(171)

	r.dec.Dispatch('?')

	want := []string{Help, "batt=171\n"}
	if diff := cmp.Diff(want, r.link.Sent()); diff != "" {
		t.Fatalf("help output (-want +got):\n%s", diff)
	}
}

func TestDiscrete_UnknownByte(t *testing.T) {
	r := newRig(t, ProtocolDiscrete)
	r.dec.Dispatch('F')
	r.link.Reset()

	for _, b := range []byte{'x', 'a', 'o', 'e', 0x00, 0xFF} {
		r.dec.Dispatch(b)
	}

	if r.ctl.Drive() != 255 || r.ctl.Steer() != 0 {
		t.Fatalf("unknown bytes changed state: drive=%d steer=%d", r.ctl.Drive(), r.ctl.Steer())
	}
	for i, line := range r.link.Sent() {
		if line != "?\n" {
			t.Fatalf("line %d: got=%q want=%q", i, line, "?\n")
		}
	}
	if n := len(r.link.Sent()); n != 6 {
		t.Fatalf("lines: got=%d want=6", n)
	}
}

// ---- packed ----

func TestPacked_FullGrid(t *testing.T) {
	type pair struct{ steer, drive int }

	for dir := 0; dir < 16; dir++ {
		for off := 0; off < 16; off++ {
			r := newRig(t, ProtocolPacked)
			// a known starting point so ignored codes are visible
			r.ctl.SetSteer(7)
			r.ctl.SetDrive(-7)

			b := byte(dir<<4 | off)
			r.dec.Dispatch(b)

			speed := 105 + off
			var want pair
			switch dir {
			case 0:
				want = pair{0, 0}
			case 1:
				want = pair{0, speed}
			case 2:
				want = pair{0, -speed}
			case 3:
				want = pair{-255, 0}
			case 4:
				want = pair{255, 0}
			case 5:
				want = pair{-255, speed}
			case 6:
				want = pair{255, speed}
			case 7:
				want = pair{-255, -speed}
			case 8:
				want = pair{255, -speed}
			default:
				want = pair{7, -7}
			}

			got := pair{r.ctl.Steer(), r.ctl.Drive()}
			if got != want {
				t.Fatalf("byte 0x%02X: got=%+v want=%+v", b, got, want)
			}
		}
	}
}

func TestPacked_ZeroBaseSpeedIsHonoured(t *testing.T) {
	b := fake.NewBoard()
	l := link.NewBuffer()
	ctl, _ := motor.NewController(b, l, zerolog.Nop())
	zero := 0

	dec, err := New(ProtocolPacked, Deps{Motors: ctl}, Options{BaseSpeed: &zero})
	if err != nil {
		t.Fatalf("New err=%v", err)
	}
	dec.Dispatch(DirForward<<4 | 0x03)

	if ctl.Drive() != 3 {
		t.Fatalf("drive: got=%d want=3", ctl.Drive())
	}
}

func TestPacked_SteerBeforeDrive(t *testing.T) {
	r := newRig(t, ProtocolPacked)

	r.dec.Dispatch(0x6F)

	want := []string{"steer=255\n", "drive=120\n"}
	if diff := cmp.Diff(want, r.link.Sent()); diff != "" {
		t.Fatalf("status lines (-want +got):\n%s", diff)
	}
}

func TestPacked_IgnoredCodesEmitNothing(t *testing.T) {
	r := newRig(t, ProtocolPacked)

	r.dec.Dispatch(0x90)
	r.dec.Dispatch(0xFF)

	if n := len(r.link.Sent()); n != 0 {
		t.Fatalf("lines: got=%d want=0", n)
	}
}

func TestDecode_CustomBase(t *testing.T) {
	steer, drive, ok := Decode(0x13, 50)
	if !ok || steer != 0 || drive != 53 {
		t.Fatalf("Decode: got=%d,%d,%v want=0,53,true", steer, drive, ok)
	}
}

// ---- construction ----

func TestNew_Rejects(t *testing.T) {
	b := fake.NewBoard()
	l := link.NewBuffer()
	ctl, _ := motor.NewController(b, l, zerolog.Nop())

	if _, err := New("morse", Deps{Motors: ctl}, Options{}); err == nil {
		t.Fatalf("expected error for unknown protocol")
	}
	if _, err := New(ProtocolPacked, Deps{}, Options{}); err == nil {
		t.Fatalf("expected error for nil motors")
	}
	if _, err := New(ProtocolDiscrete, Deps{Motors: ctl, Reporter: l, ADC: b}, Options{}); err == nil {
		t.Fatalf("expected error for nil age display")
	}
}
