package periph

import (
	"testing"

	"periph.io/x/conn/v3/gpio"
)

func TestDutyFor_Endpoints(t *testing.T) {
	if got := dutyFor(0xFF); got != gpio.DutyMax {
		t.Fatalf("full scale: got=%d want=%d", got, gpio.DutyMax)
	}
	if got := dutyFor(0); got != 0 {
		t.Fatalf("zero: got=%d", got)
	}
}

func TestDutyFor_Monotonic(t *testing.T) {
	prev := dutyFor(0)
	for v := 1; v <= 0xFF; v++ {
		d := dutyFor(uint8(v))
		if d <= prev {
			t.Fatalf("duty not increasing at %d: %d <= %d", v, d, prev)
		}
		prev = d
	}
}
