package hal

import (
	"testing"
	"time"
)

func TestSoftWatchdog_ExpiresWithoutKick(t *testing.T) {
	fired := make(chan struct{}, 1)
	w := NewSoftWatchdog(func() { fired <- struct{}{} })

	if err := w.Arm(20 * time.Millisecond); err != nil {
		t.Fatalf("arm: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("watchdog did not expire")
	}
}

func TestSoftWatchdog_KickKeepsAlive(t *testing.T) {
	fired := make(chan struct{}, 1)
	w := NewSoftWatchdog(func() { fired <- struct{}{} })

	if err := w.Arm(100 * time.Millisecond); err != nil {
		t.Fatalf("arm: %v", err)
	}
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		w.Kick()
	}
	if err := w.Disarm(); err != nil {
		t.Fatalf("disarm: %v", err)
	}

	select {
	case <-fired:
		t.Fatalf("watchdog expired despite regular kicks")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSoftWatchdog_RejectsZeroTimeout(t *testing.T) {
	w := NewSoftWatchdog(nil)
	if err := w.Arm(0); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}
