package hal

import (
	"errors"
	"sync"
	"time"
)

// SoftWatchdog is a process-level stand-in for the hardware watchdog, used
// where no /dev/watchdog exists. When a kick is missed, onExpire runs once;
// the caller decides how to restart (normally: exit and let the service
// manager start us again).
type SoftWatchdog struct {
	mu       sync.Mutex
	timer    *time.Timer
	timeout  time.Duration
	onExpire func()
}

func NewSoftWatchdog(onExpire func()) *SoftWatchdog {
	return &SoftWatchdog{onExpire: onExpire}
}

func (w *SoftWatchdog) Arm(timeout time.Duration) error {
	if timeout <= 0 {
		return errors.New("soft watchdog: timeout must be > 0")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timeout = timeout
	w.timer = time.AfterFunc(timeout, w.expire)
	return nil
}

func (w *SoftWatchdog) expire() {
	w.mu.Lock()
	fn := w.onExpire
	w.timer = nil
	w.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (w *SoftWatchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Reset(w.timeout)
	}
}

func (w *SoftWatchdog) Disarm() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return nil
}
