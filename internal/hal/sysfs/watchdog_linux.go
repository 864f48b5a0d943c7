//go:build linux
// +build linux

package sysfs

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// DevWatchdog drives a Linux watchdog character device.
// The device starts counting as soon as it is opened, so opening is deferred to Arm.
type DevWatchdog struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func NewDevWatchdog(path string) (*DevWatchdog, error) {
	if path == "" {
		return nil, errors.New("sysfs watchdog: device path required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("sysfs watchdog: %w", err)
	}
	return &DevWatchdog{path: path}, nil
}

func (w *DevWatchdog) Arm(timeout time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		f, err := os.OpenFile(w.path, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("sysfs watchdog: open: %w", err)
		}
		w.f = f
	}

	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}
	if err := unix.IoctlSetPointerInt(int(w.f.Fd()), unix.WDIOC_SETTIMEOUT, secs); err != nil {
		return fmt.Errorf("sysfs watchdog: set timeout %ds: %w", secs, err)
	}
	return nil
}

func (w *DevWatchdog) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return
	}
	// any write is a keepalive; errors surface as a reboot
	_, _ = w.f.Write([]byte{0})
}

// Disarm performs the magic close so a clean shutdown does not reboot.
func (w *DevWatchdog) Disarm() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	_, werr := w.f.Write([]byte{'V'})
	cerr := w.f.Close()
	w.f = nil
	if werr != nil {
		return fmt.Errorf("sysfs watchdog: magic close: %w", werr)
	}
	return cerr
}
