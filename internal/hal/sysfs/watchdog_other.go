//go:build !linux
// +build !linux

package sysfs

import (
	"errors"
	"time"
)

// DevWatchdog is unavailable off Linux.
type DevWatchdog struct{}

func NewDevWatchdog(path string) (*DevWatchdog, error) {
	return nil, errors.New("sysfs watchdog: not implemented on this platform")
}

func (w *DevWatchdog) Arm(timeout time.Duration) error {
	return errors.New("sysfs watchdog: not implemented on this platform")
}

func (w *DevWatchdog) Kick() {}

func (w *DevWatchdog) Disarm() error { return nil }
