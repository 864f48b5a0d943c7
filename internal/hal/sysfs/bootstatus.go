// internal/hal/sysfs/bootstatus.go
package sysfs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tamzrod/openracer/internal/hal"
)

// Linux watchdog bootstatus flags (linux/watchdog.h).
const (
	wdiofExtern1    = 0x0004
	wdiofExtern2    = 0x0008
	wdiofPowerUnder = 0x0010
	wdiofCardReset  = 0x0020
)

// ReadResetCause maps the watchdog driver's bootstatus to a ResetCause.
// No flag set means a plain power-on. On error the cause is reported as
// power-on together with the error.
func ReadResetCause(path string) (hal.ResetCause, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return hal.ResetPowerOn, fmt.Errorf("sysfs bootstatus: %w", err)
	}
	flags, err := strconv.ParseUint(strings.TrimSpace(string(data)), 0, 32)
	if err != nil {
		return hal.ResetPowerOn, fmt.Errorf("sysfs bootstatus: %w", err)
	}
	return causeFromFlags(flags), nil
}

func causeFromFlags(flags uint64) hal.ResetCause {
	var cause hal.ResetCause
	if flags&(wdiofExtern1|wdiofExtern2) != 0 {
		cause |= hal.ResetExternal
	}
	if flags&wdiofPowerUnder != 0 {
		cause |= hal.ResetBrownOut
	}
	if flags&wdiofCardReset != 0 {
		cause |= hal.ResetWatchdog
	}
	if cause == 0 {
		cause = hal.ResetPowerOn
	}
	return cause
}
