// internal/status/constants.go
package status

// Vehicle Status Block layout constants.
// These values define the protocol and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerDevice is the fixed number of logical slots per vehicle.
const SlotsPerDevice = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the vehicle health state.
const SlotHealthCode = 0

// SlotSteer holds the steering velocity (int16 bit pattern).
const SlotSteer = 1

// SlotDrive holds the drive velocity (int16 bit pattern).
const SlotDrive = 2

// SlotBattery holds the scaled battery level, 0..255.
const SlotBattery = 3

// SlotFlags holds the Flag* bits.
const SlotFlags = 4

// SlotIterationHi and SlotIterationLo hold the loop iteration counter.
const SlotIterationHi = 5
const SlotIterationLo = 6

// SlotResetCause holds the reset cause bitmask captured at boot.
const SlotResetCause = 7

// ---- RESERVED RANGE ----

// Slots 8-11 are reserved for future use.
const SlotReservedStart = 8
const SlotReservedEnd = 11

// ---- DEVICE NAME ----

// SlotDeviceNameStart is the first slot used for the device name.
// Device name is always placed at the END of the status block.
const SlotDeviceNameStart = 12

// SlotDeviceNameSlots is the number of slots reserved for the device name.
const SlotDeviceNameSlots = 8

// SlotDeviceNameEnd is the last slot used for the device name (inclusive).
const SlotDeviceNameEnd = SlotDeviceNameStart + SlotDeviceNameSlots - 1

// ---- LIMITS ----

// DeviceNameMaxChars is the maximum number of ASCII characters stored for device name.
const DeviceNameMaxChars = 16

// ---- FLAGS ----

const (
	FlagLinkPresent uint16 = 1 << 0
	FlagDisplay     uint16 = 1 << 1
	FlagWarning     uint16 = 1 << 2
	FlagBatteryLow  uint16 = 1 << 3
)

// ---- HEALTH CODES ----

// HealthUnknown represents the boot state, before the first iteration.
const HealthUnknown uint16 = 0

// HealthOK represents a running vehicle with link and supply in order.
const HealthOK uint16 = 1

// HealthLinkLost represents a low link-presence input.
const HealthLinkLost uint16 = 2

// HealthBatteryLow represents a confirmed persistently low supply.
const HealthBatteryLow uint16 = 3
