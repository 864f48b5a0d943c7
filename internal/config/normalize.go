// internal/config/normalize.go
package config

// Defaults for every knob the firmware used to hard-code.
const (
	DefaultProtocol          = "packed"
	DefaultIntervalMs        = 4
	DefaultWatchdogTimeoutMs = 8000

	DefaultLinkKind      = "serial"
	DefaultNameTimeoutMs = 2000
	DefaultBaudRate      = 9600
	DefaultSerialTimeout = 100
	DefaultListen        = ":1337"
	DefaultWSPath        = "/ws"

	DefaultBatteryOffset   = 142
	DefaultBatteryGain     = 5
	DefaultLowThreshold    = 10
	DefaultSampleSpacingMs = 1

	DefaultDisplayPeriod = 200
	DefaultDisplayStart  = 10
	DefaultWarningPeriod = 20
	DefaultWarningStart  = 256 // a uint8 countdown from 0 wraps first

	DefaultBaseSpeed = 105
	DefaultStep      = 5

	DefaultSelfTestSpeed  = 0x60
	DefaultSelfTestRepeat = 1

	DefaultBackend        = "periph"
	DefaultPWMFrequencyHz = 1000
	DefaultADCBits        = 10
	DefaultStorePath      = "/var/lib/openracer/nv.bin"
	DefaultWatchdogDevice = "/dev/watchdog"
	DefaultBootstatusPath = "/sys/class/watchdog/watchdog0/bootstatus"

	DefaultTelemetryEvery = 25
	DefaultModbusTimeout  = 500

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Normalize fills defaults for unset fields.
// It is allowed to mutate configuration.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	r := &cfg.Racer

	setStr(&r.Protocol, DefaultProtocol)
	setInt(&r.Loop.IntervalMs, DefaultIntervalMs)
	setInt(&r.Loop.WatchdogTimeoutMs, DefaultWatchdogTimeoutMs)

	// ---- link ----
	setStr(&r.Link.Kind, DefaultLinkKind)
	setInt(&r.Link.NameTimeoutMs, DefaultNameTimeoutMs)
	setInt(&r.Link.Serial.BaudRate, DefaultBaudRate)
	setInt(&r.Link.Serial.TimeoutMs, DefaultSerialTimeout)
	setStr(&r.Link.WebSocket.Listen, DefaultListen)
	setStr(&r.Link.WebSocket.Path, DefaultWSPath)

	// ---- battery ----
	setIntPtr(&r.Battery.Offset, DefaultBatteryOffset)
	setInt(&r.Battery.Gain, DefaultBatteryGain)
	setInt(&r.Battery.LowThreshold, DefaultLowThreshold)
	setIntPtr(&r.Battery.SampleSpacingMs, DefaultSampleSpacingMs)
	if r.Battery.Initial == nil {
		// assume healthy until the first sample
		v := r.Battery.LowThreshold + 1
		r.Battery.Initial = &v
	}

	// ---- toggles ----
	setInt(&r.Toggles.DisplayPeriod, DefaultDisplayPeriod)
	setInt(&r.Toggles.WarningPeriod, DefaultWarningPeriod)
	setIntPtr(&r.Toggles.DisplayStart, DefaultDisplayStart)
	setIntPtr(&r.Toggles.WarningStart, DefaultWarningStart)

	// ---- commands ----
	setIntPtr(&r.Commands.BaseSpeed, DefaultBaseSpeed)
	setInt(&r.Commands.Step, DefaultStep)

	// ---- self test ----
	setIntPtr(&r.SelfTest.Speed, DefaultSelfTestSpeed)
	setIntPtr(&r.SelfTest.Repeat, DefaultSelfTestRepeat)

	// ---- hal ----
	setStr(&r.HAL.Backend, DefaultBackend)
	setInt(&r.HAL.PWMFrequencyHz, DefaultPWMFrequencyHz)
	setInt(&r.HAL.ADC.Bits, DefaultADCBits)
	setStr(&r.HAL.StorePath, DefaultStorePath)
	setStr(&r.HAL.WatchdogDevice, DefaultWatchdogDevice)
	setStr(&r.HAL.BootstatusPath, DefaultBootstatusPath)

	// ---- telemetry ----
	setInt(&r.Telemetry.Every, DefaultTelemetryEvery)
	if m := r.Telemetry.Modbus; m != nil {
		setInt(&m.TimeoutMs, DefaultModbusTimeout)
		if m.DeviceName == "" {
			m.DeviceName = r.Link.Name
		}
		// Truncate to max 16 characters
		if len(m.DeviceName) > 16 {
			m.DeviceName = m.DeviceName[:16]
		}
	}

	// ---- log ----
	setStr(&cfg.Log.Level, DefaultLogLevel)
	setStr(&cfg.Log.Format, DefaultLogFormat)
}

func setStr(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func setIntPtr(dst **int, def int) {
	if *dst == nil {
		v := def
		*dst = &v
	}
}
