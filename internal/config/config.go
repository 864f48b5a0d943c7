// internal/config/config.go
package config

type Config struct {
	Racer RacerConfig `yaml:"racer"`
	Log   LogConfig   `yaml:"log"`
}

type RacerConfig struct {
	Protocol  string          `yaml:"protocol"` // discrete | packed
	Loop      LoopConfig      `yaml:"loop"`
	Link      LinkConfig      `yaml:"link"`
	Battery   BatteryConfig   `yaml:"battery"`
	Toggles   TogglesConfig   `yaml:"toggles"`
	Commands  CommandsConfig  `yaml:"commands"`
	SelfTest  SelfTestConfig  `yaml:"self_test"`
	HAL       HALConfig       `yaml:"hal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ---- LOOP ----

type LoopConfig struct {
	IntervalMs        int `yaml:"interval_ms"`
	WatchdogTimeoutMs int `yaml:"watchdog_timeout_ms"`
}

// ---- LINK ----

type LinkConfig struct {
	Kind string `yaml:"kind"` // serial | websocket | stdio

	// Module naming handshake. Only answered right after a power cycle.
	Name          string `yaml:"name"`
	NameOnBoot    bool   `yaml:"name_on_boot"`
	NameTimeoutMs int    `yaml:"name_timeout_ms"`

	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

type SerialConfig struct {
	Address   string `yaml:"address"`
	BaudRate  int    `yaml:"baud_rate"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type WebSocketConfig struct {
	Listen        string `yaml:"listen"`
	Path          string `yaml:"path"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

// ---- BATTERY ----

// Pointer fields accept an explicit 0; nil means unset.
type BatteryConfig struct {
	Offset          *int `yaml:"offset"`
	Gain            int  `yaml:"gain"`
	LowThreshold    int  `yaml:"low_threshold"`
	SampleSpacingMs *int `yaml:"sample_spacing_ms"`
	Initial         *int `yaml:"initial"` // nil => low_threshold+1
}

// ---- TOGGLES ----

type TogglesConfig struct {
	DisplayPeriod int  `yaml:"display_period"`
	DisplayStart  *int `yaml:"display_start"`
	WarningPeriod int  `yaml:"warning_period"`
	WarningStart  *int `yaml:"warning_start"`
}

// ---- COMMANDS ----

type CommandsConfig struct {
	BaseSpeed *int `yaml:"base_speed"`
	Step      int  `yaml:"step"`
}

// ---- SELF TEST ----

type SelfTestConfig struct {
	Speed  *int `yaml:"speed"`
	Repeat *int `yaml:"repeat"`
	Sweep  bool `yaml:"sweep"`
}

// ---- HAL ----

type HALConfig struct {
	Backend        string     `yaml:"backend"` // periph | sim
	PWMFrequencyHz int        `yaml:"pwm_frequency_hz"`
	Pins           PinsConfig `yaml:"pins"`
	ADC            ADCConfig  `yaml:"adc"`
	StorePath      string     `yaml:"store_path"`
	WatchdogDevice string     `yaml:"watchdog_device"`
	BootstatusPath string     `yaml:"bootstatus_path"`
}

type PinsConfig struct {
	SteerRight   string `yaml:"steer_right"`
	SteerLeft    string `yaml:"steer_left"`
	DriveForward string `yaml:"drive_forward"`
	DriveReverse string `yaml:"drive_reverse"`
	Breathe      string `yaml:"breathe"`
	LED1         string `yaml:"led1"`
	LED2         string `yaml:"led2"`
	LED3         string `yaml:"led3"`
	LED4         string `yaml:"led4"`
	LED5         string `yaml:"led5"`
	Link         string `yaml:"link"`
}

type ADCConfig struct {
	Path string `yaml:"path"`
	Bits int    `yaml:"bits"`
}

// ---- TELEMETRY ----

type TelemetryConfig struct {
	// Every is the number of loop iterations between snapshots.
	Every  int                   `yaml:"every"`
	JSON   bool                  `yaml:"json"` // push to the websocket peer
	Modbus *ModbusTelemetryConfig `yaml:"modbus"`
}

type ModbusTelemetryConfig struct {
	Endpoint   string `yaml:"endpoint"`
	UnitID     uint8  `yaml:"unit_id"`
	BaseSlot   uint16 `yaml:"base_slot"`
	DeviceName string `yaml:"device_name"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}
