package remote

import "fmt"

// Operating mode values accepted by the mode setting.
type Mode string

const (
	ModeManual       Mode = "manual"
	ModeANC          Mode = "anc"
	ModeANV          Mode = "anv"
	ModeManualClosed Mode = "man_closed"
	ModeANVClosed    Mode = "anv_closed"
)

// GateLogic values accepted by the gate_logic setting. Pull-up fires the
// laser without a gate signal; pull-down requires the gate input HIGH.
type GateLogic string

const (
	GateUp   GateLogic = "up"
	GateDown GateLogic = "down"
)

// Names of the controllable settings.
const (
	SettingPWMFreq       = "pwm_freq"
	SettingGateLogic     = "gate_logic"
	SettingMaxPWM        = "max_pwm"
	SettingLaseOnPowerUp = "lase_on_power_up"
	SettingMode          = "mode"
	SettingLase          = "lase"
	SettingPercent       = "percent"
)

// Bounds of the percent setting. The hardware additionally clamps the duty
// cycle to the configured max-PWM; the session enforces that bound because
// the registry does not track controller state.
const (
	MinPercent = 0
	MaxPercent = 100
)

type valueCode struct {
	value any
	code  byte
}

// Setting describes one controllable UC-2000 setting: its valid domain, how
// a value maps onto the wire, whether the controller acknowledges writes,
// and whether the value can be read back through a status request.
type Setting struct {
	Name string
	// Readable settings are reported in the status response and may be
	// queried; write-only settings reject reads.
	Readable bool
	// Acked settings expect a one-byte ACK/NAK response after each write.
	Acked bool

	// codes maps each allowed value onto its command byte, in domain
	// order. Nil for percent, which carries its value in a data byte.
	codes []valueCode
}

// registry holds every controllable setting keyed by name.
var registry = map[string]*Setting{
	SettingPWMFreq: {
		Name: SettingPWMFreq, Readable: true, Acked: true,
		codes: []valueCode{{5, 0x77}, {10, 0x78}, {20, 0x79}},
	},
	SettingGateLogic: {
		Name: SettingGateLogic, Readable: true, Acked: true,
		codes: []valueCode{{GateUp, 0x7A}, {GateDown, 0x7B}},
	},
	SettingMaxPWM: {
		Name: SettingMaxPWM, Readable: true, Acked: true,
		codes: []valueCode{{95, 0x7C}, {99, 0x7D}},
	},
	SettingLaseOnPowerUp: {
		Name: SettingLaseOnPowerUp, Readable: false, Acked: true,
		codes: []valueCode{{true, 0x30}, {false, 0x31}},
	},
	SettingMode: {
		Name: SettingMode, Readable: true, Acked: true,
		codes: []valueCode{
			{ModeManual, 0x70}, {ModeANC, 0x71}, {ModeANV, 0x72},
			{ModeManualClosed, 0x73}, {ModeANVClosed, 0x74},
		},
	},
	SettingLase: {
		Name: SettingLase, Readable: true, Acked: true,
		codes: []valueCode{{true, 0x75}, {false, 0x76}},
	},
	SettingPercent: {
		Name: SettingPercent, Readable: true, Acked: true,
	},
}

// Lookup returns the setting registered under name.
func Lookup(name string) (*Setting, error) {
	s, ok := registry[name]
	if !ok {
		return nil, &DomainError{Setting: name, Reason: "unknown setting"}
	}
	return s, nil
}

// Validate checks value against the setting's domain. Out-of-domain values
// are rejected here, before any byte leaves the process.
func (s *Setting) Validate(value any) error {
	if s.codes == nil {
		p, ok := value.(int)
		if !ok {
			return &DomainError{Setting: s.Name, Value: value, Reason: "not an integer"}
		}
		if p < MinPercent || p > MaxPercent {
			return &DomainError{
				Setting: s.Name, Value: value,
				Reason: fmt.Sprintf("must be between %d and %d", MinPercent, MaxPercent),
			}
		}
		return nil
	}
	for _, vc := range s.codes {
		if vc.value == value {
			return nil
		}
	}
	return &DomainError{Setting: s.Name, Value: value, Reason: "not in the setting's domain"}
}

// Frame encodes a validated value into a command frame. Encoding is total
// once Validate has passed.
func (s *Setting) Frame(value any) (Frame, error) {
	if err := s.Validate(value); err != nil {
		return Frame{}, err
	}
	if s.codes == nil {
		return Frame{Command: cmdSetPercent, Data: []byte{byte(2 * value.(int))}}, nil
	}
	for _, vc := range s.codes {
		if vc.value == value {
			return Frame{Command: vc.code}, nil
		}
	}
	// Unreachable: Validate accepted the value.
	return Frame{}, &DomainError{Setting: s.Name, Value: value, Reason: "not in the setting's domain"}
}

// Encode returns the wire bytes for setting the given value, with or
// without the trailing checksum byte.
func (s *Setting) Encode(value any, checksummed bool) ([]byte, error) {
	f, err := s.Frame(value)
	if err != nil {
		return nil, err
	}
	raw := f.Encode(checksummed)
	// A percent data byte of 0x7E collides with the status request byte.
	// With checksum disabled the controller can misparse it, so 63% is
	// nudged down to 62.5% on the wire.
	if s.codes == nil && !checksummed && f.Data[0] == cmdStatusRequest {
		raw[2] = f.Data[0] - 1
	}
	return raw, nil
}

// Decode recovers the value carried by a command frame for this setting.
func (s *Setting) Decode(f Frame) (any, error) {
	if s.codes == nil {
		if f.Command != cmdSetPercent || len(f.Data) != 1 {
			return nil, &FormatError{Reason: "not a set-percent frame"}
		}
		return int(f.Data[0]) / 2, nil
	}
	if len(f.Data) != 0 {
		return nil, &FormatError{Reason: "unexpected data byte"}
	}
	for _, vc := range s.codes {
		if vc.code == f.Command {
			return vc.value, nil
		}
	}
	return nil, &FormatError{Reason: fmt.Sprintf("command 0x%02X does not belong to %s", f.Command, s.Name)}
}
