package remote

// Status is the controller state reported by a status request.
type Status struct {
	Mode          Mode
	PWMFreq       int
	GateLogic     GateLogic
	MaxPWM        int
	LaseOnPowerUp bool
	Lase          bool
	Remote        bool
	ChecksumMode  bool
	// Percent is the current PWM duty-cycle setpoint.
	Percent int
	// Power is the reported output power as a percent of maximum.
	Power int
}

// StatusResponseLen is the length of a status response:
// ACK, two status bytes, the PWM byte, the power byte, and a checksum.
const StatusResponseLen = 6

// Status byte bit assignments.
const (
	status1ModeMask      = 0x07
	status1Lase          = 0x08
	status1GateDown      = 0x10
	status1Remote        = 0x20
	status1ChecksumMode  = 0x40
	status2FreqMask      = 0x03
	status2MaxPWM99      = 0x04
	status2LaseOnPowerUp = 0x08
)

var (
	modeByOrdinal = []Mode{ModeManual, ModeANC, ModeANV, ModeManualClosed, ModeANVClosed}
	freqByOrdinal = []int{5, 10, 20}
)

// ParseStatus decodes and verifies a status response. The trailing checksum
// byte is the one's complement of the modular sum of the four payload bytes;
// a response that fails verification is never returned.
func ParseStatus(raw []byte) (Status, error) {
	if len(raw) != StatusResponseLen {
		return Status{}, &FormatError{Reason: "status response length out of range"}
	}
	if raw[0] != ACK {
		return Status{}, &FormatError{Reason: "status response does not start with ACK"}
	}
	payload := raw[1 : StatusResponseLen-1]
	if want, got := Checksum(payload...), raw[StatusResponseLen-1]; got != want {
		return Status{}, &ChecksumError{Want: want, Got: got}
	}

	s1, s2 := payload[0], payload[1]
	modeOrd := int(s1 & status1ModeMask)
	if modeOrd >= len(modeByOrdinal) {
		return Status{}, &FormatError{Reason: "status reports an unknown mode"}
	}
	freqOrd := int(s2 & status2FreqMask)
	if freqOrd >= len(freqByOrdinal) {
		return Status{}, &FormatError{Reason: "status reports an unknown PWM frequency"}
	}

	st := Status{
		Mode:          modeByOrdinal[modeOrd],
		PWMFreq:       freqByOrdinal[freqOrd],
		GateLogic:     GateUp,
		MaxPWM:        95,
		LaseOnPowerUp: s2&status2LaseOnPowerUp != 0,
		Lase:          s1&status1Lase != 0,
		Remote:        s1&status1Remote != 0,
		ChecksumMode:  s1&status1ChecksumMode != 0,
		Percent:       int(payload[2]) / 2,
		Power:         int(payload[3]),
	}
	if s1&status1GateDown != 0 {
		st.GateLogic = GateDown
	}
	if s2&status2MaxPWM99 != 0 {
		st.MaxPWM = 99
	}
	return st, nil
}

// Encode builds the wire bytes of a status response describing st. The
// driver only parses status responses; Encode exists for simulated
// controllers in tests and examples.
func (st Status) Encode() []byte {
	var s1, s2 byte
	for i, m := range modeByOrdinal {
		if m == st.Mode {
			s1 |= byte(i)
		}
	}
	if st.Lase {
		s1 |= status1Lase
	}
	if st.GateLogic == GateDown {
		s1 |= status1GateDown
	}
	if st.Remote {
		s1 |= status1Remote
	}
	if st.ChecksumMode {
		s1 |= status1ChecksumMode
	}
	for i, f := range freqByOrdinal {
		if f == st.PWMFreq {
			s2 |= byte(i)
		}
	}
	if st.MaxPWM == 99 {
		s2 |= status2MaxPWM99
	}
	if st.LaseOnPowerUp {
		s2 |= status2LaseOnPowerUp
	}

	payload := []byte{s1, s2, byte(2 * st.Percent), byte(st.Power)}
	out := append([]byte{ACK}, payload...)
	return append(out, Checksum(payload...))
}

// Value extracts the named readable setting from the status. Write-only
// settings return an UnsupportedOperationError.
func (st Status) Value(name string) (any, error) {
	s, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if !s.Readable {
		return nil, &UnsupportedOperationError{Setting: name}
	}
	switch name {
	case SettingMode:
		return st.Mode, nil
	case SettingPWMFreq:
		return st.PWMFreq, nil
	case SettingGateLogic:
		return st.GateLogic, nil
	case SettingMaxPWM:
		return st.MaxPWM, nil
	case SettingLase:
		return st.Lase, nil
	case SettingPercent:
		return st.Percent, nil
	}
	return nil, &UnsupportedOperationError{Setting: name}
}
