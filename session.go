// Package uc2000 drives a SYNRAD UC-2000 laser controller over its RS-232
// REMOTE port. A Session owns one open serial port and exposes validated,
// acknowledged get/set operations for the controller's settings; Guard and
// Shoot build on it to guarantee the laser is never left emitting when the
// controlling process returns, fails, or is interrupted.
package uc2000

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lightbench/uc2000/internal/timeutil"
	"github.com/lightbench/uc2000/remote"
	"github.com/lightbench/uc2000/serialport"
)

var (
	// ErrWriteFailed reports a short write to the serial port.
	ErrWriteFailed = fmt.Errorf("failed to write to serial port")

	// ErrClosed reports an operation on a closed session.
	ErrClosed = errors.New("session is closed")
)

// DefaultReadTimeout bounds the wait for a controller response. The
// controller's own protocol window is one second from the STX byte.
const DefaultReadTimeout = time.Second

// readPollInterval paces response polling when the port returns no data.
const readPollInterval = 5 * time.Millisecond

// State is the session's last-known controller state. It starts from the
// controller's factory defaults with the laser assumed off; callers that
// need a known hardware state should call Initialize after opening.
type State struct {
	Percent       int
	Lase          bool
	PWMFreq       int
	GateLogic     remote.GateLogic
	Mode          remote.Mode
	MaxPWM        int
	LaseOnPowerUp bool
}

func defaultState() State {
	return State{
		Percent:       0,
		Lase:          false,
		PWMFreq:       20,
		GateLogic:     remote.GateUp,
		Mode:          remote.ModeManual,
		MaxPWM:        95,
		LaseOnPowerUp: false,
	}
}

// Session is a single exclusive connection to a UC-2000 controller. All
// operations are synchronous request/response round-trips serialized by an
// internal mutex; commands reach the wire in the exact order issued.
type Session struct {
	mu    sync.Mutex
	port  serialport.Porter
	clock timeutil.Clock

	checksum    bool
	readTimeout time.Duration

	state  State
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock substitutes the clock used for response timeouts and shot
// timing. Tests use it to make waits deterministic.
func WithClock(c timeutil.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithoutChecksum disables the checksum protocol mode. The controller's
// front-panel checksum setting must match.
func WithoutChecksum() Option {
	return func(s *Session) { s.checksum = false }
}

// WithReadTimeout overrides DefaultReadTimeout.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Session) { s.readTimeout = d }
}

// NewSession wraps an already-open port in a session. The session takes
// ownership of the port and closes it in Close.
func NewSession(port serialport.Porter, opts ...Option) *Session {
	s := &Session{
		port:        port,
		clock:       timeutil.RealClock{},
		checksum:    true,
		readTimeout: DefaultReadTimeout,
		state:       defaultState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial opens the serial port at path and wraps it in a session. A port is
// exclusively owned by one session; opening a second session on the same
// path is a configuration error.
func Dial(path string, portOpts serialport.Options, opts ...Option) (*Session, error) {
	port, err := serialport.Open(path, portOpts)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return NewSession(port, opts...), nil
}

// State returns a snapshot of the last-known controller state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Percent returns the last acknowledged PWM duty-cycle percent.
func (s *Session) Percent() int {
	return s.State().Percent
}

// Lase reports whether the laser is believed to be emitting.
func (s *Session) Lase() bool {
	return s.State().Lase
}

// Set validates value against the named setting's domain, writes the
// command frame, and waits for the controller's acknowledgment. The
// in-memory state is updated only after an ACK; a rejected or unanswered
// frame leaves it untouched. The one exception is the lase flag, which
// fails safe: an unacknowledged off round-trip still marks the laser
// "believed off" so no code path is left uncertain about whether it is
// firing, and an unacknowledged on round-trip marks it "believed on" so
// the shutdown guard issues its off command. The error is surfaced to the
// caller either way.
func (s *Session) Set(name string, value any) error {
	setting, err := remote.Lookup(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(setting, value)
}

func (s *Session) setLocked(setting *remote.Setting, value any) error {
	if s.closed {
		return ErrClosed
	}

	if err := setting.Validate(value); err != nil {
		return err
	}
	if setting.Name == remote.SettingPercent {
		if p := value.(int); p > s.state.MaxPWM {
			return &remote.DomainError{
				Setting: setting.Name, Value: value,
				Reason: fmt.Sprintf("exceeds configured max PWM of %d%%", s.state.MaxPWM),
			}
		}
	}

	err := s.roundTripLocked(setting, value)
	if err != nil {
		if setting.Name == remote.SettingLase {
			// Fail-safe on an unacknowledged lase round-trip: adopt the
			// commanded value. A failed off never leaves ambiguity about
			// whether the laser is firing, and a failed on is assumed to
			// have fired so the guard still issues its off command.
			s.state.Lase = value.(bool)
		}
		return err
	}

	s.applyLocked(setting.Name, value)
	return nil
}

// roundTripLocked writes the command frame for value and, for acknowledged
// settings, waits for the ACK/NAK response.
func (s *Session) roundTripLocked(setting *remote.Setting, value any) error {
	raw, err := setting.Encode(value, s.checksum)
	if err != nil {
		return err
	}
	if err := s.writeLocked(raw); err != nil {
		return fmt.Errorf("write %s frame: %w", setting.Name, err)
	}
	if !setting.Acked {
		return nil
	}
	return s.readAckLocked(setting.Name)
}

func (s *Session) applyLocked(name string, value any) {
	switch name {
	case remote.SettingPercent:
		s.state.Percent = value.(int)
	case remote.SettingLase:
		s.state.Lase = value.(bool)
	case remote.SettingPWMFreq:
		s.state.PWMFreq = value.(int)
	case remote.SettingGateLogic:
		s.state.GateLogic = value.(remote.GateLogic)
	case remote.SettingMode:
		s.state.Mode = value.(remote.Mode)
	case remote.SettingMaxPWM:
		s.state.MaxPWM = value.(int)
	case remote.SettingLaseOnPowerUp:
		s.state.LaseOnPowerUp = value.(bool)
	}
}

// Get queries the controller for the named setting's current value via a
// status request. Write-only settings reject reads.
func (s *Session) Get(name string) (any, error) {
	setting, err := remote.Lookup(name)
	if err != nil {
		return nil, err
	}
	if !setting.Readable {
		return nil, &remote.UnsupportedOperationError{Setting: name}
	}

	st, err := s.Status()
	if err != nil {
		return nil, err
	}
	return st.Value(name)
}

// Status issues a status request and returns the controller's reported
// state. The in-memory state is not modified; it tracks acknowledged
// setter operations only.
func (s *Session) Status() (remote.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return remote.Status{}, ErrClosed
	}
	if err := s.writeLocked(remote.StatusRequestFrame()); err != nil {
		return remote.Status{}, fmt.Errorf("write status request: %w", err)
	}
	raw, err := s.readLocked(remote.StatusResponseLen)
	if err != nil {
		return remote.Status{}, fmt.Errorf("read status response: %w", err)
	}
	return remote.ParseStatus(raw)
}

// SetPercent sets the PWM duty-cycle percent.
func (s *Session) SetPercent(p int) error { return s.Set(remote.SettingPercent, p) }

// SetLase commands the laser to emit (true) or stop emitting (false).
func (s *Session) SetLase(on bool) error { return s.Set(remote.SettingLase, on) }

// SetMode selects the controller's operating mode.
func (s *Session) SetMode(m remote.Mode) error { return s.Set(remote.SettingMode, m) }

// SetPWMFreq sets the PWM frequency in kHz (5, 10, or 20).
func (s *Session) SetPWMFreq(khz int) error { return s.Set(remote.SettingPWMFreq, khz) }

// SetGateLogic configures the gate input as pull-up or pull-down.
func (s *Session) SetGateLogic(g remote.GateLogic) error { return s.Set(remote.SettingGateLogic, g) }

// SetMaxPWM sets the maximum PWM duty cycle (95 or 99 percent).
func (s *Session) SetMaxPWM(p int) error { return s.Set(remote.SettingMaxPWM, p) }

// SetLaseOnPowerUp configures whether the controller starts lasing as soon
// as it powers on.
func (s *Session) SetLaseOnPowerUp(on bool) error { return s.Set(remote.SettingLaseOnPowerUp, on) }

// Initialize pushes the controller's factory defaults so the hardware is in
// a known state: 20 kHz PWM, gate pull-up, 95% max PWM, no lase on power
// up, manual mode, laser off at 0%.
func (s *Session) Initialize() error {
	defaults := defaultState()
	for _, step := range []struct {
		name  string
		value any
	}{
		{remote.SettingPWMFreq, defaults.PWMFreq},
		{remote.SettingGateLogic, defaults.GateLogic},
		{remote.SettingMaxPWM, defaults.MaxPWM},
		{remote.SettingLaseOnPowerUp, defaults.LaseOnPowerUp},
		{remote.SettingMode, defaults.Mode},
		{remote.SettingLase, defaults.Lase},
		{remote.SettingPercent, defaults.Percent},
	} {
		if err := s.Set(step.name, step.value); err != nil {
			return fmt.Errorf("initialize %s: %w", step.name, err)
		}
	}
	return nil
}

// ForceOff commands the laser off regardless of believed state and marks
// the session "believed off" whether or not the round-trip succeeds. The
// off frame is always put on the wire before any error is reported.
func (s *Session) ForceOff() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	setting, err := remote.Lookup(remote.SettingLase)
	if err != nil {
		return err
	}
	err = s.roundTripLocked(setting, false)
	s.state.Lase = false
	return err
}

// Close turns the laser off best-effort and releases the port. An error
// from the off command is reported in the log, never propagated; the port
// is closed regardless. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	setting, err := remote.Lookup(remote.SettingLase)
	if err == nil {
		if offErr := s.roundTripLocked(setting, false); offErr != nil {
			log.Printf("uc2000: lase off on close: %v", offErr)
		}
	}
	s.state.Lase = false
	s.closed = true
	return s.port.Close()
}

// writeLocked writes raw to the port, requiring a complete write.
func (s *Session) writeLocked(raw []byte) error {
	n, err := s.port.Write(raw)
	if err != nil {
		return err
	}
	if n != len(raw) {
		return ErrWriteFailed
	}
	return nil
}

// readLocked reads exactly n response bytes, polling until the read
// timeout expires. A real serial port blocks inside Read for up to its
// hardware read timeout; the poll loop only spins against test ports.
func (s *Session) readLocked(n int) ([]byte, error) {
	if tp, ok := s.port.(serialport.TimeoutPorter); ok {
		if err := tp.SetReadTimeout(s.readTimeout); err != nil {
			return nil, fmt.Errorf("set read timeout: %w", err)
		}
	}

	buf := make([]byte, n)
	deadline := s.clock.Now().Add(s.readTimeout)
	got := 0
	for got < n {
		k, err := s.port.Read(buf[got:])
		if err != nil {
			return nil, err
		}
		got += k
		if k == 0 {
			if !s.clock.Now().Before(deadline) {
				return nil, remote.ErrTimeout
			}
			s.clock.Sleep(readPollInterval)
		}
	}
	return buf, nil
}

// readAckLocked consumes the one-byte ACK/NAK response to op.
func (s *Session) readAckLocked(op string) error {
	resp, err := s.readLocked(1)
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}
	switch resp[0] {
	case remote.ACK:
		return nil
	case remote.NAK:
		return &remote.NAKError{Op: op}
	default:
		return &remote.FormatError{Reason: fmt.Sprintf("unexpected response byte 0x%02X", resp[0])}
	}
}
