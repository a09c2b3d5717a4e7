package uc2000

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightbench/uc2000/internal/timeutil"
	"github.com/lightbench/uc2000/remote"
	"github.com/lightbench/uc2000/serialport"
)

// newFakeController wires a TestablePort to a scripted controller that ACKs
// every command frame and answers status requests with the given status.
func newFakeController(status remote.Status) *serialport.TestablePort {
	port := serialport.NewTestablePort()
	port.OnWrite = func(p []byte) {
		if bytes.Equal(p, remote.StatusRequestFrame()) {
			port.AddReadData(status.Encode())
			return
		}
		port.AddReadData([]byte{remote.ACK})
	}
	return port
}

func newTestSession(port *serialport.TestablePort) (*Session, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	return NewSession(port, WithClock(clock)), clock
}

// frameBytes returns the checksummed wire bytes for setting value.
func frameBytes(t *testing.T, name string, value any) []byte {
	t.Helper()
	setting, err := remote.Lookup(name)
	require.NoError(t, err)
	raw, err := setting.Encode(value, true)
	require.NoError(t, err)
	return raw
}

func TestSetPercentRoundTrip(t *testing.T) {
	port := newFakeController(remote.Status{})
	session, _ := newTestSession(port)

	require.NoError(t, session.SetPercent(50))

	want := frameBytes(t, remote.SettingPercent, 50)
	if diff := cmp.Diff(want, port.Written()); diff != "" {
		t.Errorf("written frames mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 50, session.Percent())
}

func TestSetRejectsOutOfDomainBeforeIO(t *testing.T) {
	port := newFakeController(remote.Status{})
	session, _ := newTestSession(port)

	var derr *remote.DomainError
	for _, p := range []int{-1, 101} {
		err := session.SetPercent(p)
		require.ErrorAs(t, err, &derr, "percent %d", p)
	}
	err := session.Set(remote.SettingMode, remote.Mode("invalid-mode"))
	require.ErrorAs(t, err, &derr)
	err = session.Set("warp_factor", 9)
	require.ErrorAs(t, err, &derr)

	assert.Zero(t, port.WriteCalls, "rejected values must never reach the port")
	assert.Zero(t, session.Percent())
}

func TestSetPercentBoundedByMaxPWM(t *testing.T) {
	port := newFakeController(remote.Status{})
	session, _ := newTestSession(port)

	// Default max PWM is 95; 96 is in the registry domain but over the
	// session's configured ceiling.
	var derr *remote.DomainError
	require.ErrorAs(t, session.SetPercent(96), &derr)
	assert.Zero(t, port.WriteCalls)

	require.NoError(t, session.SetMaxPWM(99))
	require.NoError(t, session.SetPercent(96))
	assert.Equal(t, 96, session.Percent())
}

func TestSetStateUpdatesOnlyAfterAck(t *testing.T) {
	t.Run("NAK leaves state untouched", func(t *testing.T) {
		port := serialport.NewTestablePort()
		port.AddReadData([]byte{remote.NAK})
		session, _ := newTestSession(port)

		err := session.SetPWMFreq(5)
		var nerr *remote.NAKError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, remote.SettingPWMFreq, nerr.Op)
		assert.Equal(t, 20, session.State().PWMFreq)
	})

	t.Run("timeout leaves state untouched", func(t *testing.T) {
		port := serialport.NewTestablePort() // never answers
		session, _ := newTestSession(port)

		err := session.SetMode(remote.ModeANV)
		require.ErrorIs(t, err, remote.ErrTimeout)
		assert.Equal(t, remote.ModeManual, session.State().Mode)
	})

	t.Run("garbage response surfaces format error", func(t *testing.T) {
		port := serialport.NewTestablePort()
		port.AddReadData([]byte{0x00})
		session, _ := newTestSession(port)

		err := session.SetMaxPWM(99)
		var ferr *remote.FormatError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, 95, session.State().MaxPWM)
	})
}

func TestLaseOnFailureBelievedOnForSafety(t *testing.T) {
	port := serialport.NewTestablePort()
	port.AddReadData([]byte{remote.NAK})
	session, _ := newTestSession(port)

	err := session.SetLase(true)
	var nerr *remote.NAKError
	require.ErrorAs(t, err, &nerr)
	assert.True(t, session.Lase(),
		"an unacknowledged on frame already reached the wire, so assume the worst")
}

func TestLaseOffFailureStillBelievedOff(t *testing.T) {
	port := newFakeController(remote.Status{})
	session, _ := newTestSession(port)
	require.NoError(t, session.SetLase(true))
	require.True(t, session.Lase())

	// The controller stops answering: the off command cannot be
	// acknowledged, but the session must not stay ambiguous about
	// whether the laser is firing.
	port.OnWrite = nil

	err := session.SetLase(false)
	require.ErrorIs(t, err, remote.ErrTimeout)
	assert.False(t, session.Lase(), "state must read believed-off after a failed off round-trip")
}

func TestCommandsHitTheWireInCallOrder(t *testing.T) {
	port := newFakeController(remote.Status{})
	session, _ := newTestSession(port)

	require.NoError(t, session.SetPWMFreq(10))
	require.NoError(t, session.SetMode(remote.ModeANC))
	require.NoError(t, session.SetPercent(20))

	var want []byte
	want = append(want, frameBytes(t, remote.SettingPWMFreq, 10)...)
	want = append(want, frameBytes(t, remote.SettingMode, remote.ModeANC)...)
	want = append(want, frameBytes(t, remote.SettingPercent, 20)...)
	if diff := cmp.Diff(want, port.Written()); diff != "" {
		t.Errorf("frame order mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusAndGet(t *testing.T) {
	reported := remote.Status{
		Mode: remote.ModeANV, PWMFreq: 10, GateLogic: remote.GateDown,
		MaxPWM: 99, Lase: true, Percent: 42, Power: 10, Remote: true,
	}
	port := newFakeController(reported)
	session, _ := newTestSession(port)

	st, err := session.Status()
	require.NoError(t, err)
	assert.Equal(t, reported, st)

	got, err := session.Get(remote.SettingPercent)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	got, err = session.Get(remote.SettingMode)
	require.NoError(t, err)
	assert.Equal(t, remote.ModeANV, got)
}

func TestGetWriteOnlySettingRejectedWithoutIO(t *testing.T) {
	port := newFakeController(remote.Status{})
	session, _ := newTestSession(port)

	_, err := session.Get(remote.SettingLaseOnPowerUp)
	var uerr *remote.UnsupportedOperationError
	require.ErrorAs(t, err, &uerr)
	assert.Zero(t, port.WriteCalls, "a rejected read must not issue a status request")
}

func TestStatusRejectsCorruptedResponse(t *testing.T) {
	port := serialport.NewTestablePort()
	port.OnWrite = func(p []byte) {
		raw := remote.Status{Mode: remote.ModeManual, PWMFreq: 20, MaxPWM: 95, GateLogic: remote.GateUp}.Encode()
		raw[len(raw)-1] ^= 0x01 // corrupt the checksum byte
		port.AddReadData(raw)
	}
	session, _ := newTestSession(port)

	_, err := session.Status()
	var cerr *remote.ChecksumError
	require.ErrorAs(t, err, &cerr, "a corrupted status frame must never be acted upon")
}

func TestInitializePushesFactoryDefaults(t *testing.T) {
	port := newFakeController(remote.Status{})
	session, _ := newTestSession(port)

	require.NoError(t, session.Initialize())

	var want []byte
	want = append(want, frameBytes(t, remote.SettingPWMFreq, 20)...)
	want = append(want, frameBytes(t, remote.SettingGateLogic, remote.GateUp)...)
	want = append(want, frameBytes(t, remote.SettingMaxPWM, 95)...)
	want = append(want, frameBytes(t, remote.SettingLaseOnPowerUp, false)...)
	want = append(want, frameBytes(t, remote.SettingMode, remote.ModeManual)...)
	want = append(want, frameBytes(t, remote.SettingLase, false)...)
	want = append(want, frameBytes(t, remote.SettingPercent, 0)...)
	if diff := cmp.Diff(want, port.Written()); diff != "" {
		t.Errorf("initialize sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestWithoutChecksumOmitsChecksumByte(t *testing.T) {
	port := newFakeController(remote.Status{})
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	session := NewSession(port, WithClock(clock), WithoutChecksum())

	require.NoError(t, session.SetLase(true))
	assert.Equal(t, []byte{0x5B, 0x75}, port.Written())
}

func TestCloseIsBestEffortAndIdempotent(t *testing.T) {
	t.Run("turns laser off then releases the port", func(t *testing.T) {
		port := newFakeController(remote.Status{})
		session, _ := newTestSession(port)
		require.NoError(t, session.SetLase(true))

		require.NoError(t, session.Close())
		assert.True(t, port.Closed)
		assert.False(t, session.Lase())

		off := frameBytes(t, remote.SettingLase, false)
		written := port.Written()
		assert.Equal(t, off, written[len(written)-len(off):], "last frame must be lase-off")
	})

	t.Run("port still closed when the off command fails", func(t *testing.T) {
		port := newFakeController(remote.Status{})
		session, _ := newTestSession(port)
		require.NoError(t, session.SetLase(true))

		port.OnWrite = nil
		port.WriteError = errors.New("wire cut")

		require.NoError(t, session.Close(), "close must not propagate the off-command failure")
		assert.True(t, port.Closed)
		assert.False(t, session.Lase())
	})

	t.Run("idempotent", func(t *testing.T) {
		port := newFakeController(remote.Status{})
		session, _ := newTestSession(port)
		require.NoError(t, session.Close())
		require.NoError(t, session.Close())
		assert.ErrorIs(t, session.SetPercent(10), ErrClosed)
		_, err := session.Status()
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestShortWriteSurfaces(t *testing.T) {
	port := serialport.NewTestablePort()
	port.WriteError = errors.New("EIO")
	session, _ := newTestSession(port)

	err := session.SetPercent(10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, remote.ErrTimeout)
	assert.Zero(t, session.Percent())
}
