package remote

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusRoundTrip(t *testing.T) {
	t.Parallel()

	statuses := []Status{
		{
			Mode: ModeManual, PWMFreq: 20, GateLogic: GateUp, MaxPWM: 95,
			Percent: 0, Power: 0, Remote: true, ChecksumMode: true,
		},
		{
			Mode: ModeANVClosed, PWMFreq: 5, GateLogic: GateDown, MaxPWM: 99,
			LaseOnPowerUp: true, Lase: true, Percent: 62, Power: 48,
		},
		{
			Mode: ModeANC, PWMFreq: 10, GateLogic: GateUp, MaxPWM: 95,
			Lase: true, Percent: 100, Power: 95, Remote: true,
		},
	}
	for _, want := range statuses {
		raw := want.Encode()
		require.Len(t, raw, StatusResponseLen)
		require.Equal(t, ACK, raw[0])

		got, err := ParseStatus(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseStatusChecksumMismatch(t *testing.T) {
	raw := Status{Mode: ModeManual, PWMFreq: 20, MaxPWM: 95, GateLogic: GateUp}.Encode()
	raw[StatusResponseLen-1] ^= 0xFF

	_, err := ParseStatus(raw)
	var cerr *ChecksumError
	require.ErrorAs(t, err, &cerr)
}

func TestParseStatusFormatErrors(t *testing.T) {
	good := Status{Mode: ModeManual, PWMFreq: 20, MaxPWM: 95, GateLogic: GateUp}.Encode()

	t.Run("wrong length", func(t *testing.T) {
		_, err := ParseStatus(good[:4])
		var ferr *FormatError
		assert.True(t, errors.As(err, &ferr))
	})

	t.Run("missing ACK marker", func(t *testing.T) {
		raw := append([]byte(nil), good...)
		raw[0] = NAK
		_, err := ParseStatus(raw)
		var ferr *FormatError
		assert.True(t, errors.As(err, &ferr))
	})

	t.Run("unknown mode ordinal", func(t *testing.T) {
		raw := append([]byte(nil), good...)
		raw[1] = (raw[1] &^ status1ModeMask) | 0x07
		raw[StatusResponseLen-1] = Checksum(raw[1 : StatusResponseLen-1]...)
		_, err := ParseStatus(raw)
		var ferr *FormatError
		assert.True(t, errors.As(err, &ferr))
	})
}

func TestStatusValue(t *testing.T) {
	st := Status{
		Mode: ModeANV, PWMFreq: 10, GateLogic: GateDown, MaxPWM: 99,
		Lase: true, Percent: 42,
	}

	tests := []struct {
		setting string
		want    any
	}{
		{SettingMode, ModeANV},
		{SettingPWMFreq, 10},
		{SettingGateLogic, GateDown},
		{SettingMaxPWM, 99},
		{SettingLase, true},
		{SettingPercent, 42},
	}
	for _, tt := range tests {
		got, err := st.Value(tt.setting)
		require.NoError(t, err, "Value(%s)", tt.setting)
		assert.Equal(t, tt.want, got)
	}

	t.Run("write-only setting", func(t *testing.T) {
		_, err := st.Value(SettingLaseOnPowerUp)
		var uerr *UnsupportedOperationError
		require.ErrorAs(t, err, &uerr)
		assert.Equal(t, SettingLaseOnPowerUp, uerr.Setting)
	})

	t.Run("unknown setting", func(t *testing.T) {
		_, err := st.Value("warp_factor")
		var derr *DomainError
		assert.True(t, errors.As(err, &derr))
	})
}
