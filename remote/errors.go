package remote

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when the controller does not answer within the
// session's read timeout. The controller's protocol window is one second
// from the STX byte, so a timed-out request may be retried as a whole.
var ErrTimeout = errors.New("timed out waiting for controller response")

// DomainError reports a value outside a setting's valid domain. It is
// raised before any byte is written to the transport.
type DomainError struct {
	Setting string
	Value   any
	Reason  string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("invalid value %v for %s: %s", e.Value, e.Setting, e.Reason)
}

// FormatError reports a frame whose length or markers are malformed.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed frame: %s", e.Reason)
}

// ChecksumError reports a frame whose trailing checksum byte disagrees with
// the checksum recomputed over the rest of the frame.
type ChecksumError struct {
	Want byte
	Got  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: computed 0x%02X, frame carries 0x%02X", e.Want, e.Got)
}

// NAKError reports that the controller answered a command with NAK. The
// controller NAKs when it receives no valid command or checksum byte within
// one second of STX, or when the checksum byte is wrong on the wire.
type NAKError struct {
	Op string
}

func (e *NAKError) Error() string {
	return fmt.Sprintf("%s: controller answered NAK", e.Op)
}

// UnsupportedOperationError reports a read of a write-only setting.
type UnsupportedOperationError struct {
	Setting string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("setting %s is write-only and cannot be read back", e.Setting)
}
