// Package serialport abstracts the byte-oriented duplex channel between the
// driver and the UC-2000's REMOTE serial port. The driver core depends only
// on the Porter interface, never on a concrete serial API, so that sessions
// can be exercised against in-memory ports in tests.
package serialport

import (
	"io"
	"time"
)

// Porter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type Porter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPorter extends Porter with a read timeout. Real serial ports
// implement it; the session uses it to bound response reads.
type TimeoutPorter interface {
	Porter
	// SetReadTimeout sets the read timeout for the serial port.
	SetReadTimeout(timeout time.Duration) error
}

// Opener is a function type for opening serial ports. It allows tests to
// substitute an in-memory port for the real serial device.
type Opener func(path string, opts Options) (Porter, error)
