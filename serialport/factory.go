package serialport

import (
	"go.bug.st/serial"
)

// Open opens the real serial port at the given path using the provided
// options. The returned port implements TimeoutPorter.
func Open(path string, opts Options) (Porter, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	return port, nil
}
