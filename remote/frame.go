// Package remote implements the UC-2000 REMOTE serial command protocol:
// frame construction and parsing with checksum verification, the settings
// registry, and status response decoding.
//
// Frames sent to the controller have the layout
//
//	STX <command byte> [data byte] [checksum byte]
//
// The data byte is present only for the set-percent command. The checksum
// byte is present only when the controller's checksum protocol mode is
// enabled, and is the one's complement of the modular (mod 256) sum of the
// command and data bytes. The controller answers acknowledged commands with
// a single ACK or NAK byte.
package remote

// Protocol byte values from the UC-2000 REMOTE protocol.
const (
	STX byte = 0x5B // start of transmission
	ACK byte = 0xAA
	NAK byte = 0x3F

	cmdStatusRequest byte = 0x7E
	cmdSetPercent    byte = 0x7F
)

// Checksum computes the REMOTE checksum byte over a frame body (the command
// byte plus any data bytes, STX excluded): the one's complement of the
// modular byte sum.
func Checksum(body ...byte) byte {
	var sum byte
	for _, b := range body {
		sum += b
	}
	return ^sum
}

// Frame is a single REMOTE command frame addressed to the controller.
type Frame struct {
	Command byte
	// Data holds the optional data byte. Only the set-percent command
	// carries data; all other commands encode their value in the command
	// byte itself.
	Data []byte
}

// Encode returns the wire bytes for the frame. When checksummed is true the
// trailing checksum byte is appended.
func (f Frame) Encode(checksummed bool) []byte {
	out := make([]byte, 0, 3+len(f.Data))
	out = append(out, STX, f.Command)
	out = append(out, f.Data...)
	if checksummed {
		out = append(out, Checksum(out[1:]...))
	}
	return out
}

// DecodeFrame parses the wire bytes of a command frame produced by Encode.
// It returns a FormatError when the length or start marker is wrong and a
// ChecksumError when the trailing checksum byte does not match the value
// recomputed over the rest of the frame. Invalid frames are never returned.
func DecodeFrame(raw []byte, checksummed bool) (Frame, error) {
	minLen, maxLen := 2, 3
	if checksummed {
		minLen, maxLen = 3, 4
	}
	if len(raw) < minLen || len(raw) > maxLen {
		return Frame{}, &FormatError{Reason: "frame length out of range"}
	}
	if raw[0] != STX {
		return Frame{}, &FormatError{Reason: "missing STX start marker"}
	}

	body := raw[1:]
	if checksummed {
		body = raw[1 : len(raw)-1]
		want := Checksum(body...)
		if got := raw[len(raw)-1]; got != want {
			return Frame{}, &ChecksumError{Want: want, Got: got}
		}
	}

	f := Frame{Command: body[0]}
	if len(body) > 1 {
		f.Data = append([]byte(nil), body[1:]...)
	}
	return f, nil
}

// StatusRequestFrame returns the wire bytes of a status request. The request
// is a bare command byte with no STX and no checksum.
func StatusRequestFrame() []byte {
	return []byte{cmdStatusRequest}
}
