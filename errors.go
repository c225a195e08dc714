package vedirect

import (
	"errors"
	"fmt"
)

var (
	ErrTextChecksum   = errors.New("vedirect: TEXT frame checksum mismatch")
	ErrHexChecksum    = errors.New("vedirect: HEX frame checksum mismatch")
	ErrHexMalformed   = errors.New("vedirect: malformed HEX frame")
	ErrHexOverflow    = errors.New("vedirect: HEX buffer overflow")
	ErrFieldTruncated = errors.New("vedirect: field truncated")
	ErrFrameFull      = errors.New("vedirect: too many fields in frame")
	ErrTableFull      = errors.New("vedirect: published table full")
	ErrNotWritable    = errors.New("vedirect: transport is read-only")
	ErrNoSerialPorts  = errors.New("vedirect: no serial ports found")
	ErrNoPort         = errors.New("vedirect: no matching USB port found")
)

// FrameError is what the decoder reports on its error side channel.
type FrameError struct {
	Err      error
	State    State  // state the decoder was in when the error was found
	Field    string // field name, if the error concerns one field
	Checksum byte   // residue, for checksum errors
}

func (e *FrameError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTextChecksum), errors.Is(e.Err, ErrHexChecksum):
		return fmt.Sprintf("%v (residue 0x%02X)", e.Err, e.Checksum)
	case e.Field != "":
		return fmt.Sprintf("%v: %s", e.Err, e.Field)
	default:
		return fmt.Sprintf("%v (state %s)", e.Err, e.State)
	}
}

func (e *FrameError) Unwrap() error {
	return e.Err
}
