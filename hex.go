package vedirect

import (
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"
)

// HexChecksumSeed is the value the command nibble, the data bytes and the
// checksum byte of a HEX frame must add up to.
const HexChecksumSeed = 0x55

// Command is the nibble following the HEX marker.
type Command byte

const (
	CmdPing       Command = 0x1
	CmdAppVersion Command = 0x3
	CmdProductID  Command = 0x4
	CmdRestart    Command = 0x6
	CmdGet        Command = 0x7
	CmdSet        Command = 0x8
	CmdAsync      Command = 0xA
)

// HexFrame is a HEX message split into its parts.
type HexFrame struct {
	Command  Command
	Data     []byte
	Checksum byte
}

// beginHex diverts the machine into HEX accumulation. A marker arriving
// while a HEX frame is already open restarts that frame.
func (d *Decoder) beginHex() {
	if d.state != StateRecordHex {
		d.resume = d.state
		if d.state == StateRecordName || d.state == StateRecordValue {
			d.discard = true
		}
		d.state = StateRecordHex
	}
	d.hex[0] = HexMarker
	d.nhex = 1
}

// hexRxEvent handles one byte inside a HEX frame and returns the next state.
func (d *Decoder) hexRxEvent(b byte) State {
	if b == LF {
		frame := d.hex[:d.nhex]
		d.nhex = 0
		sum, err := HexChecksum(frame)
		switch {
		case err != nil:
			d.stats.HexErrors++
			d.report(&FrameError{Err: err, State: StateRecordHex})
		case sum != 0:
			d.stats.HexErrors++
			d.report(&FrameError{Err: ErrHexChecksum, State: StateRecordHex, Checksum: sum})
		default:
			d.stats.HexFrames++
			d.config.logger.Debug("HEX frame received",
				zap.ByteString("frame", frame),
				zap.Int("handlers", len(d.handlers)),
			)
			for _, h := range d.handlers {
				h.HandleHexFrame(frame)
			}
		}
		return d.resume
	}

	if d.nhex >= len(d.hex) {
		// The TEXT frame the HEX message interrupted cannot be resumed.
		d.stats.HexOverflows++
		d.report(&FrameError{Err: ErrHexOverflow, State: StateRecordHex})
		d.nhex = 0
		d.npending = 0
		d.checksum = 0
		d.cr = false
		d.open = false
		d.discard = false
		return StateIdle
	}
	d.hex[d.nhex] = b
	d.nhex++
	return StateRecordHex
}

// HexChecksum returns the residue of a raw HEX frame: the marker, the
// command nibble, the data pairs and the checksum pair, without the
// trailing newline. A well-formed frame has a residue of zero.
func HexChecksum(raw []byte) (byte, error) {
	if len(raw) < 2 || raw[0] != HexMarker {
		return 0, ErrHexMalformed
	}
	cmd, ok := nibble(raw[1])
	if !ok {
		return 0, ErrHexMalformed
	}
	rest := raw[2:]
	if len(rest)%2 != 0 {
		return 0, ErrHexMalformed
	}
	sum := byte(HexChecksumSeed) - cmd
	for i := 0; i < len(rest); i += 2 {
		hi, ok1 := nibble(rest[i])
		lo, ok2 := nibble(rest[i+1])
		if !ok1 || !ok2 {
			return 0, ErrHexMalformed
		}
		sum -= hi<<4 | lo
	}
	return sum, nil
}

// ParseHexFrame validates raw and splits it into command, data and checksum.
func ParseHexFrame(raw []byte) (HexFrame, error) {
	sum, err := HexChecksum(raw)
	if err != nil {
		return HexFrame{}, err
	}
	if sum != 0 {
		return HexFrame{}, &FrameError{Err: ErrHexChecksum, State: StateRecordHex, Checksum: sum}
	}
	if len(raw) < 4 {
		return HexFrame{}, fmt.Errorf("%w: no checksum byte", ErrHexMalformed)
	}
	cmd, _ := nibble(raw[1])
	body := make([]byte, (len(raw)-2)/2)
	if _, err := hex.Decode(body, raw[2:]); err != nil {
		return HexFrame{}, fmt.Errorf("%w: %v", ErrHexMalformed, err)
	}
	return HexFrame{
		Command:  Command(cmd),
		Data:     body[:len(body)-1],
		Checksum: body[len(body)-1],
	}, nil
}

// EncodeHexFrame builds a complete HEX message, newline included.
func EncodeHexFrame(cmd Command, data []byte) []byte {
	const digits = "0123456789ABCDEF"

	sum := byte(HexChecksumSeed) - byte(cmd&0x0F)
	out := make([]byte, 0, 2+2*len(data)+3)
	out = append(out, HexMarker, digits[cmd&0x0F])
	for _, b := range data {
		sum -= b
		out = append(out, digits[b>>4], digits[b&0x0F])
	}
	out = append(out, digits[sum>>4], digits[sum&0x0F], LF)
	return out
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
