package vedirect

import (
	"go.uber.org/zap"
)

// Protocol bytes
const (
	LF        = '\n'
	TAB       = '\t'
	CR        = '\r'
	HexMarker = ':'
)

// checksumTag is the name of the record that closes a TEXT frame. Names are
// upper-cased on receipt, so the device's "Checksum" matches.
const checksumTag = "CHECKSUM"

// Buffer capacities
const (
	NameLen      = 8   // usable bytes of a field name
	ValueLen     = 32  // usable bytes of a field value
	FrameLen     = 22  // fields held between two CHECKSUM records
	TableLen     = 40  // distinct names kept in the published table
	HexBufferLen = 100 // HEX frame bytes, marker included
)

type State int

const (
	StateIdle State = iota
	StateRecordBegin
	StateRecordName
	StateRecordValue
	StateChecksum
	StateRecordHex
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecordBegin:
		return "record_begin"
	case StateRecordName:
		return "record_name"
	case StateRecordValue:
		return "record_value"
	case StateChecksum:
		return "checksum"
	case StateRecordHex:
		return "record_hex"
	default:
		return "unknown"
	}
}

// Stats counts what the decoder has seen since it was created.
type Stats struct {
	TextFrames      uint64 // merged into the table
	TextErrors      uint64 // dropped on checksum mismatch
	HexFrames       uint64 // delivered to handlers
	HexErrors       uint64 // dropped on checksum or encoding error
	HexOverflows    uint64
	FieldsTruncated uint64
	FieldsDropped   uint64 // frame or table full
}

// Decoder reconstructs VE.Direct TEXT and HEX frames from a byte stream.
//
// A Decoder is not safe for concurrent use: FeedByte, the table accessors and
// RegisterHexHandler must be serialised by the caller. Monitor does that.
type Decoder struct {
	state  State
	resume State // TEXT state to return to once a HEX frame ends

	// discard marks the current field as cut by a HEX frame; its remaining
	// bytes are consumed but it is never forwarded.
	discard  bool
	checksum byte
	cr       bool // last byte before a record started was '\r'
	open     bool // a record of the current block has started

	current  record
	pending  [FrameLen]record
	npending int

	hex      [HexBufferLen]byte
	nhex     int
	handlers []HexHandler

	table   table
	newData bool

	stats  Stats
	config decoderConfig
}

// NewDecoder returns a decoder in the idle state.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{config: defaultDecoderConfig()}
	for _, opt := range opts {
		opt(&d.config)
	}
	d.handlers = append(d.handlers, d.config.handlers...)
	return d
}

// State returns the current state of the machine.
func (d *Decoder) State() State {
	return d.state
}

// Stats returns a copy of the decoder counters.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Reset abandons any frame in progress. The published table and the
// registered handlers are kept.
func (d *Decoder) Reset() {
	d.state = StateIdle
	d.resume = StateIdle
	d.discard = false
	d.checksum = 0
	d.cr = false
	d.open = false
	d.npending = 0
	d.nhex = 0
	d.current.reset()
}

// Feed passes every byte of p to FeedByte, in order.
func (d *Decoder) Feed(p []byte) {
	for _, b := range p {
		d.FeedByte(b)
	}
}

// FeedByte advances the state machine by one received byte. It always
// accepts the byte; problems are reported through the error handler.
func (d *Decoder) FeedByte(b byte) {
	if b == HexMarker && d.state != StateChecksum {
		d.beginHex()
		return
	}
	if d.state != StateRecordHex {
		d.checksum += b
	}

	switch d.state {
	case StateIdle:
		// Wait for the \n that starts a record. Anything but line endings
		// is noise and does not belong to the next block's checksum.
		if d.lineEnding(b) {
			if b == LF {
				d.state = StateRecordBegin
			}
			return
		}
		d.checksum = 0
	case StateRecordBegin:
		if b == CR || b == LF {
			if !d.open {
				d.lineEnding(b)
			}
			return
		}
		d.open = true
		d.cr = false
		d.current.reset()
		d.discard = false
		d.current.appendName(upper(b))
		d.state = StateRecordName
	case StateRecordName:
		if b != TAB {
			d.current.appendName(upper(b))
			return
		}
		if !d.discard && d.current.nameIs(checksumTag) {
			d.state = StateChecksum
			return
		}
		d.state = StateRecordValue
	case StateRecordValue:
		switch b {
		case LF:
			if !d.discard {
				d.textRxEvent()
			}
			d.discard = false
			d.state = StateRecordBegin
		case CR:
		default:
			d.current.appendValue(b)
		}
	case StateChecksum:
		// The checksum byte itself is already summed.
		d.frameEndEvent()
		d.state = StateIdle
	case StateRecordHex:
		d.state = d.hexRxEvent(b)
	}
}

// lineEnding restarts the sum at each line ending seen before a record
// starts, so a block counts only the "\r\n" or "\n" directly ahead of its
// first name.
func (d *Decoder) lineEnding(b byte) bool {
	switch b {
	case CR:
		d.checksum = CR
		d.cr = true
	case LF:
		d.checksum = LF
		if d.cr {
			d.checksum += CR
		}
		d.cr = false
	default:
		d.cr = false
		return false
	}
	return true
}

// textRxEvent moves the completed field into the pending frame.
func (d *Decoder) textRxEvent() {
	if d.current.truncated {
		d.stats.FieldsTruncated++
		d.report(&FrameError{Err: ErrFieldTruncated, State: d.state, Field: d.current.Name()})
	}
	if d.npending >= FrameLen {
		d.stats.FieldsDropped++
		d.report(&FrameError{Err: ErrFrameFull, State: d.state, Field: d.current.Name()})
		return
	}
	d.pending[d.npending] = d.current
	d.npending++
}

// frameEndEvent merges the pending frame into the table if the checksum
// holds, then starts a new frame either way.
func (d *Decoder) frameEndEvent() {
	valid := d.checksum == 0 || d.config.disableChecksum
	if valid {
		for i := 0; i < d.npending; i++ {
			if !d.table.merge(&d.pending[i]) {
				d.stats.FieldsDropped++
				d.report(&FrameError{Err: ErrTableFull, State: StateChecksum, Field: d.pending[i].Name()})
			}
		}
		d.newData = true
		d.stats.TextFrames++
		d.config.logger.Debug("TEXT frame accepted",
			zap.Int("fields", d.npending),
			zap.Int("table_size", d.table.n),
		)
	} else {
		d.stats.TextErrors++
		d.report(&FrameError{Err: ErrTextChecksum, State: StateChecksum, Checksum: d.checksum})
	}
	d.npending = 0
	d.checksum = 0
	d.open = false
}

func (d *Decoder) report(err *FrameError) {
	switch err.Err {
	case ErrFieldTruncated:
		d.config.logger.Debug("VE.Direct field truncated", zap.String("field", err.Field))
	default:
		d.config.logger.Warn("VE.Direct frame error", zap.Error(err))
	}
	if d.config.onError != nil {
		d.config.onError(err)
	}
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}
