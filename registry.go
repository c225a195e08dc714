package vedirect

// HexHandler receives every HEX frame that passes its checksum.
//
// frame holds the raw bytes from the ':' marker up to the checksum pair, the
// terminating newline excluded. It aliases the decoder's buffer and is only
// valid for the duration of the call; copy it to keep it. Handlers run
// synchronously on the goroutine that feeds the decoder and must return
// quickly.
type HexHandler interface {
	HandleHexFrame(frame []byte)
}

// HexHandlerFunc adapts a function to HexHandler. A closure stands in for a
// handler context.
type HexHandlerFunc func(frame []byte)

func (f HexHandlerFunc) HandleHexFrame(frame []byte) {
	f(frame)
}

// RegisterHexHandler appends h to the handlers invoked for each valid HEX
// frame, in registration order. There is no way to unregister.
func (d *Decoder) RegisterHexHandler(h HexHandler) {
	if h == nil {
		return
	}
	d.handlers = append(d.handlers, h)
}
