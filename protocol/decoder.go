package protocol

// Frame is one fully delimited unit of input recovered from the byte
// stream, tagged with the dialect that framed it. The payload slice is
// only valid for the duration of the sink call.
type Frame struct {
	Dialect Dialect
	Payload []byte
}

// FrameSink receives each completed frame in arrival order.
type FrameSink func(f Frame)

// Decoder reconstructs frames from a byte stream delivered in arbitrary
// chunks. Feed consumes whatever the current poll produced (possibly
// completing zero, one, or many frames) and never blocks waiting for
// more bytes; partial frames are held across polls. Idle is called on
// polls that produced no bytes so a decoder can bound how long it holds
// a partial frame.
type Decoder interface {
	Feed(data []byte)
	Idle()
	Reset()
}

// NewDecoder returns the decoder for a dialect. The delimiter dialect
// gets the dual decoder, since boards speaking it also accept legacy
// ASCII on the same line for backward compatibility.
func NewDecoder(d Dialect, sink FrameSink) Decoder {
	switch d {
	case DialectDelimiter:
		return NewDualDecoder(sink)
	case DialectStructured:
		return NewStructuredDecoder(sink)
	}
	return NewLineDecoder(sink)
}

// DelimiterDecoder recovers frames delimited by FrameStart/FrameEnd.
// A start byte always resets the payload buffer, so a start byte seen
// mid-frame abandons the partial frame and resynchronizes. Payload bytes
// past MaxDelimiterPayload are dropped while the frame stays open.
type DelimiterDecoder struct {
	sink    FrameSink
	buf     [MaxDelimiterPayload]byte
	n       int
	inFrame bool
}

func NewDelimiterDecoder(sink FrameSink) *DelimiterDecoder {
	return &DelimiterDecoder{sink: sink}
}

func (d *DelimiterDecoder) Feed(data []byte) {
	for _, b := range data {
		d.feedByte(b)
	}
}

func (d *DelimiterDecoder) feedByte(b byte) {
	switch {
	case b == FrameStart:
		d.n = 0
		d.inFrame = true
	case b == FrameEnd && d.inFrame:
		d.sink(Frame{Dialect: DialectDelimiter, Payload: d.buf[:d.n]})
		d.inFrame = false
		d.n = 0
	case d.inFrame && d.n < len(d.buf):
		d.buf[d.n] = b
		d.n++
	}
	// Bytes outside a frame, and payload bytes past the cap, are dropped.
}

// Idle is a no-op: delimiter framing abandons a stalled partial frame at
// the next start byte rather than on a clock.
func (d *DelimiterDecoder) Idle() {}

func (d *DelimiterDecoder) Reset() {
	d.n = 0
	d.inFrame = false
}

// LineDecoder recovers CR/LF-terminated legacy ASCII frames. A line
// exceeding MaxLineLength is refused outright: the buffered prefix and
// everything up to the next terminator are discarded as one malformed
// frame. A non-empty buffer left without a terminator is flushed as a
// frame after IdleFlushPolls empty polls, since the oldest boards send
// bare command characters with no terminator at all.
type LineDecoder struct {
	sink       FrameSink
	buf        [MaxLineLength]byte
	n          int
	idle       int
	discarding bool
	malformed  uint32
}

func NewLineDecoder(sink FrameSink) *LineDecoder {
	return &LineDecoder{sink: sink}
}

func (d *LineDecoder) Feed(data []byte) {
	if len(data) > 0 {
		d.idle = 0
	}
	for _, b := range data {
		d.feedByte(b)
	}
}

func (d *LineDecoder) feedByte(b byte) {
	if b == '\r' || b == '\n' {
		if d.discarding {
			d.discarding = false
			return
		}
		d.flush()
		return
	}
	if d.discarding {
		return
	}
	if d.n >= len(d.buf) {
		// Oversized line: refuse the whole thing.
		d.n = 0
		d.discarding = true
		d.malformed++
		return
	}
	d.buf[d.n] = b
	d.n++
}

func (d *LineDecoder) flush() {
	if d.n > 0 {
		d.sink(Frame{Dialect: DialectLegacy, Payload: d.buf[:d.n]})
		d.n = 0
	}
}

func (d *LineDecoder) Idle() {
	if d.n == 0 {
		return
	}
	d.idle++
	if d.idle >= IdleFlushPolls {
		d.flush()
		d.idle = 0
	}
}

func (d *LineDecoder) Reset() {
	d.n = 0
	d.idle = 0
	d.discarding = false
}

// MalformedCount reports how many oversized lines were refused.
func (d *LineDecoder) MalformedCount() uint32 {
	return d.malformed
}

// StructuredDecoder recovers frames of the structured binary dialect,
// which has no delimiters: the opcode byte fixes the frame length.
// Argument bytes that have not arrived yet are waited for across polls,
// but only for IdleFlushPolls empty polls; after that the partial frame
// is flushed short so the interpreter reports it instead of the loop
// stalling on bytes that may never come.
type StructuredDecoder struct {
	sink    FrameSink
	buf     [MaxStructuredFrame]byte
	n       int
	need    int
	idle    int
	expired uint32
}

func NewStructuredDecoder(sink FrameSink) *StructuredDecoder {
	return &StructuredDecoder{sink: sink}
}

// structuredFrameLen returns the total frame length an opcode demands.
// Unknown opcodes complete immediately so the interpreter can reject
// them without the decoder guessing at an argument count.
func structuredFrameLen(op byte) int {
	switch op {
	case OpMove:
		return 3
	case OpQuery:
		return 2
	}
	return 1
}

func (d *StructuredDecoder) Feed(data []byte) {
	if len(data) > 0 {
		d.idle = 0
	}
	for _, b := range data {
		if d.n == 0 {
			d.buf[0] = b
			d.n = 1
			d.need = structuredFrameLen(b)
		} else {
			d.buf[d.n] = b
			d.n++
		}
		if d.n >= d.need {
			d.sink(Frame{Dialect: DialectStructured, Payload: d.buf[:d.n]})
			d.n = 0
		}
	}
}

func (d *StructuredDecoder) Idle() {
	if d.n == 0 {
		return
	}
	d.idle++
	if d.idle >= IdleFlushPolls {
		// Sender stalled mid-frame. Flush what we have; the short frame
		// draws an error response and the decoder is clean for the next
		// command.
		d.sink(Frame{Dialect: DialectStructured, Payload: d.buf[:d.n]})
		d.n = 0
		d.idle = 0
		d.expired++
	}
}

func (d *StructuredDecoder) Reset() {
	d.n = 0
	d.need = 0
	d.idle = 0
}

// ExpiredCount reports how many partial frames were flushed on deadline.
func (d *StructuredDecoder) ExpiredCount() uint32 {
	return d.expired
}

// DualDecoder multiplexes the delimiter and legacy dialects on one line,
// the backward-compatibility mode of the delimiter-protocol boards.
// A FrameStart byte opens a binary frame and all bytes up to its end
// belong to it; every byte outside a binary frame feeds the legacy line
// decoder.
type DualDecoder struct {
	delim *DelimiterDecoder
	line  *LineDecoder
}

func NewDualDecoder(sink FrameSink) *DualDecoder {
	return &DualDecoder{
		delim: NewDelimiterDecoder(sink),
		line:  NewLineDecoder(sink),
	}
}

func (d *DualDecoder) Feed(data []byte) {
	if len(data) > 0 {
		d.line.idle = 0
	}
	for _, b := range data {
		if d.delim.inFrame || b == FrameStart {
			d.delim.feedByte(b)
			continue
		}
		d.line.feedByte(b)
	}
}

func (d *DualDecoder) Idle() {
	d.delim.Idle()
	d.line.Idle()
}

func (d *DualDecoder) Reset() {
	d.delim.Reset()
	d.line.Reset()
}
