package protocol

import (
	"bytes"
	"testing"
)

// collectFrames returns a decoder factory's frames as copies, since
// payload slices are only valid during the sink call.
type frameCollector struct {
	frames   []Frame
	payloads [][]byte
}

func (c *frameCollector) sink(f Frame) {
	c.frames = append(c.frames, Frame{Dialect: f.Dialect})
	c.payloads = append(c.payloads, append([]byte(nil), f.Payload...))
}

func TestDelimiterDecoderSingleFrame(t *testing.T) {
	var got frameCollector
	dec := NewDelimiterDecoder(got.sink)

	dec.Feed([]byte{FrameStart, OpMove, 0x02, FrameEnd})

	if len(got.payloads) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(got.payloads))
	}
	if !bytes.Equal(got.payloads[0], []byte{OpMove, 0x02}) {
		t.Errorf("payload mismatch: got %v", got.payloads[0])
	}
	if got.frames[0].Dialect != DialectDelimiter {
		t.Errorf("expected delimiter dialect, got %v", got.frames[0].Dialect)
	}
}

func TestDelimiterDecoderChunkingInvariance(t *testing.T) {
	stream := []byte{
		FrameStart, OpMove, 0x12, FrameEnd,
		FrameStart, OpQuery, 0x03, FrameEnd,
	}

	var whole frameCollector
	dec := NewDelimiterDecoder(whole.sink)
	dec.Feed(stream)

	// Split the stream at every position, and also one byte at a time.
	for split := 0; split <= len(stream); split++ {
		var part frameCollector
		d := NewDelimiterDecoder(part.sink)
		d.Feed(stream[:split])
		d.Feed(stream[split:])

		if len(part.payloads) != len(whole.payloads) {
			t.Fatalf("split %d: got %d frames, want %d", split, len(part.payloads), len(whole.payloads))
		}
		for i := range part.payloads {
			if !bytes.Equal(part.payloads[i], whole.payloads[i]) {
				t.Errorf("split %d frame %d: got %v want %v", split, i, part.payloads[i], whole.payloads[i])
			}
		}
	}

	var single frameCollector
	d := NewDelimiterDecoder(single.sink)
	for _, b := range stream {
		d.Feed([]byte{b})
	}
	if len(single.payloads) != 2 {
		t.Fatalf("byte-at-a-time: got %d frames, want 2", len(single.payloads))
	}
}

func TestDelimiterDecoderResync(t *testing.T) {
	var got frameCollector
	dec := NewDelimiterDecoder(got.sink)

	// A start byte mid-frame abandons the partial buffer and the frame
	// that follows decodes cleanly.
	dec.Feed([]byte{FrameStart, OpMove, FrameStart, OpQuery, 0x00, FrameEnd})

	if len(got.payloads) != 1 {
		t.Fatalf("expected 1 frame after resync, got %d", len(got.payloads))
	}
	if !bytes.Equal(got.payloads[0], []byte{OpQuery, 0x00}) {
		t.Errorf("resynced payload mismatch: got %v", got.payloads[0])
	}
}

func TestDelimiterDecoderOverflowContainment(t *testing.T) {
	var got frameCollector
	dec := NewDelimiterDecoder(got.sink)

	noise := make([]byte, 0, 64)
	noise = append(noise, FrameStart)
	for i := 0; i < 40; i++ {
		noise = append(noise, 0x55)
	}
	noise = append(noise, FrameEnd)
	dec.Feed(noise)

	if len(got.payloads) != 1 {
		t.Fatalf("expected the oversized frame to complete, got %d frames", len(got.payloads))
	}
	if len(got.payloads[0]) != MaxDelimiterPayload {
		t.Errorf("expected payload capped at %d, got %d", MaxDelimiterPayload, len(got.payloads[0]))
	}

	// Subsequent decoding is unaffected.
	dec.Feed([]byte{FrameStart, OpQuery, 0x01, FrameEnd})
	if len(got.payloads) != 2 || !bytes.Equal(got.payloads[1], []byte{OpQuery, 0x01}) {
		t.Errorf("decoder did not recover after overflow: %v", got.payloads)
	}
}

func TestDelimiterDecoderIgnoresBytesOutsideFrames(t *testing.T) {
	var got frameCollector
	dec := NewDelimiterDecoder(got.sink)

	dec.Feed([]byte{0x11, 0x22, FrameEnd, FrameStart, OpMove, 0x00, FrameEnd, 0x33})

	if len(got.payloads) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(got.payloads))
	}
}

func TestLineDecoderBasic(t *testing.T) {
	var got frameCollector
	dec := NewLineDecoder(got.sink)

	dec.Feed([]byte("q\r\n"))
	dec.Feed([]byte("?1?2?3\n"))
	dec.Feed([]byte("\r\n\n")) // blank lines produce nothing

	if len(got.payloads) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got.payloads))
	}
	if string(got.payloads[0]) != "q" {
		t.Errorf("frame 0: got %q", got.payloads[0])
	}
	if string(got.payloads[1]) != "?1?2?3" {
		t.Errorf("frame 1: got %q", got.payloads[1])
	}
	if got.frames[0].Dialect != DialectLegacy {
		t.Errorf("expected legacy dialect, got %v", got.frames[0].Dialect)
	}
}

func TestLineDecoderChunkingInvariance(t *testing.T) {
	var got frameCollector
	dec := NewLineDecoder(got.sink)

	for _, b := range []byte("?1\r\nq\n") {
		dec.Feed([]byte{b})
	}

	if len(got.payloads) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got.payloads))
	}
	if string(got.payloads[0]) != "?1" || string(got.payloads[1]) != "q" {
		t.Errorf("frames mismatch: %q %q", got.payloads[0], got.payloads[1])
	}
}

func TestLineDecoderOversizedLineRefused(t *testing.T) {
	var got frameCollector
	dec := NewLineDecoder(got.sink)

	long := make([]byte, MaxLineLength+50)
	for i := range long {
		long[i] = 'a'
	}
	dec.Feed(long)
	dec.Feed([]byte("\n"))

	if len(got.payloads) != 0 {
		t.Fatalf("oversized line must be refused, got %d frames", len(got.payloads))
	}
	if dec.MalformedCount() != 1 {
		t.Errorf("expected 1 malformed event, got %d", dec.MalformedCount())
	}

	dec.Feed([]byte("q\n"))
	if len(got.payloads) != 1 || string(got.payloads[0]) != "q" {
		t.Errorf("decoder did not recover after oversized line: %v", got.payloads)
	}
}

func TestLineDecoderIdleFlush(t *testing.T) {
	var got frameCollector
	dec := NewLineDecoder(got.sink)

	// Bare command with no terminator, the oldest boards' habit.
	dec.Feed([]byte("q"))
	for i := 0; i < IdleFlushPolls-1; i++ {
		dec.Idle()
	}
	if len(got.payloads) != 0 {
		t.Fatal("flushed before the idle deadline")
	}
	dec.Idle()
	if len(got.payloads) != 1 || string(got.payloads[0]) != "q" {
		t.Fatalf("expected idle flush of %q, got %v", "q", got.payloads)
	}

	// New bytes reset the idle count.
	dec.Feed([]byte("?"))
	for i := 0; i < IdleFlushPolls-1; i++ {
		dec.Idle()
	}
	dec.Feed([]byte("2"))
	dec.Idle()
	if len(got.payloads) != 1 {
		t.Fatal("idle count not reset by new bytes")
	}
}

func TestStructuredDecoderFrameLengths(t *testing.T) {
	var got frameCollector
	dec := NewStructuredDecoder(got.sink)

	dec.Feed([]byte{OpMove, 0x02, 0x01, OpQuery, 0x00, OpHandshake, 0x77})

	want := [][]byte{
		{OpMove, 0x02, 0x01},
		{OpQuery, 0x00},
		{OpHandshake},
		{0x77}, // unknown opcode completes immediately
	}
	if len(got.payloads) != len(want) {
		t.Fatalf("expected %d frames, got %d", len(want), len(got.payloads))
	}
	for i := range want {
		if !bytes.Equal(got.payloads[i], want[i]) {
			t.Errorf("frame %d: got %v want %v", i, got.payloads[i], want[i])
		}
	}
}

func TestStructuredDecoderPartialAcrossPolls(t *testing.T) {
	var got frameCollector
	dec := NewStructuredDecoder(got.sink)

	dec.Feed([]byte{OpMove})
	dec.Idle()
	dec.Feed([]byte{0x01})
	dec.Idle()
	dec.Feed([]byte{0x03})

	if len(got.payloads) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(got.payloads))
	}
	if !bytes.Equal(got.payloads[0], []byte{OpMove, 0x01, 0x03}) {
		t.Errorf("payload mismatch: got %v", got.payloads[0])
	}
}

func TestStructuredDecoderDeadlineFlush(t *testing.T) {
	var got frameCollector
	dec := NewStructuredDecoder(got.sink)

	dec.Feed([]byte{OpMove, 0x00})
	for i := 0; i < IdleFlushPolls; i++ {
		dec.Idle()
	}

	if len(got.payloads) != 1 {
		t.Fatalf("expected the stalled frame flushed, got %d frames", len(got.payloads))
	}
	if !bytes.Equal(got.payloads[0], []byte{OpMove, 0x00}) {
		t.Errorf("short frame mismatch: got %v", got.payloads[0])
	}
	if dec.ExpiredCount() != 1 {
		t.Errorf("expected 1 expired frame, got %d", dec.ExpiredCount())
	}

	// The decoder is clean for the next command.
	dec.Feed([]byte{OpHandshake})
	if len(got.payloads) != 2 || !bytes.Equal(got.payloads[1], []byte{OpHandshake}) {
		t.Errorf("decoder did not recover after deadline flush: %v", got.payloads)
	}
}

func TestDualDecoderMuxesDialects(t *testing.T) {
	var got frameCollector
	dec := NewDualDecoder(got.sink)

	// Legacy bytes interleaved with a binary frame on the same line.
	dec.Feed([]byte{'q'})
	dec.Feed([]byte{FrameStart, OpMove, 0x12, FrameEnd})
	dec.Feed([]byte("?1\n"))

	if len(got.payloads) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got.payloads))
	}
	if got.frames[0].Dialect != DialectDelimiter || !bytes.Equal(got.payloads[0], []byte{OpMove, 0x12}) {
		t.Errorf("binary frame mismatch: %v %v", got.frames[0].Dialect, got.payloads[0])
	}
	if got.frames[1].Dialect != DialectLegacy || string(got.payloads[1]) != "q?1" {
		t.Errorf("legacy frame mismatch: %v %q", got.frames[1].Dialect, got.payloads[1])
	}
}

func TestNewDecoderPicksDialect(t *testing.T) {
	sink := func(Frame) {}
	if _, ok := NewDecoder(DialectLegacy, sink).(*LineDecoder); !ok {
		t.Error("legacy dialect should decode lines")
	}
	if _, ok := NewDecoder(DialectDelimiter, sink).(*DualDecoder); !ok {
		t.Error("delimiter dialect should use the dual decoder")
	}
	if _, ok := NewDecoder(DialectStructured, sink).(*StructuredDecoder); !ok {
		t.Error("structured dialect should use the structured decoder")
	}
}
