package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestRingBufferBasic(t *testing.T) {
	ring := NewRingBuffer(10)

	if !ring.IsEmpty() {
		t.Error("new ring should be empty")
	}

	var empty [4]byte
	n, err := ring.Read(empty[:])
	if n != 0 || err != nil {
		t.Errorf("empty read: n=%d err=%v, want 0, nil", n, err)
	}

	if n, err := ring.Write([]byte{1, 2, 3, 4, 5}); n != 5 || err != nil {
		t.Fatalf("write: n=%d err=%v", n, err)
	}
	if ring.Available() != 5 {
		t.Errorf("expected 5 available, got %d", ring.Available())
	}

	buf := make([]byte, 3)
	n, _ = ring.Read(buf)
	if n != 3 || !bytes.Equal(buf, []byte{1, 2, 3}) {
		t.Errorf("read mismatch: n=%d buf=%v", n, buf)
	}
	if ring.Available() != 2 {
		t.Errorf("expected 2 available, got %d", ring.Available())
	}
}

func TestRingBufferFull(t *testing.T) {
	ring := NewRingBuffer(5)

	// One slot stays free to distinguish full from empty.
	n, err := ring.Write([]byte{1, 2, 3, 4, 5, 6})
	if n != 4 || !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected 4 bytes and ErrBufferFull, got n=%d err=%v", n, err)
	}
	if ring.Free() != 0 {
		t.Errorf("expected no free space, got %d", ring.Free())
	}
}

func TestRingBufferWrapAround(t *testing.T) {
	ring := NewRingBuffer(5)

	ring.Write([]byte{1, 2, 3, 4})
	buf := make([]byte, 2)
	ring.Read(buf)

	if n, err := ring.Write([]byte{5, 6}); n != 2 || err != nil {
		t.Fatalf("wrap write: n=%d err=%v", n, err)
	}

	all := make([]byte, 4)
	n, _ := ring.Read(all)
	if n != 4 || !bytes.Equal(all, []byte{3, 4, 5, 6}) {
		t.Errorf("wrap read mismatch: n=%d buf=%v", n, all)
	}
}

func TestResponseBufferReset(t *testing.T) {
	out := NewResponseBuffer()

	EncodeHandshakeAck(out, DialectStructured)
	if out.Len() != 1 {
		t.Fatalf("expected 1 byte, got %d", out.Len())
	}

	out.Reset()
	if out.Len() != 0 {
		t.Errorf("expected empty after reset, got %d", out.Len())
	}
}

func TestResponseBufferUintFormatting(t *testing.T) {
	out := NewResponseBuffer()
	out.appendUint(0)
	out.appendString(" ")
	out.appendUint(1100)
	out.appendString(" ")
	out.appendUint(4294967295)

	if string(out.Bytes()) != "0 1100 4294967295" {
		t.Errorf("got %q", out.Bytes())
	}
}
