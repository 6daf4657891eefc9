package protocol

import "errors"

// ErrBufferFull is returned by RingBuffer.Write when the producer outran
// the consumer and bytes had to be dropped.
var ErrBufferFull = errors.New("ring buffer full")

// RingBuffer is a fixed-capacity byte FIFO between the serial reader and
// the poll loop. It is safe for one producer and one consumer without
// locking: the producer only advances write, the consumer only advances
// read. Read never blocks; an empty buffer reads zero bytes, which is
// exactly the byte-link contract the poll loop expects.
type RingBuffer struct {
	buf   []byte
	read  int
	write int
	size  int
}

func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buf:  make([]byte, capacity),
		size: capacity,
	}
}

// Write appends as much of p as fits. One slot is kept free to tell full
// from empty. Returns ErrBufferFull if anything was dropped.
func (r *RingBuffer) Write(p []byte) (int, error) {
	written := 0
	for _, b := range p {
		next := (r.write + 1) % r.size
		if next == r.read {
			return written, ErrBufferFull
		}
		r.buf[r.write] = b
		r.write = next
		written++
	}
	return written, nil
}

// Read copies up to len(p) buffered bytes into p and returns however many
// were available, possibly zero.
func (r *RingBuffer) Read(p []byte) (int, error) {
	n := 0
	for i := range p {
		if r.read == r.write {
			break
		}
		p[i] = r.buf[r.read]
		r.read = (r.read + 1) % r.size
		n++
	}
	return n, nil
}

// Available returns the number of buffered bytes.
func (r *RingBuffer) Available() int {
	if r.write >= r.read {
		return r.write - r.read
	}
	return r.size - r.read + r.write
}

// Free returns how many bytes can still be written.
func (r *RingBuffer) Free() int {
	return r.size - r.Available() - 1
}

func (r *RingBuffer) IsEmpty() bool {
	return r.read == r.write
}

func (r *RingBuffer) Reset() {
	r.read = 0
	r.write = 0
}

// responseInitialCap covers every single-command response with room to
// spare; bursts of queries in one poll grow the buffer as needed.
const responseInitialCap = 256

// ResponseBuffer accumulates encoded responses for one poll iteration.
// The loop flushes it to the byte link after the poll's commands have
// executed.
type ResponseBuffer struct {
	buf []byte
}

func NewResponseBuffer() *ResponseBuffer {
	return &ResponseBuffer{buf: make([]byte, 0, responseInitialCap)}
}

func (r *ResponseBuffer) appendBytes(p ...byte) {
	r.buf = append(r.buf, p...)
}

func (r *ResponseBuffer) appendString(s string) {
	r.buf = append(r.buf, s...)
}

// appendUint appends the decimal text of n without pulling in fmt, which
// matters for the TinyGo targets.
func (r *ResponseBuffer) appendUint(n uint32) {
	if n == 0 {
		r.buf = append(r.buf, '0')
		return
	}
	var tmp [10]byte
	pos := len(tmp)
	for n > 0 {
		pos--
		tmp[pos] = byte('0' + n%10)
		n /= 10
	}
	r.buf = append(r.buf, tmp[pos:]...)
}

// Bytes returns the accumulated responses. The slice is invalidated by
// the next append or Reset.
func (r *ResponseBuffer) Bytes() []byte {
	return r.buf
}

func (r *ResponseBuffer) Len() int {
	return len(r.buf)
}

func (r *ResponseBuffer) Reset() {
	r.buf = r.buf[:0]
}
