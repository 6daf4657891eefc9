// Package shutter is the host-side client for the servo shutter boards.
// It speaks any of the three wire dialects and hides the per-dialect
// request and response layouts behind Move/Position/Handshake calls.
package shutter

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"shutterfw/host/serial"
	"shutterfw/protocol"
)

var (
	// ErrTimeout means the board sent no (or an incomplete) response
	// within the client's deadline.
	ErrTimeout = errors.New("timed out waiting for response")

	// ErrRejected means the board answered with its error status.
	ErrRejected = errors.New("board rejected the command")
)

// Client drives one shutter board over an open serial port.
type Client struct {
	port    serial.Port
	dialect protocol.Dialect
	timeout time.Duration
	retries int
}

// NewClient wraps an open port. The dialect must match the firmware on
// the other end.
func NewClient(port serial.Port, dialect protocol.Dialect) *Client {
	return &Client{
		port:    port,
		dialect: dialect,
		timeout: 500 * time.Millisecond,
		retries: 3,
	}
}

// SetTimeout overrides the per-response deadline.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// SetRetries overrides how many attempts a query or handshake gets.
func (c *Client) SetRetries(n int) {
	if n > 0 {
		c.retries = n
	}
}

// Dialect reports the wire dialect the client speaks.
func (c *Client) Dialect() protocol.Dialect {
	return c.dialect
}

// Handshake confirms a structured-dialect board is present and ready.
func (c *Client) Handshake() error {
	if c.dialect != protocol.DialectStructured {
		return fmt.Errorf("handshake: %s dialect has no handshake", c.dialect)
	}
	return c.withRetries(func() error {
		if err := c.send([]byte{protocol.OpHandshake}); err != nil {
			return err
		}
		b, err := c.readByte(time.Now().Add(c.timeout))
		if err != nil {
			return err
		}
		if b != protocol.HandshakeAck {
			return fmt.Errorf("handshake: unexpected reply 0x%02X", b)
		}
		return nil
	})
}

// Move commands a channel to a level. The legacy dialect is
// fire-and-forget; both binary dialects wait for the status byte.
func (c *Client) Move(channel uint8, level protocol.Level) error {
	if channel >= protocol.NumChannels {
		return fmt.Errorf("move: channel %d out of range", channel)
	}

	var req []byte
	switch c.dialect {
	case protocol.DialectLegacy:
		cmd, ok := protocol.LegacyCommand(channel, level)
		if !ok {
			return fmt.Errorf("move: no legacy command for channel %d", channel)
		}
		return c.send([]byte{cmd})

	case protocol.DialectDelimiter:
		param := channel<<4 | level.DelimiterCode()
		req = []byte{protocol.FrameStart, protocol.OpMove, param, protocol.FrameEnd}

	default:
		req = []byte{protocol.OpMove, channel, level.StructuredCode()}
	}

	return c.withRetries(func() error {
		if err := c.send(req); err != nil {
			return err
		}
		deadline := time.Now().Add(c.timeout)
		status, err := c.readByte(deadline)
		if err != nil {
			return err
		}
		switch status {
		case protocol.StatusOK:
			return nil
		case protocol.FrameStart:
			// The delimiter dialect rejects with a full error frame
			// rather than a bare status byte. Drain it.
			var rest [4]byte
			if err := c.readFull(rest[:], deadline); err != nil {
				return err
			}
			return ErrRejected
		}
		return ErrRejected
	})
}

// Position queries the stored pulse width of a channel in microseconds.
func (c *Client) Position(channel uint8) (uint32, error) {
	if channel >= protocol.NumChannels {
		return 0, fmt.Errorf("query: channel %d out of range", channel)
	}

	var micros uint32
	err := c.withRetries(func() error {
		var err error
		switch c.dialect {
		case protocol.DialectLegacy:
			micros, err = c.queryLegacy(channel)
		case protocol.DialectDelimiter:
			micros, err = c.queryDelimiter(channel)
		default:
			micros, err = c.queryStructured(channel)
		}
		return err
	})
	return micros, err
}

func (c *Client) queryLegacy(channel uint8) (uint32, error) {
	if err := c.send([]byte{'?', '1' + channel}); err != nil {
		return 0, err
	}
	line, err := c.readLine(time.Now().Add(c.timeout))
	if err != nil {
		return 0, err
	}
	// Reply layout: "<channel+1>: <pulse-width>".
	num, value, ok := strings.Cut(line, ":")
	if !ok {
		return 0, fmt.Errorf("query: malformed reply %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil || n != int(channel)+1 {
		return 0, fmt.Errorf("query: reply %q is not for channel %d", line, channel+1)
	}
	micros, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("query: malformed pulse width in %q", line)
	}
	return uint32(micros), nil
}

func (c *Client) queryDelimiter(channel uint8) (uint32, error) {
	if err := c.send([]byte{protocol.FrameStart, protocol.OpQuery, channel, protocol.FrameEnd}); err != nil {
		return 0, err
	}

	// Responses come back in the same start/end framing the requests
	// use, so the firmware's own decoder recovers them.
	var payload []byte
	dec := protocol.NewDelimiterDecoder(func(f protocol.Frame) {
		if payload == nil {
			payload = append([]byte(nil), f.Payload...)
		}
	})

	deadline := time.Now().Add(c.timeout)
	var buf [16]byte
	for payload == nil {
		n, err := c.readSome(buf[:], deadline)
		if err != nil {
			return 0, err
		}
		dec.Feed(buf[:n])
	}

	if len(payload) < 1 || payload[0] != protocol.StatusOK {
		return 0, ErrRejected
	}
	if len(payload) < 4 {
		return 0, fmt.Errorf("query: short reply (%d bytes)", len(payload))
	}
	if payload[1] != channel {
		return 0, fmt.Errorf("query: reply for channel %d, wanted %d", payload[1], channel)
	}
	return uint32(payload[2])<<8 | uint32(payload[3]), nil
}

func (c *Client) queryStructured(channel uint8) (uint32, error) {
	if err := c.send([]byte{protocol.OpQuery, channel}); err != nil {
		return 0, err
	}
	deadline := time.Now().Add(c.timeout)
	status, err := c.readByte(deadline)
	if err != nil {
		return 0, err
	}
	if status != protocol.StatusOK {
		return 0, ErrRejected
	}
	var rest [5]byte
	if err := c.readFull(rest[:], deadline); err != nil {
		return 0, err
	}
	if rest[0] != channel {
		return 0, fmt.Errorf("query: reply for channel %d, wanted %d", rest[0], channel)
	}
	return uint32(rest[1])<<24 | uint32(rest[2])<<16 | uint32(rest[3])<<8 | uint32(rest[4]), nil
}

// send flushes stale input, then writes the full request.
func (c *Client) send(data []byte) error {
	if err := c.port.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	for len(data) > 0 {
		n, err := c.port.Write(data)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}
		data = data[n:]
	}
	return nil
}

func (c *Client) withRetries(op func() error) error {
	var err error
	for attempt := 0; attempt < c.retries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if !errors.Is(err, ErrTimeout) {
			return err
		}
	}
	return err
}

// readSome reads at least one byte before the deadline. Zero-byte reads
// are how bounded-timeout ports report "nothing yet", so it just tries
// again until the deadline passes.
func (c *Client) readSome(buf []byte, deadline time.Time) (int, error) {
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			return n, nil
		}
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("read: %w", err)
		}
		if time.Now().After(deadline) {
			return 0, ErrTimeout
		}
	}
}

func (c *Client) readByte(deadline time.Time) (byte, error) {
	var one [1]byte
	if _, err := c.readSome(one[:], deadline); err != nil {
		return 0, err
	}
	return one[0], nil
}

func (c *Client) readFull(buf []byte, deadline time.Time) error {
	got := 0
	for got < len(buf) {
		n, err := c.readSome(buf[got:], deadline)
		if err != nil {
			return err
		}
		got += n
	}
	return nil
}

func (c *Client) readLine(deadline time.Time) (string, error) {
	var line []byte
	var one [1]byte
	for {
		if _, err := c.readSome(one[:], deadline); err != nil {
			return "", err
		}
		switch one[0] {
		case '\n':
			return string(line), nil
		case '\r':
			// Terminator is CRLF; wait for the LF.
		default:
			line = append(line, one[0])
		}
	}
}
