package core

import (
	"context"
	"io"
	"time"

	"shutterfw/protocol"
)

// DefaultPollInterval paces the control loop. It bounds response latency
// only; correctness never depends on it.
const DefaultPollInterval = 5 * time.Millisecond

// Loop is the firmware control loop: it pulls whatever bytes the link
// has, feeds them to the frame decoder, executes the resulting commands,
// and flushes the responses, all synchronously before the next poll.
// Nothing in an iteration blocks waiting for bytes that may never
// arrive.
//
// The link's Read must be non-blocking or bounded-blocking: zero bytes
// (with or without a timeout error) counts as an idle poll.
type Loop struct {
	link     io.ReadWriter
	dec      protocol.Decoder
	disp     *Dispatcher
	actuator *Actuator
	store    *PositionStore
	out      *protocol.ResponseBuffer
	interval time.Duration
	rbuf     [64]byte
	panics   uint32
}

// NewLoop wires a complete firmware core for one wire dialect over the
// given byte link.
func NewLoop(link io.ReadWriter, dialect protocol.Dialect, driver ServoDriver) *Loop {
	store := NewPositionStore()
	actuator := NewActuator(driver, store)
	out := protocol.NewResponseBuffer()
	disp := NewDispatcher(actuator, store, out)

	l := &Loop{
		link:     link,
		disp:     disp,
		actuator: actuator,
		store:    store,
		out:      out,
		interval: DefaultPollInterval,
	}
	l.dec = protocol.NewDecoder(dialect, func(f protocol.Frame) {
		for _, cmd := range protocol.Parse(f) {
			disp.Execute(cmd)
		}
	})
	return l
}

// Store exposes the position store, read-only in spirit; targets and
// tests inspect it.
func (l *Loop) Store() *PositionStore {
	return l.store
}

// Park drives all channels to the High rest position. Call once before
// Run so the hardware matches the store's startup state.
func (l *Loop) Park() error {
	return l.actuator.Park()
}

// SetPollInterval overrides the loop pacing.
func (l *Loop) SetPollInterval(d time.Duration) {
	if d > 0 {
		l.interval = d
	}
}

// Poll runs one loop iteration. A panic anywhere in decode or dispatch
// is contained to the iteration: buffers are cleared and the next poll
// starts clean.
func (l *Loop) Poll() {
	defer func() {
		if r := recover(); r != nil {
			l.panics++
			l.dec.Reset()
			l.out.Reset()
		}
	}()
	l.poll()
}

func (l *Loop) poll() {
	n, err := l.link.Read(l.rbuf[:])
	if n > 0 {
		l.dec.Feed(l.rbuf[:n])
	} else {
		// Zero bytes, including read timeouts, is an idle poll; the
		// decoder uses these to bound how long it holds partial frames.
		_ = err
		l.dec.Idle()
	}
	l.flush()
}

func (l *Loop) flush() {
	if l.out.Len() == 0 {
		return
	}
	data := l.out.Bytes()
	for len(data) > 0 {
		n, err := l.link.Write(data)
		if err != nil || n == 0 {
			break
		}
		data = data[n:]
	}
	l.out.Reset()
}

// Run polls until the context is canceled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.Poll()
		time.Sleep(l.interval)
	}
}

// PanicCount reports how many iterations were abandoned to a recovered
// panic.
func (l *Loop) PanicCount() uint32 {
	return l.panics
}
