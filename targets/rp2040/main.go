//go:build rp2040 || rp2350

package main

import (
	"machine"
	"time"

	"shutterfw/core"
	"shutterfw/protocol"
)

// wireDialect selects the protocol this board speaks. The delimiter
// dialect also accepts legacy ASCII on the same line, so older host
// software keeps working.
const wireDialect = protocol.DialectDelimiter

func main() {
	InitUSB()

	driver, err := newShutterServos()
	if err != nil {
		// PWM configuration failed; nothing useful can run. Signal with
		// the onboard LED so the fault is at least visible.
		blinkForever()
	}

	ring := protocol.NewRingBuffer(256)
	loop := core.NewLoop(&usbLink{in: ring}, wireDialect, driver)

	// Drive every shutter to the wide-open rest position before
	// accepting commands.
	_ = loop.Park()

	// Reading USB in its own goroutine keeps bytes flowing into the
	// ring while a poll iteration is still executing commands.
	go usbReaderLoop(ring)

	for {
		loop.Poll()
		time.Sleep(core.DefaultPollInterval)
	}
}

func usbReaderLoop(ring *protocol.RingBuffer) {
	var one [1]byte
	for {
		if machine.Serial.Buffered() > 0 {
			b, err := machine.Serial.ReadByte()
			if err == nil {
				one[0] = b
				// A full ring drops bytes; the decoders resynchronize on
				// the next frame boundary.
				_, _ = ring.Write(one[:])
			}
			continue
		}
		time.Sleep(time.Millisecond)
	}
}

func blinkForever() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
