//go:build rp2040 || rp2350

package main

import (
	"io"

	"machine"
)

// InitUSB initializes USB serial communication. On the RP2040,
// machine.Serial is the USB CDC-ACM port; the descriptors are set by
// TinyGo's runtime.
func InitUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

// usbLink adapts the board's serial to the poll loop's byte link.
// Inbound bytes come from the ring buffer the reader goroutine fills, so
// Read never blocks; outbound bytes go straight to USB.
type usbLink struct {
	in io.Reader
}

func (l *usbLink) Read(p []byte) (int, error) {
	return l.in.Read(p)
}

func (l *usbLink) Write(p []byte) (int, error) {
	return machine.Serial.Write(p)
}
