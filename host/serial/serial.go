// Package serial abstracts the host-side serial port so the shutter
// client can run over real hardware or a test double.
package serial

import "io"

// Port is a byte link to a shutter board. Reads are bounded by the
// configured timeout and return zero bytes when nothing arrived.
type Port interface {
	io.ReadWriteCloser

	// Flush pushes any buffered output to the device.
	Flush() error
}

// Config holds serial port parameters.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud rate. The shutter boards run at 115200.
	Baud int

	// Read timeout in milliseconds. Zero blocks indefinitely, which the
	// client never wants; DefaultConfig picks a bounded value.
	ReadTimeout int
}

// DefaultConfig returns the configuration the shutter boards expect.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 500,
	}
}
