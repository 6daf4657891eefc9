//go:build rp2040 || rp2350

package main

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/servo"

	"shutterfw/protocol"
)

// Shutter servo pins. GPIO2/GPIO3 share PWM slice 1 and GPIO4/GPIO5
// share slice 2, so four servos need only two slices.
var servoPins = [protocol.NumChannels]machine.Pin{
	machine.GPIO2,
	machine.GPIO3,
	machine.GPIO4,
	machine.GPIO5,
}

// shutterServos implements core.ServoDriver over the hardware PWM
// slices.
type shutterServos struct {
	servos [protocol.NumChannels]servo.Servo
}

func newShutterServos() (*shutterServos, error) {
	arrayA, err := servo.NewArray(machine.PWM1)
	if err != nil {
		return nil, err
	}
	arrayB, err := servo.NewArray(machine.PWM2)
	if err != nil {
		return nil, err
	}

	d := &shutterServos{}
	for i, pin := range servoPins {
		array := arrayA
		if i >= 2 {
			array = arrayB
		}
		d.servos[i], err = array.Add(pin)
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *shutterServos) SetPulseWidth(channel uint8, micros uint32) error {
	if int(channel) >= len(d.servos) {
		return errors.New("channel out of range")
	}
	return d.servos[channel].SetMicroseconds(int16(micros))
}
