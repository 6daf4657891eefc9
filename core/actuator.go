package core

import "shutterfw/protocol"

// ServoDriver is the abstract servo interface the core drives; target
// code registers the platform implementation. The pulse width is the
// active-high PWM duration in microseconds.
type ServoDriver interface {
	SetPulseWidth(channel uint8, micros uint32) error
}

// Actuator translates validated moves into driver calls and keeps the
// position store in step with the hardware.
type Actuator struct {
	driver ServoDriver
	store  *PositionStore
}

func NewActuator(driver ServoDriver, store *PositionStore) *Actuator {
	return &Actuator{driver: driver, store: store}
}

// Move drives the channel to the level's pulse width and records it.
// The store is only updated after the driver accepted the move, so a
// query never reports a position the hardware was not told to take.
func (a *Actuator) Move(channel uint8, level protocol.Level) error {
	micros := level.Pulsewidth()
	if err := a.driver.SetPulseWidth(channel, micros); err != nil {
		return err
	}
	return a.store.set(channel, micros)
}

// Park drives every channel to the High rest position. Called once at
// startup so the hardware matches the store's initial state.
func (a *Actuator) Park() error {
	for ch := uint8(0); ch < protocol.NumChannels; ch++ {
		if err := a.Move(ch, protocol.LevelHigh); err != nil {
			return err
		}
	}
	return nil
}
