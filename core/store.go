// Package core holds the firmware semantics: the per-channel position
// store, the actuator adapter over the servo HAL, command execution, and
// the poll loop that ties them to a byte link.
package core

import (
	"errors"

	"shutterfw/protocol"
)

// ErrBadChannel reports a channel index outside [0, NumChannels). The
// grammar rejects these before execution; the store checks again so it
// can never be indexed out of bounds.
var ErrBadChannel = errors.New("channel out of range")

// PositionStore holds the last commanded pulse width per channel. It is
// owned by the single control loop: only the Actuator writes it, only
// query execution reads it, so no locking is needed.
type PositionStore struct {
	widths [protocol.NumChannels]uint32
}

// NewPositionStore returns a store with every channel at the High rest
// position, the state the shutters power up in.
func NewPositionStore() *PositionStore {
	s := &PositionStore{}
	for i := range s.widths {
		s.widths[i] = protocol.PulsewidthHigh
	}
	return s
}

// Get returns the stored pulse width for a channel in microseconds.
func (s *PositionStore) Get(channel uint8) (uint32, error) {
	if int(channel) >= len(s.widths) {
		return 0, ErrBadChannel
	}
	return s.widths[channel], nil
}

// set records a new pulse width. Only the Actuator calls this, after the
// hardware accepted the move.
func (s *PositionStore) set(channel uint8, micros uint32) error {
	if int(channel) >= len(s.widths) {
		return ErrBadChannel
	}
	s.widths[channel] = micros
	return nil
}
