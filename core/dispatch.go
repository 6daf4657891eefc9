package core

import "shutterfw/protocol"

// Dispatcher executes decoded commands against the actuator and store,
// and encodes each outcome into the response buffer in the dialect that
// carried the command. Protocol errors are answered, never escalated:
// the loop stays responsive after any rejected command.
type Dispatcher struct {
	actuator *Actuator
	store    *PositionStore
	out      *protocol.ResponseBuffer
}

func NewDispatcher(actuator *Actuator, store *PositionStore, out *protocol.ResponseBuffer) *Dispatcher {
	return &Dispatcher{actuator: actuator, store: store, out: out}
}

// Execute runs one command to completion.
func (d *Dispatcher) Execute(cmd protocol.Command) {
	switch cmd.Kind {
	case protocol.KindMove:
		if err := d.actuator.Move(cmd.Channel, cmd.Level); err != nil {
			protocol.EncodeError(d.out, cmd.Dialect, err, cmd.Raw)
			return
		}
		protocol.EncodeMoveOK(d.out, cmd.Dialect)

	case protocol.KindQuery:
		micros, err := d.store.Get(cmd.Channel)
		if err != nil {
			protocol.EncodeError(d.out, cmd.Dialect, err, cmd.Raw)
			return
		}
		protocol.EncodeQueryReply(d.out, cmd.Dialect, cmd.Channel, micros)

	case protocol.KindHandshake:
		protocol.EncodeHandshakeAck(d.out, cmd.Dialect)

	default:
		protocol.EncodeError(d.out, cmd.Dialect, cmd.Err, cmd.Raw)
	}
}
