package protocol

// Response encoding. Every response is written in the dialect that
// carried the inbound command: binary requests get binary responses,
// legacy requests get text. All multi-byte numbers go out big-endian.
//
// Position width differs by dialect and is fixed: the delimiter dialect
// reports 2 bytes, the structured dialect 4. Hosts rely on the width, so
// it is part of the wire contract, not a tunable.

// EncodeMoveOK appends the acknowledgment for a successful Move. Legacy
// moves are fire-and-forget; both binary dialects acknowledge with a
// single status byte.
func EncodeMoveOK(out *ResponseBuffer, d Dialect) {
	if d == DialectDelimiter || d == DialectStructured {
		out.appendBytes(StatusOK)
	}
}

// EncodeError appends the error response for a rejected or unrecognized
// command. The legacy dialect reports human-readable diagnostics; the
// binary dialects report a fixed error layout.
func EncodeError(out *ResponseBuffer, d Dialect, cmdErr error, raw byte) {
	switch d {
	case DialectDelimiter:
		out.appendBytes(FrameStart, StatusError, 0x00, 0x00, FrameEnd)
	case DialectStructured:
		out.appendBytes(StatusError)
	default:
		if cmdErr == ErrInvalidQuery {
			out.appendString("Invalid query\r\n")
			return
		}
		out.appendString("Invalid servo command: ")
		out.appendBytes(raw)
		out.appendString("\r\n")
	}
}

// EncodeQueryReply appends the stored pulse width for a channel.
func EncodeQueryReply(out *ResponseBuffer, d Dialect, channel uint8, micros uint32) {
	switch d {
	case DialectDelimiter:
		out.appendBytes(
			FrameStart,
			StatusOK,
			channel,
			byte(micros>>8),
			byte(micros),
			FrameEnd,
		)
	case DialectStructured:
		out.appendBytes(
			StatusOK,
			channel,
			byte(micros>>24),
			byte(micros>>16),
			byte(micros>>8),
			byte(micros),
		)
	default:
		// Channels are numbered from 1 on the legacy wire.
		out.appendUint(uint32(channel) + 1)
		out.appendString(": ")
		out.appendUint(micros)
		out.appendString("\r\n")
	}
}

// EncodeHandshakeAck appends the fixed handshake acknowledgment. Only the
// structured dialect has a handshake.
func EncodeHandshakeAck(out *ResponseBuffer, d Dialect) {
	if d == DialectStructured {
		out.appendBytes(HandshakeAck)
	}
}
