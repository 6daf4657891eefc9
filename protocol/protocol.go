// Package protocol implements the servo shutter serial protocol: frame
// decoding for the supported wire dialects, command grammars, and
// byte-exact response encoding.
package protocol

// Version is the firmware version reported by host tooling.
const Version = "1.0.0"

// NumChannels is the number of controlled servo channels. Channel
// identifiers on the wire are always in [0, NumChannels).
const NumChannels = 4

// Framing bytes for the delimiter-framed binary dialect.
const (
	FrameStart = 0xFF
	FrameEnd   = 0xFE
)

// Opcodes shared by the binary dialects. The delimiter dialect packs
// arguments into a single parameter byte; the structured dialect carries
// one argument per byte.
const (
	OpMove      = 0x01
	OpQuery     = 0x02
	OpHandshake = 0x03
)

// Response status bytes.
const (
	StatusOK    = 0x00
	StatusError = 0x01
)

// HandshakeAck is the fixed handshake acknowledgment byte. It is distinct
// from every status code so a host can match it unambiguously.
const HandshakeAck = 0xBB

// Buffer limits. Payload bytes past these caps are dropped or refused by
// the decoders; buffers never grow unbounded on a noisy line.
const (
	MaxDelimiterPayload = 16
	MaxLineLength       = 128
	MaxStructuredFrame  = 3
)

// IdleFlushPolls is the number of consecutive empty polls a decoder holds
// a partial frame before giving up on the remaining bytes. A sender that
// stops mid-frame must not wedge the firmware, so the wait is bounded.
// At the 5ms poll interval this is roughly a quarter second.
const IdleFlushPolls = 50

// Dialect selects one of the supported wire formats.
type Dialect uint8

const (
	// DialectLegacy is the single-character ASCII command set with
	// `?N` queries, line or sentinel terminated.
	DialectLegacy Dialect = iota

	// DialectDelimiter is the 0xFF ... 0xFE framed binary format with
	// nibble-packed parameters and 2-byte big-endian positions.
	DialectDelimiter

	// DialectStructured is the unframed binary format with per-byte
	// arguments, a handshake opcode, and 4-byte big-endian positions.
	DialectStructured
)

func (d Dialect) String() string {
	switch d {
	case DialectLegacy:
		return "legacy"
	case DialectDelimiter:
		return "delimiter"
	case DialectStructured:
		return "structured"
	}
	return "unknown"
}

// Servo pulse widths in microseconds for the named position levels.
// These values are part of the wire contract: query responses report them
// verbatim and hosts match on them. They must not change across protocol
// revisions.
const (
	PulsewidthLow  = 1100
	PulsewidthMid  = 1400
	PulsewidthHigh = 1700
)

// Level is a named servo position. The shutters rest at High (wide open).
type Level uint8

const (
	LevelLow Level = iota
	LevelMid
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMid:
		return "mid"
	case LevelHigh:
		return "high"
	}
	return "unknown"
}

// Pulsewidth returns the configured pulse width for the level in
// microseconds.
func (l Level) Pulsewidth() uint32 {
	switch l {
	case LevelLow:
		return PulsewidthLow
	case LevelMid:
		return PulsewidthMid
	}
	return PulsewidthHigh
}

// DelimiterCode returns the level code used by the delimiter dialect
// (0=Low, 1=Mid, 2=High).
func (l Level) DelimiterCode() byte {
	return byte(l)
}

// StructuredCode returns the level code used by the structured dialect
// (1=Low, 2=Mid, 3=High).
func (l Level) StructuredCode() byte {
	return byte(l) + 1
}

// LevelFromDelimiterCode translates a delimiter-dialect level code.
func LevelFromDelimiterCode(code byte) (Level, bool) {
	if code > 2 {
		return 0, false
	}
	return Level(code), true
}

// LevelFromStructuredCode translates a structured-dialect level code.
func LevelFromStructuredCode(code byte) (Level, bool) {
	if code < 1 || code > 3 {
		return 0, false
	}
	return Level(code - 1), true
}

// legacyAlphabet maps (channel, level) to the legacy ASCII command
// character. Row = channel, column = level (Low, Mid, High).
var legacyAlphabet = [NumChannels][3]byte{
	{'q', 'a', 'z'},
	{'w', 's', 'x'},
	{'e', 'd', 'c'},
	{'r', 'f', 'v'},
}

// LegacyCommand returns the legacy command character for a channel and
// level, or false if the channel is out of range.
func LegacyCommand(channel uint8, level Level) (byte, bool) {
	if channel >= NumChannels || level > LevelHigh {
		return 0, false
	}
	return legacyAlphabet[channel][level], true
}

// lookupLegacy resolves a legacy command character to its channel and
// level.
func lookupLegacy(c byte) (channel uint8, level Level, ok bool) {
	for ch := range legacyAlphabet {
		for lv, cmd := range legacyAlphabet[ch] {
			if cmd == c {
				return uint8(ch), Level(lv), true
			}
		}
	}
	return 0, 0, false
}
