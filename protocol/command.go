package protocol

import "errors"

// Grammar errors carried by unrecognized commands. They drive the error
// response (binary dialects) or diagnostic line (legacy dialect); none of
// them is fatal to the control loop.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidQuery   = errors.New("invalid query")
	ErrBadChannel     = errors.New("channel out of range")
	ErrBadLevel       = errors.New("level code out of range")
	ErrShortFrame     = errors.New("frame shorter than opcode requires")
)

// CommandKind tags the closed set of command variants.
type CommandKind uint8

const (
	KindUnrecognized CommandKind = iota
	KindMove
	KindQuery
	KindHandshake
)

// Command is a fully decoded and validated unit of input. Channel and
// Level are only meaningful for the kinds that carry them; Err and Raw
// describe an unrecognized command for diagnostics.
type Command struct {
	Kind    CommandKind
	Dialect Dialect
	Channel uint8
	Level   Level
	Err     error
	Raw     byte
}

func unrecognized(d Dialect, err error, raw byte) Command {
	return Command{Kind: KindUnrecognized, Dialect: d, Err: err, Raw: raw}
}

// Parse maps a completed frame to its command sequence. Legacy lines may
// carry several commands; the binary dialects carry exactly one per
// frame. Commands are returned in wire order.
func Parse(f Frame) []Command {
	switch f.Dialect {
	case DialectDelimiter:
		return []Command{ParseDelimiter(f.Payload)}
	case DialectStructured:
		return []Command{ParseStructured(f.Payload)}
	}
	return ParseLegacyLine(f.Payload)
}

// ParseLegacyLine tokenizes one legacy ASCII frame. Each command
// character is a standalone Move; `?` followed by a digit 1-4 is a Query.
// A `?` with a missing or non-digit follow-up is reported as an invalid
// query and only the `?` is consumed, so the next character is still
// interpreted on its own.
func ParseLegacyLine(line []byte) []Command {
	var cmds []Command
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '?' {
			if i+1 < len(line) && line[i+1] >= '1' && line[i+1] <= '4' {
				cmds = append(cmds, Command{
					Kind:    KindQuery,
					Dialect: DialectLegacy,
					Channel: line[i+1] - '1',
				})
				i++
				continue
			}
			cmds = append(cmds, unrecognized(DialectLegacy, ErrInvalidQuery, c))
			continue
		}
		if ch, lv, ok := lookupLegacy(c); ok {
			cmds = append(cmds, Command{
				Kind:    KindMove,
				Dialect: DialectLegacy,
				Channel: ch,
				Level:   lv,
			})
			continue
		}
		cmds = append(cmds, unrecognized(DialectLegacy, ErrUnknownCommand, c))
	}
	return cmds
}

// ParseDelimiter interprets the payload of one delimiter-framed command:
// an opcode byte and a parameter byte with nibble-packed arguments.
// Trailing payload bytes are ignored.
func ParseDelimiter(payload []byte) Command {
	if len(payload) < 2 {
		return unrecognized(DialectDelimiter, ErrShortFrame, 0)
	}
	op, param := payload[0], payload[1]
	switch op {
	case OpMove:
		ch := (param >> 4) & 0x0F
		if ch >= NumChannels {
			return unrecognized(DialectDelimiter, ErrBadChannel, param)
		}
		lv, ok := LevelFromDelimiterCode(param & 0x0F)
		if !ok {
			return unrecognized(DialectDelimiter, ErrBadLevel, param)
		}
		return Command{Kind: KindMove, Dialect: DialectDelimiter, Channel: ch, Level: lv}
	case OpQuery:
		ch := param & 0x0F
		if ch >= NumChannels {
			return unrecognized(DialectDelimiter, ErrBadChannel, param)
		}
		return Command{Kind: KindQuery, Dialect: DialectDelimiter, Channel: ch}
	}
	return unrecognized(DialectDelimiter, ErrUnknownCommand, op)
}

// ParseStructured interprets one structured-dialect frame: an opcode byte
// followed by its fixed argument bytes. A frame flushed before all
// argument bytes arrived is reported as short, never waited for.
func ParseStructured(frame []byte) Command {
	if len(frame) == 0 {
		return unrecognized(DialectStructured, ErrShortFrame, 0)
	}
	op := frame[0]
	switch op {
	case OpMove:
		if len(frame) < 3 {
			return unrecognized(DialectStructured, ErrShortFrame, op)
		}
		ch := frame[1]
		if ch >= NumChannels {
			return unrecognized(DialectStructured, ErrBadChannel, ch)
		}
		lv, ok := LevelFromStructuredCode(frame[2])
		if !ok {
			return unrecognized(DialectStructured, ErrBadLevel, frame[2])
		}
		return Command{Kind: KindMove, Dialect: DialectStructured, Channel: ch, Level: lv}
	case OpQuery:
		if len(frame) < 2 {
			return unrecognized(DialectStructured, ErrShortFrame, op)
		}
		ch := frame[1]
		if ch >= NumChannels {
			return unrecognized(DialectStructured, ErrBadChannel, ch)
		}
		return Command{Kind: KindQuery, Dialect: DialectStructured, Channel: ch}
	case OpHandshake:
		return Command{Kind: KindHandshake, Dialect: DialectStructured}
	}
	return unrecognized(DialectStructured, ErrUnknownCommand, op)
}
