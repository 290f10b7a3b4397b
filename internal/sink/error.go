package sink

import "fmt"

// Kind classifies what part of the pipeline an Error came from, so
// callers (and logs) can tell e.g. a bad discarded-range apart from a
// local I/O failure without string-matching error text. Every Kind here
// is fatal: none is meant to be retried by the caller.
type Kind int

const (
	// UnsupportedSchema is a trace-IR field class this sink cannot
	// represent in CTF 1.8.
	UnsupportedSchema Kind = iota
	// UnsupportedIdentifier is a name that cannot be made into a valid
	// TSDL identifier even after the protection rules are applied.
	UnsupportedIdentifier
	// UnsupportedEnvironment is an environment entry with an invalid
	// name or a value of an unsupported type.
	UnsupportedEnvironment
	// IncompatibleDiscardedRange is a discarded-events or
	// discarded-packets range whose begin/end clock values don't line
	// up with the packets around it, or that arrived while another
	// range of the same kind was still pending.
	IncompatibleDiscardedRange
	// IncompatibleStreamShape is a stream class whose discarded ranges are
	// timestamped while its packets are not both begin- and
	// end-timestamped, or a message sequence that violates the stream
	// state machine: a packet opened twice, an event with no packet open,
	// a stream instance used before its stream-begin, and similar
	// ordering violations.
	IncompatibleStreamShape
	// SingleTraceModeCollision is assume-single-trace mode targeting an
	// output directory that already exists.
	SingleTraceModeCollision
	// IO is a filesystem or other local I/O failure.
	IO
	// OutOfMemory is a failed allocation while buffering a packet.
	OutOfMemory
)

func (k Kind) String() string {
	switch k {
	case UnsupportedSchema:
		return "unsupported_schema"
	case UnsupportedIdentifier:
		return "unsupported_identifier"
	case UnsupportedEnvironment:
		return "unsupported_environment"
	case IncompatibleDiscardedRange:
		return "incompatible_discarded_range"
	case IncompatibleStreamShape:
		return "incompatible_stream_shape"
	case SingleTraceModeCollision:
		return "single_trace_mode_collision"
	case IO:
		return "io"
	case OutOfMemory:
		return "out_of_memory"
	default:
		return "unknown"
	}
}

// Error wraps a failure with the Kind of pipeline stage it came from.
type Error struct {
	Kind  Kind
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func wrap(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Cause: fmt.Errorf(format, args...)}
}
