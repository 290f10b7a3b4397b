package translate

import "errors"

// These sentinels classify why TranslateTrace failed, so callers (sink.Kind)
// can report a fatal error with the right taxonomy entry without
// re-deriving it from error text.
var (
	// ErrUnsupportedSchema marks a trace-IR field class, or a
	// combination of field classes, that cannot be represented in
	// CTF 1.8.
	ErrUnsupportedSchema = errors.New("translate: not representable in CTF 1.8")
	// ErrUnsupportedIdentifier marks a name that is still not a valid
	// TSDL identifier after the protection rules are applied.
	ErrUnsupportedIdentifier = errors.New("translate: not a valid TSDL identifier")
	// ErrUnsupportedEnvironment marks an environment entry with an
	// invalid name or an unsupported value type.
	ErrUnsupportedEnvironment = errors.New("translate: environment entry not representable")
	// ErrIncompatibleStreamShape marks a stream class whose
	// discarded-events or discarded-packets ranges are timestamped but
	// whose packets aren't both begin- and end-timestamped, making the
	// range validation in the stream runtime impossible to perform.
	ErrIncompatibleStreamShape = errors.New("translate: discarded-range timestamps require begin- and end-timestamped packets")
)
