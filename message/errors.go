package message

import "github.com/pkg/errors"

// Error taxonomy (spec.md §7). Callers should use errors.Is against
// these sentinels; wrapping preserves context via github.com/pkg/errors.
var (
	// ErrBadProtocolVersion is returned by Unflatten when the header's
	// protocol version does not match ProtocolVersion.
	ErrBadProtocolVersion = errors.New("message: bad protocol version")
	// ErrTruncatedStream is returned when a declared length exceeds the
	// bytes actually available in the input.
	ErrTruncatedStream = errors.New("message: truncated stream")
	// ErrMalformedMessage is returned when nested-Message length
	// accounting fails, or non-list data is found where a list was
	// expected on encode.
	ErrMalformedMessage = errors.New("message: malformed message")
	// ErrPointerType is returned when a caller attempts to flatten a
	// field of TypePointer; pointers have no cross-process representation.
	ErrPointerType = errors.New("message: PNTR fields cannot be flattened")
	// ErrTypeMismatch is returned by PutFlat when the objects it is given
	// do not all report the same TypeCode().
	ErrTypeMismatch = errors.New("message: field type mismatch")
)
