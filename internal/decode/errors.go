package decode

import (
	"errors"
	"fmt"
)

// Sentinel errors for the four decode failure kinds. Every error returned by
// the engine or a grammar wraps exactly one of these, so callers can match
// with errors.Is regardless of the formatted detail.
var (
	ErrUnexpectedEnd        = errors.New("unexpected end of input")
	ErrUnknownDiscriminator = errors.New("unknown discriminator")
	ErrMalformedLength      = errors.New("malformed length")
	ErrRecursionLimit       = errors.New("recursion limit exceeded")
)

// Error is a decode failure annotated with the byte offset at which it was
// detected. All decode errors are fatal; there is no partial-result recovery.
type Error struct {
	Kind   error // one of the sentinel errors above
	Offset int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v at offset %d: %s", e.Kind, e.Offset, e.Detail)
	}
	return fmt.Sprintf("%v at offset %d", e.Kind, e.Offset)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// UnexpectedEndAt reports a read of want bytes where only have remained.
func UnexpectedEndAt(offset, want, have int) error {
	return &Error{
		Kind:   ErrUnexpectedEnd,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, %d remain", want, have),
	}
}

// UnknownDiscriminatorAt reports a tag or type byte with no grammar rule.
func UnknownDiscriminatorAt(offset int, value byte) error {
	return &Error{
		Kind:   ErrUnknownDiscriminator,
		Offset: offset,
		Detail: fmt.Sprintf("byte 0x%02x", value),
	}
}

// MalformedLengthAt reports a declared length that cannot fit in the buffer.
func MalformedLengthAt(offset int, declared uint64, available int) error {
	return &Error{
		Kind:   ErrMalformedLength,
		Offset: offset,
		Detail: fmt.Sprintf("declared %d bytes, %d available", declared, available),
	}
}

// RecursionLimitAt reports that the nesting depth cap was hit.
func RecursionLimitAt(offset, limit int) error {
	return &Error{
		Kind:   ErrRecursionLimit,
		Offset: offset,
		Detail: fmt.Sprintf("depth cap %d", limit),
	}
}

// KindName returns a stable lowercase name for the error kind, used in
// metrics labels and JSON error responses. Unrecognized errors map to
// "internal".
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrUnexpectedEnd):
		return "unexpected_end"
	case errors.Is(err, ErrUnknownDiscriminator):
		return "unknown_discriminator"
	case errors.Is(err, ErrMalformedLength):
		return "malformed_length"
	case errors.Is(err, ErrRecursionLimit):
		return "recursion_limit_exceeded"
	default:
		return "internal"
	}
}

// OffsetOf extracts the failure offset from a decode error, or -1 when the
// error does not carry one.
func OffsetOf(err error) int {
	var de *Error
	if errors.As(err, &de) {
		return de.Offset
	}
	return -1
}
