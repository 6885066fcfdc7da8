package translate

import (
	"errors"
	"fmt"
)

// Kind classifies a translation failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInvalidLength: the packet length differs from the expected input size.
	KindInvalidLength
	// KindUnexpectedMessageType: the leading tag byte is not ControlMessageTag.
	KindUnexpectedMessageType
	// KindMalformedPayload: a field could not be decoded or the output could
	// not be assembled.
	KindMalformedPayload
)

var (
	ErrInvalidLength         = errors.New("invalid length")
	ErrUnexpectedMessageType = errors.New("unexpected message type")
	ErrMalformedPayload      = errors.New("malformed payload")
	ErrUnknownRobotType      = errors.New("unknown robot type")
)

// String returns the snake_case label used in logs and the stats store.
func (k Kind) String() string {
	switch k {
	case KindInvalidLength:
		return "invalid_length"
	case KindUnexpectedMessageType:
		return "unexpected_message_type"
	case KindMalformedPayload:
		return "malformed_payload"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidLength:
		return ErrInvalidLength
	case KindUnexpectedMessageType:
		return ErrUnexpectedMessageType
	case KindMalformedPayload:
		return ErrMalformedPayload
	default:
		return nil
	}
}

// Error is the failure value returned by Translate. Got and Want carry the
// observed and expected size (InvalidLength) or tag byte
// (UnexpectedMessageType); Err holds the underlying decode failure for
// MalformedPayload.
type Error struct {
	Kind       Kind
	Translator string
	Got        int
	Want       int
	Err        error
}

func (e *Error) Error() string {
	var detail string
	switch e.Kind {
	case KindInvalidLength:
		detail = fmt.Sprintf("got %d bytes, want %d", e.Got, e.Want)
	case KindUnexpectedMessageType:
		detail = fmt.Sprintf("got 0x%02x, want 0x%02x", e.Got, e.Want)
	default:
		if e.Err != nil {
			detail = e.Err.Error()
		}
	}

	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if detail != "" {
		msg += ": " + detail
	}
	if e.Translator != "" {
		msg = e.Translator + ": " + msg
	}
	return msg
}

// Is matches the sentinel for the error's Kind, so callers can write
// errors.Is(err, translate.ErrInvalidLength).
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or KindUnknown if err is not a
// translation failure.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}
