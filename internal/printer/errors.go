package printer

import "fmt"

// ErrorKind classifies printer failures.
type ErrorKind int

const (
	KindNotInitialized ErrorKind = iota + 1
	KindScanTimeout
	KindNoMatchingDevice
	KindConnectionFailed
	KindConnectionLost
	KindInvalidState
	KindSubscriptionFailed
	KindAckTimeout
	KindNotReady
)

var kindNames = map[ErrorKind]string{
	KindNotInitialized:     "not initialized",
	KindScanTimeout:        "scan timeout",
	KindNoMatchingDevice:   "no matching device",
	KindConnectionFailed:   "connection failed",
	KindConnectionLost:     "connection lost",
	KindInvalidState:       "invalid state transition",
	KindSubscriptionFailed: "subscription failed",
	KindAckTimeout:         "ack timeout",
	KindNotReady:           "not ready",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a printer failure of a specific kind, optionally wrapping its cause.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := e.Kind.String()
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is to compare Error values by Kind
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Predefined sentinel errors, one per kind
var (
	ErrNotInitialized     = &Error{Kind: KindNotInitialized}
	ErrScanTimeout        = &Error{Kind: KindScanTimeout}
	ErrNoMatchingDevice   = &Error{Kind: KindNoMatchingDevice}
	ErrConnectionFailed   = &Error{Kind: KindConnectionFailed}
	ErrConnectionLost     = &Error{Kind: KindConnectionLost}
	ErrInvalidState       = &Error{Kind: KindInvalidState}
	ErrSubscriptionFailed = &Error{Kind: KindSubscriptionFailed}
	ErrAckTimeout         = &Error{Kind: KindAckTimeout}
	ErrNotReady           = &Error{Kind: KindNotReady}
)

func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}
