package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a GATT resource is not found on a link
type NotFoundError struct {
	Resource string   // "service", "characteristic"
	UUIDs    []string // [serviceUUID] or [serviceUUID, charUUID]
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	return fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	BluetoothOff     ConnectionState = "bluetooth is turned off"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrBluetoothOff     = &ConnectionError{State: BluetoothOff}
)

// Operation errors
var (
	ErrUnsupported = errors.New("unsupported")
)

// ContainsIgnoreCase checks substring case-insensitively
func ContainsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Advertisement is a single scan result.
type Advertisement interface {
	Addr() string
	LocalName() string
	RSSI() int
	// Data returns the raw advertising data (AD structures), including any
	// scan response appended after it.
	Data() []byte
}

// Characteristic is a GATT characteristic on a dialed link.
type Characteristic interface {
	UUID() string
	// Write sends data without waiting for a response.
	Write(data []byte) error
	// Subscribe enables notifications. handler runs on a stack goroutine.
	Subscribe(handler func(data []byte)) error
}

// Link is an established connection to a peripheral.
type Link interface {
	Address() string
	// Characteristic looks up a discovered characteristic.
	// Returns a *NotFoundError when the service or characteristic is missing.
	Characteristic(service, uuid string) (Characteristic, error)
	// Disconnected is closed when the peripheral drops the connection.
	Disconnected() <-chan struct{}
	Close() error
}

// Transport is the host Bluetooth stack as seen by the protocol.
type Transport interface {
	// Scan delivers advertisements to handler until ctx is done.
	Scan(ctx context.Context, handler func(Advertisement)) error
	// Dial connects to address and discovers its GATT profile.
	Dial(ctx context.Context, address string) (Link, error)
}
