package testutils

import (
	"context"
	"sync"

	"github.com/srg/catprint/internal/device"
	"github.com/stretchr/testify/mock"
)

// MockTransport is a testify mock of device.Transport.
type MockTransport struct {
	mock.Mock
}

// Scan records the call. Pair the expectation with ReplayAdvertisements to feed results.
func (m *MockTransport) Scan(ctx context.Context, handler func(device.Advertisement)) error {
	args := m.Called(ctx, handler)
	return args.Error(0)
}

// Dial records the call and returns the configured link.
func (m *MockTransport) Dial(ctx context.Context, address string) (device.Link, error) {
	args := m.Called(ctx, address)
	link, _ := args.Get(0).(device.Link)
	return link, args.Error(1)
}

// ReplayAdvertisements returns a Run function for Scan expectations that
// delivers ads in order, then blocks until the scan context is done when wait is set.
func ReplayAdvertisements(wait bool, ads ...device.Advertisement) func(mock.Arguments) {
	return func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		handler := args.Get(1).(func(device.Advertisement))
		for _, a := range ads {
			if ctx.Err() != nil {
				return
			}
			handler(a)
		}
		if wait {
			<-ctx.Done()
		}
	}
}

// FakeLink is an in-memory device.Link.
type FakeLink struct {
	Addr string

	mu       sync.Mutex
	services map[string]map[string]*FakeCharacteristic
	closed   int
	dropOnce sync.Once
	dropped  chan struct{}
	CloseErr error
}

// NewFakeLink creates a link with no characteristics.
func NewFakeLink(address string) *FakeLink {
	return &FakeLink{
		Addr:     address,
		services: make(map[string]map[string]*FakeCharacteristic),
		dropped:  make(chan struct{}),
	}
}

// NewPrinterLink creates a link exposing write and notify characteristics under service.
func NewPrinterLink(address, service, write, notify string) (*FakeLink, *FakeCharacteristic, *FakeCharacteristic) {
	l := NewFakeLink(address)
	w := l.AddCharacteristic(service, write)
	n := l.AddCharacteristic(service, notify)
	return l, w, n
}

// AddCharacteristic registers a characteristic and returns it.
func (l *FakeLink) AddCharacteristic(service, uuid string) *FakeCharacteristic {
	l.mu.Lock()
	defer l.mu.Unlock()
	svc := device.NormalizeUUID(service)
	if l.services[svc] == nil {
		l.services[svc] = make(map[string]*FakeCharacteristic)
	}
	c := &FakeCharacteristic{uuid: device.NormalizeUUID(uuid)}
	l.services[svc][c.uuid] = c
	return c
}

func (l *FakeLink) Address() string { return l.Addr }

func (l *FakeLink) Characteristic(service, uuid string) (device.Characteristic, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	svc, ok := l.services[device.NormalizeUUID(service)]
	if !ok {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{service}}
	}
	c, ok := svc[device.NormalizeUUID(uuid)]
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{service, uuid}}
	}
	return c, nil
}

func (l *FakeLink) Disconnected() <-chan struct{} { return l.dropped }

// Drop simulates the peripheral going away.
func (l *FakeLink) Drop() {
	l.dropOnce.Do(func() { close(l.dropped) })
}

func (l *FakeLink) Close() error {
	l.mu.Lock()
	l.closed++
	l.mu.Unlock()
	return l.CloseErr
}

// Closed reports how many times Close was called.
func (l *FakeLink) Closed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// FakeCharacteristic records writes and lets tests push notifications.
type FakeCharacteristic struct {
	uuid string

	mu           sync.Mutex
	writes       [][]byte
	handler      func([]byte)
	WriteErr     error
	SubscribeErr error
	// OnWrite runs after each successful write, outside the lock.
	OnWrite func(chunk []byte)
}

func (c *FakeCharacteristic) UUID() string { return c.uuid }

func (c *FakeCharacteristic) Write(data []byte) error {
	c.mu.Lock()
	if c.WriteErr != nil {
		err := c.WriteErr
		c.mu.Unlock()
		return err
	}
	chunk := append([]byte(nil), data...)
	c.writes = append(c.writes, chunk)
	hook := c.OnWrite
	c.mu.Unlock()

	if hook != nil {
		hook(chunk)
	}
	return nil
}

func (c *FakeCharacteristic) Subscribe(handler func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubscribeErr != nil {
		return c.SubscribeErr
	}
	c.handler = handler
	return nil
}

// SetWriteErr makes subsequent writes fail.
func (c *FakeCharacteristic) SetWriteErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.WriteErr = err
}

// Notify delivers data to the subscribed handler. Returns false when nobody subscribed.
func (c *FakeCharacteristic) Notify(data []byte) bool {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h == nil {
		return false
	}
	h(data)
	return true
}

// Subscribed reports whether a handler is registered.
func (c *FakeCharacteristic) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler != nil
}

// Writes returns a copy of every chunk written so far.
func (c *FakeCharacteristic) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

// Written returns all chunks concatenated.
func (c *FakeCharacteristic) Written() []byte {
	var out []byte
	for _, w := range c.Writes() {
		out = append(out, w...)
	}
	return out
}
