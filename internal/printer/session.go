package printer

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/device"
	"github.com/srg/catprint/internal/groutine"
)

// State is the connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSubscribed
	StateTransferring
	StateAwaitingAck
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSubscribed:
		return "subscribed"
	case StateTransferring:
		return "transferring"
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

const (
	// DefaultChunkSize fits the minimum ATT MTU payload.
	DefaultChunkSize = 20
	// DefaultChunkDelay is the pause after each chunk so the printer buffer keeps up.
	DefaultChunkDelay = 20 * time.Millisecond
)

// SessionOptions controls write pacing.
type SessionOptions struct {
	ChunkSize  int
	ChunkDelay time.Duration
}

// DefaultSessionOptions returns the reference pacing: 20 byte chunks, 20 ms apart.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{ChunkSize: DefaultChunkSize, ChunkDelay: DefaultChunkDelay}
}

// Session owns one printer connection and its state machine.
// At most one job is in flight: Send is only accepted from Subscribed or Idle.
type Session struct {
	transport device.Transport
	opts      SessionOptions
	logger    *logrus.Logger

	mu      sync.Mutex
	state   State
	address string
	variant Variant
	bound   bool

	link   device.Link
	write  device.Characteristic
	notify device.Characteristic
	// gen identifies the current link; callbacks from an older link are dropped.
	gen uint64
	// lost is closed when the current link goes away (loss or explicit disconnect).
	lost chan struct{}

	ready   bool
	readyCh chan struct{} // closed when ready flips to true
}

// NewSession creates a disconnected, unbound session.
func NewSession(transport device.Transport, opts SessionOptions, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.ChunkDelay < 0 {
		opts.ChunkDelay = 0
	}
	return &Session{
		transport: transport,
		opts:      opts,
		logger:    logger,
		state:     StateDisconnected,
		readyCh:   make(chan struct{}),
	}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Variant returns the bound variant, if any.
func (s *Session) Variant() (Variant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variant, s.bound
}

// Address returns the peer address of the current or last connection attempt.
func (s *Session) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Ready reports the ready flag.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Bind fixes the printer variant used by the next Connect. Only valid while disconnected.
func (s *Session) Bind(v Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisconnected {
		return s.invalidState("bind")
	}
	s.variant = v
	s.bound = true
	return nil
}

// Connect dials address and resolves the variant's write and notify characteristics.
func (s *Session) Connect(ctx context.Context, address string) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		err := s.invalidState("connect")
		s.mu.Unlock()
		return err
	}
	if !s.bound {
		s.mu.Unlock()
		return newError(KindNotInitialized, nil, "no printer variant bound")
	}
	s.state = StateConnecting
	s.address = address
	s.gen++
	gen := s.gen
	v := s.variant
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"address": address,
		"variant": v.Name,
	}).Info("Connecting to printer...")

	link, err := s.transport.Dial(ctx, address)
	if err != nil {
		s.abortConnect(gen)
		return newError(KindConnectionFailed, err, "dial %s", address)
	}

	write, err := link.Characteristic(v.Service, v.Write)
	if err == nil {
		var notify device.Characteristic
		notify, err = link.Characteristic(v.Service, v.Notify)
		if err == nil {
			return s.completeConnect(gen, link, write, notify)
		}
	}

	s.closeLink(link)
	s.abortConnect(gen)
	return newError(KindConnectionFailed, err, "discover %s characteristics", v.Name)
}

func (s *Session) abortConnect(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.state == StateConnecting {
		s.state = StateDisconnected
	}
}

func (s *Session) completeConnect(gen uint64, link device.Link, write, notify device.Characteristic) error {
	s.mu.Lock()
	if s.gen != gen || s.state != StateConnecting {
		s.mu.Unlock()
		s.closeLink(link)
		return newError(KindConnectionFailed, nil, "connect to %s aborted", link.Address())
	}
	s.link = link
	s.write = write
	s.notify = notify
	s.lost = make(chan struct{})
	s.state = StateConnected
	lost := s.lost
	s.mu.Unlock()

	groutine.Go(context.Background(), "printer-link-monitor", func(context.Context) {
		select {
		case <-link.Disconnected():
			s.handleLinkLoss(gen)
		case <-lost:
		}
	})

	s.logger.WithField("address", link.Address()).Info("Printer connected")
	return nil
}

// SubscribeNotifications enables ready notifications. Only valid in Connected.
func (s *Session) SubscribeNotifications() error {
	s.mu.Lock()
	if s.state != StateConnected {
		err := s.invalidState("subscribe")
		s.mu.Unlock()
		return err
	}
	notify := s.notify
	gen := s.gen
	s.mu.Unlock()

	err := notify.Subscribe(func(b []byte) {
		s.deliver(b, &gen)
	})
	if err != nil {
		return newError(KindSubscriptionFailed, err, "subscribe %s", notify.UUID())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != StateConnected {
		return newError(KindConnectionLost, nil, "link dropped while subscribing")
	}
	s.state = StateSubscribed
	s.logger.WithField("char_uuid", notify.UUID()).Debug("Subscribed to printer notifications")
	return nil
}

// Send writes payload in chunks of the configured size and moves to AwaitingAck.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	return s.send(ctx, payload, 0)
}

func (s *Session) send(ctx context.Context, payload []byte, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = s.opts.ChunkSize
	}

	s.mu.Lock()
	if s.state != StateSubscribed && s.state != StateIdle {
		err := s.invalidState("send")
		s.mu.Unlock()
		return err
	}
	s.ready = false
	s.readyCh = make(chan struct{})
	s.state = StateTransferring
	write := s.write
	lost := s.lost
	gen := s.gen
	s.mu.Unlock()

	log := s.logger.WithFields(logrus.Fields{
		"bytes":  len(payload),
		"chunks": (len(payload) + chunkSize - 1) / chunkSize,
	})
	log.Debug("Sending payload")

	for off := 0; off < len(payload); off += chunkSize {
		if err := ctx.Err(); err != nil {
			s.release(gen, StateTransferring)
			return err
		}

		end := min(off+chunkSize, len(payload))
		if err := write.Write(payload[off:end]); err != nil {
			log.WithField("error", err).Error("Chunk write failed")
			s.handleLinkLoss(gen)
			return newError(KindConnectionLost, err, "write chunk at offset %d", off)
		}

		if s.opts.ChunkDelay > 0 {
			t := time.NewTimer(s.opts.ChunkDelay)
			select {
			case <-t.C:
			case <-lost:
				t.Stop()
				return newError(KindConnectionLost, nil, "link dropped during transfer")
			case <-ctx.Done():
				t.Stop()
				s.release(gen, StateTransferring)
				return ctx.Err()
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != StateTransferring {
		return newError(KindConnectionLost, nil, "link dropped during transfer")
	}
	if s.ready {
		// sentinel already arrived while the tail was in flight
		s.state = StateIdle
	} else {
		s.state = StateAwaitingAck
	}
	log.Debug("Payload sent, awaiting ready notification")
	return nil
}

// OnNotification handles a payload from the notify characteristic.
// Only an exact ready sentinel counts; anything else is ignored.
func (s *Session) OnNotification(b []byte) {
	s.deliver(b, nil)
}

// deliver records a ready sentinel. A non-nil gen drops payloads from a stale link.
func (s *Session) deliver(b []byte, gen *uint64) {
	if !IsReady(b) {
		s.logger.WithField("data", hex.EncodeToString(b)).Debug("Ignoring printer notification")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != nil && *gen != s.gen {
		return
	}
	if !s.ready {
		s.ready = true
		close(s.readyCh)
	}
	if s.state == StateAwaitingAck {
		s.state = StateIdle
	}
	s.logger.Debug("Printer signaled ready")
}

// AwaitReady blocks until the ready flag is set, the timeout elapses, the
// link drops or ctx is done. Timeout and cancellation leave an awaiting
// session Idle; a sentinel arriving afterwards is only recorded.
func (s *Session) AwaitReady(ctx context.Context, timeout time.Duration) error {
	s.mu.Lock()
	if s.state == StateDisconnected || s.state == StateConnecting {
		s.mu.Unlock()
		return newError(KindConnectionLost, nil, "no active link")
	}
	if s.ready {
		s.mu.Unlock()
		return nil
	}
	readyCh, lost, gen := s.readyCh, s.lost, s.gen
	s.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-readyCh:
		return nil
	case <-lost:
		return newError(KindConnectionLost, nil, "link dropped while awaiting ready")
	case <-t.C:
		s.release(gen, StateAwaitingAck)
		s.logger.WithField("timeout", timeout).Warn("Timed out waiting for printer-ready notification")
		return newError(KindAckTimeout, nil, "no ready notification within %s", timeout)
	case <-ctx.Done():
		s.release(gen, StateAwaitingAck)
		return ctx.Err()
	}
}

// Disconnect closes the link and returns to Disconnected, clearing the ready flag and variant binding.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	link := s.link
	s.teardown()
	s.mu.Unlock()

	if link == nil {
		return nil
	}
	s.logger.WithField("address", link.Address()).Info("Disconnecting printer...")
	return link.Close()
}

// handleLinkLoss forces Disconnected if gen is still the current link.
func (s *Session) handleLinkLoss(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.link == nil {
		s.mu.Unlock()
		return
	}
	link := s.link
	prev := s.state
	s.teardown()
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"address": link.Address(),
		"state":   prev.String(),
	}).Warn("Printer connection lost")
	s.closeLink(link)
}

// teardown must be called with mu held.
func (s *Session) teardown() {
	if s.lost != nil {
		close(s.lost)
		s.lost = nil
	}
	s.gen++
	s.link = nil
	s.write = nil
	s.notify = nil
	s.state = StateDisconnected
	s.ready = false
	s.readyCh = make(chan struct{})
	s.variant = Variant{}
	s.bound = false
}

// release moves the session from `from` to Idle when gen is still current.
func (s *Session) release(gen uint64, from State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.state == from {
		s.state = StateIdle
	}
}

func (s *Session) closeLink(link device.Link) {
	if err := link.Close(); err != nil {
		s.logger.WithField("error", err).Debug("Link close failed")
	}
}

// invalidState must be called with mu held.
func (s *Session) invalidState(op string) *Error {
	return newError(KindInvalidState, nil, "%s not allowed in state %s", op, s.state)
}
