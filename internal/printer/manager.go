package printer

import (
	"context"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/device"
	"github.com/srg/catprint/internal/escpos"
)

// Discovery is a printer seen during a scan.
type Discovery struct {
	Address  string   `json:"address"`
	Name     string   `json:"name"`
	RSSI     int      `json:"rssi"`
	Variant  Variant  `json:"variant"`
	Services []string `json:"services"`
}

// Discoverer finds printers nearby.
type Discoverer interface {
	Discover(ctx context.Context) ([]Discovery, error)
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Session SessionOptions
	Job     JobOptions
	// Variant, when set, is used for addresses that were not seen by a scan.
	Variant *Variant
	// ConnectTimeout bounds dial plus discovery. Zero means no extra bound.
	ConnectTimeout time.Duration
	// Pack controls image conversion for PrintImage.
	Pack escpos.PackOptions
}

// Manager is the caller-facing printer API over a single session.
type Manager struct {
	discoverer Discoverer
	session    *Session
	jobs       *Orchestrator
	opts       ManagerOptions
	logger     *logrus.Logger

	mu    sync.Mutex
	found map[string]Discovery
}

// NewManager wires a session and orchestrator over transport.
func NewManager(transport device.Transport, discoverer Discoverer, opts ManagerOptions, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	session := NewSession(transport, opts.Session, logger)
	return &Manager{
		discoverer: discoverer,
		session:    session,
		jobs:       NewOrchestrator(session, opts.Job, logger),
		opts:       opts,
		logger:     logger,
		found:      make(map[string]Discovery),
	}
}

// Session exposes the underlying session for state inspection.
func (m *Manager) Session() *Session { return m.session }

// Scan discovers printers and remembers their variants for Connect.
func (m *Manager) Scan(ctx context.Context) ([]Discovery, error) {
	if m.discoverer == nil {
		return nil, newError(KindNotInitialized, nil, "no scanner configured")
	}
	found, err := m.discoverer.Discover(ctx)

	m.mu.Lock()
	for _, d := range found {
		m.found[addressKey(d.Address)] = d
	}
	m.mu.Unlock()

	return found, err
}

// Connect connects to address and subscribes to ready notifications.
// The variant comes from the last scan, falling back to the configured one.
func (m *Manager) Connect(ctx context.Context, address string) error {
	v, ok := m.variantFor(address)
	if !ok {
		return newError(KindNoMatchingDevice, nil, "%s was not discovered as a printer", address)
	}
	if err := m.session.Bind(v); err != nil {
		return err
	}

	if m.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ConnectTimeout)
		defer cancel()
	}

	if err := m.session.Connect(ctx, address); err != nil {
		return err
	}
	if err := m.session.SubscribeNotifications(); err != nil {
		if derr := m.session.Disconnect(); derr != nil {
			m.logger.WithField("error", derr).Debug("Disconnect after failed subscribe")
		}
		return err
	}
	return nil
}

func (m *Manager) variantFor(address string) (Variant, bool) {
	m.mu.Lock()
	d, ok := m.found[addressKey(address)]
	m.mu.Unlock()
	if ok {
		return d.Variant, true
	}
	if m.opts.Variant != nil {
		return *m.opts.Variant, true
	}
	return Variant{}, false
}

// SubmitText starts printing a styled line of text and returns its completion.
func (m *Manager) SubmitText(ctx context.Context, text string, style escpos.TextStyle) *Completion {
	return m.jobs.PrintText(ctx, text, style)
}

// SubmitRaw starts printing b and returns its completion.
func (m *Manager) SubmitRaw(ctx context.Context, b []byte) *Completion {
	return m.jobs.PrintRaw(ctx, b)
}

// SubmitImage starts printing img and returns its completion.
func (m *Manager) SubmitImage(ctx context.Context, img image.Image) *Completion {
	return m.jobs.PrintImage(ctx, img, m.opts.Pack)
}

// PrintText prints text and waits for the printer to signal ready.
func (m *Manager) PrintText(ctx context.Context, text string, style escpos.TextStyle) error {
	return m.SubmitText(ctx, text, style).Wait()
}

// PrintRaw prints b and waits for the printer to signal ready.
func (m *Manager) PrintRaw(ctx context.Context, b []byte) error {
	return m.SubmitRaw(ctx, b).Wait()
}

// PrintImage prints img and waits for the printer to signal ready.
func (m *Manager) PrintImage(ctx context.Context, img image.Image) error {
	return m.SubmitImage(ctx, img).Wait()
}

// Disconnect tears the session down.
func (m *Manager) Disconnect() error {
	return m.session.Disconnect()
}

func addressKey(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
