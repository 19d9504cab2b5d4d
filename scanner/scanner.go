package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/advert"
	"github.com/srg/catprint/internal/device"
	"github.com/srg/catprint/internal/printer"
)

// DefaultScanTimeout bounds a scan when no duration is configured.
const DefaultScanTimeout = 10 * time.Second

// EventType marks if the printer was newly discovered or updated
type EventType int

const (
	EventNew EventType = iota
	EventUpdated
)

// Event is emitted for every advertisement from a supported printer.
type Event struct {
	Type      EventType
	Discovery printer.Discovery
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration time.Duration
	// FirstMatch stops the scan as soon as one printer is found.
	FirstMatch bool
	AllowList  []string
	BlockList  []string
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Duration:   DefaultScanTimeout,
		FirstMatch: true,
	}
}

// entry is stored by pointer and updated in place; the map only sees inserts.
type entry struct {
	seq int64

	mu        sync.Mutex
	discovery printer.Discovery
}

func (e *entry) update(d printer.Discovery) printer.Discovery {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d.Name == "" {
		d.Name = e.discovery.Name
	}
	e.discovery = d
	return d
}

func (e *entry) snapshot() printer.Discovery {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.discovery
}

// Scanner finds supported printers by parsing raw advertising data.
type Scanner struct {
	transport device.Transport
	defaults  *ScanOptions
	events    *RingChannel[Event]
	logger    *logrus.Logger
}

// NewScanner creates a scanner over transport. opts are used by Discover; nil means defaults.
func NewScanner(transport device.Transport, opts *ScanOptions, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	if opts == nil {
		opts = DefaultScanOptions()
	}
	return &Scanner{
		transport: transport,
		defaults:  opts,
		events:    NewRingChannel[Event](100),
		logger:    logger,
	}
}

// Discover scans with the scanner's configured options.
func (s *Scanner) Discover(ctx context.Context) ([]printer.Discovery, error) {
	return s.Scan(ctx, s.defaults)
}

// Scan runs one discovery window.
//
// Results are in discovery order. With no printer found the error is
// ErrScanTimeout when a first-match scan ran out of time and
// ErrNoMatchingDevice otherwise. Cancelling ctx returns what was found so far
// with ctx.Err().
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) ([]printer.Discovery, error) {
	if opts == nil {
		opts = DefaultScanOptions()
	}
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultScanTimeout
	}

	scanCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	devices := hashmap.New[string, *entry]()
	var seq atomic.Int64

	s.logger.WithFields(logrus.Fields{
		"duration":    duration,
		"first_match": opts.FirstMatch,
	}).Info("Starting printer scan...")

	err := s.transport.Scan(scanCtx, func(adv device.Advertisement) {
		if s.handleAdvertisement(devices, &seq, adv, opts) && opts.FirstMatch {
			cancel()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	found := collect(devices)
	s.logger.WithField("printer_count", len(found)).Info("Printer scan completed")

	if ctx.Err() != nil {
		return found, ctx.Err()
	}
	if len(found) > 0 {
		return found, nil
	}
	if opts.FirstMatch && errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
		return nil, &printer.Error{Kind: printer.KindScanTimeout, Msg: fmt.Sprintf("no printer found within %s", duration)}
	}
	return nil, &printer.Error{Kind: printer.KindNoMatchingDevice, Msg: "no supported printer advertised"}
}

// handleAdvertisement records a printer advertisement. Reports whether it was new.
func (s *Scanner) handleAdvertisement(devices *hashmap.Map[string, *entry], seq *atomic.Int64, adv device.Advertisement, opts *ScanOptions) bool {
	addr := adv.Addr()
	if !allowed(addr, opts) {
		return false
	}

	structs := advert.Parse(adv.Data())
	uuids := advert.ServiceUUIDs(structs)
	v, ok := printer.Match(uuids)
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"address":  addr,
			"services": uuids,
		}).Trace("Ignoring non-printer advertisement")
		return false
	}

	name := adv.LocalName()
	if name == "" {
		name = advert.LocalName(structs)
	}
	d := printer.Discovery{
		Address:  addr,
		Name:     name,
		RSSI:     adv.RSSI(),
		Variant:  v,
		Services: uuids,
	}

	key := strings.ToLower(addr)
	e, existing := devices.GetOrInsert(key, &entry{seq: seq.Add(1), discovery: d})
	event := Event{Type: EventNew, Discovery: d}
	if existing {
		event = Event{Type: EventUpdated, Discovery: e.update(d)}
	} else {
		s.logger.WithFields(logrus.Fields{
			"device":  d.Name,
			"address": addr,
			"rssi":    d.RSSI,
			"variant": v.Name,
		}).Info("Discovered printer")
	}

	s.events.ForceSend(event)
	return !existing
}

// allowed applies allow/block filters
func allowed(addr string, opts *ScanOptions) bool {
	for _, blocked := range opts.BlockList {
		if strings.EqualFold(addr, blocked) {
			return false
		}
	}
	if len(opts.AllowList) == 0 {
		return true
	}
	for _, a := range opts.AllowList {
		if strings.EqualFold(addr, a) {
			return true
		}
	}
	return false
}

func collect(devices *hashmap.Map[string, *entry]) []printer.Discovery {
	entries := make([]*entry, 0, devices.Len())
	devices.Range(func(_ string, e *entry) bool {
		entries = append(entries, e)
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]printer.Discovery, len(entries))
	for i, e := range entries {
		out[i] = e.snapshot()
	}
	return out
}

// Events returns a read-only channel of printer events
func (s *Scanner) Events() <-chan Event {
	return s.events.C()
}
