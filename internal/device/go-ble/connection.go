package goble

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/device"
	"github.com/srg/catprint/internal/groutine"
)

// ----------------------------
// Device Factory
// ----------------------------

// DeviceFactory creates ble.Device instances (can be overridden in tests).
// The default is platform specific, see factory_*.go.
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newPlatformDevice

// ----------------------------
// Transport
// ----------------------------

// Transport implements device.Transport on top of go-ble.
// The host device is created lazily on first use and shared by scans and dials.
type Transport struct {
	logger *logrus.Logger

	once sync.Once
	dev  ble.Device
	err  error
}

// NewTransport creates a go-ble transport.
func NewTransport(logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{logger: logger}
}

func (t *Transport) device() (ble.Device, error) {
	t.once.Do(func() {
		t.dev, t.err = DeviceFactory()
		if t.err != nil {
			t.err = NormalizeError(t.err)
			t.logger.WithField("error", t.err).Error("Failed to create BLE device")
			return
		}
		ble.SetDefaultDevice(t.dev)
	})
	return t.dev, t.err
}

// Scan wraps the raw ble.Device.Scan to convert ble.Advertisement to device.Advertisement.
// Duplicates are reported so callers see RSSI updates; deduplication is the caller's job.
func (t *Transport) Scan(ctx context.Context, handler func(device.Advertisement)) error {
	dev, err := t.device()
	if err != nil {
		return err
	}

	err = dev.Scan(ctx, true, func(adv ble.Advertisement) {
		handler(NewBLEAdvertisement(adv))
	})
	if err != nil && ctx.Err() != nil {
		// go-ble reports the context error when the scan window ends
		return ctx.Err()
	}
	return NormalizeError(err)
}

// Dial establishes a BLE connection and discovers the peripheral profile.
func (t *Transport) Dial(ctx context.Context, address string) (device.Link, error) {
	if strings.TrimSpace(address) == "" {
		t.logger.Error("Connection attempt with empty address")
		return nil, fmt.Errorf("device address is empty")
	}

	if _, err := t.device(); err != nil {
		return nil, err
	}

	t.logger.WithField("address", address).Debug("Dialing BLE device...")
	client, err := ble.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	t.logger.WithField("address", address).Debug("Discovering services and characteristics...")
	profile, err := client.DiscoverProfile(true)
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Error("Failed to discover profile")
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			t.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during profile discovery failure")
		}
		return nil, fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	l := newLink(address, client, profile, t.logger)
	t.logger.WithFields(logrus.Fields{
		"address":  address,
		"services": len(profile.Services),
	}).Info("BLE device connected successfully")
	return l, nil
}

// ----------------------------
// Link
// ----------------------------

// gattClient is the subset of ble.Client a link uses.
type gattClient interface {
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	CancelConnection() error
}

// bleLink is a live connection with its discovered characteristics indexed by canonical UUID.
type bleLink struct {
	address string
	client  gattClient
	logger  *logrus.Logger

	// service uuid -> characteristic uuid -> characteristic
	chars map[string]map[string]*ble.Characteristic

	writeMutex   sync.Mutex
	closeOnce    sync.Once
	disconnected chan struct{}
}

func newLink(address string, client gattClient, profile *ble.Profile, logger *logrus.Logger) *bleLink {
	l := &bleLink{
		address:      address,
		client:       client,
		logger:       logger,
		chars:        make(map[string]map[string]*ble.Characteristic),
		disconnected: make(chan struct{}),
	}

	for _, svc := range profile.Services {
		svcUUID := device.NormalizeUUID(svc.UUID.String())
		byUUID, ok := l.chars[svcUUID]
		if !ok {
			byUUID = make(map[string]*ble.Characteristic)
			l.chars[svcUUID] = byUUID
		}
		for _, c := range svc.Characteristics {
			charUUID := device.NormalizeUUID(c.UUID.String())
			logger.WithFields(logrus.Fields{
				"service_uuid": svcUUID,
				"char_uuid":    charUUID,
			}).Debug("Found characteristic UUID")
			byUUID[charUUID] = c
		}
	}

	// Monitor go-ble client Disconnected() channel
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(context.Background(), "ble-connection-monitor", func(context.Context) {
			<-dc.Disconnected()
			logger.WithField("address", address).Warn("BLE stack reported disconnection")
			l.markDisconnected()
		})
	} else {
		logger.Debug("Client does not support Disconnected() channel")
	}
	return l
}

func (l *bleLink) Address() string { return l.address }

func (l *bleLink) Disconnected() <-chan struct{} { return l.disconnected }

func (l *bleLink) markDisconnected() {
	l.closeOnce.Do(func() { close(l.disconnected) })
}

// Characteristic retrieves a characteristic by service and characteristic UUID.
// Returns a NotFoundError if the service or characteristic is not found.
func (l *bleLink) Characteristic(service, uuid string) (device.Characteristic, error) {
	byUUID, ok := l.chars[device.NormalizeUUID(service)]
	if !ok {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{service}}
	}
	c, ok := byUUID[device.NormalizeUUID(uuid)]
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{service, uuid}}
	}
	return &bleCharacteristic{link: l, char: c}, nil
}

// Close cancels the connection. Safe to call more than once.
func (l *bleLink) Close() error {
	select {
	case <-l.disconnected:
		return nil
	default:
	}
	l.logger.WithField("address", l.address).Info("Disconnecting BLE device...")
	err := NormalizeError(l.client.CancelConnection())
	l.markDisconnected()
	if err != nil {
		l.logger.WithField("error", err).Warn("BLE device disconnected with errors")
	}
	return err
}
