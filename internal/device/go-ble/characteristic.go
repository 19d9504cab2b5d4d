package goble

import (
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/device"
)

// bleCharacteristic binds a discovered characteristic to the link it was found on.
type bleCharacteristic struct {
	link *bleLink
	char *ble.Characteristic
}

func (c *bleCharacteristic) UUID() string {
	return device.NormalizeUUID(c.char.UUID.String())
}

// Write sends data as a write-without-response. Writes on one link are serialized.
func (c *bleCharacteristic) Write(data []byte) error {
	select {
	case <-c.link.disconnected:
		return device.ErrNotConnected
	default:
	}

	c.link.writeMutex.Lock()
	defer c.link.writeMutex.Unlock()

	if err := c.link.client.WriteCharacteristic(c.char, data, true); err != nil {
		c.link.logger.WithFields(logrus.Fields{
			"char_uuid": c.UUID(),
			"len":       len(data),
			"error":     err,
		}).Error("Characteristic write failed")
		return fmt.Errorf("write %s: %w", c.UUID(), NormalizeError(err))
	}
	return nil
}

// Subscribe enables notifications, falling back to indications when the
// characteristic only supports those.
func (c *bleCharacteristic) Subscribe(handler func(data []byte)) error {
	notify := c.char.Property&ble.CharNotify != 0
	indicate := c.char.Property&ble.CharIndicate != 0
	if !notify && !indicate {
		return fmt.Errorf("characteristic %s has no notification support: %w", c.UUID(), device.ErrUnsupported)
	}

	err := c.link.client.Subscribe(c.char, !notify, func(data []byte) {
		handler(append([]byte(nil), data...))
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.UUID(), NormalizeError(err))
	}
	c.link.logger.WithField("char_uuid", c.UUID()).Info("Successfully subscribed to characteristic notifications")
	return nil
}
