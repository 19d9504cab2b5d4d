package main

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/device"
	goble "github.com/srg/catprint/internal/device/go-ble"
)

// newTransport creates the BLE transport used by every command (overridden in tests).
var newTransport = func(logger *logrus.Logger) device.Transport {
	return goble.NewTransport(logger)
}
