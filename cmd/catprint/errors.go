package main

import (
	"errors"

	"github.com/srg/catprint/internal/device"
	"github.com/srg/catprint/internal/printer"
)

// userHints pairs error classes with the advice shown in front of the raw error.
var userHints = []struct {
	target error
	hint   string
}{
	{device.ErrBluetoothOff, "Bluetooth is turned off or unavailable"},
	{device.ErrUnsupported, "BLE is not supported on this platform"},
	{printer.ErrScanTimeout, "no printer found before the scan timed out; is it powered on?"},
	{printer.ErrNoMatchingDevice, "no supported printer found at that address; run 'catprint scan'"},
	{printer.ErrConnectionFailed, "could not connect to the printer"},
	{printer.ErrConnectionLost, "connection to the printer was lost"},
	{printer.ErrSubscriptionFailed, "printer refused ready notifications"},
	{printer.ErrAckTimeout, "printer did not report ready; the print may be incomplete"},
	{printer.ErrNotReady, "printer is busy or not connected"},
}

// FormatUserError turns an error into a one-line message for the terminal.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	for _, h := range userHints {
		if errors.Is(err, h.target) {
			return h.hint + " (" + err.Error() + ")"
		}
	}
	return err.Error()
}
