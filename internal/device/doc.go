// Package device defines the boundary between the printer protocol and the
// host Bluetooth stack.
//
// The protocol core consumes only what this package declares:
//   - raw advertisement buffers delivered by a scan
//   - a dialed link with write and notify characteristics
//   - notification payloads and a disconnection signal
//
// Concrete stacks live in sub-packages (see go-ble). Errors reported by a
// stack are normalized to the sentinels declared here.
package device
