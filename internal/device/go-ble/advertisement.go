package goble

import (
	"github.com/go-ble/ble"
	"github.com/srg/catprint/internal/advert"
	"github.com/srg/catprint/internal/device"
)

// rawAdvertisement is implemented by stacks that keep the undecoded PDU (linux HCI).
type rawAdvertisement interface {
	Data() []byte
	ScanResponse() []byte
}

// BLEAdvertisement wraps ble.Advertisement to implement device.Advertisement interface
type BLEAdvertisement struct {
	adv  ble.Advertisement
	data []byte
}

// NewBLEAdvertisement creates a new BLEAdvertisement wrapper.
// Raw AD bytes are taken from the stack when available, otherwise rebuilt
// from the decoded fields.
func NewBLEAdvertisement(adv ble.Advertisement) device.Advertisement {
	var data []byte
	if raw, ok := adv.(rawAdvertisement); ok {
		data = append(append([]byte{}, raw.Data()...), raw.ScanResponse()...)
	}
	if len(data) == 0 {
		data = rebuildData(adv.LocalName(), adv.Services(), adv.ManufacturerData())
	}
	return &BLEAdvertisement{adv: adv, data: data}
}

func (a *BLEAdvertisement) LocalName() string { return a.adv.LocalName() }
func (a *BLEAdvertisement) RSSI() int         { return a.adv.RSSI() }
func (a *BLEAdvertisement) Addr() string      { return a.adv.Addr().String() }
func (a *BLEAdvertisement) Data() []byte      { return a.data }

// rebuildData encodes decoded advertisement fields back into AD structures.
// ble.UUID values are already little-endian, which is the on-air order.
func rebuildData(name string, services []ble.UUID, manufacturer []byte) []byte {
	var short, long []byte
	for _, u := range services {
		switch len(u) {
		case 2:
			short = append(short, u...)
		case 16:
			long = append(long, u...)
		}
	}

	var structs []advert.Structure
	if len(short) > 0 {
		structs = append(structs, advert.Structure{Type: advert.TypeComplete16BitService, Data: short})
	}
	if len(long) > 0 {
		structs = append(structs, advert.Structure{Type: advert.TypeComplete128BitService, Data: long})
	}
	if name != "" {
		structs = append(structs, advert.Structure{Type: advert.TypeCompleteLocalName, Data: []byte(name)})
	}
	if len(manufacturer) > 0 {
		structs = append(structs, advert.Structure{Type: advert.TypeManufacturerData, Data: manufacturer})
	}

	// Oversized fields cannot come from a single PDU; keep what fits.
	var data []byte
	for _, s := range structs {
		if b, err := advert.Encode([]advert.Structure{s}); err == nil {
			data = append(data, b...)
		}
	}
	return data
}
