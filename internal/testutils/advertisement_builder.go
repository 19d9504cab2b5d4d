package testutils

import (
	"github.com/srg/catprint/internal/advert"
	"github.com/srg/catprint/internal/device"
)

// Advertisement is a scan result with fixed raw data.
type Advertisement struct {
	Address string
	Name    string
	Signal  int
	Raw     []byte
}

func (a *Advertisement) Addr() string      { return a.Address }
func (a *Advertisement) LocalName() string { return a.Name }
func (a *Advertisement) RSSI() int         { return a.Signal }
func (a *Advertisement) Data() []byte      { return a.Raw }

// AdvertisementBuilder builds advertisements from AD structures, the way a
// peripheral lays them out on air.
//
//	adv := NewAdvertisementBuilder().
//	    WithAddress("aa:bb:cc:dd:ee:ff").
//	    WithName("MX10").
//	    WithService16(0xae30).
//	    Build()
type AdvertisementBuilder struct {
	adv     Advertisement
	structs []advert.Structure
	raw     []byte
	rawSet  bool
}

// NewAdvertisementBuilder creates a builder with a flags structure already present.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{
		adv:     Advertisement{Signal: -60},
		structs: []advert.Structure{{Type: advert.TypeFlags, Data: []byte{0x06}}},
	}
}

// WithAddress sets the device address for the advertisement.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.adv.Address = addr
	return b
}

// WithRSSI sets the signal strength for the advertisement.
func (b *AdvertisementBuilder) WithRSSI(rssi int) *AdvertisementBuilder {
	b.adv.Signal = rssi
	return b
}

// WithName sets the name reported by the stack and adds a complete local name structure.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.adv.Name = name
	b.structs = append(b.structs, advert.Structure{Type: advert.TypeCompleteLocalName, Data: []byte(name)})
	return b
}

// WithService16 adds a complete 16-bit service list.
func (b *AdvertisementBuilder) WithService16(uuids ...uint16) *AdvertisementBuilder {
	data := make([]byte, 0, 2*len(uuids))
	for _, u := range uuids {
		data = append(data, byte(u), byte(u>>8))
	}
	b.structs = append(b.structs, advert.Structure{Type: advert.TypeComplete16BitService, Data: data})
	return b
}

// WithService128 adds a complete 128-bit service list, encoded little-endian.
// Panics on malformed UUIDs as this is intended for test data setup.
func (b *AdvertisementBuilder) WithService128(uuids ...string) *AdvertisementBuilder {
	var data []byte
	for _, u := range uuids {
		le, err := advert.ToLittleEndian(advert.Canonical(u))
		if err != nil || len(le) != 16 {
			panic("WithService128: invalid uuid " + u)
		}
		data = append(data, le...)
	}
	b.structs = append(b.structs, advert.Structure{Type: advert.TypeComplete128BitService, Data: data})
	return b
}

// WithStructure appends an arbitrary AD structure.
func (b *AdvertisementBuilder) WithStructure(adType byte, data []byte) *AdvertisementBuilder {
	b.structs = append(b.structs, advert.Structure{Type: adType, Data: data})
	return b
}

// WithRawData replaces the encoded structures with raw bytes, e.g. truncated input.
func (b *AdvertisementBuilder) WithRawData(raw []byte) *AdvertisementBuilder {
	b.raw = raw
	b.rawSet = true
	return b
}

// Build returns the advertisement.
func (b *AdvertisementBuilder) Build() device.Advertisement {
	adv := b.adv
	if b.rawSet {
		adv.Raw = append([]byte(nil), b.raw...)
	} else {
		raw, err := advert.Encode(b.structs)
		if err != nil {
			panic("AdvertisementBuilder: " + err.Error())
		}
		adv.Raw = raw
	}
	return &adv
}
