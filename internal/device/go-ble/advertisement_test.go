package goble

import (
	"testing"

	"github.com/go-ble/ble"
	"github.com/srg/catprint/internal/advert"
	"github.com/stretchr/testify/assert"
)

func TestRebuildData(t *testing.T) {
	// GOAL: Verify decoded go-ble fields round-trip through the AD parser
	//
	// TEST SCENARIO: 16-bit and 128-bit services plus a name are encoded → parsed back → same identities

	nus := ble.MustParse("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	data := rebuildData("MX10", []ble.UUID{ble.UUID16(0xae30), nus}, []byte{0x01, 0x02})

	structs := advert.Parse(data)
	assert.Equal(t, []string{
		"0000ae30-0000-1000-8000-00805f9b34fb",
		"6e400001-b5a3-f393-e0a9-e50e24dcca9e",
	}, advert.ServiceUUIDs(structs))
	assert.Equal(t, "MX10", advert.LocalName(structs))
	assert.Equal(t, advert.Structure{Type: advert.TypeManufacturerData, Data: []byte{0x01, 0x02}}, structs[len(structs)-1])
}

func TestRebuildData_Empty(t *testing.T) {
	assert.Empty(t, rebuildData("", nil, nil))
}

func TestRebuildData_SkipsOversizedField(t *testing.T) {
	name := make([]byte, 300)
	for i := range name {
		name[i] = 'a'
	}
	data := rebuildData(string(name), []ble.UUID{ble.UUID16(0xaf30)}, nil)

	structs := advert.Parse(data)
	assert.Equal(t, []string{"0000af30-0000-1000-8000-00805f9b34fb"}, advert.ServiceUUIDs(structs))
	assert.Empty(t, advert.LocalName(structs), "a field that cannot be encoded MUST be dropped")
}
