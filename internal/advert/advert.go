// Package advert decodes raw BLE advertising data into AD structures and
// extracts the service UUIDs they carry.
package advert

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// AD types understood by this package
const (
	TypeFlags                   = 0x01
	TypeIncomplete16BitService  = 0x02
	TypeComplete16BitService    = 0x03
	TypeIncomplete32BitService  = 0x04
	TypeComplete32BitService    = 0x05
	TypeIncomplete128BitService = 0x06
	TypeComplete128BitService   = 0x07
	TypeShortenedLocalName      = 0x08
	TypeCompleteLocalName       = 0x09
	TypeManufacturerData        = 0xFF
)

// MaxStructureLen is the largest length prefix a single record can declare.
const MaxStructureLen = 255

// Structure is a single [length][type][data...] record.
// Length is implied by Data and not stored.
type Structure struct {
	Type byte
	Data []byte
}

// Parse splits buf into AD structures.
//
// Parsing stops at a zero length byte (end of significant data) or at the
// first record whose declared length runs past the end of buf. Structures
// decoded before that point are returned; malformed input never fails.
func Parse(buf []byte) []Structure {
	var structures []Structure
	offset := 0

	for offset < len(buf) {
		length := int(buf[offset])
		if length == 0 {
			break
		}
		offset++
		if offset+length > len(buf) {
			break
		}

		data := make([]byte, length-1)
		copy(data, buf[offset+1:offset+length])
		structures = append(structures, Structure{Type: buf[offset], Data: data})
		offset += length
	}

	return structures
}

// Encode serializes structures back into advertising data.
// It is the inverse of Parse for well-formed input.
func Encode(structures []Structure) ([]byte, error) {
	var buf []byte
	for i, s := range structures {
		length := 1 + len(s.Data)
		if length > MaxStructureLen {
			return nil, fmt.Errorf("AD structure %d too long: %d bytes (max %d)", i, length, MaxStructureLen)
		}
		buf = append(buf, byte(length), s.Type)
		buf = append(buf, s.Data...)
	}
	return buf, nil
}

// ServiceUUIDs returns every 16, 32 and 128-bit service UUID found in
// structures, in canonical form and in order of appearance.
func ServiceUUIDs(structures []Structure) []string {
	var uuids []string
	for _, s := range structures {
		switch s.Type {
		case TypeIncomplete16BitService, TypeComplete16BitService:
			// trailing odd byte is ignored
			for i := 0; i+1 < len(s.Data); i += 2 {
				uuids = append(uuids, Expand16(uint16(s.Data[i])|uint16(s.Data[i+1])<<8))
			}
		case TypeIncomplete32BitService, TypeComplete32BitService:
			for i := 0; i+4 <= len(s.Data); i += 4 {
				uuids = append(uuids, Expand32(binary.LittleEndian.Uint32(s.Data[i:i+4])))
			}
		case TypeIncomplete128BitService, TypeComplete128BitService:
			for i := 0; i+16 <= len(s.Data); i += 16 {
				if u, ok := FromLittleEndian(s.Data[i : i+16]); ok {
					uuids = append(uuids, u)
				}
			}
		}
	}
	return uuids
}

// LocalName returns the complete local name, falling back to the shortened one.
func LocalName(structures []Structure) string {
	var short string
	for _, s := range structures {
		switch s.Type {
		case TypeCompleteLocalName:
			return strings.TrimRight(string(s.Data), "\x00")
		case TypeShortenedLocalName:
			if short == "" {
				short = strings.TrimRight(string(s.Data), "\x00")
			}
		}
	}
	return short
}
