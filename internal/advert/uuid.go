package advert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// BaseUUIDSuffix is the tail of the Bluetooth base UUID that 16-bit values expand into.
const BaseUUIDSuffix = "-0000-1000-8000-00805f9b34fb"

// Expand16 expands a 16-bit assigned number into its canonical 128-bit form,
// e.g. 0xAE30 -> "0000ae30-0000-1000-8000-00805f9b34fb".
func Expand16(short uint16) string {
	return fmt.Sprintf("0000%04x%s", short, BaseUUIDSuffix)
}

// Expand32 expands a 32-bit service UUID into its canonical 128-bit form.
func Expand32(short uint32) string {
	return fmt.Sprintf("%08x%s", short, BaseUUIDSuffix)
}

// FromLittleEndian formats a 16-byte UUID received in over-the-air
// (little-endian) order. The input slice is not modified.
func FromLittleEndian(b []byte) (string, bool) {
	if len(b) != 16 {
		return "", false
	}
	var reversed [16]byte
	for i := range b {
		reversed[15-i] = b[i]
	}
	u, err := uuid.FromBytes(reversed[:])
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// ToLittleEndian converts a canonical UUID string (or a 4-digit short form)
// to its over-the-air byte order. Short forms yield two bytes.
func ToLittleEndian(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(s) == 4 {
		v, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid 16-bit UUID %q: %w", s, err)
		}
		return []byte{byte(v), byte(v >> 8)}, nil
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID %q: %w", s, err)
	}
	out := make([]byte, 16)
	for i := range u {
		out[15-i] = u[i]
	}
	return out, nil
}

// Canonical lower-cases and expands a UUID string. 4-digit short forms are
// expanded into the Bluetooth base UUID; anything else is parsed as a full UUID.
// Returns "" when s is not a valid UUID.
func Canonical(s string) string {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if len(s) == 4 {
		v, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return ""
		}
		return Expand16(uint16(v))
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return ""
	}
	return u.String()
}
