package device

import "github.com/srg/catprint/internal/advert"

// NormalizeUUID is re-exported from advert for convenience.
// It returns the canonical lowercase, dashed 128-bit form; 16-bit short forms
// are expanded into the Bluetooth base UUID. Returns "" for malformed input.
func NormalizeUUID(uuid string) string {
	return advert.Canonical(uuid)
}

// ShortenUUID returns a truncated version of a UUID for display purposes.
// Bluetooth base UUIDs collapse to their 16-bit form; others keep the first eight characters.
func ShortenUUID(uuid string) string {
	if len(uuid) == 36 && uuid[:4] == "0000" && uuid[8:] == advert.BaseUUIDSuffix {
		return uuid[4:8]
	}
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}
