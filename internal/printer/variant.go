package printer

import (
	"bytes"
	"strings"

	"github.com/srg/catprint/internal/advert"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Variant is a printer family: the advertised service fixes which
// characteristics carry commands (Write) and ready notifications (Notify).
type Variant struct {
	Name    string `json:"name"`
	Service string `json:"service"`
	Write   string `json:"write"`
	Notify  string `json:"notify"`
}

func (v Variant) String() string { return v.Name }

var (
	VariantAE30 = Variant{
		Name:    "AE30",
		Service: advert.Expand16(0xae30),
		Write:   advert.Expand16(0xae01),
		Notify:  advert.Expand16(0xae02),
	}
	VariantAF30 = Variant{
		Name:    "AF30",
		Service: advert.Expand16(0xaf30),
		Write:   advert.Expand16(0xaf01),
		Notify:  advert.Expand16(0xaf02),
	}
)

// ReadySentinel is the notification a printer emits when a job is done.
var ReadySentinel = []byte{0x51, 0x78, 0xae, 0x01, 0x01, 0x00, 0x00, 0x00, 0xff}

// IsReady reports whether a notification payload is exactly the ready sentinel.
func IsReady(b []byte) bool {
	return bytes.Equal(b, ReadySentinel)
}

// variants is keyed by service UUID; iteration order is match priority.
var variants = newRegistry(VariantAE30, VariantAF30)

func newRegistry(vs ...Variant) *orderedmap.OrderedMap[string, Variant] {
	m := orderedmap.New[string, Variant]()
	for _, v := range vs {
		m.Set(v.Service, v)
	}
	return m
}

// Variants lists the supported printer families in priority order.
func Variants() []Variant {
	out := make([]Variant, 0, variants.Len())
	for pair := variants.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// Match returns the first variant, in priority order, whose service is among uuids.
func Match(uuids []string) (Variant, bool) {
	present := make(map[string]struct{}, len(uuids))
	for _, u := range uuids {
		present[strings.ToLower(u)] = struct{}{}
	}
	for pair := variants.Oldest(); pair != nil; pair = pair.Next() {
		if _, ok := present[pair.Key]; ok {
			return pair.Value, true
		}
	}
	return Variant{}, false
}

// LookupVariant resolves a variant by name ("ae30") or by service UUID in any accepted form.
func LookupVariant(s string) (Variant, bool) {
	if v, ok := variants.Get(advert.Canonical(s)); ok {
		return v, true
	}
	for pair := variants.Oldest(); pair != nil; pair = pair.Next() {
		if strings.EqualFold(pair.Value.Name, strings.TrimSpace(s)) {
			return pair.Value, true
		}
	}
	return Variant{}, false
}
