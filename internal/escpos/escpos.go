// Package escpos builds the byte sequences understood by ESC/POS style
// thermal receipt printers. All functions are pure and return fresh slices.
package escpos

const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Alignment selects the horizontal justification used by ESC a.
type Alignment byte

const (
	Left   Alignment = 0x00
	Center Alignment = 0x01
	Right  Alignment = 0x02
)

func (a Alignment) String() string {
	switch a {
	case Left:
		return "left"
	case Center:
		return "center"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// ParseAlignment maps "left", "center" and "right" to an Alignment.
func ParseAlignment(s string) (Alignment, bool) {
	switch s {
	case "left":
		return Left, true
	case "center", "centre":
		return Center, true
	case "right":
		return Right, true
	default:
		return Left, false
	}
}

// Align returns ESC a n.
func Align(a Alignment) []byte { return []byte{ESC, 0x61, byte(a)} }

func AlignLeft() []byte   { return Align(Left) }
func AlignCenter() []byte { return Align(Center) }
func AlignRight() []byte  { return Align(Right) }
func LineFeed() []byte    { return []byte{LF} }

// Initialize returns ESC @, which resets the printer to its power-on mode.
func Initialize() []byte { return []byte{ESC, 0x40} }

// SetLineSpacing returns ESC 3 n; n is embedded verbatim.
func SetLineSpacing(n byte) []byte { return []byte{ESC, 0x33, n} }

// Text encodes s as ASCII, one byte per character. Runes outside ASCII are
// replaced by '?'; printer code pages are not selected.
func Text(s string, appendLineFeed bool) []byte {
	out := make([]byte, 0, len(s)+1)
	for _, r := range s {
		if r > 0x7F {
			out = append(out, '?')
			continue
		}
		out = append(out, byte(r))
	}
	if appendLineFeed {
		out = append(out, LF)
	}
	return out
}

// TextStyle holds optional commands sent ahead of a line of text.
// Nil fields leave the printer's current setting alone.
type TextStyle struct {
	Align       *Alignment
	LineSpacing *byte
}

// StyledText encodes the style commands, then s and a line feed.
func StyledText(s string, style TextStyle) []byte {
	var prefix []byte
	if style.Align != nil {
		prefix = Combine(prefix, Align(*style.Align))
	}
	if style.LineSpacing != nil {
		prefix = Combine(prefix, SetLineSpacing(*style.LineSpacing))
	}
	return Combine(prefix, Text(s, true))
}

// Combine concatenates two sequences. A nil operand is the identity and the
// other operand is returned unchanged.
func Combine(first, second []byte) []byte {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	combined := make([]byte, 0, len(first)+len(second))
	combined = append(combined, first...)
	return append(combined, second...)
}

// Concat folds Combine over parts.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = Combine(out, p)
	}
	return out
}
