package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseError reports a malformed hex color string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("color: cannot parse %q: %s", e.Input, e.Reason)
}

// Parse reads "#RRGGBB" or "#RRGGBBAA". The leading '#' is optional and
// alpha defaults to 1 when only six digits are given.
func Parse(s string) (Color, error) {
	digits := strings.TrimPrefix(s, "#")
	if len(digits) != 6 && len(digits) != 8 {
		return Color{}, &ParseError{Input: s, Reason: "expected 6 or 8 hex digits"}
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return Color{}, &ParseError{Input: s, Reason: "invalid hex digit"}
	}
	if len(digits) == 6 {
		v = v<<8 | 0xff
	}

	return Color{
		R: float32((v>>24)&0xff) / 255,
		G: float32((v>>16)&0xff) / 255,
		B: float32((v>>8)&0xff) / 255,
		A: float32(v&0xff) / 255,
	}, nil
}

// FromString parses hex into c. On error c is left unchanged.
func (c *Color) FromString(hex string) error {
	parsed, err := Parse(hex)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func toByte(v float32) uint8 {
	f := math.Round(float64(v) * 255)
	if f < 0 {
		return 0
	} else if f > 255 {
		return 255
	}
	return uint8(f)
}

// Hex renders "#rrggbb", or "#rrggbbaa" when includeAlpha is set.
func (c Color) Hex(includeAlpha bool) string {
	if includeAlpha {
		return fmt.Sprintf("#%.2x%.2x%.2x%.2x", toByte(c.R), toByte(c.G), toByte(c.B), toByte(c.A))
	}
	return fmt.Sprintf("#%.2x%.2x%.2x", toByte(c.R), toByte(c.G), toByte(c.B))
}

func (c Color) String() string {
	return c.Hex(true)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex(true)), nil
}

// UnmarshalText accepts hex strings and the names known by Lookup.
func (c *Color) UnmarshalText(text []byte) error {
	if named, ok := Lookup(string(text)); ok {
		*c = named
		return nil
	}
	return c.FromString(string(text))
}
