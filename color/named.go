package color

import "strings"

// Named colors are returned by value, every call gets its own copy.

func Black() Color   { return Color{0, 0, 0, 1} }
func White() Color   { return Color{1, 1, 1, 1} }
func Red() Color     { return Color{1, 0, 0, 1} }
func Green() Color   { return Color{0, 1, 0, 1} }
func Blue() Color    { return Color{0, 0, 1, 1} }
func Cyan() Color    { return Color{0, 1, 1, 1} }
func Magenta() Color { return Color{1, 0, 1, 1} }
func Yellow() Color  { return Color{1, 1, 0, 1} }
func Gray() Color    { return Color{0.5, 0.5, 0.5, 1} }

var named = map[string]func() Color{
	"black":   Black,
	"white":   White,
	"red":     Red,
	"green":   Green,
	"blue":    Blue,
	"cyan":    Cyan,
	"magenta": Magenta,
	"yellow":  Yellow,
	"gray":    Gray,
	"grey":    Gray,
}

// Lookup returns a named color, case insensitive.
func Lookup(name string) (Color, bool) {
	if f, ok := named[strings.ToLower(name)]; ok {
		return f(), true
	}
	return Color{}, false
}
