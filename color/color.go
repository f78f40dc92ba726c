// Package color implements the RGBA color value used by materials and rendering.
//
// Channels are float32 values nominally in [0, 1]. Arithmetic never clamps them,
// only conversions to byte-based formats (hex strings, image/color) do.
package color

import (
	imgcolor "image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Color struct {
	R, G, B, A float32
}

var _ imgcolor.Color = Color{}

func New(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// NewRGB returns an opaque color.
func NewRGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

func FromVec4(v mgl32.Vec4) Color {
	return Color{R: v[0], G: v[1], B: v[2], A: v[3]}
}

// FromArray reads up to four channels from a, missing alpha defaults to 1.
func FromArray(a []float32) Color {
	c := Color{A: 1}
	switch {
	case len(a) >= 4:
		c.A = a[3]
		fallthrough
	case len(a) == 3:
		c.R, c.G, c.B = a[0], a[1], a[2]
	default:
		panic("color: array must have at least 3 elements")
	}
	return c
}

func (c *Color) Set(r, g, b, a float32) *Color {
	c.R, c.G, c.B, c.A = r, g, b, a
	return c
}

func (c *Color) SetRGB(r, g, b float32) *Color {
	return c.Set(r, g, b, 1)
}

func (c *Color) Copy(src Color) *Color {
	*c = src
	return c
}

func (c Color) Clone() Color {
	return c
}

// Equals compares channels exactly, without any epsilon.
func (c Color) Equals(other Color) bool {
	return c.R == other.R && c.G == other.G && c.B == other.B && c.A == other.A
}

// Lerp stores lhs + alpha*(rhs-lhs) into c. Alpha is not clamped, values
// outside [0, 1] extrapolate past the lhs..rhs segment.
func (c *Color) Lerp(lhs, rhs Color, alpha float32) *Color {
	c.R = lhs.R + alpha*(rhs.R-lhs.R)
	c.G = lhs.G + alpha*(rhs.G-lhs.G)
	c.B = lhs.B + alpha*(rhs.B-lhs.B)
	c.A = lhs.A + alpha*(rhs.A-lhs.A)
	return c
}

func (c Color) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{c.R, c.G, c.B, c.A}
}

func (c Color) Array() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

const gammaExp = 2.2

// Linear converts gamma encoded rgb channels to linear space. Alpha is kept.
func (c Color) Linear() Color {
	return Color{R: powf(c.R, gammaExp), G: powf(c.G, gammaExp), B: powf(c.B, gammaExp), A: c.A}
}

// Gamma is the inverse of Linear.
func (c Color) Gamma() Color {
	return Color{R: powf(c.R, 1/gammaExp), G: powf(c.G, 1/gammaExp), B: powf(c.B, 1/gammaExp), A: c.A}
}

func powf(v float32, e float64) float32 {
	return float32(math.Pow(float64(v), e))
}

// RGBA returns alpha-premultiplied 16 bit channels, clamped to the valid range.
func (c Color) RGBA() (r, g, b, a uint32) {
	const mf = float32(0xffff)
	alpha := mgl32.Clamp(c.A, 0, 1)
	a = uint32(alpha*mf + 0.5)
	r = uint32(mgl32.Clamp(c.R, 0, 1)*alpha*mf + 0.5)
	g = uint32(mgl32.Clamp(c.G, 0, 1)*alpha*mf + 0.5)
	b = uint32(mgl32.Clamp(c.B, 0, 1)*alpha*mf + 0.5)
	return
}
