// Package curve implements keyframed 1D curves and curve sets used to drive
// animated parameters, with batch sampling into flat lookup tables.
package curve

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

const DefaultTension = 0.5

// Key is a single keyframe.
type Key struct {
	Time  float32
	Value float32
}

// Curve is a list of keys sorted by time and the mode used between them.
type Curve struct {
	keys    []Key
	mode    Mode
	tension float32
}

// NewCurve creates a smoothstep curve. Keys are sorted by time.
func NewCurve(keys ...Key) *Curve {
	c := &Curve{
		keys:    append([]Key(nil), keys...),
		mode:    SmoothStep,
		tension: DefaultTension,
	}
	c.Sort()
	return c
}

// NewCurveFromPairs builds a curve from flat time, value pairs.
func NewCurveFromPairs(pairs []float32) *Curve {
	if len(pairs)%2 != 0 {
		panic("curve: odd number of elements in time/value pairs")
	}
	keys := make([]Key, len(pairs)/2)
	for i := range keys {
		keys[i] = Key{Time: pairs[i*2], Value: pairs[i*2+1]}
	}
	return NewCurve(keys...)
}

func (c *Curve) Len() int { return len(c.keys) }

func (c *Curve) Mode() Mode { return c.mode }

func (c *Curve) SetMode(m Mode) { c.mode = m }

func (c *Curve) Tension() float32 { return c.tension }

// SetTension changes the tension of Cardinal and Spline curves.
func (c *Curve) SetTension(t float32) { c.tension = t }

// Add inserts a key after any existing keys with the same time.
func (c *Curve) Add(time, value float32) Key {
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time > time })
	k := Key{Time: time, Value: value}
	c.keys = append(c.keys, Key{})
	copy(c.keys[i+1:], c.keys[i:])
	c.keys[i] = k
	return k
}

// Get returns key i. It panics if i is out of range.
func (c *Curve) Get(i int) Key {
	return c.keys[i]
}

// Keys returns a copy of the keys.
func (c *Curve) Keys() []Key {
	return append([]Key(nil), c.keys...)
}

// Sort restores time order after keys were loaded unsorted.
func (c *Curve) Sort() {
	sort.SliceStable(c.keys, func(i, j int) bool { return c.keys[i].Time < c.keys[j].Time })
}

// Closest returns the key nearest to time; later keys win ties.
func (c *Curve) Closest(time float32) (Key, bool) {
	if len(c.keys) == 0 {
		return Key{}, false
	}
	best := 0
	min := float32(math.Inf(1))
	for i, k := range c.keys {
		if diff := mgl32.Abs(time - k.Time); diff <= min {
			min = diff
			best = i
		}
	}
	return c.keys[best], true
}

// Value evaluates the curve at time.
func (c *Curve) Value(time float32) float32 {
	e := Evaluator{curve: c}
	e.Reset(time)
	return e.Evaluate(time)
}

func (c *Curve) Clone() *Curve {
	return &Curve{
		keys:    append([]Key(nil), c.keys...),
		mode:    c.mode,
		tension: c.tension,
	}
}

// Quantize samples the curve at precision evenly spaced times in [0, 1].
func (c *Curve) Quantize(precision int) []float32 {
	return quantize([]*Curve{c}, precision)
}

func (c *Curve) QuantizeClamped(precision int, min, max float32) []float32 {
	return clampAll(c.Quantize(precision), min, max)
}

// quantize builds the interleaved table[i*len(curves)+c] with one evaluator
// per curve walking the samples in time order.
func quantize(curves []*Curve, precision int) []float32 {
	if precision < 2 {
		precision = 2
	}
	n := len(curves)
	table := make([]float32, precision*n)
	last := float32(precision - 1)
	for ci, c := range curves {
		e := NewEvaluator(c)
		for i := 0; i < precision; i++ {
			table[i*n+ci] = e.Evaluate(float32(i) / last)
		}
	}
	return table
}

func clampAll(table []float32, min, max float32) []float32 {
	for i, v := range table {
		table[i] = mgl32.Clamp(v, min, max)
	}
	return table
}
