package curve

import (
	"fmt"
)

// IndexError is returned for an out of range curve index.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("curve: index %d out of range [0:%d]", e.Index, e.Len)
}

// Set is an ordered collection of curves sampled together. All curves share
// the mode of the set, SetMode overwrites whatever mode a curve had before.
type Set struct {
	curves []*Curve
	mode   Mode
}

// EmptySet returns a set holding a single curve without keys.
func EmptySet() *Set {
	return WithCurveCount(1)
}

// WithCurveCount returns a set of n curves without keys.
func WithCurveCount(n int) *Set {
	if n < 0 {
		panic(fmt.Sprintf("curve: negative curve count %d", n))
	}
	s := &Set{curves: make([]*Curve, n)}
	for i := range s.curves {
		s.curves[i] = NewCurve()
	}
	s.SetMode(SmoothStep)
	return s
}

// FromKeyframeLists creates one curve per keyframe list, in order.
func FromKeyframeLists(lists ...[]Key) *Set {
	s := &Set{curves: make([]*Curve, len(lists))}
	for i, keys := range lists {
		s.curves[i] = NewCurve(keys...)
	}
	s.SetMode(SmoothStep)
	return s
}

func (s *Set) Len() int { return len(s.curves) }

func (s *Set) Get(index int) (*Curve, error) {
	if index < 0 || index >= len(s.curves) {
		return nil, &IndexError{Index: index, Len: len(s.curves)}
	}
	return s.curves[index], nil
}

func (s *Set) Mode() Mode { return s.mode }

// SetMode changes the mode of the set and of every curve in it.
func (s *Set) SetMode(m Mode) {
	s.mode = m
	for _, c := range s.curves {
		c.mode = m
	}
}

// Value evaluates every curve at time. The result is written into out,
// which is grown or truncated to the curve count; nil allocates.
func (s *Set) Value(time float32, out []float32) []float32 {
	if cap(out) < len(s.curves) {
		out = make([]float32, len(s.curves))
	}
	out = out[:len(s.curves)]
	for i, c := range s.curves {
		out[i] = c.Value(time)
	}
	return out
}

// Quantize samples all curves at precision evenly spaced times in [0, 1]
// (precision is at least 2). Value of curve c at sample i is stored at
// table[i*Len()+c].
func (s *Set) Quantize(precision int) []float32 {
	return quantize(s.curves, precision)
}

// QuantizeClamped is Quantize with every entry clamped into [min, max].
func (s *Set) QuantizeClamped(precision int, min, max float32) []float32 {
	return clampAll(s.Quantize(precision), min, max)
}

func (s *Set) Clone() *Set {
	clone := &Set{curves: make([]*Curve, len(s.curves)), mode: s.mode}
	for i, c := range s.curves {
		clone.curves[i] = c.Clone()
	}
	return clone
}
