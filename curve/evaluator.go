package curve

import "math"

// Evaluator samples a single curve and caches the segment of the last query.
// Monotonic queries only rescan the keys when leaving the cached segment, so
// sampling a whole curve in time order is linear in the number of keys.
//
// An Evaluator must not outlive modifications of its curve: changing keys,
// mode or tension requires a new Evaluator (or Reset).
type Evaluator struct {
	curve *Curve

	left, right float32 // cached segment [left, right)
	recip       float32 // 1 / (right - left), 0 for open segments
	p0, p1      float32
	m0, m1      float32 // hermite tangents
}

func NewEvaluator(c *Curve) *Evaluator {
	e := &Evaluator{curve: c}
	e.invalidate()
	return e
}

func (e *Evaluator) invalidate() {
	// empty segment forces a reset on the next query
	e.left = float32(math.Inf(1))
	e.right = float32(math.Inf(-1))
}

// Evaluate returns the curve value at time.
func (e *Evaluator) Evaluate(time float32) float32 {
	if time < e.left || time >= e.right {
		e.Reset(time)
	}

	switch e.curve.mode {
	case Step:
		return e.p0
	}

	var t float32
	if e.recip != 0 {
		t = (time - e.left) * e.recip
	}

	switch e.curve.mode {
	case Linear:
		return lerp(e.p0, e.p1, t)
	case SmoothStep:
		return lerp(e.p0, e.p1, t*t*(3-2*t))
	default:
		return hermite(e.p0, e.p1, e.m0, e.m1, t)
	}
}

// Reset locates the segment containing time.
func (e *Evaluator) Reset(time float32) {
	keys := e.curve.keys
	n := len(keys)

	switch {
	case n == 0:
		e.left = float32(math.Inf(-1))
		e.right = float32(math.Inf(1))
		e.recip = 0
		e.p0, e.p1, e.m0, e.m1 = 0, 0, 0, 0
	case time < keys[0].Time:
		e.left = float32(math.Inf(-1))
		e.right = keys[0].Time
		e.recip = 0
		e.p0, e.p1 = keys[0].Value, keys[0].Value
		e.m0, e.m1 = 0, 0
	case time >= keys[n-1].Time:
		e.left = keys[n-1].Time
		e.right = float32(math.Inf(1))
		e.recip = 0
		e.p0, e.p1 = keys[n-1].Value, keys[n-1].Value
		e.m0, e.m1 = 0, 0
	default:
		i := 0
		for time >= keys[i+1].Time {
			i++
		}
		e.left = keys[i].Time
		e.right = keys[i+1].Time
		e.recip = finiteOrZero(1 / (e.right - e.left))
		e.p0 = keys[i].Value
		e.p1 = keys[i+1].Value
		if e.curve.mode.hermite() {
			e.tangents(keys, i)
		} else {
			e.m0, e.m1 = 0, 0
		}
	}
}

// tangents computes hermite tangents for segment i..i+1. Missing neighbours
// at the ends of the curve are mirrored from the segment itself.
func (e *Evaluator) tangents(keys []Key, i int) {
	b := keys[i]
	c := keys[i+1]

	var a, d Key
	if i == 0 {
		a = Key{Time: b.Time + (b.Time - c.Time), Value: b.Value + (b.Value - c.Value)}
	} else {
		a = keys[i-1]
	}
	if i == len(keys)-2 {
		d = Key{Time: c.Time + (c.Time - b.Time), Value: c.Value + (c.Value - b.Value)}
	} else {
		d = keys[i+2]
	}

	if e.curve.mode == Spline {
		s1 := finiteOrZero(2 * (c.Time - b.Time) / (c.Time - a.Time))
		s2 := finiteOrZero(2 * (c.Time - b.Time) / (d.Time - b.Time))
		e.m0 = e.curve.tension * s1 * (c.Value - a.Value)
		e.m1 = e.curve.tension * s2 * (d.Value - b.Value)
		return
	}

	s1 := finiteOrZero((c.Time - b.Time) / (b.Time - a.Time))
	s2 := finiteOrZero((c.Time - b.Time) / (d.Time - c.Time))
	av := b.Value + (a.Value-b.Value)*s1
	dv := c.Value + (d.Value-c.Value)*s2

	tension := e.curve.tension
	if e.curve.mode == Catmull {
		tension = 0.5
	}
	e.m0 = tension * (c.Value - av)
	e.m1 = tension * (dv - b.Value)
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

func hermite(p0, p1, m0, m1, t float32) float32 {
	t2 := t * t
	twot := t + t
	omt := 1 - t
	omt2 := omt * omt
	return p0*((1+twot)*omt2) + m0*(t*omt2) + p1*(t2*(3-twot)) + m1*(t2*(t-1))
}

func finiteOrZero(v float32) float32 {
	f := float64(v)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return v
}
