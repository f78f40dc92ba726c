package curve

import (
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how values between two keys are interpolated.
type Mode int

const (
	Linear Mode = iota
	SmoothStep
	Catmull // cardinal spline with fixed tension 0.5
	Cardinal
	Spline // hermite spline with tangents scaled by key spacing
	Step
)

var modeNames = [...]string{
	Linear:     "linear",
	SmoothStep: "smoothstep",
	Catmull:    "catmull",
	Cardinal:   "cardinal",
	Spline:     "spline",
	Step:       "step",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

func (m Mode) hermite() bool {
	return m == Catmull || m == Cardinal || m == Spline
}

func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return Mode(m), nil
		}
	}
	return 0, errors.Errorf("Unknown curve mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m.String() == "unknown" {
		return nil, errors.Errorf("Invalid curve mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
