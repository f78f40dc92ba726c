package web

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mogaika/enginekit/color"
	"github.com/mogaika/enginekit/curve"
	"github.com/mogaika/enginekit/webutils"
)

type displayInfo struct {
	ID      string `json:"id"`
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

func (s *Server) HandlerDisplays(w http.ResponseWriter, r *http.Request) {
	primary := s.Manager.Display()
	displays := s.Manager.Displays()
	result := make([]displayInfo, len(displays))
	for i, d := range displays {
		result[i] = displayInfo{
			ID:      d.ID(),
			UID:     d.UID().String(),
			Name:    d.Name(),
			Primary: d == primary,
		}
	}
	webutils.WriteJson(w, result)
}

func (s *Server) HandlerState(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, map[string]interface{}{
		"state":       s.Manager.State().String(),
		"displays":    len(s.Manager.Displays()),
		"clear_color": s.ClearColor.Hex(true),
	})
}

type colorInfo struct {
	Hex    string     `json:"hex"`
	RGBA   [4]float32 `json:"rgba"`
	Linear [4]float32 `json:"linear"`
}

func newColorInfo(c color.Color) *colorInfo {
	return &colorInfo{Hex: c.Hex(true), RGBA: c.Array(), Linear: c.Linear().Array()}
}

// parseColor accepts hex values and color names.
func parseColor(s string) (color.Color, error) {
	var c color.Color
	err := c.UnmarshalText([]byte(s))
	return c, err
}

func HandlerColor(w http.ResponseWriter, r *http.Request) {
	c, err := parseColor(mux.Vars(r)["hex"])
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, newColorInfo(c))
}

func HandlerColorLerp(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	from, err := parseColor(vars["from"])
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	to, err := parseColor(vars["to"])
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	alpha, err := parseFloat(vars["alpha"])
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Invalid alpha"))
		return
	}

	var c color.Color
	c.Lerp(from, to, alpha)
	webutils.WriteJson(w, newColorInfo(c))
}

func parseFloat(s string) (float32, error) {
	f, err := strconv.ParseFloat(s, 32)
	return float32(f), err
}

func readSet(r *http.Request) (*curve.Set, error) {
	set := curve.EmptySet()
	if err := webutils.ReadBody(r, set); err != nil {
		return nil, errors.Wrapf(err, "Failed to read curve set")
	}
	return set, nil
}

func HandlerCurvesValue(w http.ResponseWriter, r *http.Request) {
	time, err := webutils.FloatParam(r, "time", 0)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	set, err := readSet(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, map[string]interface{}{
		"time":   time,
		"values": set.Value(time, nil),
	})
}

func (s *Server) HandlerCurvesQuantize(w http.ResponseWriter, r *http.Request) {
	def := s.Precision
	if def == 0 {
		def = DefaultPrecision
	}
	precision, err := webutils.IntParam(r, "precision", def)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if precision < 2 {
		precision = 2
	}

	q := r.URL.Query()
	clamped := q.Get("min") != "" || q.Get("max") != ""
	var defMin, defMax float32 = 0, 1
	if s.ClampMin != nil && s.ClampMax != nil {
		clamped = true
		defMin, defMax = *s.ClampMin, *s.ClampMax
	}
	min, err := webutils.FloatParam(r, "min", defMin)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	max, err := webutils.FloatParam(r, "max", defMax)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	set, err := readSet(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	var table []float32
	if clamped {
		table = set.QuantizeClamped(precision, min, max)
	} else {
		table = set.Quantize(precision)
	}
	webutils.WriteJson(w, map[string]interface{}{
		"precision": precision,
		"curves":    set.Len(),
		"table":     table,
	})
}

// HandlerCurvesYaml sends the posted set back as a normalized yaml file.
func HandlerCurvesYaml(w http.ResponseWriter, r *http.Request) {
	set, err := readSet(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteYamlFile(w, set, "curves")
}
