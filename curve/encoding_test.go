package curve

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
)

const setYAML = `
mode: linear
tension: 0.25
curves:
  - [[0, 0], [1, 2]]
  - [[1, 1], [0, 3]]
`

func TestLoadSet(t *testing.T) {
	s, err := LoadSet(strings.NewReader(setYAML))
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || s.Mode() != Linear {
		t.Fatalf("loaded len %d mode %v", s.Len(), s.Mode())
	}
	c, _ := s.Get(1)
	if c.Get(0) != (Key{0, 3}) || c.Tension() != 0.25 || c.Mode() != Linear {
		t.Errorf("curve 1 = %v tension %v mode %v", c.Keys(), c.Tension(), c.Mode())
	}
	if v := s.Value(0.5, nil); v[0] != 1 || v[1] != 2 {
		t.Errorf("Value(0.5) = %v", v)
	}
}

func TestLoadSetErrors(t *testing.T) {
	for _, in := range []string{
		"mode: bezier\ncurves: []",
		"curves:\n  - [[0, 0, 0]]",
		"curves:\n  - [[0, x]]",
	} {
		if _, err := LoadSet(strings.NewReader(in)); err == nil {
			t.Errorf("LoadSet(%q) succeeded", in)
		}
	}
}

func TestSaveLoadSet(t *testing.T) {
	s := testSet()
	s.SetMode(Cardinal)

	var buf bytes.Buffer
	if err := SaveSet(&buf, s); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadSet(&buf)
	if err != nil {
		t.Fatalf("%v\n%s", err, buf.String())
	}
	if loaded.Mode() != Cardinal || loaded.Len() != s.Len() {
		t.Fatalf("loaded mode %v len %d", loaded.Mode(), loaded.Len())
	}
	a, b := s.Quantize(16), loaded.Quantize(16)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("quantized tables differ at %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestSetJSON(t *testing.T) {
	data, err := json.Marshal(testSet())
	if err != nil {
		t.Fatal(err)
	}
	want := `{"mode":"smoothstep","curves":[[[0,0],[1,1]],[[0,1],[0.5,-1],[1,2]],[[0.25,3]]]}`
	if string(data) != want {
		t.Errorf("json = %s", data)
	}

	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 3 {
		t.Errorf("decoded len %d", s.Len())
	}

	// JSON goes through the YAML loader too
	fromYAML, err := LoadSet(bytes.NewReader(data))
	if err != nil || fromYAML.Len() != 3 {
		t.Errorf("LoadSet(json) = %v, %v", fromYAML, err)
	}
}

func gltfDocument(interpolation string, times []float32, values []float32, vecType string) string {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, times)
	binary.Write(&buf, binary.LittleEndian, values)

	width := map[string]int{"SCALAR": 1, "VEC2": 2, "VEC3": 3}[vecType]
	count := len(values) / width
	return fmt.Sprintf(`{
	"asset": {"version": "2.0"},
	"buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}],
	"bufferViews": [
		{"buffer": 0, "byteOffset": 0, "byteLength": %d},
		{"buffer": 0, "byteOffset": %d, "byteLength": %d}
	],
	"accessors": [
		{"bufferView": 0, "componentType": 5126, "count": %d, "type": "SCALAR"},
		{"bufferView": 1, "componentType": 5126, "count": %d, "type": "%s"}
	],
	"animations": [{"channels": [], "samplers": [{"input": 0, "output": 1, "interpolation": "%s"}]}]
}`,
		buf.Len(), base64.StdEncoding.EncodeToString(buf.Bytes()),
		len(times)*4, len(times)*4, len(values)*4,
		len(times), count, vecType, interpolation)
}

func TestLoadGLTF(t *testing.T) {
	doc := gltfDocument("STEP", []float32{0, 1}, []float32{0, 1, 2, 3}, "VEC2")
	s, err := LoadGLTF(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 || s.Mode() != Step {
		t.Fatalf("len %d mode %v", s.Len(), s.Mode())
	}
	x, _ := s.Get(0)
	y, _ := s.Get(1)
	if x.Get(1) != (Key{1, 2}) || y.Get(0) != (Key{0, 1}) {
		t.Errorf("x %v y %v", x.Keys(), y.Keys())
	}
}

func TestLoadGLTFCubicSpline(t *testing.T) {
	// in-tangent, value, out-tangent per key
	doc := gltfDocument("CUBICSPLINE", []float32{0, 2}, []float32{9, 4, 9, 9, 8, 9}, "SCALAR")
	s, err := LoadGLTF(strings.NewReader(doc), 0)
	if err != nil {
		t.Fatal(err)
	}
	c, _ := s.Get(0)
	if s.Mode() != Spline || c.Len() != 2 || c.Get(0).Value != 4 || c.Get(1).Value != 8 {
		t.Errorf("mode %v keys %v", s.Mode(), c.Keys())
	}
	if v := c.Value(2); math.Abs(float64(v-8)) > 1e-6 {
		t.Errorf("Value(2) = %v", v)
	}

	if _, err := LoadGLTF(strings.NewReader(doc), 1); err == nil {
		t.Errorf("missing animation accepted")
	}
}

func TestSaveLoadMixedModes(t *testing.T) {
	s := testSet()
	s.SetMode(Linear)
	c, _ := s.Get(1)
	c.SetMode(Step)

	var buf bytes.Buffer
	if err := SaveSet(&buf, s); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadSet(&buf)
	if err != nil {
		t.Fatalf("%v\n%s", err, buf.String())
	}
	for i := 0; i < s.Len(); i++ {
		a, _ := s.Get(i)
		b, _ := loaded.Get(i)
		if a.Mode() != b.Mode() {
			t.Errorf("curve %d mode %v, saved %v", i, b.Mode(), a.Mode())
		}
	}
	if loaded.Mode() != Linear {
		t.Errorf("set mode %v", loaded.Mode())
	}

	if _, err := LoadSet(strings.NewReader("mode: linear\nmodes: [step]\ncurves: [[], []]\n")); err == nil {
		t.Errorf("modes/curves count mismatch accepted")
	}
}
