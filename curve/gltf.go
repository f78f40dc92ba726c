package curve

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

type gltfSampler struct {
	Input         uint32 `json:"input"`
	Output        uint32 `json:"output"`
	Interpolation string `json:"interpolation"`
}

func gltfMode(interpolation string) (Mode, bool) {
	switch interpolation {
	case "", "LINEAR":
		return Linear, false
	case "STEP":
		return Step, false
	case "CUBICSPLINE":
		return Spline, true
	}
	return Linear, false
}

// FromGLTF converts the samplers of an animation into a curve set. Every
// component of a sampler output becomes its own curve, so a VEC3 translation
// sampler produces three curves. Cubic spline samplers keep only the value
// of each in-tangent/value/out-tangent triplet. Every curve keeps the mode of
// its sampler and Mode of the set reports the mode of the first sampler, so
// calling SetMode afterwards makes the interpolation uniform.
func FromGLTF(doc *gltf.Document, animation int) (*Set, error) {
	if animation < 0 || animation >= len(doc.Animations) {
		return nil, errors.Errorf("Animation %d not found, document has %d", animation, len(doc.Animations))
	}

	raw, err := json.Marshal(doc.Animations[animation].Samplers)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read samplers")
	}
	var samplers []gltfSampler
	if err := json.Unmarshal(raw, &samplers); err != nil {
		return nil, errors.Wrapf(err, "Failed to read samplers")
	}

	var lists [][]Key
	var modes []Mode
	for iSampler, sampler := range samplers {
		mode, cubic := gltfMode(sampler.Interpolation)

		times, err := readGLTFFloats(doc, sampler.Input)
		if err != nil {
			return nil, errors.Wrapf(err, "Sampler %d input", iSampler)
		}
		if len(times) == 0 {
			continue
		}
		components, err := readGLTFFloats(doc, sampler.Output)
		if err != nil {
			return nil, errors.Wrapf(err, "Sampler %d output", iSampler)
		}

		stride := 1
		if cubic {
			stride = 3
		}
		width := len(components) / (len(times) * stride)
		if width == 0 || width*len(times)*stride != len(components) {
			return nil, errors.Errorf("Sampler %d has %d output values for %d keys", iSampler, len(components), len(times))
		}

		for comp := 0; comp < width; comp++ {
			keys := make([]Key, len(times))
			for i, t := range times {
				element := i * stride
				if cubic {
					element++
				}
				keys[i] = Key{Time: t, Value: components[element*width+comp]}
			}
			lists = append(lists, keys)
			modes = append(modes, mode)
		}
	}

	if len(lists) == 0 {
		return nil, errors.Errorf("Animation %d has no keyframes", animation)
	}

	s := FromKeyframeLists(lists...)
	s.SetMode(modes[0])
	for i, c := range s.curves {
		c.mode = modes[i]
	}
	return s, nil
}

// LoadGLTF decodes a .gltf document and converts one of its animations.
func LoadGLTF(r io.Reader, animation int) (*Set, error) {
	doc := &gltf.Document{}
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to read gltf")
	}
	return FromGLTF(doc, animation)
}

// readGLTFFloats flattens a float accessor of any vector width.
func readGLTFFloats(doc *gltf.Document, accessor uint32) ([]float32, error) {
	if int(accessor) >= len(doc.Accessors) {
		return nil, errors.Errorf("Accessor %d not found", accessor)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[accessor], nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read accessor %d", accessor)
	}

	switch v := data.(type) {
	case []float32:
		return v, nil
	case [][2]float32:
		out := make([]float32, 0, len(v)*2)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	case [][3]float32:
		out := make([]float32, 0, len(v)*3)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	case [][4]float32:
		out := make([]float32, 0, len(v)*4)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	}
	return nil, errors.Errorf("Accessor %d holds %T, only float accessors are supported", accessor, data)
}
