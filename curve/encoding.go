package curve

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Keys are encoded as [time, value] pairs, sets as
//
//	mode: smoothstep
//	tension: 0.5
//	curves:
//	  - [[0, 0], [1, 1]]
//	  - [[0, 1], [0.5, 0], [1, 1]]
//
// A modes list with one entry per curve is written when the curves do not
// all use the mode of the set.

type setDoc struct {
	Mode    Mode    `yaml:"mode" json:"mode"`
	Modes   []Mode  `yaml:"modes,omitempty" json:"modes,omitempty"`
	Tension float32 `yaml:"tension,omitempty" json:"tension,omitempty"`
	Curves  [][]Key `yaml:"curves" json:"curves"`
}

func floatNode(v float32) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.FormatFloat(float64(v), 'g', -1, 32)}
}

func (k Key) MarshalYAML() (interface{}, error) {
	return &yaml.Node{
		Kind:    yaml.SequenceNode,
		Style:   yaml.FlowStyle,
		Content: []*yaml.Node{floatNode(k.Time), floatNode(k.Value)},
	}, nil
}

func (k *Key) UnmarshalYAML(n *yaml.Node) error {
	var pair []float32
	if err := n.Decode(&pair); err != nil {
		return errors.Wrapf(err, "Failed to decode key at line %d", n.Line)
	}
	return k.fromPair(pair)
}

func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float32{k.Time, k.Value})
}

func (k *Key) UnmarshalJSON(data []byte) error {
	var pair []float32
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrapf(err, "Failed to decode key")
	}
	return k.fromPair(pair)
}

func (k *Key) fromPair(pair []float32) error {
	if len(pair) != 2 {
		return errors.Errorf("Key must be a [time, value] pair, got %d elements", len(pair))
	}
	k.Time, k.Value = pair[0], pair[1]
	return nil
}

func (s *Set) doc() *setDoc {
	d := &setDoc{Mode: s.mode, Curves: make([][]Key, len(s.curves))}
	mixed := false
	for i, c := range s.curves {
		d.Curves[i] = c.Keys()
		if c.tension != DefaultTension {
			d.Tension = c.tension
		}
		if c.mode != s.mode {
			mixed = true
		}
	}
	if mixed {
		d.Modes = make([]Mode, len(s.curves))
		for i, c := range s.curves {
			d.Modes[i] = c.mode
		}
	}
	return d
}

func (d *setDoc) check() error {
	if len(d.Modes) != 0 && len(d.Modes) != len(d.Curves) {
		return errors.Errorf("Got %d modes for %d curves", len(d.Modes), len(d.Curves))
	}
	return nil
}

func (s *Set) fromDoc(d *setDoc) {
	*s = *FromKeyframeLists(d.Curves...)
	s.SetMode(d.Mode)
	for i, m := range d.Modes {
		s.curves[i].mode = m
	}
	if d.Tension != 0 {
		for _, c := range s.curves {
			c.tension = d.Tension
		}
	}
}

func (s *Set) MarshalYAML() (interface{}, error) {
	return s.doc(), nil
}

func (s *Set) UnmarshalYAML(n *yaml.Node) error {
	d := setDoc{Mode: SmoothStep}
	if err := n.Decode(&d); err != nil {
		return err
	}
	if err := d.check(); err != nil {
		return err
	}
	s.fromDoc(&d)
	return nil
}

func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.doc())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	d := setDoc{Mode: SmoothStep}
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	if err := d.check(); err != nil {
		return err
	}
	s.fromDoc(&d)
	return nil
}

// LoadSet decodes a set from YAML. JSON documents are accepted as well.
func LoadSet(r io.Reader) (*Set, error) {
	s := new(Set)
	if err := yaml.NewDecoder(r).Decode(s); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode curve set")
	}
	return s, nil
}

func SaveSet(w io.Writer, s *Set) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return errors.Wrapf(err, "Failed to encode curve set")
	}
	return enc.Close()
}
