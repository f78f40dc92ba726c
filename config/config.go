package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/enginekit/color"
	"github.com/mogaika/enginekit/vr"
)

type Config struct {
	Server ServerConfig `yaml:"server" toml:"server"`
	VR     VRConfig     `yaml:"vr" toml:"vr"`
	Curves CurvesConfig `yaml:"curves" toml:"curves"`
	Render RenderConfig `yaml:"render" toml:"render"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr" toml:"addr"`
	WebPath string `yaml:"web_path" toml:"web_path"`
}

type VRConfig struct {
	EnumerateTimeout Duration `yaml:"enumerate_timeout" toml:"enumerate_timeout"`
	// frames per second of the Poll loop
	PollRate int `yaml:"poll_rate" toml:"poll_rate"`
	// use the in-memory platform instead of the browser bridge
	Simulate          bool     `yaml:"simulate" toml:"simulate"`
	SimulatedDisplays []string `yaml:"simulated_displays" toml:"simulated_displays"`
}

type CurvesConfig struct {
	Precision int `yaml:"precision" toml:"precision"`
	// quantized tables are clamped when both limits are set
	ClampMin *float32 `yaml:"clamp_min,omitempty" toml:"clamp_min,omitempty"`
	ClampMax *float32 `yaml:"clamp_max,omitempty" toml:"clamp_max,omitempty"`
}

func (c *CurvesConfig) Clamped() bool {
	return c.ClampMin != nil && c.ClampMax != nil
}

type RenderConfig struct {
	ClearColor color.Color `yaml:"clear_color" toml:"clear_color"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8000",
			WebPath: "web",
		},
		VR: VRConfig{
			EnumerateTimeout: Duration{vr.DefaultEnumerateTimeout},
			PollRate:         60,
		},
		Curves: CurvesConfig{
			Precision: 64,
		},
		Render: RenderConfig{
			ClearColor: color.Black(),
		},
	}
}

// Load reads the file at path. The format follows the extension, .toml files
// are toml and everything else is yaml. An empty or missing path gives the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrapf(err, "Failed to open config")
	}
	defer f.Close()

	format := "yaml"
	if strings.ToLower(filepath.Ext(path)) == ".toml" {
		format = "toml"
	}
	cfg, err := LoadFromReader(f, format)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load %q", path)
	}
	return cfg, nil
}

// LoadFromReader decodes a "yaml" or "toml" document over the defaults.
func LoadFromReader(r io.Reader, format string) (*Config, error) {
	cfg := Default()
	switch format {
	case "yaml":
		if err := yaml.NewDecoder(r).Decode(cfg); err != nil && err != io.EOF {
			return nil, errors.Wrapf(err, "Failed to decode yaml")
		}
	case "toml":
		if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
			return nil, errors.Wrapf(err, "Failed to decode toml")
		}
	default:
		return nil, errors.Errorf("Unknown config format %q", format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.VR.PollRate <= 0 {
		return errors.Errorf("vr.poll_rate must be positive, got %d", c.VR.PollRate)
	}
	if c.Curves.Precision < 2 {
		return errors.Errorf("curves.precision must be at least 2, got %d", c.Curves.Precision)
	}
	if c.Curves.Clamped() && *c.Curves.ClampMin > *c.Curves.ClampMax {
		return errors.Errorf("curves.clamp_min %v is above clamp_max %v", *c.Curves.ClampMin, *c.Curves.ClampMax)
	}
	return nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Second / time.Duration(c.VR.PollRate)
}

// Duration reads "10s" style strings from both formats.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "Invalid duration %q", s)
	}
	if parsed < 0 {
		return errors.Errorf("Negative duration %q", s)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
