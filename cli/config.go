package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/user-none/emopl/adapter"
	"gopkg.in/yaml.v3"
)

// Config holds renderer settings. It can be loaded from a YAML file; flags
// given on the command line take precedence.
type Config struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	// TickRate overrides the song's tick rate in Hz when non-zero
	TickRate uint32 `yaml:"tick_rate"`
	Progress bool   `yaml:"progress"`
}

// DefaultConfig renders stereo at the OPL's native rate.
func DefaultConfig() Config {
	return Config{
		SampleRate: adapter.DefaultSampleRate,
		Channels:   2,
		Progress:   true,
	}
}

// LoadConfig reads a YAML config from path. Fields missing from the file
// keep their DefaultConfig values.
func LoadConfig(fs afero.Fs, path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if c.SampleRate < 1000 || c.SampleRate > 384000 {
		return fmt.Errorf("invalid sample rate %d (use 1000-384000)", c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("invalid channel count %d (use 1 or 2)", c.Channels)
	}
	return nil
}
