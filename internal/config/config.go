package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileNames are the project config files looked for in each directory,
// in order of preference.
var FileNames = []string{".tapfo.yaml", ".tapfo.yml", ".tapfo.toml"}

// Defaults.
const (
	DefaultTheme         = "default"
	DefaultYAMLEngine    = "yaml.v3"
	DefaultMaxLineLength = 1024 * 1024 // 1MB
	DefaultJobs          = 4
)

// FileConfig is the project configuration file. LenientHeader is a pointer
// so that an explicit false still overrides the default.
type FileConfig struct {
	Theme         string `yaml:"theme" toml:"theme"`
	Format        string `yaml:"format" toml:"format"`
	YAMLEngine    string `yaml:"yaml_engine" toml:"yaml_engine"`
	LenientHeader *bool  `yaml:"lenient_header" toml:"lenient_header"`
	MaxLineLength int    `yaml:"max_line_length" toml:"max_line_length"`
	Jobs          int    `yaml:"jobs" toml:"jobs"`

	path string
}

// Path returns the file the config was read from, or "" for none.
func (c *FileConfig) Path() string { return c.path }

// FindFile walks from dir up to the filesystem root and returns the first
// config file found, or "" if there is none.
func FindFile(dir string) string {
	for {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load finds and reads the project config starting at dir. A missing file
// is not an error and yields an empty config.
func Load(dir string) (*FileConfig, error) {
	path := FindFile(dir)
	if path == "" {
		return &FileConfig{}, nil
	}
	return LoadFile(path)
}

// LoadFile reads one config file, choosing the decoder by extension.
func LoadFile(path string) (*FileConfig, error) {
	cfg := &FileConfig{path: path}
	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *FileConfig) validate() error {
	var errs []error
	if c.MaxLineLength < 0 {
		errs = append(errs, fmt.Errorf("max_line_length must not be negative, got %d", c.MaxLineLength))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must not be negative, got %d", c.Jobs))
	}
	return errors.Join(errs...)
}
