package config

import (
	"fmt"
	"slices"
)

// Flags holds command-line values. The *Set fields record whether the user
// passed the flag explicitly.
type Flags struct {
	Theme         string
	Format        string
	YAMLEngine    string
	Lenient       bool
	MaxLineLength int
	Jobs          int

	LenientSet bool
}

// Resolved is the final configuration after applying all priority rules.
type Resolved struct {
	Theme         string
	Format        string // "" means pick by TTY
	YAMLEngine    string
	Lenient       bool
	MaxLineLength int
	Jobs          int

	// Resolution metadata, for --debug.
	ThemeSource  string // "cli", "env", "file", "default"
	FormatSource string
	ConfigPath   string
}

var (
	validThemes  = []string{"default", "orca", "mono"}
	validFormats = []string{"", "terminal", "llm", "json"}
	validEngines = []string{"yaml.v3", "yaml", "goccy", "go-yaml"}
)

// Resolve merges flags, environment and file config. getenv is usually
// os.Getenv; tests pass a map lookup.
func Resolve(flags Flags, file *FileConfig, getenv func(string) string) (*Resolved, error) {
	if file == nil {
		file = &FileConfig{}
	}
	r := &Resolved{ConfigPath: file.path}

	r.Theme, r.ThemeSource = pick(flags.Theme, getenv("TAPFO_THEME"), file.Theme, DefaultTheme)
	if getenv("NO_COLOR") != "" && r.ThemeSource != "cli" {
		r.Theme, r.ThemeSource = "mono", "env"
	}
	r.Format, r.FormatSource = pick(flags.Format, getenv("TAPFO_FORMAT"), file.Format, "")
	r.YAMLEngine, _ = pick(flags.YAMLEngine, getenv("TAPFO_YAML_ENGINE"), file.YAMLEngine, DefaultYAMLEngine)

	switch {
	case flags.LenientSet:
		r.Lenient = flags.Lenient
	case file.LenientHeader != nil:
		r.Lenient = *file.LenientHeader
	}

	r.MaxLineLength = firstPositive(flags.MaxLineLength, file.MaxLineLength, DefaultMaxLineLength)
	r.Jobs = firstPositive(flags.Jobs, file.Jobs, DefaultJobs)

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return r, nil
}

// pick returns the first non-empty value and the name of its source.
func pick(cli, env, file, def string) (string, string) {
	switch {
	case cli != "":
		return cli, "cli"
	case env != "":
		return env, "env"
	case file != "":
		return file, "file"
	default:
		return def, "default"
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func (r *Resolved) validate() error {
	if !slices.Contains(validThemes, r.Theme) {
		return fmt.Errorf("invalid theme %q (from %s; must be one of %v)", r.Theme, r.ThemeSource, validThemes)
	}
	if !slices.Contains(validFormats, r.Format) {
		return fmt.Errorf("invalid format %q (from %s; must be terminal, llm or json)", r.Format, r.FormatSource)
	}
	if !slices.Contains(validEngines, r.YAMLEngine) {
		return fmt.Errorf("invalid yaml_engine %q (must be yaml.v3 or goccy)", r.YAMLEngine)
	}
	return nil
}
