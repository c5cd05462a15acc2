// Package config handles configuration loading and merging for tapfo.
//
// # Configuration Precedence
//
// Configuration values are resolved in the following order (highest to lowest priority):
//
//  1. CLI flags (--theme, --format, --yaml-engine, --lenient, --max-line-length, --jobs)
//  2. Environment variables (TAPFO_THEME, TAPFO_FORMAT, TAPFO_YAML_ENGINE, NO_COLOR)
//  3. Project config file (.tapfo.yaml, .tapfo.yml or .tapfo.toml in the
//     working directory or the nearest parent that has one)
//  4. Hardcoded defaults
//
// When a higher-priority source sets a value, it overrides any lower-priority values.
//
// # Key Configuration Options
//
//   - theme: terminal color theme (default, orca, mono)
//   - format: output format (terminal, llm, json); empty picks by TTY
//   - yaml_engine: diagnostic decoder (yaml.v3 or goccy)
//   - lenient_header: accept TAP without a version header
//   - max_line_length: longest accepted input line in bytes
//   - jobs: files parsed concurrently
//
// NO_COLOR, when set to any value, forces the mono theme.
package config
