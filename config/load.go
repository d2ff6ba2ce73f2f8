package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/dotnet-host/errors"
)

// Format is a configuration file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	}
	return "", false
}

// Parse decodes data into a RawConfig without validating it.
func Parse(data []byte, format Format) (*RawConfig, error) {
	var raw RawConfig
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "unmarshal JSON")
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "unmarshal YAML")
		}
	default:
		return nil, errors.Unsupported(errors.PhaseConfig, fmt.Sprintf("config format %q", format))
	}
	return &raw, nil
}

// LoadRaw reads a JSON or YAML configuration file.
func LoadRaw(path string) (*RawConfig, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseConfig, fmt.Sprintf("config file extension of %s", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, fmt.Sprintf("read config file %s", path))
	}
	return Parse(data, format)
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	return Validate(raw)
}
