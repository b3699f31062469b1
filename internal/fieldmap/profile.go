package fieldmap

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// profileFile is the on-disk shape of a mapping override profile.
type profileFile struct {
	Fields map[string]Rule `yaml:"fields"`
}

// LoadProfile reads a YAML mapping profile and merges it over the built-in
// dictionary. Entries in the profile replace same-named defaults; defaults
// absent from the profile are kept.
func LoadProfile(r io.Reader) (Dictionary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read mapping profile: %w", err)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse mapping profile: %w", err)
	}

	dict := Default()
	for name, rule := range pf.Fields {
		dict[name] = rule
	}

	if err := dict.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mapping profile: %w", err)
	}
	return dict, nil
}

// LoadProfileFile loads a mapping profile from a file path. An empty path
// returns the built-in dictionary.
func LoadProfileFile(path string) (Dictionary, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping profile: %w", err)
	}
	defer f.Close()
	return LoadProfile(f)
}
