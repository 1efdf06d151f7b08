package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-eqchain/bridge"
	"github.com/cwbudde/algo-eqchain/dsp/eq"
)

// PresetFile is the on-disk layout of a user preset file:
//
//	presets:
//	  - name: Car
//	    gains: [4, 3, 1, 0, 0, 0, 1, 2, 2, 1]
type PresetFile struct {
	Presets []eq.Preset `yaml:"presets"`
}

// ReadPresets decodes a preset file. Unknown keys are rejected.
func ReadPresets(path string) ([]eq.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read presets: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f PresetFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: decode presets %s: %w", path, err)
	}
	for _, p := range f.Presets {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return f.Presets, nil
}

// WritePresets encodes presets to path.
func WritePresets(path string, presets []eq.Preset) error {
	data, err := yaml.Marshal(PresetFile{Presets: presets})
	if err != nil {
		return fmt.Errorf("config: encode presets: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write presets: %w", err)
	}
	return nil
}

// LoadPresets adds the presets of every file to c and returns how many were
// added. Files are read in order, so later files replace earlier user
// presets of the same name.
func LoadPresets(c *bridge.Catalog, paths ...string) (int, error) {
	n := 0
	for _, path := range paths {
		presets, err := ReadPresets(path)
		if err != nil {
			return n, err
		}
		for _, p := range presets {
			if err := c.Add(p); err != nil {
				return n, fmt.Errorf("config: %s: %w", path, err)
			}
			n++
		}
	}
	return n, nil
}
