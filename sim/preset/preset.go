// Package preset loads named parameter presets from YAML or JSON files.
// A preset is the flat key/value map sim.ValidateParameters checks.
package preset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File represents the full presets.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type File struct {
	Version int                       `yaml:"version"`
	Presets map[string]map[string]any `yaml:"presets"`
}

// LoadFile parses a presets file with strict top-level field checking.
// Keys inside a preset are checked later against the parameter schema.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	var pf File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&pf); err != nil {
		return nil, fmt.Errorf("parse presets file %s: %w", path, err)
	}
	if len(pf.Presets) == 0 {
		return nil, fmt.Errorf("presets file %s defines no presets", path)
	}
	return &pf, nil
}

// Names returns the preset names in sorted order.
func (pf *File) Names() []string {
	names := make([]string, 0, len(pf.Presets))
	for name := range pf.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a deep copy of the named preset.
func (pf *File) Lookup(name string) (map[string]any, error) {
	p, ok := pf.Presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q; available: %s", name, strings.Join(pf.Names(), ", "))
	}
	return Clone(p), nil
}

// LoadStandalone reads one flat preset from a YAML or JSON file.
func LoadStandalone(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset file: %w", err)
	}
	p := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &p)
	default:
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("parse preset file %s: %w", path, err)
	}
	return p, nil
}

// Clone copies p, including nested lists such as feed_table.
func Clone(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case []any:
		items := make([]any, len(x))
		for i, item := range x {
			items[i] = cloneValue(item)
		}
		return items
	case map[string]any:
		return Clone(x)
	}
	return v
}
