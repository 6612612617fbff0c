package scenario

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// Preset parses a built-in scenario by name (e.g. "cdip", "sample").
func Preset(name string) (*Scenario, error) {
	data, err := presetFS.ReadFile(path.Join("presets", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q; valid: %v", name, PresetNames())
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("preset %q: %w", name, err)
	}
	return sc, nil
}

// PresetNames lists the built-in scenarios in sorted order.
func PresetNames() []string {
	entries, err := presetFS.ReadDir("presets")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}
