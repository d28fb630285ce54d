package profile

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/forgelab/kforge/internal/hardware"
)

//go:embed presets/*.lua
var presetFS embed.FS

const presetDir = "presets"

// DefaultPreset is the preset used when the caller selects none.
const DefaultPreset = "stock"

// PresetNames returns the embedded preset names, sorted.
func PresetNames() []string {
	entries, err := presetFS.ReadDir(presetDir)
	if err != nil {
		// The embed is compiled in; a read failure is a packaging bug.
		panic(fmt.Sprintf("read embedded presets: %v", err))
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".lua")
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadPreset parses the named embedded preset against the given
// hardware facts.
func LoadPreset(ctx context.Context, name string, facts *hardware.Facts) (*Document, error) {
	if name == "" {
		name = DefaultPreset
	}

	src, err := presetFS.ReadFile(presetDir + "/" + name + ".lua")
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q (available: %s)",
			name, strings.Join(PresetNames(), ", "))
	}

	doc, err := NewParser(facts).ParseString(ctx, string(src))
	if err != nil {
		return nil, fmt.Errorf("parse preset %q: %w", name, err)
	}
	if doc.Meta.Name == "" {
		doc.Meta.Name = name
	}
	return doc, nil
}
