package kconfig

import "sort"

// ModuleMode is the inclusion mode of a driver module.
type ModuleMode int

const (
	// ModeModule keeps the driver as a loadable module (KEY=m).
	ModeModule ModuleMode = iota
	// ModeBuiltin keeps the driver compiled in (KEY=y). Builtin is a
	// strictly stronger guarantee than module and is never demoted by
	// enforcement.
	ModeBuiltin
	// ModeExcluded marks a driver removed by vendor exclusion.
	ModeExcluded
)

// String returns a human-readable mode name.
func (m ModuleMode) String() string {
	switch m {
	case ModeModule:
		return "module"
	case ModeBuiltin:
		return "builtin"
	case ModeExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

// ModuleEntry is one driver in the frozen set. Name is the literal line
// key as it appears in the guarded configuration file.
type ModuleEntry struct {
	Name string
	Mode ModuleMode
}

// ModuleSet is the frozen, literal list of drivers that must remain at
// module or builtin mode after all external reconfiguration. It is
// computed once during the Configuration phase and never recomputed;
// every later enforcement step references the same literal text.
//
// Filter=false is a sentinel meaning "apply no filtering at all" and is
// distinct from a literal empty set: reconciliation degrades to it when
// auto-discovery is disabled or discovery data is unavailable.
type ModuleSet struct {
	Filter  bool
	Entries []ModuleEntry
}

// NewModuleSet builds a filtering set from survivor names, deduplicated
// and sorted so that frozen payload text is deterministic.
func NewModuleSet(names []string) *ModuleSet {
	seen := make(map[string]bool, len(names))
	entries := make([]ModuleEntry, 0, len(names))
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		entries = append(entries, ModuleEntry{Name: n, Mode: ModeModule})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &ModuleSet{Filter: true, Entries: entries}
}

// Unfiltered returns the no-filtering sentinel set.
func Unfiltered() *ModuleSet {
	return &ModuleSet{Filter: false}
}

// Keys returns the sorted member names (the literal line keys).
func (m *ModuleSet) Keys() []string {
	keys := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		if e.Mode == ModeExcluded {
			continue
		}
		keys = append(keys, e.Name)
	}
	return keys
}

// Contains reports membership by literal key.
func (m *ModuleSet) Contains(name string) bool {
	for _, e := range m.Entries {
		if e.Name == name && e.Mode != ModeExcluded {
			return true
		}
	}
	return false
}

// Lines renders the frozen literal text: one KEY=m line per member in
// set order (builtin entries render KEY=y).
func (m *ModuleSet) Lines() []string {
	lines := make([]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		switch e.Mode {
		case ModeBuiltin:
			lines = append(lines, e.Name+"=y")
		case ModeModule:
			lines = append(lines, e.Name+"=m")
		}
	}
	return lines
}

// Len returns the number of non-excluded members.
func (m *ModuleSet) Len() int {
	return len(m.Keys())
}
