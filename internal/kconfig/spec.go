package kconfig

import (
	"fmt"
	"sort"
	"strings"
)

// Pin is a single-key assertion carried by the Spec outside the family
// tables (a baked-in parameter such as CONFIG_NR_CPUS). Pins are purged
// and re-asserted by every family-enforcing payload.
type Pin struct {
	Key    string
	Value  Value
	Source Source
}

// Spec is the fully resolved, immutable desired configuration for one
// build. It is produced by the resolver during the Configuration phase;
// all later enforcement payloads and verification expectations are
// generated from it. Treat as read-only after resolution.
type Spec struct {
	LTO     LTOMode
	Preempt PreemptMode
	Tick    TickRate

	// Pins holds baked-in single-key parameters, sorted by key.
	Pins []Pin

	// Sources records the provenance of every family decision and pin,
	// keyed by family id or pin key.
	Sources map[string]Source

	// Conflicts is the ordered audit trail of resolution conflicts.
	Conflicts []Conflict
}

// SourceOf returns the recorded provenance for a family id or pin key.
func (s *Spec) SourceOf(subject string) (Source, bool) {
	src, ok := s.Sources[subject]
	return src, ok
}

// PinByKey returns the pin with the given key, if present.
func (s *Spec) PinByKey(key string) (Pin, bool) {
	for _, p := range s.Pins {
		if p.Key == key {
			return p, true
		}
	}
	return Pin{}, false
}

// SortPins orders the pins by key. The resolver calls this once so that
// emitted payload text is deterministic.
func (s *Spec) SortPins() {
	sort.Slice(s.Pins, func(i, j int) bool { return s.Pins[i].Key < s.Pins[j].Key })
}

// AllLines returns every line the spec asserts: each family's canonical
// lines in family table order, then pin lines in key order.
func (s *Spec) AllLines() []string {
	var lines []string
	for _, f := range Families() {
		lines = append(lines, FamilyLines(f.ID, s)...)
	}
	for _, p := range s.Pins {
		lines = append(lines, p.Value.Line(p.Key))
	}
	return lines
}

// Summary renders a one-line description for logs.
func (s *Spec) Summary() string {
	parts := []string{
		"lto=" + s.LTO.String(),
		"preempt=" + s.Preempt.String(),
		fmt.Sprintf("tick=%d", int(s.Tick)),
	}
	for _, p := range s.Pins {
		parts = append(parts, p.Key+"="+strings.TrimPrefix(p.Value.Line(p.Key), p.Key+"="))
	}
	return strings.Join(parts, " ")
}
