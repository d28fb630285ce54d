// Package resolve computes the frozen configuration Spec for one build
// by folding the decision layers over the library defaults. Hardware
// facts win over the user override, which wins over the named preset.
//
// Resolution is a pure function: no I/O, no clock, no environment
// reads. A hardware fact that displaces an explicit user override is
// not an error; the displacement is recorded on the Spec as a Conflict
// so the orchestrator can log it.
package resolve

import (
	"strconv"

	"github.com/forgelab/kforge/internal/hardware"
	"github.com/forgelab/kforge/internal/kconfig"
	"github.com/forgelab/kforge/internal/profile"
)

// Pin keys asserted by the resolver.
const (
	KeyNRCPUs   = "CONFIG_NR_CPUS"
	KeyHostname = "CONFIG_DEFAULT_HOSTNAME"
)

// Resolve folds preset, override, and hardware facts into a frozen
// Spec. Any input may be nil; a nil layer simply contributes nothing.
// The returned Spec carries per-decision provenance in Sources and the
// conflict audit trail in Conflicts.
func Resolve(facts *hardware.Facts, override, preset *profile.Document) *kconfig.Spec {
	spec := Defaults()

	// 1. Preset layer: the named profile's selections.
	if preset != nil {
		applyDocument(spec, preset, kconfig.FromPreset)
	}

	// 2. Override layer: the user's workspace file beats the preset.
	if override != nil {
		applyDocument(spec, override, kconfig.FromOverride)
	}

	// 3. Hardware layer: machine facts beat both document layers.
	if facts != nil {
		applyHardware(spec, facts)
	}

	spec.SortPins()
	return spec
}

// applyDocument copies a document's explicit decisions onto the spec.
// Unset fields leave the lower layer's choice in place.
func applyDocument(spec *kconfig.Spec, doc *profile.Document, src kconfig.Source) {
	if doc.Config.LTO != nil {
		spec.LTO = *doc.Config.LTO
		spec.Sources[string(kconfig.FamilyLTO)] = src
	}
	if doc.Config.Preempt != nil {
		spec.Preempt = *doc.Config.Preempt
		spec.Sources[string(kconfig.FamilyPreempt)] = src
	}
	if doc.Config.TickHz != nil {
		spec.Tick = *doc.Config.TickHz
		spec.Sources[string(kconfig.FamilyTick)] = src
	}
	if doc.Config.NRCPUs != nil {
		setPin(spec, KeyNRCPUs, kconfig.Lit(strconv.Itoa(*doc.Config.NRCPUs)), src)
	}
	if doc.Config.Hostname != nil {
		setPin(spec, KeyHostname, kconfig.Lit(strconv.Quote(*doc.Config.Hostname)), src)
	}
}

// applyHardware imposes machine facts over the document layers. A fact
// that silences an explicit user override is recorded as a Conflict; a
// fact that merely displaces a preset or default is ordinary precedence
// and leaves no audit entry.
func applyHardware(spec *kconfig.Spec, facts *hardware.Facts) {
	// A machine without a working clang toolchain cannot honor any LTO
	// selection, so the family is forced to none.
	if !facts.HasClangLTO && spec.LTO != kconfig.LTONone {
		requested := spec.LTO.String()
		fromOverride := spec.Sources[string(kconfig.FamilyLTO)] == kconfig.FromOverride
		spec.LTO = kconfig.LTONone
		spec.Sources[string(kconfig.FamilyLTO)] = kconfig.FromHardware
		if fromOverride {
			spec.Conflicts = append(spec.Conflicts, kconfig.Conflict{
				Subject:   string(kconfig.FamilyLTO),
				Reason:    kconfig.OverriddenByHardware,
				Requested: requested,
				Applied:   kconfig.LTONone.String(),
			})
		}
	}

	// The detected CPU count pins CONFIG_NR_CPUS. Zero means detection
	// failed, in which case any document-layer pin stands.
	if facts.CPUCount > 0 {
		applied := strconv.Itoa(facts.CPUCount)
		if prev, ok := spec.PinByKey(KeyNRCPUs); ok &&
			spec.Sources[KeyNRCPUs] == kconfig.FromOverride &&
			prev.Value.Literal != applied {
			spec.Conflicts = append(spec.Conflicts, kconfig.Conflict{
				Subject:   KeyNRCPUs,
				Reason:    kconfig.OverriddenByHardware,
				Requested: prev.Value.Literal,
				Applied:   applied,
			})
		}
		setPin(spec, KeyNRCPUs, kconfig.Lit(applied), kconfig.FromHardware)
	}
}

// setPin asserts a pin, replacing any pin the same key already holds.
func setPin(spec *kconfig.Spec, key string, v kconfig.Value, src kconfig.Source) {
	spec.Sources[key] = src
	for i := range spec.Pins {
		if spec.Pins[i].Key == key {
			spec.Pins[i].Value = v
			spec.Pins[i].Source = src
			return
		}
	}
	spec.Pins = append(spec.Pins, kconfig.Pin{Key: key, Value: v, Source: src})
}
