// Package modset computes the frozen set of kernel modules that must
// survive the external script's filtering and regeneration steps.
//
// Reconciliation is pure. The result is either a filtering ModuleSet
// (the survivors, frozen as literal text) or the unfiltered sentinel
// with a SkipReason the caller is expected to log: filtering is never
// worth failing a build over, so missing discovery data degrades to
// "apply no filtering" rather than erroring.
package modset

import (
	"sort"

	"github.com/forgelab/kforge/internal/hardware"
	"github.com/forgelab/kforge/internal/kconfig"
)

// SkipReason explains why reconciliation produced an unfiltered set.
type SkipReason int

const (
	// SkipNone means filtering applies and the set is frozen.
	SkipNone SkipReason = iota
	// SkipAutoDisabled means auto-discovery is off. The documented
	// no-op: the whitelist has zero effect without discovery.
	SkipAutoDisabled
	// SkipNoData means discovery was requested but the module list was
	// unavailable. Fail open with a warning, never fail the build.
	SkipNoData
)

// String returns the log name for a skip reason.
func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipAutoDisabled:
		return "auto-discovery disabled"
	case SkipNoData:
		return "discovery data unavailable"
	default:
		return "unknown"
	}
}

// ReconcileInput carries the frozen facts and preferences one
// reconciliation consumes.
type ReconcileInput struct {
	// AutoDetect enables module filtering from the discovered list.
	AutoDetect bool

	// Detected is the discovered module list. Nil means the discovery
	// source was unavailable, which is distinct from an empty list.
	Detected []string

	// WhitelistEnabled unions the embedded safety-net catalog into the
	// survivors. It has no effect unless AutoDetect is set.
	WhitelistEnabled bool

	// GPU selects which other vendors' drivers are stripped.
	GPU hardware.GPUVendor

	// Extra lists modules the profile documents explicitly requested.
	Extra []string
}

// Reconcile computes the frozen module set:
//
//	survivors = (detected ∪ whitelist? ∪ extra) \ exclusions(gpu)
//
// with the whitelist active only alongside auto-discovery. When
// filtering does not apply, the unfiltered sentinel is returned along
// with the reason.
func Reconcile(in ReconcileInput) (*kconfig.ModuleSet, SkipReason) {
	// 1. Base: the discovered list, or the no-filtering sentinel.
	if !in.AutoDetect {
		return kconfig.Unfiltered(), SkipAutoDisabled
	}
	if in.Detected == nil {
		return kconfig.Unfiltered(), SkipNoData
	}

	base := make(map[string]bool, len(in.Detected))
	for _, m := range in.Detected {
		base[m] = true
	}

	// 2. Safety-net whitelist and explicit extras join the survivors.
	if in.WhitelistEnabled {
		for _, m := range Whitelist() {
			base[m] = true
		}
	}
	for _, m := range in.Extra {
		base[m] = true
	}

	// 3. Strip the other vendors' GPU drivers.
	for _, m := range ExclusionsFor(in.GPU) {
		delete(base, m)
	}

	names := make([]string, 0, len(base))
	for m := range base {
		names = append(names, m)
	}
	sort.Strings(names)
	return kconfig.NewModuleSet(names), SkipNone
}
