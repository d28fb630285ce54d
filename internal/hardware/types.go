// Package hardware collects the read-only machine facts that feed
// configuration resolution and module reconciliation: CPU topology via
// gopsutil, GPU vendor via the PCI sysfs tree, the currently loaded
// module list from an externally supplied facts file, and toolchain
// capability probes.
//
// Every lookup is best-effort. Missing data degrades to the zero value
// (count 0, vendor unknown, nil module list) so that callers can log a
// warning and continue; only context cancellation is a hard failure.
package hardware

import "context"

// GPUVendor identifies the detected discrete/primary GPU vendor.
type GPUVendor int

const (
	GPUUnknown GPUVendor = iota
	GPUAMD
	GPUIntel
	GPUNVIDIA
)

// String returns the canonical vendor name.
func (v GPUVendor) String() string {
	switch v {
	case GPUAMD:
		return "amd"
	case GPUIntel:
		return "intel"
	case GPUNVIDIA:
		return "nvidia"
	default:
		return "unknown"
	}
}

// Facts is the read-only snapshot consumed by resolution. Zero values
// mean "not detected": CPUCount 0, GPU GPUUnknown, Modules nil. A nil
// Modules slice is the "discovery data unavailable" sentinel and is
// distinct from an empty list.
type Facts struct {
	CPUCount    int
	GPU         GPUVendor
	Modules     []string
	HasClangLTO bool
}

// HasModuleList reports whether a loaded-module list was available.
func (f *Facts) HasModuleList() bool {
	return f != nil && f.Modules != nil
}

// Collector is the interface for hardware fact collection.
type Collector interface {
	Collect(ctx context.Context) (*Facts, error)
}

// StaticCollector returns fixed facts. Used by tests and by dry-run
// planning when live detection is undesirable.
type StaticCollector struct {
	Facts Facts
}

// Collect returns the fixed facts.
func (s *StaticCollector) Collect(ctx context.Context) (*Facts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := s.Facts
	return &f, nil
}
