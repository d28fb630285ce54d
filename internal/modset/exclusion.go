package modset

import "github.com/forgelab/kforge/internal/hardware"

// gpuExclusions maps a detected GPU vendor to the driver modules of the
// other vendors. The owner's own drivers are never listed under its
// key. GPUUnknown has no entry: without a confident vendor detection,
// every driver survives.
var gpuExclusions = map[hardware.GPUVendor][]string{
	hardware.GPUAMD: {
		"nouveau",
		"nvidia",
		"nvidia_drm",
		"nvidia_modeset",
		"nvidia_uvm",
		"i915",
		"xe",
	},
	hardware.GPUIntel: {
		"amdgpu",
		"radeon",
		"nouveau",
		"nvidia",
		"nvidia_drm",
		"nvidia_modeset",
		"nvidia_uvm",
	},
	hardware.GPUNVIDIA: {
		"amdgpu",
		"radeon",
		"i915",
		"xe",
	},
}

// ExclusionsFor returns the driver modules stripped from the set when
// the given vendor owns the machine's GPU. The returned slice is a
// copy.
func ExclusionsFor(vendor hardware.GPUVendor) []string {
	members := gpuExclusions[vendor]
	out := make([]string, len(members))
	copy(out, members)
	return out
}
