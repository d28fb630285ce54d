package hardware

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/shirou/gopsutil/v4/cpu"
)

// defaultPCIRoot is the sysfs directory scanned for display devices.
const defaultPCIRoot = "/sys/bus/pci/devices"

// RealCollector implements Collector against the live machine.
type RealCollector struct {
	// PCIRoot overrides the sysfs PCI device directory (tests).
	PCIRoot string
	// ModuleListPath names the externally supplied loaded-module facts
	// file. Empty means no module list was provided.
	ModuleListPath string
}

// NewCollector creates a collector reading the live sysfs tree and the
// given module facts file (may be empty).
func NewCollector(moduleListPath string) Collector {
	return &RealCollector{
		PCIRoot:        defaultPCIRoot,
		ModuleListPath: moduleListPath,
	}
}

// Collect gathers hardware facts. Individual lookups degrade to zero
// values on failure so a build never dies on optional detection; a
// cancelled context is the only hard failure.
func (c *RealCollector) Collect(ctx context.Context) (*Facts, error) {
	facts := &Facts{GPU: GPUUnknown}

	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("hardware detection cancelled: %w", ctx.Err())
		}
		// Leave CPUCount at 0; resolution falls back to the next layer.
	} else {
		facts.CPUCount = count
	}

	root := c.PCIRoot
	if root == "" {
		root = defaultPCIRoot
	}
	vendor, err := detectGPU(root)
	if err == nil {
		facts.GPU = vendor
	}

	if c.ModuleListPath != "" {
		modules, err := LoadModuleList(c.ModuleListPath)
		if err == nil {
			facts.Modules = modules
		}
	}

	if _, err := exec.LookPath("clang"); err == nil {
		facts.HasClangLTO = true
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hardware detection cancelled: %w", err)
	}
	return facts, nil
}
