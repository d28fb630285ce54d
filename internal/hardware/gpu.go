package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PCI vendor ids as rendered by sysfs vendor files.
const (
	pciVendorAMD    = "0x1002"
	pciVendorIntel  = "0x8086"
	pciVendorNVIDIA = "0x10de"
)

// displayClassPrefix matches both VGA (0x0300xx) and 3D (0x0302xx)
// controller class codes.
const displayClassPrefix = "0x03"

// detectGPU scans the PCI device tree for display controllers and maps
// the first recognized vendor. Discrete vendors win over Intel so that
// hybrid laptops report the GPU whose driver family matters for module
// exclusion.
func detectGPU(root string) (GPUVendor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return GPUUnknown, fmt.Errorf("read pci devices: %w", err)
	}

	found := GPUUnknown
	for _, entry := range entries {
		dev := filepath.Join(root, entry.Name())

		class, err := readSysFile(filepath.Join(dev, "class"))
		if err != nil || !strings.HasPrefix(class, displayClassPrefix) {
			continue
		}

		vendor, err := readSysFile(filepath.Join(dev, "vendor"))
		if err != nil {
			continue
		}

		switch vendor {
		case pciVendorNVIDIA:
			return GPUNVIDIA, nil
		case pciVendorAMD:
			return GPUAMD, nil
		case pciVendorIntel:
			if found == GPUUnknown {
				found = GPUIntel
			}
		}
	}

	return found, nil
}

// readSysFile reads a single-value sysfs attribute.
func readSysFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
