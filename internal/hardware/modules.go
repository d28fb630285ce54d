package hardware

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadModuleList reads the externally supplied loaded-module facts file:
// newline-delimited module identifiers, first whitespace-separated field
// per line, lsmod header and comments tolerated. A missing file is valid
// and returns (nil, nil), the "no discovery data" sentinel.
func LoadModuleList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open module list: %w", err)
	}
	defer file.Close()

	var modules []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		name := fields[0]
		if name == "Module" {
			// lsmod column header.
			continue
		}
		modules = append(modules, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read module list: %w", err)
	}

	if modules == nil {
		// An existing but empty file is a literal empty list, not the
		// missing-data sentinel.
		modules = []string{}
	}
	return modules, nil
}
