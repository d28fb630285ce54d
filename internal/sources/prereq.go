package sources

import (
	"os/exec"

	"github.com/forgelab/kforge/internal/kconfig"
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// RequiredTools returns the executables the build script will invoke
// for the given resolved configuration. A clang toolchain is required
// only when link-time optimization is selected.
func RequiredTools(spec *kconfig.Spec) []string {
	tools := []string{"awk", "bash", "make", "sed", "tar"}
	if spec != nil && spec.LTO != kconfig.LTONone {
		tools = append(tools, "clang", "ld.lld", "llvm-ar")
	}
	return tools
}

// MissingTools returns the subset of RequiredTools not found on PATH,
// in the required order. An empty result means the build may proceed.
func MissingTools(spec *kconfig.Spec) []string {
	var missing []string
	for _, tool := range RequiredTools(spec) {
		if _, err := lookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	return missing
}
