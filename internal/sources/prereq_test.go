package sources

import (
	"os/exec"
	"reflect"
	"testing"

	"github.com/forgelab/kforge/internal/kconfig"
)

func stubLookPath(t *testing.T, missing ...string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	gone := make(map[string]bool, len(missing))
	for _, tool := range missing {
		gone[tool] = true
	}
	lookPath = func(tool string) (string, error) {
		if gone[tool] {
			return "", exec.ErrNotFound
		}
		return "/usr/bin/" + tool, nil
	}
}

func TestRequiredTools(t *testing.T) {
	base := []string{"awk", "bash", "make", "sed", "tar"}

	if got := RequiredTools(&kconfig.Spec{LTO: kconfig.LTONone}); !reflect.DeepEqual(got, base) {
		t.Errorf("RequiredTools(none) = %v, want %v", got, base)
	}
	if got := RequiredTools(nil); !reflect.DeepEqual(got, base) {
		t.Errorf("RequiredTools(nil) = %v, want %v", got, base)
	}

	withLTO := append(append([]string{}, base...), "clang", "ld.lld", "llvm-ar")
	for _, mode := range []kconfig.LTOMode{kconfig.LTOThin, kconfig.LTOFull} {
		if got := RequiredTools(&kconfig.Spec{LTO: mode}); !reflect.DeepEqual(got, withLTO) {
			t.Errorf("RequiredTools(%v) = %v, want %v", mode, got, withLTO)
		}
	}
}

func TestMissingTools(t *testing.T) {
	t.Run("all present", func(t *testing.T) {
		stubLookPath(t)
		if got := MissingTools(&kconfig.Spec{LTO: kconfig.LTOFull}); len(got) != 0 {
			t.Errorf("MissingTools() = %v, want none", got)
		}
	})

	t.Run("clang toolchain absent", func(t *testing.T) {
		stubLookPath(t, "clang", "ld.lld")

		if got := MissingTools(&kconfig.Spec{LTO: kconfig.LTONone}); len(got) != 0 {
			t.Errorf("MissingTools(none) = %v, clang is not required without LTO", got)
		}
		want := []string{"clang", "ld.lld"}
		if got := MissingTools(&kconfig.Spec{LTO: kconfig.LTOFull}); !reflect.DeepEqual(got, want) {
			t.Errorf("MissingTools(full) = %v, want %v", got, want)
		}
	})
}
