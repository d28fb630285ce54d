package engine

import (
	"strings"

	"github.com/forgelab/kforge/internal/kconfig"
)

// This file models the runtime behavior of the emitted payloads in
// pure Go. The shell text in payload.go and these functions implement
// identical semantics: tests drive the model, and the Validation phase
// derives its expectations from the same Spec/ModuleSet literals.

// ApplyPayload returns the config file content after one checkpoint's
// payload executes, excluding the re-normalization step (that one
// belongs to the external tool and is not modeled).
func ApplyPayload(content string, cp Checkpoint, spec *kconfig.Spec, mods *kconfig.ModuleSet) string {
	out := applyFamilies(content, spec)
	if cp.LockModules && mods != nil && mods.Filter {
		out = applyModuleLock(out, mods)
	}
	return out
}

// applyFamilies purges every family member and pin key in both the
// value form and the disabled-comment form, then appends the spec's
// canonical lines at end of file.
func applyFamilies(content string, spec *kconfig.Spec) string {
	purge := make(map[string]bool)
	for _, f := range kconfig.Families() {
		for _, m := range f.Members {
			purge[m] = true
		}
	}
	for _, p := range spec.Pins {
		purge[p.Key] = true
	}

	var kept []string
	for _, line := range kconfig.SplitLines(content) {
		if key, ok := purgeTarget(line); ok && purge[key] {
			continue
		}
		kept = append(kept, line)
	}
	kept = append(kept, spec.AllLines()...)
	return kconfig.JoinLines(kept)
}

// purgeTarget extracts the key the purge patterns test a line against:
// `KEY=…` anchored at column zero, or the exact `# KEY is not set`
// comment.
func purgeTarget(line string) (string, bool) {
	if strings.HasPrefix(line, "# ") && strings.HasSuffix(line, notSetTail) {
		key := strings.TrimSuffix(strings.TrimPrefix(line, "# "), notSetTail)
		if key != "" && !strings.ContainsAny(key, " \t") {
			return key, true
		}
		return "", false
	}
	if eq := strings.IndexByte(line, '='); eq > 0 {
		return line[:eq], true
	}
	return "", false
}

const notSetTail = " is not set"

// applyModuleLock models the hard-lock awk pass: non-member KEY=m
// lines are deleted, KEY=y lines pass through untouched, and frozen
// members present in neither form are appended as KEY=m. The result is
// a fixed point: applying it again changes nothing.
func applyModuleLock(content string, mods *kconfig.ModuleSet) string {
	want := make(map[string]bool)
	for _, k := range mods.Keys() {
		want[k] = true
	}
	seen := make(map[string]bool)

	var kept []string
	for _, line := range kconfig.SplitLines(content) {
		if key, ok := modeLineKey(line, "=m"); ok {
			if !want[key] {
				continue
			}
			seen[key] = true
			kept = append(kept, line)
			continue
		}
		if key, ok := modeLineKey(line, "=y"); ok && want[key] {
			seen[key] = true
		}
		kept = append(kept, line)
	}
	for _, k := range mods.Keys() {
		if !seen[k] {
			kept = append(kept, k+"=m")
		}
	}
	return kconfig.JoinLines(kept)
}

// modeLineKey matches the lock pattern /^[^#=]+=<mode>$/ and returns
// the key.
func modeLineKey(line, suffix string) (string, bool) {
	if !strings.HasSuffix(line, suffix) {
		return "", false
	}
	key := strings.TrimSuffix(line, suffix)
	if key == "" || strings.ContainsAny(key, "#=") {
		return "", false
	}
	return key, true
}
