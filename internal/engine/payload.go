package engine

import (
	"fmt"
	"strings"

	"github.com/forgelab/kforge/internal/kconfig"
)

const (
	sentinelOpenMark  = "# >>> kforge enforce: "
	sentinelCloseMark = "# <<< kforge enforce: "
	heredocTag        = "KFORGE_EOF"
)

// sentinelOpen returns the line opening a checkpoint's injected block.
func sentinelOpen(id string) string { return sentinelOpenMark + id + " >>>" }

// sentinelClose returns the line closing a checkpoint's injected block.
func sentinelClose(id string) string { return sentinelCloseMark + id + " <<<" }

// hasSentinel reports whether any line already carries the
// checkpoint's open marker.
func hasSentinel(lines []string, id string) bool {
	marker := sentinelOpen(id)
	for _, line := range lines {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// payloadBlock renders the complete insertion for one checkpoint,
// sentinels included. Statement lines are indented to match the anchor
// line; heredoc body lines and the terminator stay in column zero
// because the guarded file's format requires appended lines to start
// there.
//
// The payload is self-contained shell text generated from the frozen
// Spec and ModuleSet literals. It references no state of this process:
// it executes later, inside the external script, at the script's own
// pace.
func (e *Engine) payloadBlock(cp Checkpoint, spec *kconfig.Spec, mods *kconfig.ModuleSet, indent string) []string {
	var out []string
	add := func(s string) { out = append(out, indent+s) }
	raw := func(s string) { out = append(out, s) }

	add(sentinelOpen(cp.ID))

	// Family purge: every member key in both its value form and its
	// disabled-comment form, so a previously-commented key cannot
	// re-enable itself when the external tool flips comment state.
	for _, f := range kconfig.Families() {
		add(purgeStatement(f.Members, e.configName))
	}
	if len(spec.Pins) > 0 {
		keys := make([]string, 0, len(spec.Pins))
		for _, p := range spec.Pins {
			keys = append(keys, p.Key)
		}
		add(purgeStatement(keys, e.configName))
	}

	// Family append: trailing newline first, then exactly the canonical
	// selected lines in family table order, then the pins.
	add(fmt.Sprintf(`if [ -n "$(tail -c1 %s)" ]; then echo >> %s; fi`, e.configName, e.configName))
	add(fmt.Sprintf("cat >> %s <<'%s'", e.configName, heredocTag))
	for _, line := range spec.AllLines() {
		raw(line)
	}
	raw(heredocTag)

	if cp.LockModules && mods != nil && mods.Filter {
		add(lockStatement(mods, e.configName))
	}
	if cp.Renormalize {
		add("make olddefconfig < /dev/null")
	}

	add(sentinelClose(cp.ID))
	return out
}

// purgeStatement renders one sed invocation deleting every key's value
// line and disabled-comment line.
func purgeStatement(keys []string, config string) string {
	var b strings.Builder
	b.WriteString("sed -i")
	for _, k := range keys {
		fmt.Fprintf(&b, " -e '/^%s=/d' -e '/^# %s is not set$/d'", k, k)
	}
	b.WriteString(" ")
	b.WriteString(config)
	return b.String()
}

// lockStatement renders the module hard-lock as a single awk pass over
// the config file: a KEY=m line survives only if its key is in the
// frozen set, KEY=y lines are never touched (builtin is a strictly
// stronger guarantee than module and must never be demoted), and
// frozen members present in neither form are re-appended as KEY=m.
// Applying the statement twice leaves the file unchanged after the
// first application.
func lockStatement(mods *kconfig.ModuleSet, config string) string {
	keys := strings.Join(mods.Keys(), " ")
	prog := fmt.Sprintf(`BEGIN { n = split(%q, mods, " "); for (i = 1; i <= n; i++) want[mods[i]] = 1 } `+
		`/^[^#=]+=m$/ { key = substr($0, 1, length($0) - 2); if (!(key in want)) next; seen[key] = 1; print; next } `+
		`/^[^#=]+=y$/ { key = substr($0, 1, length($0) - 2); if (key in want) seen[key] = 1; print; next } `+
		`{ print } `+
		`END { for (i = 1; i <= n; i++) if (!(mods[i] in seen)) print mods[i] "=m" }`, keys)
	tmp := config + ".kforge-lock"
	return fmt.Sprintf("awk '%s' %s > %s && mv %s %s", prog, config, tmp, tmp, config)
}
