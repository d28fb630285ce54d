package engine

import (
	"strings"
	"testing"

	"github.com/forgelab/kforge/internal/kconfig"
)

func TestPurgeStatement(t *testing.T) {
	got := purgeStatement([]string{"CONFIG_A", "CONFIG_B"}, ".config")
	want := `sed -i -e '/^CONFIG_A=/d' -e '/^# CONFIG_A is not set$/d'` +
		` -e '/^CONFIG_B=/d' -e '/^# CONFIG_B is not set$/d' .config`
	if got != want {
		t.Errorf("purgeStatement() =\n%s\nwant\n%s", got, want)
	}
}

func TestLockStatement(t *testing.T) {
	got := lockStatement(testModules(), ".config")

	if !strings.HasPrefix(got, "awk '") {
		t.Errorf("statement does not start with awk: %s", got)
	}
	if !strings.HasSuffix(got, "> .config.kforge-lock && mv .config.kforge-lock .config") {
		t.Errorf("statement does not move the temp file back: %s", got)
	}
	if !strings.Contains(got, `split("evdev ext4 nvme", mods, " ")`) {
		t.Errorf("statement does not carry the frozen member list: %s", got)
	}
	if strings.Count(got, "\n") != 0 {
		t.Error("lock statement must stay on one line so it can be indented uniformly")
	}
	// The =y rule must never rewrite the line; it only marks the key
	// as satisfied so the END rule skips the append.
	if !strings.Contains(got, `/^[^#=]+=y$/ { key = substr($0, 1, length($0) - 2); if (key in want) seen[key] = 1; print; next }`) {
		t.Errorf("builtin rule changed shape: %s", got)
	}
}

func TestPayloadBlockLayout(t *testing.T) {
	cp := Checkpoint{ID: "detect", LockModules: true, Renormalize: true}
	block := New().payloadBlock(cp, testSpec(), testModules(), "\t")

	if block[0] != "\t"+sentinelOpen("detect") {
		t.Fatalf("block starts with %q", block[0])
	}
	if last := block[len(block)-1]; last != "\t"+sentinelClose("detect") {
		t.Fatalf("block ends with %q", last)
	}

	var seds, awks, makes int
	for _, l := range block {
		switch {
		case strings.HasPrefix(l, "\tsed -i"):
			seds++
		case strings.HasPrefix(l, "\tawk '"):
			awks++
		case l == "\tmake olddefconfig < /dev/null":
			makes++
		}
	}
	// One purge per family plus one for the pins.
	if want := len(kconfig.Families()) + 1; seds != want {
		t.Errorf("%d purge statements, want %d", seds, want)
	}
	if awks != 1 || makes != 1 {
		t.Errorf("lock/renormalize = %d/%d, want 1/1", awks, makes)
	}

	guard := "\t" + `if [ -n "$(tail -c1 .config)" ]; then echo >> .config; fi`
	if lineIndex(block, guard) == -1 {
		t.Errorf("missing trailing-newline guard, block:\n%s", strings.Join(block, "\n"))
	}

	// Statement order: purges, newline guard, append, lock, renormalize.
	idx := func(prefix string) int {
		for i, l := range block {
			if strings.HasPrefix(l, prefix) {
				return i
			}
		}
		return -1
	}
	cat := idx("\tcat >> .config <<'" + heredocTag + "'")
	if !(idx("\tsed -i") < idx("\tif [ -n ") && idx("\tif [ -n ") < cat && cat < idx("\tawk '") && idx("\tawk '") < idx("\tmake olddefconfig")) {
		t.Errorf("statements out of order:\n%s", strings.Join(block, "\n"))
	}

	for _, want := range testSpec().AllLines() {
		if lineIndex(block, want) == -1 {
			t.Errorf("heredoc body line %q missing or indented", want)
		}
	}
	if lineIndex(block, heredocTag) == -1 {
		t.Error("heredoc terminator missing or indented")
	}
}

func TestHasSentinelMatchesWholeMarker(t *testing.T) {
	lines := []string{"  " + sentinelOpen("final-extra")}
	if hasSentinel(lines, "final") {
		t.Error("marker for final-extra reported as final")
	}
	if !hasSentinel(lines, "final-extra") {
		t.Error("exact marker not found")
	}
}
