package engine

import (
	"regexp"
	"strings"
)

// stageOpenRe matches a function-opening line of the build script,
// e.g. `prepare() {`.
var stageOpenRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*\(\)\s*\{\s*$`)

// match is one anchor occurrence in the script.
type match struct {
	line  int // index into the script's lines
	stage string
}

// findMatches scans the script for a checkpoint's anchor within its
// stage scope. Stage tracking is deliberately line-level: a function
// body opens at `name() {` and closes at the first later line starting
// with `}` in column zero. The script is never parsed as shell
// grammar; this is best-effort anchoring over opaque text.
//
// Previously injected sentinel blocks are opaque: payloads contain
// lines (the re-normalization step in particular) that would otherwise
// anchor other checkpoints on a second pass.
func findMatches(lines []string, cp Checkpoint) []match {
	var out []match
	stage := ""
	inBlock := false
	for i, line := range lines {
		if inBlock {
			if strings.Contains(line, sentinelCloseMark) {
				inBlock = false
			}
			continue
		}
		if strings.Contains(line, sentinelOpenMark) {
			inBlock = true
			continue
		}
		if stage == "" {
			if m := stageOpenRe.FindStringSubmatch(line); m != nil {
				stage = m[1]
				continue
			}
		} else if len(line) > 0 && line[0] == '}' {
			stage = ""
			continue
		}
		if cp.Stage != "" && stage != cp.Stage {
			continue
		}
		if cp.Anchor.MatchString(line) {
			out = append(out, match{line: i, stage: stage})
		}
	}
	return out
}

// leadingWhitespace returns the indentation prefix of a line.
func leadingWhitespace(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			return line[:i]
		}
	}
	return line
}
