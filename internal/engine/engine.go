// Package engine plans and injects the enforcement payloads that keep
// the resolved configuration alive through the external build script's
// own reconfiguration steps.
//
// The Engine is the only component that mutates the build script, and
// only through the session's WriteGrant. Instrumentation is idempotent
// at the sentinel level: a script already carrying a checkpoint's
// marker receives no duplicate insertion, so running the injector over
// its own output yields byte-identical text.
package engine

import (
	"sort"
	"strings"

	"github.com/forgelab/kforge/internal/kconfig"
	"github.com/forgelab/kforge/internal/workspace"
)

// Engine turns a frozen Spec and ModuleSet into literal enforcement
// snippets anchored inside the external build script.
type Engine struct {
	checkpoints []Checkpoint
	configName  string
}

// New creates an Engine over the default checkpoint table.
func New() *Engine {
	return NewWithCheckpoints(DefaultCheckpoints())
}

// NewWithCheckpoints creates an Engine with a custom checkpoint table.
func NewWithCheckpoints(cps []Checkpoint) *Engine {
	return &Engine{checkpoints: cps, configName: workspace.ConfigName}
}

// Insertion describes one payload placed into the script.
type Insertion struct {
	Checkpoint string
	Stage      string
	Line       int // 1-based anchor line in the pristine script
	Anchor     string
}

// Report summarizes one instrumentation run.
type Report struct {
	Insertions []Insertion
	// Skipped lists checkpoints whose sentinel was already present.
	Skipped []string
	// Written reports whether the script file was rewritten.
	Written bool
}

// insertionPoint pairs a checkpoint with one validated anchor match.
type insertionPoint struct {
	cp Checkpoint
	m  match
}

// Plan validates every checkpoint's anchors against a script and
// reports what Instrument would insert, without touching any file.
func (e *Engine) Plan(script []byte) (*Report, error) {
	_, report, err := e.plan(kconfig.SplitLines(string(script)))
	return report, err
}

// Instrument reads the build script through the session's write grant,
// validates every checkpoint's anchors, injects the payloads, and
// writes the result back atomically. The Patching phase calls this
// exactly once per build; any anchor failure surfaces before the
// external process ever starts.
func (e *Engine) Instrument(grant *workspace.WriteGrant, spec *kconfig.Spec, mods *kconfig.ModuleSet) (*Report, error) {
	script, err := grant.Read()
	if err != nil {
		return nil, err
	}
	lines := kconfig.SplitLines(string(script))

	points, report, err := e.plan(lines)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		// Already instrumented, or only optional checkpoints without
		// matches. The file stays untouched.
		return report, nil
	}

	instrumented := e.render(lines, points, spec, mods)

	if _, err := grant.EnsureBackup(); err != nil {
		return nil, &WriteError{Path: grant.Path(), Op: "backup", Cause: err}
	}
	if err := grant.WriteAtomic([]byte(kconfig.JoinLines(instrumented))); err != nil {
		restored := grant.RestoreBackup() == nil
		return nil, &WriteError{Path: grant.Path(), Op: "write", Restored: restored, Cause: err}
	}

	report.Written = true
	return report, nil
}

// plan locates and validates anchor matches for every checkpoint that
// is not already instrumented.
func (e *Engine) plan(lines []string) ([]insertionPoint, *Report, error) {
	var points []insertionPoint
	report := &Report{}

	for _, cp := range e.checkpoints {
		if hasSentinel(lines, cp.ID) {
			report.Skipped = append(report.Skipped, cp.ID)
			continue
		}

		ms := findMatches(lines, cp)
		switch cp.Cardinality {
		case ExactlyOne:
			if len(ms) != 1 {
				return nil, nil, &AnchorError{
					Checkpoint: cp.ID,
					Pattern:    cp.Anchor.String(),
					Matches:    len(ms),
					Need:       "exactly one",
				}
			}
		case AtLeastOne:
			if len(ms) == 0 {
				return nil, nil, &AnchorError{
					Checkpoint: cp.ID,
					Pattern:    cp.Anchor.String(),
					Matches:    0,
					Need:       "at least one",
				}
			}
		}

		for _, m := range ms {
			points = append(points, insertionPoint{cp: cp, m: m})
			report.Insertions = append(report.Insertions, Insertion{
				Checkpoint: cp.ID,
				Stage:      m.stage,
				Line:       m.line + 1,
				Anchor:     strings.TrimSpace(lines[m.line]),
			})
		}
	}
	return points, report, nil
}

// render splices the payload blocks into the script. Insertions are
// applied bottom-up so earlier line indices stay valid.
func (e *Engine) render(lines []string, points []insertionPoint, spec *kconfig.Spec, mods *kconfig.ModuleSet) []string {
	sorted := make([]insertionPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].m.line > sorted[j].m.line })

	out := make([]string, len(lines))
	copy(out, lines)
	for _, p := range sorted {
		indent := leadingWhitespace(out[p.m.line])
		block := e.payloadBlock(p.cp, spec, mods, indent)

		at := p.m.line
		if p.cp.Placement == After {
			at++
		}
		merged := make([]string, 0, len(out)+len(block))
		merged = append(merged, out[:at]...)
		merged = append(merged, block...)
		merged = append(merged, out[at:]...)
		out = merged
	}
	return out
}

// PreviewPayload renders one checkpoint's payload block at column zero
// for display. The second return is false for an unknown checkpoint.
func (e *Engine) PreviewPayload(id string, spec *kconfig.Spec, mods *kconfig.ModuleSet) ([]string, bool) {
	for _, cp := range e.checkpoints {
		if cp.ID == id {
			return e.payloadBlock(cp, spec, mods, ""), true
		}
	}
	return nil, false
}

// Checkpoints returns the engine's checkpoint table.
func (e *Engine) Checkpoints() []Checkpoint {
	out := make([]Checkpoint, len(e.checkpoints))
	copy(out, e.checkpoints)
	return out
}
