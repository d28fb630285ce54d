// Package verify inspects the configuration left behind by the
// external build and reports every place enforcement did not hold. It
// compares the file against the same frozen Spec and ModuleSet the
// payloads were generated from.
package verify

import (
	"fmt"
	"os"

	"github.com/forgelab/kforge/internal/kconfig"
)

// FindingClass classifies one conformance finding.
type FindingClass int

const (
	FindingFamilyMismatch FindingClass = iota
	FindingPinMismatch
	FindingModuleMissing
)

// String returns the report name of the class.
func (c FindingClass) String() string {
	switch c {
	case FindingFamilyMismatch:
		return "FAMILY_MISMATCH"
	case FindingPinMismatch:
		return "PIN_MISMATCH"
	case FindingModuleMissing:
		return "MODULE_MISSING"
	default:
		return "UNKNOWN"
	}
}

// Severity grades a finding. Only the critical selector family
// produces SeverityFatal; everything else warns.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityFatal
)

// String returns the report name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Finding is one conformance violation.
type Finding struct {
	Class    FindingClass
	Severity Severity
	// Subject is the family id, pin key, or module name concerned.
	Subject string
	Want    string
	Have    string
}

// Report is the result of one inspection.
type Report struct {
	// Checked counts every assertion evaluated, held or not.
	Checked  int
	Findings []Finding
}

// Fatal reports whether any finding is fatal.
func (r *Report) Fatal() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Clean reports whether every assertion held.
func (r *Report) Clean() bool {
	return len(r.Findings) == 0
}

// Inspect checks the final configuration content against the frozen
// resolution results. Families are checked member by member: the
// selected lines must hold exactly and no non-selected member may be
// enabled. Pins must hold verbatim. With a filtering module set every
// frozen member must survive at module or builtin mode; extra module
// lines are not findings, the external tool's own dependency
// resolution may legitimately re-add them.
func Inspect(content string, spec *kconfig.Spec, mods *kconfig.ModuleSet) *Report {
	cfg := kconfig.ParseConfig(content)
	report := &Report{}

	for _, fam := range kconfig.Families() {
		severity := SeverityWarning
		if fam.Critical {
			severity = SeverityFatal
		}

		selected := make(map[string]bool)
		for _, line := range kconfig.FamilyLines(fam.ID, spec) {
			key, want, ok := kconfig.ParseLine(line)
			if !ok {
				continue
			}
			selected[key] = true
			report.Checked++
			have, present := cfg[key]
			if !present || !have.Equal(want) {
				report.Findings = append(report.Findings, Finding{
					Class:    FindingFamilyMismatch,
					Severity: severity,
					Subject:  string(fam.ID),
					Want:     line,
					Have:     renderHave(key, have, present),
				})
			}
		}

		for _, member := range fam.Members {
			if selected[member] {
				continue
			}
			report.Checked++
			have, present := cfg[member]
			if present && (have.Kind == kconfig.KindEnabled || have.Kind == kconfig.KindModule) {
				report.Findings = append(report.Findings, Finding{
					Class:    FindingFamilyMismatch,
					Severity: severity,
					Subject:  string(fam.ID),
					Want:     "absent or disabled",
					Have:     have.Line(member),
				})
			}
		}
	}

	for _, p := range spec.Pins {
		report.Checked++
		have, present := cfg[p.Key]
		if !present || !have.Equal(p.Value) {
			report.Findings = append(report.Findings, Finding{
				Class:    FindingPinMismatch,
				Severity: SeverityWarning,
				Subject:  p.Key,
				Want:     p.Value.Line(p.Key),
				Have:     renderHave(p.Key, have, present),
			})
		}
	}

	if mods != nil && mods.Filter {
		for _, key := range mods.Keys() {
			report.Checked++
			have, present := cfg[key]
			if !present || have.Kind == kconfig.KindDisabled {
				report.Findings = append(report.Findings, Finding{
					Class:    FindingModuleMissing,
					Severity: SeverityWarning,
					Subject:  key,
					Want:     key + "=m",
					Have:     renderHave(key, have, present),
				})
			}
		}
	}

	return report
}

// InspectFile reads the configuration file read-only and inspects it.
func InspectFile(path string, spec *kconfig.Spec, mods *kconfig.ModuleSet) (*Report, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read final config: %w", err)
	}
	return Inspect(string(content), spec, mods), nil
}

func renderHave(key string, v kconfig.Value, present bool) string {
	if !present {
		return "(absent)"
	}
	return v.Line(key)
}
