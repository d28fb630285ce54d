package verify

import (
	"fmt"
	"strings"
)

const reportRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"

// FormatReport renders an inspection report for terminal display.
func FormatReport(r *Report) string {
	var sb strings.Builder
	sb.Grow(512 + len(r.Findings)*256)

	sb.WriteString("\n")
	sb.WriteString(reportRule)
	sb.WriteString("ENFORCEMENT REPORT\n")
	sb.WriteString(reportRule)
	sb.WriteString("\n")

	var fatals, warnings int
	for _, f := range r.Findings {
		if f.Severity == SeverityFatal {
			fatals++
		} else {
			warnings++
		}
		sb.WriteString(formatFinding(f))
		sb.WriteString("\n")
	}

	held := r.Checked - len(r.Findings)
	if held > 0 {
		sb.WriteString(fmt.Sprintf("[OK] ✓\n  %d assertions hold\n\n", held))
	}

	sb.WriteString(reportRule)
	if r.Clean() {
		sb.WriteString(fmt.Sprintf("SUMMARY: configuration conforms, all %d assertions hold ✓\n", r.Checked))
	} else {
		sb.WriteString(fmt.Sprintf("SUMMARY: %d findings (%d fatal, %d warning)\n",
			len(r.Findings), fatals, warnings))
	}
	sb.WriteString(reportRule)

	return sb.String()
}

// formatFinding renders a single finding entry.
func formatFinding(f Finding) string {
	var sb strings.Builder
	sb.Grow(256)

	sb.WriteString(fmt.Sprintf("[%s] (%s)\n", strings.ReplaceAll(f.Class.String(), "_", " "), f.Severity))
	sb.WriteString(fmt.Sprintf("  %s\n", f.Subject))
	sb.WriteString(fmt.Sprintf("    Want:  %s\n", f.Want))
	sb.WriteString(fmt.Sprintf("    Have:  %s\n", f.Have))
	sb.WriteString("    \n")

	switch f.Class {
	case FindingFamilyMismatch:
		sb.WriteString("    → The selection did not survive the script's final reconfiguration\n")
	case FindingPinMismatch:
		sb.WriteString("    → The pinned parameter drifted from its resolved value\n")
	case FindingModuleMissing:
		sb.WriteString("    → The frozen driver was dropped after the last checkpoint\n")
	}

	return sb.String()
}
