package kconfig

import "strings"

const notSetSuffix = " is not set"

// ParseLine decodes one configuration file line. It returns the key, the
// decoded value, and whether the line carried a config entry at all
// (blank lines and ordinary comments return ok=false).
func ParseLine(line string) (key string, v Value, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return "", Value{}, false
	}

	if strings.HasPrefix(trimmed, "#") {
		// Only the canonical "# KEY is not set" comment is an entry.
		body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		if !strings.HasSuffix(body, notSetSuffix) {
			return "", Value{}, false
		}
		key = strings.TrimSpace(strings.TrimSuffix(body, notSetSuffix))
		if key == "" || strings.ContainsAny(key, " \t=") {
			return "", Value{}, false
		}
		return key, No(), true
	}

	eq := strings.IndexByte(trimmed, '=')
	if eq <= 0 {
		return "", Value{}, false
	}
	key = trimmed[:eq]
	rest := trimmed[eq+1:]
	switch rest {
	case "y":
		return key, Yes(), true
	case "m":
		return key, Mod(), true
	default:
		return key, Lit(rest), true
	}
}

// ParseConfig decodes a whole configuration file into a key-value map.
// Later occurrences of a key win, matching the external tool's own
// last-assignment semantics.
func ParseConfig(content string) map[string]Value {
	out := make(map[string]Value)
	for _, line := range strings.Split(content, "\n") {
		if key, v, ok := ParseLine(line); ok {
			out[key] = v
		}
	}
	return out
}

// SplitLines breaks file content into lines without the trailing
// terminator, preserving interior empty lines.
func SplitLines(content string) []string {
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// JoinLines reassembles lines into newline-terminated file content.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
