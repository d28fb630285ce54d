// Package profile provides the Lua profile documents that feed
// configuration resolution: embedded named presets and the optional
// user override file from the workspace. Documents are executed in a
// sandboxed gopher-lua VM with a read-only hardware facts table
// injected, so profiles stay declarative but may react to the machine
// they describe.
package profile

import (
	"fmt"
	"regexp"

	"github.com/forgelab/kforge/internal/kconfig"
)

// Document is a parsed profile: a partial configuration fragment.
// Every field is optional; nil means "this document does not speak to
// that decision" and resolution falls through to the next layer.
type Document struct {
	Meta    Meta
	Config  ConfigSection
	Modules ModuleSection
}

// Meta describes the document for listings and logs.
type Meta struct {
	Name        string
	Description string
}

// ConfigSection holds the family selections and baked-in parameters a
// document asserts.
type ConfigSection struct {
	LTO      *kconfig.LTOMode
	Preempt  *kconfig.PreemptMode
	TickHz   *kconfig.TickRate
	NRCPUs   *int
	Hostname *string
}

// ModuleSection holds the module reconciliation preferences.
type ModuleSection struct {
	AutoDetect *bool
	Whitelist  *bool
	Extra      []string
}

const (
	// MaxExtraModules bounds the extra module list of one document.
	MaxExtraModules = 512
	// MaxHostnameLen bounds the baked-in hostname literal.
	MaxHostnameLen = 64
)

// moduleNamePattern matches the identifiers accepted in module lists.
var moduleNamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// Validate performs basic validation on a parsed document.
func (d *Document) Validate() error {
	if len(d.Modules.Extra) > MaxExtraModules {
		return &ValidationError{
			Field:   "modules.extra",
			Message: fmt.Sprintf("too many modules (%d), maximum is %d", len(d.Modules.Extra), MaxExtraModules),
		}
	}
	for i, name := range d.Modules.Extra {
		if !moduleNamePattern.MatchString(name) {
			return &ValidationError{
				Field:   fmt.Sprintf("modules.extra[%d]", i),
				Message: fmt.Sprintf("invalid module identifier %q", name),
			}
		}
	}

	if d.Config.NRCPUs != nil && (*d.Config.NRCPUs < 1 || *d.Config.NRCPUs > 8192) {
		return &ValidationError{
			Field:   "config.nr_cpus",
			Message: fmt.Sprintf("nr_cpus %d out of range 1..8192", *d.Config.NRCPUs),
		}
	}

	if d.Config.Hostname != nil {
		h := *d.Config.Hostname
		if h == "" {
			return &ValidationError{Field: "config.hostname", Message: "hostname cannot be empty"}
		}
		if len(h) > MaxHostnameLen {
			return &ValidationError{
				Field:   "config.hostname",
				Message: fmt.Sprintf("hostname too long (%d chars, max %d)", len(h), MaxHostnameLen),
			}
		}
		for _, r := range h {
			if r == '"' || r == '\\' || r < 0x20 || r > 0x7e {
				return &ValidationError{Field: "config.hostname", Message: "hostname must be printable ASCII without quotes"}
			}
		}
	}

	return nil
}

// ValidationError represents a profile validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "profile validation failed for " + e.Field + ": " + e.Message
	}
	return "profile validation failed: " + e.Message
}
