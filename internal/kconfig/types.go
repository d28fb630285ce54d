// Package kconfig provides the configuration data model for KFORGE's
// enforcement pipeline: typed config values, mutually exclusive config
// families, the resolved Spec, the frozen ModuleSet, and a codec for the
// flat kernel configuration file format.
//
// Values in a configuration file take one of four shapes:
//
//	KEY=y              enabled (built in)
//	KEY=m              module
//	# KEY is not set   disabled
//	KEY=value          literal (quoted or bare)
//
// A Spec and a ModuleSet are computed once per build during the
// Configuration phase and treated as read-only afterwards; every
// enforcement payload is generated from their frozen contents.
package kconfig

import "fmt"

// ValueKind identifies the shape of a config value.
type ValueKind int

const (
	// KindEnabled is a built-in selection (KEY=y).
	KindEnabled ValueKind = iota
	// KindModule is a loadable module selection (KEY=m).
	KindModule
	// KindDisabled is the commented "is not set" form.
	KindDisabled
	// KindLiteral is a free-form value (numeric or quoted string).
	KindLiteral
)

// String returns a human-readable kind name.
func (k ValueKind) String() string {
	switch k {
	case KindEnabled:
		return "enabled"
	case KindModule:
		return "module"
	case KindDisabled:
		return "disabled"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Value is a tagged config value. Literal carries the rendered payload for
// KindLiteral and is empty for the other kinds.
type Value struct {
	Kind    ValueKind
	Literal string
}

// Yes returns the enabled value (KEY=y).
func Yes() Value { return Value{Kind: KindEnabled} }

// Mod returns the module value (KEY=m).
func Mod() Value { return Value{Kind: KindModule} }

// No returns the disabled value (# KEY is not set).
func No() Value { return Value{Kind: KindDisabled} }

// Lit returns a literal value rendered verbatim after the equals sign.
// Callers quote string literals themselves (e.g. `"hostname"`).
func Lit(s string) Value { return Value{Kind: KindLiteral, Literal: s} }

// Line renders the canonical config file line for this value under key.
func (v Value) Line(key string) string {
	switch v.Kind {
	case KindEnabled:
		return key + "=y"
	case KindModule:
		return key + "=m"
	case KindDisabled:
		return "# " + key + " is not set"
	case KindLiteral:
		return key + "=" + v.Literal
	default:
		return ""
	}
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool {
	return v.Kind == o.Kind && v.Literal == o.Literal
}

// Source records where a resolved decision came from, highest precedence
// first. FromDefault marks the documented library fallback used when a
// key is absent from all three input layers.
type Source int

const (
	FromHardware Source = iota
	FromOverride
	FromPreset
	FromDefault
)

// String returns the audit name for a source.
func (s Source) String() string {
	switch s {
	case FromHardware:
		return "hardware"
	case FromOverride:
		return "override"
	case FromPreset:
		return "preset"
	case FromDefault:
		return "default"
	default:
		return "unknown"
	}
}

// ConflictReason classifies a recorded resolution conflict.
type ConflictReason int

const (
	// OverriddenByHardware marks a user override that was displaced by a
	// contradicting hardware fact. Not an error: recorded for audit and
	// logged by the caller, never silently dropped.
	OverriddenByHardware ConflictReason = iota
)

// String returns the audit name for a conflict reason.
func (r ConflictReason) String() string {
	switch r {
	case OverriddenByHardware:
		return "overridden-by-hardware"
	default:
		return "unknown"
	}
}

// Conflict is one recorded resolution conflict.
type Conflict struct {
	Subject   string // family or key the conflict concerns
	Reason    ConflictReason
	Requested string // what the losing layer asked for
	Applied   string // what the winning layer imposed
}

// String formats the conflict for logs.
func (c Conflict) String() string {
	return fmt.Sprintf("%s: %s (requested %s, applied %s)",
		c.Subject, c.Reason, c.Requested, c.Applied)
}
