package engine

import "regexp"

// Cardinality constrains how many anchor locations a checkpoint may
// instrument.
type Cardinality int

const (
	// ZeroOrMore instruments every match and tolerates none. Used for
	// steps a build script may invoke repeatedly or not at all.
	ZeroOrMore Cardinality = iota
	// ExactlyOne requires a single match; zero or several is an
	// AnchorError.
	ExactlyOne
	// AtLeastOne requires at least one match and instruments them all.
	// Zero matches on a mandatory checkpoint aborts the build before
	// the external process starts.
	AtLeastOne
)

// String returns the configuration name of the cardinality.
func (c Cardinality) String() string {
	switch c {
	case ZeroOrMore:
		return "zero-or-more"
	case ExactlyOne:
		return "exactly-one"
	case AtLeastOne:
		return "mandatory-at-least-one"
	default:
		return "unknown"
	}
}

// Placement says which side of the anchor line the payload lands on.
type Placement int

const (
	// After places the payload on the line following the anchor, for
	// anchors that clobber the config file (the payload repairs it).
	After Placement = iota
	// Before places the payload on the line preceding the anchor, for
	// anchors that consume the config file (the payload must win the
	// race against nothing later).
	Before
)

// Checkpoint is one enforcement injection point: a textual anchor rule
// plus the payload options for that location.
type Checkpoint struct {
	ID string

	// Stage scopes matching to one named script function body; empty
	// matches anywhere.
	Stage string

	// Anchor is matched against single lines of the script.
	Anchor *regexp.Regexp

	Placement   Placement
	Cardinality Cardinality

	// LockModules adds the module hard-lock to the payload.
	LockModules bool

	// Renormalize ends the payload with the external tool's own
	// dependency-consistency step, in accept-defaults mode.
	Renormalize bool
}

// DefaultCheckpoints returns the checkpoint table for PKGBUILD-shaped
// build scripts. The table covers the four places such scripts clobber
// or consume the config file:
//
//	seed    after the bulk config overwrite in prepare()
//	regen   after each dependency regeneration run
//	detect  after module auto-detection strips the module list
//	final   before the compile step in build(), mandatory
func DefaultCheckpoints() []Checkpoint {
	return []Checkpoint{
		{
			ID:          "seed",
			Stage:       "prepare",
			Anchor:      regexp.MustCompile(`^\s*cp\s+.+\s+"?\.config"?\s*$`),
			Placement:   After,
			Cardinality: ZeroOrMore,
		},
		{
			ID:          "regen",
			Anchor:      regexp.MustCompile(`^\s*make\s.*\bold(def)?config\b.*$`),
			Placement:   After,
			Cardinality: ZeroOrMore,
		},
		{
			ID:          "detect",
			Anchor:      regexp.MustCompile(`^\s*make\s.*\blocalmodconfig\b.*$`),
			Placement:   After,
			Cardinality: ZeroOrMore,
			LockModules: true,
			Renormalize: true,
		},
		{
			ID:          "final",
			Stage:       "build",
			Anchor:      regexp.MustCompile(`^\s*make\b.*\b(all|bzImage|vmlinux)\b.*$`),
			Placement:   Before,
			Cardinality: AtLeastOne,
			LockModules: true,
			Renormalize: true,
		},
	}
}
