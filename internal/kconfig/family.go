package kconfig

import "fmt"

// LTOMode selects the link-time optimization family member.
type LTOMode int

const (
	LTONone LTOMode = iota
	LTOThin
	LTOFull
)

// String returns the profile-schema name for the mode.
func (m LTOMode) String() string {
	switch m {
	case LTONone:
		return "none"
	case LTOThin:
		return "thin"
	case LTOFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParseLTOMode maps a profile-schema name to an LTOMode.
func ParseLTOMode(s string) (LTOMode, error) {
	switch s {
	case "none":
		return LTONone, nil
	case "thin":
		return LTOThin, nil
	case "full":
		return LTOFull, nil
	default:
		return LTONone, fmt.Errorf("unknown lto mode %q (expected none, thin, or full)", s)
	}
}

// PreemptMode selects the kernel preemption family member.
type PreemptMode int

const (
	PreemptNone PreemptMode = iota
	PreemptVoluntary
	PreemptFull
)

// String returns the profile-schema name for the mode.
func (m PreemptMode) String() string {
	switch m {
	case PreemptNone:
		return "none"
	case PreemptVoluntary:
		return "voluntary"
	case PreemptFull:
		return "full"
	default:
		return "unknown"
	}
}

// ParsePreemptMode maps a profile-schema name to a PreemptMode.
func ParsePreemptMode(s string) (PreemptMode, error) {
	switch s {
	case "none":
		return PreemptNone, nil
	case "voluntary":
		return PreemptVoluntary, nil
	case "full":
		return PreemptFull, nil
	default:
		return PreemptNone, fmt.Errorf("unknown preempt mode %q (expected none, voluntary, or full)", s)
	}
}

// TickRate selects the timer frequency family member, in Hz.
type TickRate int

const (
	Tick100  TickRate = 100
	Tick250  TickRate = 250
	Tick300  TickRate = 300
	Tick1000 TickRate = 1000
)

// ParseTickRate validates a timer frequency from a profile document.
func ParseTickRate(hz int) (TickRate, error) {
	switch hz {
	case 100, 250, 300, 1000:
		return TickRate(hz), nil
	default:
		return 0, fmt.Errorf("unsupported tick rate %d (expected 100, 250, 300, or 1000)", hz)
	}
}

// FamilyID identifies a config family.
type FamilyID string

const (
	FamilyLTO     FamilyID = "lto"
	FamilyPreempt FamilyID = "preempt"
	FamilyTick    FamilyID = "tick"
)

// Family is a set of mutually exclusive config keys plus dependent
// capability flags. Members lists every key the family may own in the
// target file; enforcement purges all of them before re-asserting the
// selected lines. Critical marks the primary selector family whose
// post-hoc verification mismatch fails the build.
type Family struct {
	ID       FamilyID
	Name     string
	Members  []string
	Critical bool
}

// Families returns the closed family table in enforcement order.
// The slice and its contents must be treated as read-only.
func Families() []Family {
	return []Family{
		{
			ID:       FamilyLTO,
			Name:     "link-time optimization",
			Critical: true,
			Members: []string{
				"CONFIG_LTO_NONE",
				"CONFIG_LTO_CLANG",
				"CONFIG_LTO_CLANG_THIN",
				"CONFIG_LTO_CLANG_FULL",
			},
		},
		{
			ID:   FamilyPreempt,
			Name: "preemption model",
			Members: []string{
				"CONFIG_PREEMPT_NONE",
				"CONFIG_PREEMPT_VOLUNTARY",
				"CONFIG_PREEMPT",
				"CONFIG_PREEMPT_DYNAMIC",
			},
		},
		{
			ID:   FamilyTick,
			Name: "timer frequency",
			Members: []string{
				"CONFIG_HZ_100",
				"CONFIG_HZ_250",
				"CONFIG_HZ_300",
				"CONFIG_HZ_1000",
				"CONFIG_HZ",
			},
		},
	}
}

// FamilyByID looks a family up in the closed table.
func FamilyByID(id FamilyID) (Family, bool) {
	for _, f := range Families() {
		if f.ID == id {
			return f, true
		}
	}
	return Family{}, false
}

// FamilyLines returns the canonical lines a spec selects for the family,
// in fixed order: exactly one selector member plus the dependent
// capability flags that selection always requires.
func FamilyLines(id FamilyID, spec *Spec) []string {
	switch id {
	case FamilyLTO:
		switch spec.LTO {
		case LTOThin:
			return []string{"CONFIG_LTO_CLANG=y", "CONFIG_LTO_CLANG_THIN=y"}
		case LTOFull:
			return []string{"CONFIG_LTO_CLANG=y", "CONFIG_LTO_CLANG_FULL=y"}
		default:
			return []string{"CONFIG_LTO_NONE=y"}
		}
	case FamilyPreempt:
		switch spec.Preempt {
		case PreemptVoluntary:
			return []string{"CONFIG_PREEMPT_VOLUNTARY=y"}
		case PreemptFull:
			return []string{"CONFIG_PREEMPT=y", "CONFIG_PREEMPT_DYNAMIC=y"}
		default:
			return []string{"CONFIG_PREEMPT_NONE=y"}
		}
	case FamilyTick:
		return []string{
			fmt.Sprintf("CONFIG_HZ_%d=y", int(spec.Tick)),
			fmt.Sprintf("CONFIG_HZ=%d", int(spec.Tick)),
		}
	default:
		return nil
	}
}
