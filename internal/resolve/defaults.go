package resolve

import "github.com/forgelab/kforge/internal/kconfig"

// Defaults returns the library fallback spec used when a decision is
// absent from every input layer. The fallback set is closed and
// enumerable: three family selections and no pins.
//
//	lto     none      (safest; needs no toolchain support)
//	preempt voluntary (the common distribution default)
//	tick    250 Hz    (the common distribution default)
func Defaults() *kconfig.Spec {
	return &kconfig.Spec{
		LTO:     kconfig.LTONone,
		Preempt: kconfig.PreemptVoluntary,
		Tick:    kconfig.Tick250,
		Sources: map[string]kconfig.Source{
			string(kconfig.FamilyLTO):     kconfig.FromDefault,
			string(kconfig.FamilyPreempt): kconfig.FromDefault,
			string(kconfig.FamilyTick):    kconfig.FromDefault,
		},
	}
}
