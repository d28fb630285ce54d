package resolve

import (
	"reflect"
	"testing"

	"github.com/forgelab/kforge/internal/hardware"
	"github.com/forgelab/kforge/internal/kconfig"
	"github.com/forgelab/kforge/internal/profile"
)

func ltoDoc(m kconfig.LTOMode) *profile.Document {
	return &profile.Document{Config: profile.ConfigSection{LTO: &m}}
}

func cpuDoc(n int) *profile.Document {
	return &profile.Document{Config: profile.ConfigSection{NRCPUs: &n}}
}

func TestResolveLTOPrecedence(t *testing.T) {
	clang := &hardware.Facts{HasClangLTO: true}
	noClang := &hardware.Facts{HasClangLTO: false}

	tests := []struct {
		name         string
		facts        *hardware.Facts
		override     *profile.Document
		preset       *profile.Document
		want         kconfig.LTOMode
		wantSource   kconfig.Source
		wantConflict bool
	}{
		{
			name:       "all layers absent falls to default",
			want:       kconfig.LTONone,
			wantSource: kconfig.FromDefault,
		},
		{
			name:       "preset only",
			facts:      clang,
			preset:     ltoDoc(kconfig.LTOThin),
			want:       kconfig.LTOThin,
			wantSource: kconfig.FromPreset,
		},
		{
			name:       "override beats preset",
			facts:      clang,
			override:   ltoDoc(kconfig.LTOFull),
			preset:     ltoDoc(kconfig.LTOThin),
			want:       kconfig.LTOFull,
			wantSource: kconfig.FromOverride,
		},
		{
			name:       "override stands without facts",
			override:   ltoDoc(kconfig.LTOFull),
			want:       kconfig.LTOFull,
			wantSource: kconfig.FromOverride,
		},
		{
			name:         "hardware displaces override with audit entry",
			facts:        noClang,
			override:     ltoDoc(kconfig.LTOFull),
			want:         kconfig.LTONone,
			wantSource:   kconfig.FromHardware,
			wantConflict: true,
		},
		{
			name:       "hardware displaces preset silently",
			facts:      noClang,
			preset:     ltoDoc(kconfig.LTOThin),
			want:       kconfig.LTONone,
			wantSource: kconfig.FromHardware,
		},
		{
			name:       "hardware agrees with override",
			facts:      noClang,
			override:   ltoDoc(kconfig.LTONone),
			want:       kconfig.LTONone,
			wantSource: kconfig.FromOverride,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Resolve(tt.facts, tt.override, tt.preset)

			if spec.LTO != tt.want {
				t.Errorf("LTO = %v, want %v", spec.LTO, tt.want)
			}
			if src, _ := spec.SourceOf(string(kconfig.FamilyLTO)); src != tt.wantSource {
				t.Errorf("source = %v, want %v", src, tt.wantSource)
			}
			if got := len(spec.Conflicts) > 0; got != tt.wantConflict {
				t.Errorf("conflicts = %v, wantConflict %v", spec.Conflicts, tt.wantConflict)
			}
			if tt.wantConflict {
				c := spec.Conflicts[0]
				if c.Reason != kconfig.OverriddenByHardware {
					t.Errorf("conflict reason = %v, want OverriddenByHardware", c.Reason)
				}
				if c.Subject != string(kconfig.FamilyLTO) {
					t.Errorf("conflict subject = %q, want lto", c.Subject)
				}
			}
		})
	}
}

func TestResolveNRCPUs(t *testing.T) {
	tests := []struct {
		name         string
		facts        *hardware.Facts
		override     *profile.Document
		preset       *profile.Document
		wantPin      bool
		wantLiteral  string
		wantSource   kconfig.Source
		wantConflict bool
	}{
		{
			name: "no layer pins the key",
		},
		{
			name:        "detected count pins from hardware",
			facts:       &hardware.Facts{CPUCount: 8, HasClangLTO: true},
			wantPin:     true,
			wantLiteral: "8",
			wantSource:  kconfig.FromHardware,
		},
		{
			name:         "hardware displaces differing override",
			facts:        &hardware.Facts{CPUCount: 8, HasClangLTO: true},
			override:     cpuDoc(16),
			wantPin:      true,
			wantLiteral:  "8",
			wantSource:   kconfig.FromHardware,
			wantConflict: true,
		},
		{
			name:        "override stands when detection failed",
			facts:       &hardware.Facts{CPUCount: 0, HasClangLTO: true},
			override:    cpuDoc(16),
			wantPin:     true,
			wantLiteral: "16",
			wantSource:  kconfig.FromOverride,
		},
		{
			name:        "hardware agreeing with override leaves no conflict",
			facts:       &hardware.Facts{CPUCount: 8, HasClangLTO: true},
			override:    cpuDoc(8),
			wantPin:     true,
			wantLiteral: "8",
			wantSource:  kconfig.FromHardware,
		},
		{
			name:        "hardware displaces preset silently",
			facts:       &hardware.Facts{CPUCount: 8, HasClangLTO: true},
			preset:      cpuDoc(4),
			wantPin:     true,
			wantLiteral: "8",
			wantSource:  kconfig.FromHardware,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Resolve(tt.facts, tt.override, tt.preset)

			pin, ok := spec.PinByKey(KeyNRCPUs)
			if ok != tt.wantPin {
				t.Fatalf("pin present = %v, want %v", ok, tt.wantPin)
			}
			if !tt.wantPin {
				return
			}
			if pin.Value.Literal != tt.wantLiteral {
				t.Errorf("pin literal = %q, want %q", pin.Value.Literal, tt.wantLiteral)
			}
			if pin.Source != tt.wantSource {
				t.Errorf("pin source = %v, want %v", pin.Source, tt.wantSource)
			}
			if got := len(spec.Conflicts) > 0; got != tt.wantConflict {
				t.Errorf("conflicts = %v, wantConflict %v", spec.Conflicts, tt.wantConflict)
			}
		})
	}
}

func TestResolveHostnamePin(t *testing.T) {
	host := "forge-box"
	override := &profile.Document{Config: profile.ConfigSection{Hostname: &host}}

	spec := Resolve(&hardware.Facts{CPUCount: 4, HasClangLTO: true}, override, nil)

	pin, ok := spec.PinByKey(KeyHostname)
	if !ok {
		t.Fatal("hostname pin missing")
	}
	if want := `"forge-box"`; pin.Value.Literal != want {
		t.Errorf("pin literal = %q, want %q", pin.Value.Literal, want)
	}
	if got := pin.Value.Line(KeyHostname); got != `CONFIG_DEFAULT_HOSTNAME="forge-box"` {
		t.Errorf("pin line = %q", got)
	}
	if pin.Source != kconfig.FromOverride {
		t.Errorf("pin source = %v, want FromOverride", pin.Source)
	}
}

func TestResolveFamilyPrecedence(t *testing.T) {
	pre := kconfig.PreemptFull
	tick := kconfig.Tick1000
	override := &profile.Document{Config: profile.ConfigSection{Preempt: &pre}}
	presetPre := kconfig.PreemptNone
	presetTick := kconfig.Tick100
	preset := &profile.Document{Config: profile.ConfigSection{Preempt: &presetPre, TickHz: &presetTick}}

	spec := Resolve(nil, override, preset)

	if spec.Preempt != kconfig.PreemptFull {
		t.Errorf("Preempt = %v, want full", spec.Preempt)
	}
	if src, _ := spec.SourceOf(string(kconfig.FamilyPreempt)); src != kconfig.FromOverride {
		t.Errorf("preempt source = %v, want FromOverride", src)
	}
	// Tick is only set by the preset, so the preset's choice survives.
	if spec.Tick != kconfig.Tick100 {
		t.Errorf("Tick = %v, want 100", spec.Tick)
	}
	if src, _ := spec.SourceOf(string(kconfig.FamilyTick)); src != kconfig.FromPreset {
		t.Errorf("tick source = %v, want FromPreset", src)
	}

	override.Config.TickHz = &tick
	spec = Resolve(nil, override, preset)
	if spec.Tick != kconfig.Tick1000 {
		t.Errorf("Tick = %v, want 1000 after override", spec.Tick)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	facts := &hardware.Facts{CPUCount: 12, GPU: hardware.GPUAMD, HasClangLTO: false}
	lto := kconfig.LTOFull
	n := 32
	host := "node-a"
	override := &profile.Document{Config: profile.ConfigSection{LTO: &lto, NRCPUs: &n, Hostname: &host}}
	presetLTO := kconfig.LTOThin
	preset := &profile.Document{Config: profile.ConfigSection{LTO: &presetLTO}}

	a := Resolve(facts, override, preset)
	b := Resolve(facts, override, preset)

	if !reflect.DeepEqual(a, b) {
		t.Errorf("Resolve is not deterministic:\n%+v\n%+v", a, b)
	}
	// Pins come out sorted so payload text is stable.
	for i := 1; i < len(a.Pins); i++ {
		if a.Pins[i-1].Key > a.Pins[i].Key {
			t.Errorf("pins not sorted: %q before %q", a.Pins[i-1].Key, a.Pins[i].Key)
		}
	}
}

func TestDefaultsAreClosed(t *testing.T) {
	d := Defaults()

	if d.LTO != kconfig.LTONone || d.Preempt != kconfig.PreemptVoluntary || d.Tick != kconfig.Tick250 {
		t.Errorf("Defaults() = lto=%v preempt=%v tick=%v", d.LTO, d.Preempt, d.Tick)
	}
	if len(d.Pins) != 0 {
		t.Errorf("Defaults() carries pins: %v", d.Pins)
	}
	for _, id := range []kconfig.FamilyID{kconfig.FamilyLTO, kconfig.FamilyPreempt, kconfig.FamilyTick} {
		if src, ok := d.SourceOf(string(id)); !ok || src != kconfig.FromDefault {
			t.Errorf("default source for %s = %v, %v", id, src, ok)
		}
	}
}
