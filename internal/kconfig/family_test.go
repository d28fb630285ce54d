package kconfig

import (
	"reflect"
	"testing"
)

func TestFamilyLines(t *testing.T) {
	tests := []struct {
		name   string
		family FamilyID
		spec   Spec
		want   []string
	}{
		{
			name:   "lto none",
			family: FamilyLTO,
			spec:   Spec{LTO: LTONone},
			want:   []string{"CONFIG_LTO_NONE=y"},
		},
		{
			name:   "lto thin carries capability flag",
			family: FamilyLTO,
			spec:   Spec{LTO: LTOThin},
			want:   []string{"CONFIG_LTO_CLANG=y", "CONFIG_LTO_CLANG_THIN=y"},
		},
		{
			name:   "lto full carries capability flag",
			family: FamilyLTO,
			spec:   Spec{LTO: LTOFull},
			want:   []string{"CONFIG_LTO_CLANG=y", "CONFIG_LTO_CLANG_FULL=y"},
		},
		{
			name:   "preempt voluntary",
			family: FamilyPreempt,
			spec:   Spec{Preempt: PreemptVoluntary},
			want:   []string{"CONFIG_PREEMPT_VOLUNTARY=y"},
		},
		{
			name:   "preempt full carries dynamic flag",
			family: FamilyPreempt,
			spec:   Spec{Preempt: PreemptFull},
			want:   []string{"CONFIG_PREEMPT=y", "CONFIG_PREEMPT_DYNAMIC=y"},
		},
		{
			name:   "tick renders literal dependent",
			family: FamilyTick,
			spec:   Spec{Tick: Tick1000},
			want:   []string{"CONFIG_HZ_1000=y", "CONFIG_HZ=1000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FamilyLines(tt.family, &tt.spec)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FamilyLines(%s) = %v, want %v", tt.family, got, tt.want)
			}
		})
	}
}

func TestFamilySelectedLinesAreMembers(t *testing.T) {
	// Every canonical line a family can select must target a key the
	// family owns, otherwise purge-then-append could leave strays.
	specs := []Spec{
		{LTO: LTONone, Preempt: PreemptNone, Tick: Tick100},
		{LTO: LTOThin, Preempt: PreemptVoluntary, Tick: Tick250},
		{LTO: LTOFull, Preempt: PreemptFull, Tick: Tick1000},
	}

	for _, f := range Families() {
		members := make(map[string]bool, len(f.Members))
		for _, m := range f.Members {
			members[m] = true
		}
		for i := range specs {
			for _, line := range FamilyLines(f.ID, &specs[i]) {
				key, _, ok := ParseLine(line)
				if !ok {
					t.Fatalf("family %s produced unparseable line %q", f.ID, line)
				}
				if !members[key] {
					t.Errorf("family %s line %q targets non-member key %q", f.ID, line, key)
				}
			}
		}
	}
}

func TestParseLTOMode(t *testing.T) {
	tests := []struct {
		in      string
		want    LTOMode
		wantErr bool
	}{
		{in: "none", want: LTONone},
		{in: "thin", want: LTOThin},
		{in: "full", want: LTOFull},
		{in: "fat", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseLTOMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLTOMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseLTOMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTickRate(t *testing.T) {
	for _, hz := range []int{100, 250, 300, 1000} {
		if _, err := ParseTickRate(hz); err != nil {
			t.Errorf("ParseTickRate(%d) unexpected error: %v", hz, err)
		}
	}
	if _, err := ParseTickRate(60); err == nil {
		t.Error("ParseTickRate(60) expected error, got nil")
	}
}

func TestFamilyByID(t *testing.T) {
	f, ok := FamilyByID(FamilyLTO)
	if !ok {
		t.Fatal("FamilyByID(lto) not found")
	}
	if !f.Critical {
		t.Error("lto family must be the critical selector family")
	}

	if _, ok := FamilyByID("bogus"); ok {
		t.Error("FamilyByID(bogus) unexpectedly found")
	}
}
