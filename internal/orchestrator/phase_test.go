package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walkTo drives a fresh machine along the happy path until it sits in
// target.
func walkTo(t *testing.T, target Phase) *machine {
	t.Helper()
	m := newMachine()
	for _, p := range []Phase{PhaseConfiguration, PhasePatching, PhaseBuilding, PhaseValidation} {
		if m.current == target {
			return m
		}
		require.NoError(t, m.to(p))
	}
	if m.current != target {
		require.NoError(t, m.to(target))
	}
	return m
}

func TestMachineHappyPath(t *testing.T) {
	m := newMachine()
	assert.Equal(t, PhasePreparation, m.current)

	for _, p := range []Phase{PhaseConfiguration, PhasePatching, PhaseBuilding, PhaseValidation, PhaseCompleted} {
		require.NoError(t, m.to(p))
		assert.Equal(t, p, m.current)
	}
}

func TestMachineRejectsOffTableTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Phase
		to   Phase
	}{
		{"skipping configuration", PhasePreparation, PhasePatching},
		{"completing from preparation", PhasePreparation, PhaseCompleted},
		{"completing without validation", PhaseBuilding, PhaseCompleted},
		{"moving backwards", PhaseBuilding, PhaseConfiguration},
		{"leaving completed", PhaseCompleted, PhaseFailed},
		{"leaving failed", PhaseFailed, PhasePreparation},
		{"cancelling a terminal build", PhaseCancelled, PhaseCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := walkTo(t, tt.from)
			err := m.to(tt.to)
			require.ErrorIs(t, err, ErrBadTransition)
			assert.Contains(t, err.Error(), string(tt.from))
			assert.Contains(t, err.Error(), string(tt.to))
			assert.Equal(t, tt.from, m.current, "a rejected transition must not move the machine")
		})
	}
}

func TestMachineTerminalExits(t *testing.T) {
	nonTerminal := []Phase{PhasePreparation, PhaseConfiguration, PhasePatching, PhaseBuilding, PhaseValidation}

	for _, from := range nonTerminal {
		t.Run(string(from)+" to cancelled", func(t *testing.T) {
			require.NoError(t, walkTo(t, from).to(PhaseCancelled))
		})
		t.Run(string(from)+" to failed", func(t *testing.T) {
			require.NoError(t, walkTo(t, from).to(PhaseFailed))
		})
	}
}

func TestPhaseTerminal(t *testing.T) {
	for p, want := range map[Phase]bool{
		PhasePreparation:   false,
		PhaseConfiguration: false,
		PhasePatching:      false,
		PhaseBuilding:      false,
		PhaseValidation:    false,
		PhaseCompleted:     true,
		PhaseFailed:        true,
		PhaseCancelled:     true,
	} {
		assert.Equal(t, want, p.Terminal(), "phase %s", p)
	}
}
