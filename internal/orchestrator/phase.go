package orchestrator

import (
	"errors"
	"fmt"
)

// Phase is one state of the build lifecycle.
type Phase string

const (
	PhasePreparation   Phase = "preparation"
	PhaseConfiguration Phase = "configuration"
	PhasePatching      Phase = "patching"
	PhaseBuilding      Phase = "building"
	PhaseValidation    Phase = "validation"
	PhaseCompleted     Phase = "completed"
	PhaseFailed        Phase = "failed"
	PhaseCancelled     Phase = "cancelled"
)

// ErrBadTransition marks an attempted phase transition outside the
// enumerated table. It is an internal contract violation, never a
// recoverable build condition.
var ErrBadTransition = errors.New("phase transition outside the table")

// transitions enumerates every legal phase edge. Cancelled is reachable
// from every non-terminal phase; nothing leaves a terminal phase.
var transitions = map[Phase][]Phase{
	PhasePreparation:   {PhaseConfiguration, PhaseFailed, PhaseCancelled},
	PhaseConfiguration: {PhasePatching, PhaseFailed, PhaseCancelled},
	PhasePatching:      {PhaseBuilding, PhaseFailed, PhaseCancelled},
	PhaseBuilding:      {PhaseValidation, PhaseFailed, PhaseCancelled},
	PhaseValidation:    {PhaseCompleted, PhaseFailed, PhaseCancelled},
	PhaseCompleted:     nil,
	PhaseFailed:        nil,
	PhaseCancelled:     nil,
}

// Terminal reports whether the phase ends the lifecycle.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCancelled
}

// machine tracks the current phase and rejects off-table transitions.
type machine struct {
	current Phase
}

func newMachine() *machine {
	return &machine{current: PhasePreparation}
}

// to moves the machine to next, or fails with ErrBadTransition.
func (m *machine) to(next Phase) error {
	for _, allowed := range transitions[m.current] {
		if next == allowed {
			m.current = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrBadTransition, m.current, next)
}
