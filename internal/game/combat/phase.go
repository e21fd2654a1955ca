package combat

import (
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Phase is one step of a combat round.
type Phase int

const (
	PhasePreStartRound Phase = iota
	PhaseStartRound
	PhaseLure
	PhaseRandomAssignment
	PhaseDeployment
	PhaseTakeAction
	PhaseSelectTarget
	PhaseActivateSpells
	PhaseSelectAttackAndManeuver
	PhaseRandomizeAttacks
	PhaseResolveAttacks
	PhaseFatigueChits
	PhaseDisengage
	PhaseCombatDone
)

var phaseNames = map[Phase]string{
	PhasePreStartRound:           "PreStartRound",
	PhaseStartRound:              "StartRound",
	PhaseLure:                    "Lure",
	PhaseRandomAssignment:        "RandomAssignment",
	PhaseDeployment:              "Deployment",
	PhaseTakeAction:              "TakeAction",
	PhaseSelectTarget:            "SelectTarget",
	PhaseActivateSpells:          "ActivateSpells",
	PhaseSelectAttackAndManeuver: "SelectAttackAndManeuver",
	PhaseRandomizeAttacks:        "RandomizeAttacks",
	PhaseResolveAttacks:          "ResolveAttacks",
	PhaseFatigueChits:            "FatigueChits",
	PhaseDisengage:               "Disengage",
	PhaseCombatDone:              "CombatDone",
}

var phasesByName = func() map[string]Phase {
	m := make(map[string]Phase, len(phaseNames))
	for p, n := range phaseNames {
		m[n] = p
	}
	return m
}()

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "Unknown"
}

// iterates reports whether the phase visits combatants one at a time.
func (p Phase) iterates() bool {
	switch p {
	case PhaseLure, PhaseTakeAction, PhaseSelectTarget, PhaseSelectAttackAndManeuver,
		PhaseResolveAttacks, PhaseFatigueChits:
		return true
	default:
		return false
	}
}

const (
	eventAdvance  = "advance"
	eventNewRound = "new_round"
	eventEnd      = "end"
)

// newPhaseMachine builds the transition table: each phase advances to the
// next, Disengage may loop to a new round, and any live phase may end combat.
func newPhaseMachine(logger *zap.Logger) *fsm.FSM {
	var events fsm.Events
	var live []string
	for p := PhasePreStartRound; p < PhaseCombatDone; p++ {
		events = append(events, fsm.EventDesc{Name: eventAdvance, Src: []string{p.String()}, Dst: (p + 1).String()})
		live = append(live, p.String())
	}
	events = append(events,
		fsm.EventDesc{Name: eventNewRound, Src: []string{PhaseDisengage.String()}, Dst: PhasePreStartRound.String()},
		fsm.EventDesc{Name: eventEnd, Src: live, Dst: PhaseCombatDone.String()},
	)
	return fsm.NewFSM(PhasePreStartRound.String(), events, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			logger.Debug("combat phase", zap.String("from", e.Src), zap.String("to", e.Dst))
		},
	})
}
