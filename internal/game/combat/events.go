package combat

import (
	"time"
)

// EventKind classifies a narrative event.
type EventKind int

const (
	EventInfo EventKind = iota
	EventTarget
	EventLure
	EventAttack
	EventArmor
	EventWound
	EventDeath
	EventFlee
	EventSpell
	EventTactics
)

// AttackResult records the resolution of one attack.
type AttackResult struct {
	AttackerID string
	TargetID   string
	Hit        HitKind
	// Harm is the clamped harm level; meaningful only when Hit != Miss.
	Harm        Strength
	InstantKill bool
	// MissileRoll is the missile table roll, or 0 for hand weapons.
	MissileRoll int
	Lethal      bool
	Wound       bool
	// Armor names the armor piece that took the hit, if any.
	Armor string
}

// Event is one line of the combat narrative.
type Event struct {
	Round     int
	Phase     Phase
	Kind      EventKind
	ActorID   string
	TargetID  string
	Narrative string
	Attack    *AttackResult
}

// InputKind identifies what a pending request asks for.
type InputKind int

const (
	InputLure InputKind = iota
	InputAction
	InputTarget
	InputSpellTarget
	InputAttackManeuver
	InputChit
)

// String returns a lower-case label used by scripting hooks.
func (k InputKind) String() string {
	switch k {
	case InputLure:
		return "lure"
	case InputAction:
		return "action"
	case InputTarget:
		return "target"
	case InputSpellTarget:
		return "spell_target"
	case InputAttackManeuver:
		return "attack_maneuver"
	case InputChit:
		return "chit"
	default:
		return "unknown"
	}
}

// Pending is the request a suspended session is waiting on.
type Pending struct {
	Phase   Phase
	ActorID string
	Kind    InputKind
	// Options holds candidate combatant IDs, chit IDs or action names,
	// depending on Kind. For InputAttackManeuver it holds the fight chits.
	Options []string
	// Maneuvers holds the move chits for InputAttackManeuver.
	Maneuvers []string
}

// Action is a take-action choice.
type Action string

const (
	ActionPass        Action = "pass"
	ActionRunAway     Action = "run_away"
	ActionAlertWeapon Action = "alert_weapon"
	ActionCastSpell   Action = "cast_spell"
)

// Sink receives prompts and narrative from a session. Implementations must not
// call back into the session from within these methods.
type Sink interface {
	Prompt(p Pending)
	Notify(e Event)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Prompt(Pending) {}
func (NopSink) Notify(Event)   {}

// Summary is the record of a finished encounter.
type Summary struct {
	ID         string
	ClearingID string
	Rounds     int
	Deaths     []string
	Fled       []string
	// Spoils maps character ID to what the character earned.
	Spoils    map[string]Spoils
	StartedAt time.Time
	EndedAt   time.Time
}
