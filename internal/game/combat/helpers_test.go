package combat

import (
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// scriptedRoller returns queued rolls per purpose, then a per-purpose default.
type scriptedRoller struct {
	rolls    map[dice.Purpose][]int
	defaults map[dice.Purpose]int
	calls    map[dice.Purpose]int
}

func newScriptedRoller() *scriptedRoller {
	return &scriptedRoller{
		rolls: map[dice.Purpose][]int{},
		// Reposition 1 keeps boxes in place; missile 3 adds nothing.
		defaults: map[dice.Purpose]int{
			dice.PurposeReposition: 1,
			dice.PurposeMissile:    3,
			dice.PurposeTactics:    1,
			dice.PurposePlacement:  1,
		},
		calls: map[dice.Purpose]int{},
	}
}

func (r *scriptedRoller) queue(p dice.Purpose, rolls ...int) *scriptedRoller {
	r.rolls[p] = append(r.rolls[p], rolls...)
	return r
}

func (r *scriptedRoller) Roll(p dice.Purpose) int {
	r.calls[p]++
	if q := r.rolls[p]; len(q) > 0 {
		r.rolls[p] = q[1:]
		return q[0]
	}
	if v, ok := r.defaults[p]; ok {
		return v
	}
	return 1
}

type testClearing struct {
	id        string
	occupants []*Combatant
}

func newTestClearing(id string, cs ...*Combatant) *testClearing {
	return &testClearing{id: id, occupants: cs}
}

func (c *testClearing) LocationID() string { return c.id }

func (c *testClearing) Occupants() []*Combatant { return slices.Clone(c.occupants) }

func (c *testClearing) Take(x *Combatant) {
	c.occupants = slices.DeleteFunc(c.occupants, func(o *Combatant) bool { return o == x })
}

func (c *testClearing) Put(x *Combatant) { c.occupants = append(c.occupants, x) }

func (c *testClearing) holds(id string) bool {
	return slices.ContainsFunc(c.occupants, func(o *Combatant) bool { return o.ID == id })
}

// treasureClearing is a testClearing that also keeps returned treasure.
type treasureClearing struct {
	*testClearing
	treasure map[string][]*Armor
}

func (c *treasureClearing) ReturnTreasure(byGroup map[string][]*Armor) {
	for group, items := range byGroup {
		c.treasure[group] = append(c.treasure[group], items...)
	}
}

type recordingSink struct {
	prompts []Pending
	events  []Event
}

func (r *recordingSink) Prompt(p Pending) { r.prompts = append(r.prompts, p) }
func (r *recordingSink) Notify(e Event)   { r.events = append(r.events, e) }

func newHero(id string) *Combatant {
	return NewCharacterCombatant(id, id, &Character{
		Vulnerability: Medium,
		Chits: []*Chit{
			{ID: id + "-f1", Kind: ChitFight, Strength: Medium, Speed: 4, Effort: 1},
			{ID: id + "-f2", Kind: ChitFight, Strength: Heavy, Speed: 3, Effort: 2},
			{ID: id + "-m1", Kind: ChitMove, Strength: Medium, Speed: 4},
			{ID: id + "-m2", Kind: ChitMove, Strength: Medium, Speed: 3, Effort: 1},
		},
		Weapon: &Weapon{ID: id + "-sword", Name: "short sword", Type: Melee, Length: 3, Strength: Light, Sharpness: 1},
	})
}

func newGoblin(id string) *Combatant {
	return NewDenizenCombatant(id, id, &Denizen{
		Weight:  Medium,
		Hostile: true,
		Light:   SideStats{Strength: Medium, AttackSpeed: 4, MoveSpeed: 4, Length: 2},
		Dark:    SideStats{Strength: Heavy, AttackSpeed: 5, MoveSpeed: 3, Length: 2},
		Spoils:  Spoils{Fame: 1, Notoriety: 2, Gold: 1},
	})
}

func newHireling(id, controller string) *Combatant {
	c := newGoblin(id)
	c.Denizen.Hostile = false
	c.Denizen.ControllerID = controller
	return c
}

// newBareSession builds a session holding cs without running any phase.
func newBareSession(t *testing.T, roller DieRoller, cs ...*Combatant) *Session {
	t.Helper()
	s := NewSession(newTestClearing("clearing-1"), roller, nil, zaptest.NewLogger(t), DefaultRules())
	s.summary.Spoils = map[string]Spoils{}
	for _, c := range cs {
		s.join(c)
	}
	s.round = 1
	return s
}

// resolveAll runs the attack resolution phase over every combatant.
func resolveAll(s *Session) {
	s.actors = s.Combatants()
	s.startAttackResolution()
	for s.index = 0; s.index < len(s.actors); s.index++ {
		if c := s.actors[s.index]; s.inCombat(c) {
			s.ResolveNextAttack(c)
		}
	}
	s.ApplyDamageEffects()
}

func nopLogger() *zap.Logger { return zap.NewNop() }
