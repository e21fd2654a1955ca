package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// tacticsRoll is the roll on which a denizen changes tactics.
const tacticsRoll = 6

// randomizeAttacks repositions denizens on every sheet and then rolls for
// change of tactics. A character's defenders share one roll; on a denizen
// sheet the target box, the attacker boxes and an unhired owner's single
// defender each roll separately. Red-side monsters never move.
func (s *Session) randomizeAttacks() {
	for _, sh := range s.sheets {
		owner := s.byID[sh.Owner]
		if owner == nil {
			continue
		}
		if owner.IsCharacter() {
			s.repositionDefenders(sh.Defenders)
			continue
		}
		if dt := sh.DefenderTarget; dt != nil && s.repositions(dt.ID) {
			dt.Defense = RepositionDefense(s.roller.Roll(dice.PurposeReposition), dt.Defense)
		}
		if len(sh.Attackers) > 0 {
			roll := s.roller.Roll(dice.PurposeReposition)
			for i := range sh.Attackers {
				if s.repositions(sh.Attackers[i].ID) {
					sh.Attackers[i].Attack = RepositionAttack(roll, sh.Attackers[i].Attack)
				}
			}
		}
		if owner.IsControlled() {
			continue
		}
		switch n := len(sh.Defenders); {
		case n == 1:
			s.repositionDefenders(sh.Defenders)
		case n > 1:
			s.logger.Error("denizen sheet holds more than one defender",
				zap.String("owner", sh.Owner), zap.Int("defenders", n))
		}
	}
	s.changeTactics()
}

func (s *Session) repositionDefenders(defenders []DefenderData) {
	if len(defenders) == 0 {
		return
	}
	roll := s.roller.Roll(dice.PurposeReposition)
	for i := range defenders {
		if s.repositions(defenders[i].ID) {
			defenders[i].Defense = RepositionDefense(roll, defenders[i].Defense)
		}
	}
}

func (s *Session) repositions(id string) bool {
	c := s.byID[id]
	return c != nil && !c.IsRedSideMonster()
}

// changeTactics rolls once per attack direction and once per defense box. On
// a six every denizen using that direction or box turns over. A denizen hit by
// several sixes still turns only once. Tremendous denizens hold their side,
// as does a hireling defending its own sheet.
func (s *Session) changeTactics() {
	seen := make(map[string]bool)
	var flips []*Combatant
	mark := func(c *Combatant) {
		if !seen[c.ID] {
			seen[c.ID] = true
			flips = append(flips, c)
		}
	}
	for _, a := range AttackTypes {
		if s.roller.Roll(dice.PurposeTactics) != tacticsRoll {
			continue
		}
		for _, c := range s.combatants {
			if s.changesTactics(c) && s.AttackType(c) == a {
				mark(c)
			}
		}
	}
	for _, d := range DefenseTypes {
		if s.roller.Roll(dice.PurposeTactics) != tacticsRoll {
			continue
		}
		for _, c := range s.combatants {
			if s.changesTactics(c) && s.DefenseType(c) == d && !(c.IsControlled() && s.defendsOwnSheet(c)) {
				mark(c)
			}
		}
	}
	for _, c := range flips {
		c.Denizen.Side = c.Denizen.Side.Flip()
		s.emit(Event{Kind: EventTactics, ActorID: c.ID,
			Narrative: fmt.Sprintf("%s changes tactics to its %s.", c.Name, c.Denizen.Side)})
	}
}

func (s *Session) changesTactics(c *Combatant) bool {
	return c.IsDenizen() && !c.Denizen.IsTremendous()
}

func (s *Session) defendsOwnSheet(c *Combatant) bool {
	sh := s.sheetFor(c.ID)
	return sh != nil && sh.DefenderTarget != nil && sh.DefenderTarget.ID == c.ID
}
