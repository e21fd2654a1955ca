package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// maxRollOffs bounds the random-assignment tie-break loop.
const maxRollOffs = 32

// CreateCombatSheet places attacker and defender on owner's sheet, creating
// the sheet for a denizen owner when needed. Either of attacker and defender
// may be nil. A denizen is first detached from any sheet it occupied, so it
// is never in two boxes at once. A character owner must already have a sheet;
// otherwise the call is logged and nil is returned.
func (s *Session) CreateCombatSheet(owner, attacker, defender *Combatant) *CombatSheet {
	if owner == nil {
		return nil
	}
	sh := s.sheetFor(owner.ID)
	if sh == nil {
		if owner.IsCharacter() {
			s.logger.Error("character has no combat sheet", zap.String("owner", owner.ID))
			return nil
		}
		sh = &CombatSheet{Owner: owner.ID}
		s.sheets = append(s.sheets, sh)
	}

	if attacker != nil && attacker != owner && attacker.IsDenizen() && sh.attackerIndex(attacker.ID) < 0 {
		s.detach(attacker)
		sh.Attackers = append([]AttackerData{{ID: attacker.ID, Attack: Thrust}}, sh.Attackers...)
		attacker.sheetOwner = owner.ID
	}

	if defender == nil || !defender.IsDenizen() {
		return sh
	}
	if defender == owner {
		if sh.DefenderTarget == nil || sh.DefenderTarget.ID != owner.ID {
			s.detach(owner)
			sh.DefenderTarget = &DefenderData{ID: owner.ID, Defense: Charge}
			owner.sheetOwner = owner.ID
		}
		return sh
	}
	if sh.defenderIndex(defender.ID) >= 0 {
		return sh
	}
	s.detach(defender)
	s.relocateAttackers(defender, sh)
	d := pickBalancedDefense(sh.defenseCounts(), func() int { return s.roller.Roll(dice.PurposePlacement) })
	sh.Defenders = append([]DefenderData{{ID: defender.ID, Defense: d}}, sh.Defenders...)
	defender.sheetOwner = owner.ID
	return sh
}

// relocateAttackers moves the attackers of d's own sheet onto sh, where d now
// defends, so they keep fighting it.
func (s *Session) relocateAttackers(d *Combatant, sh *CombatSheet) {
	own := s.sheetFor(d.ID)
	if own == nil || own == sh || len(own.Attackers) == 0 {
		return
	}
	var moved []AttackerData
	for _, a := range own.Attackers {
		c := s.byID[a.ID]
		if c == nil {
			continue
		}
		if c.ID == sh.Owner {
			// The sheet's owner keeps fighting d from its own target box.
			if sh.DefenderTarget == nil {
				sh.DefenderTarget = &DefenderData{ID: c.ID, Defense: Charge}
			}
			c.sheetOwner = c.ID
			continue
		}
		c.sheetOwner = sh.Owner
		moved = append(moved, a)
	}
	own.Attackers = nil
	sh.Attackers = append(moved, sh.Attackers...)
}

// detach takes a denizen out of whatever box it occupies.
func (s *Session) detach(c *Combatant) {
	if c.IsCharacter() {
		return
	}
	if sh := s.sheetFor(c.sheetOwner); sh != nil {
		sh.remove(c.ID)
	}
	c.sheetOwner = ""
}

// releaseVictims empties e's own defender boxes.
func (s *Session) releaseVictims(e *Combatant) {
	own := s.sheetFor(e.ID)
	if own == nil {
		return
	}
	for _, d := range own.Defenders {
		if c := s.byID[d.ID]; c != nil && c.sheetOwner == e.ID {
			c.sheetOwner = ""
		}
	}
	own.Defenders = nil
}

// CanLure reports whether attacker may lure target, returning an error
// wrapping ErrInvalidTarget when not.
func (s *Session) CanLure(attacker, target *Combatant) error {
	switch {
	case !s.inCombat(attacker) || !s.inCombat(target):
		return fmt.Errorf("%w: not in combat", ErrInvalidTarget)
	case attacker == target:
		return fmt.Errorf("%w: cannot lure itself", ErrInvalidTarget)
	case target.IsCharacter():
		return fmt.Errorf("%w: %s is a character", ErrInvalidTarget, target.Name)
	case target.IsRedSideMonster():
		return fmt.Errorf("%w: %s is red-side up", ErrInvalidTarget, target.Name)
	case target.IsControlled():
		return fmt.Errorf("%w: %s is a hireling", ErrInvalidTarget, target.Name)
	case attacker.IsDenizen() && !attacker.IsControlled():
		return fmt.Errorf("%w: %s is not hired", ErrInvalidTarget, attacker.Name)
	case attacker.IsDenizen() && attacker.hasLured:
		return fmt.Errorf("%w: %s already lured this combat", ErrInvalidTarget, attacker.Name)
	}
	if l := s.byID[target.lurer]; l != nil && l.IsDenizen() && l.IsControlled() {
		return fmt.Errorf("%w: %s is already lured by %s", ErrInvalidTarget, target.Name, l.Name)
	}
	return nil
}

// Lure makes the pending lurer draw target onto itself. An invalid choice is
// rejected and the lurer is asked again.
func (s *Session) Lure(attackerID, targetID string) error {
	if _, err := s.expect(attackerID, InputLure); err != nil {
		return err
	}
	attacker, target := s.byID[attackerID], s.byID[targetID]
	if err := s.CanLure(attacker, target); err != nil {
		return s.resolicit(err)
	}
	s.applyLure(attacker, target)
	s.EndPhase()
	return nil
}

func (s *Session) applyLure(attacker, target *Combatant) {
	s.releaseVictims(target)
	target.lurer = attacker.ID
	target.target = attacker.ID
	attacker.target = target.ID
	attacker.hasLured = true
	s.activity = true
	if attacker.IsCharacter() {
		s.CreateCombatSheet(attacker, nil, target)
	} else {
		s.CreateCombatSheet(target, attacker, target)
	}
	s.emit(Event{Kind: EventLure, ActorID: attacker.ID, TargetID: target.ID,
		Narrative: fmt.Sprintf("%s lures %s.", attacker.Name, target.Name)})
}

func (s *Session) lureOptions(c *Combatant) []*Combatant {
	var out []*Combatant
	for _, t := range s.combatants {
		if s.CanLure(c, t) == nil {
			out = append(out, t)
		}
	}
	return out
}

// canTarget reports whether selector may attack target: friends are off limits.
func (s *Session) canTarget(selector, target *Combatant) error {
	switch {
	case !s.inCombat(selector) || !s.inCombat(target):
		return fmt.Errorf("%w: not in combat", ErrInvalidTarget)
	case selector == target:
		return fmt.Errorf("%w: cannot target itself", ErrInvalidTarget)
	case target.IsControlled():
		return fmt.Errorf("%w: %s is a friend", ErrInvalidTarget, target.Name)
	}
	return nil
}

// targetOptions lists what c may attack, hostile denizens first.
func (s *Session) targetOptions(c *Combatant) []*Combatant {
	var hostile, other []*Combatant
	for _, t := range s.combatants {
		if s.canTarget(c, t) != nil {
			continue
		}
		if t.Denizen.Hostile {
			hostile = append(hostile, t)
		} else {
			other = append(other, t)
		}
	}
	return append(hostile, other...)
}

// SelectTarget records the pending selector's attack target and puts both
// onto the right sheet.
func (s *Session) SelectTarget(selectorID, targetID string) error {
	if _, err := s.expect(selectorID, InputTarget); err != nil {
		return err
	}
	selector, target := s.byID[selectorID], s.byID[targetID]
	if err := s.canTarget(selector, target); err != nil {
		return s.resolicit(err)
	}
	s.applyTarget(selector, target)
	s.EndPhase()
	return nil
}

func (s *Session) applyTarget(selector, target *Combatant) {
	selector.target = target.ID
	s.activity = true
	s.emit(Event{Kind: EventTarget, ActorID: selector.ID, TargetID: target.ID,
		Narrative: fmt.Sprintf("%s targets %s.", selector.Name, target.Name)})
	if selector.IsCharacter() {
		if target.sheetOwner == "" {
			s.CreateCombatSheet(target, nil, target)
		}
		return
	}
	if owner := s.byID[target.sheetOwner]; owner != nil {
		s.CreateCombatSheet(owner, selector, nil)
		return
	}
	s.CreateCombatSheet(target, selector, target)
}

func (s *Session) spellTargetOptions(c *Combatant) []*Combatant {
	var out []*Combatant
	for _, t := range s.combatants {
		if t != c {
			out = append(out, t)
		}
	}
	return out
}

func (s *Session) selectSpellTarget(casterID, targetID string) error {
	caster, target := s.byID[casterID], s.byID[targetID]
	if !s.inCombat(target) || target == caster {
		return s.resolicit(fmt.Errorf("%w: %q", ErrInvalidTarget, targetID))
	}
	s.spells = append(s.spells, spellCast{casterID: caster.ID, targetID: target.ID})
	s.EndPhase()
	return nil
}

// AssignEnemies gives every unassigned enemy a target chosen by roll-off among
// the visible characters and hirelings. An enemy assigned to a character joins
// that character's defenders; one assigned to a hireling takes the hireling
// onto its own sheet.
func (s *Session) AssignEnemies() {
	for _, e := range s.Enemies() {
		if e.target != "" {
			continue
		}
		candidates := s.visibleFriends()
		if len(candidates) == 0 {
			return
		}
		t := s.rollOff(candidates)
		s.releaseVictims(e)
		e.target = t.ID
		if t.IsCharacter() {
			s.CreateCombatSheet(t, nil, e)
		} else {
			s.CreateCombatSheet(e, nil, e)
			s.CreateCombatSheet(e, nil, t)
		}
		s.emit(Event{Kind: EventTarget, ActorID: e.ID, TargetID: t.ID,
			Narrative: fmt.Sprintf("%s is assigned to %s.", e.Name, t.Name)})
	}
}

func (s *Session) visibleFriends() []*Combatant {
	var out []*Combatant
	for _, c := range s.combatants {
		switch {
		case c.IsCharacter() && !c.Character.Hidden:
			out = append(out, c)
		case c.IsDenizen() && c.IsControlled():
			out = append(out, c)
		}
	}
	return out
}

// rollOff rolls for every candidate and repeats among those tied for the
// highest roll until one remains.
func (s *Session) rollOff(candidates []*Combatant) *Combatant {
	remaining := candidates
	for i := 0; len(remaining) > 1 && i < maxRollOffs; i++ {
		best := 0
		rolls := make([]int, len(remaining))
		for j := range remaining {
			rolls[j] = s.roller.Roll(dice.PurposeRandomAssignment)
			best = max(best, rolls[j])
		}
		var next []*Combatant
		for j, c := range remaining {
			if rolls[j] == best {
				next = append(next, c)
			}
		}
		remaining = next
	}
	if len(remaining) > 1 {
		s.logger.Error("random assignment did not converge; taking first candidate",
			zap.Int("tied", len(remaining)))
	}
	return remaining[0]
}

// assignDefaultTargets points uncontrolled denizens without a target at whoever
// shares their sheet.
func (s *Session) assignDefaultTargets() {
	for _, c := range s.combatants {
		if !c.IsDenizen() || c.IsControlled() || c.target != "" {
			continue
		}
		sh := s.sheetFor(c.sheetOwner)
		if sh == nil {
			continue
		}
		var t *Combatant
		switch owner := s.byID[sh.Owner]; {
		case owner != nil && owner != c && owner.IsCharacter():
			t = owner
		case owner == c && len(sh.Attackers) > 0:
			t = s.byID[sh.Attackers[0].ID]
		case owner == c && len(sh.Defenders) == 1:
			t = s.byID[sh.Defenders[0].ID]
		}
		if t != nil {
			c.target = t.ID
		}
	}
}

// flipNativeHorses turns the horses of unhired riders between walk and gallop.
func (s *Session) flipNativeHorses() {
	for _, c := range s.combatants {
		if c.IsDenizen() && !c.IsControlled() && c.Denizen.Horse != nil {
			c.Denizen.Horse.Galloping = !c.Denizen.Horse.Galloping
		}
	}
}

// ensureDefenderSheets gives every denizen that is being attacked but sits on
// no sheet a sheet of its own.
func (s *Session) ensureDefenderSheets() {
	for _, c := range s.combatants {
		t := s.targetOf(c)
		if t == nil || !t.IsDenizen() || t.sheetOwner != "" {
			continue
		}
		var attacker *Combatant
		if c.IsDenizen() {
			attacker = c
		}
		s.CreateCombatSheet(t, attacker, t)
	}
}
