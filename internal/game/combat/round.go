package combat

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// startRound drops last round's targets, except those of red-side monsters and
// of unhired denizens already fighting a character, and discards denizen
// sheets nobody fights on any more.
func (s *Session) startRound() {
	for _, c := range s.combatants {
		if c.IsRedSideMonster() {
			continue
		}
		if c.IsDenizen() && !c.IsControlled() {
			if t := s.targetOf(c); t != nil && t.IsCharacter() {
				continue
			}
		}
		c.target = ""
	}
	s.sheets = slices.DeleteFunc(s.sheets, func(sh *CombatSheet) bool {
		owner := s.byID[sh.Owner]
		if owner == nil || owner.IsCharacter() || !sh.IsEmpty() {
			return false
		}
		if sh.DefenderTarget != nil && owner.sheetOwner == owner.ID {
			owner.sheetOwner = ""
		}
		return true
	})
	s.allowEndCombat = len(s.Enemies()) == 0
}

func (s *Session) activateSpells() {
	for _, sp := range s.spells {
		caster, target := s.byID[sp.casterID], s.byID[sp.targetID]
		if caster == nil || target == nil {
			continue
		}
		s.activity = true
		s.emit(Event{Kind: EventSpell, ActorID: caster.ID, TargetID: target.ID,
			Narrative: fmt.Sprintf("%s casts a spell at %s.", caster.Name, target.Name)})
	}
	s.spells = nil
}

// assessFatigue charges each character one fatigue per effort asterisk played
// this round beyond the first.
func (s *Session) assessFatigue() {
	for _, c := range s.combatants {
		d := c.data
		if d == nil {
			continue
		}
		effort := 0
		if d.AttackChit != nil {
			effort += d.AttackChit.Effort
		}
		if d.ManeuverChit != nil {
			effort += d.ManeuverChit.Effort
		}
		d.FatigueDue = max(effort-1, 0)
	}
}

// performFatigue prompts actor for the next wound or fatigue it owes. It
// returns true when nothing could be asked.
func (s *Session) performFatigue(actor *Combatant) bool {
	d := actor.data
	if d.PendingWounds > 0 {
		opts := chitsWhere(actor, func(ch *Chit) bool { return ch.State != ChitWounded })
		if len(opts) == 0 {
			s.dieOfWounds(actor)
			return true
		}
		s.prompt(Pending{Phase: PhaseFatigueChits, ActorID: actor.ID, Kind: InputChit, Options: opts})
		return false
	}
	opts := chitsWhere(actor, func(ch *Chit) bool { return ch.State == ChitActive && ch.Effort > 0 })
	if len(opts) == 0 {
		d.FatigueDue = 0
		return true
	}
	s.prompt(Pending{Phase: PhaseFatigueChits, ActorID: actor.ID, Kind: InputChit, Options: opts})
	return false
}

// SelectChit assigns the pending character's next wound, or failing that its
// next fatigue, to chitID. The character is asked again while anything is
// still owed. A character whose every chit is wounded dies.
func (s *Session) SelectChit(playerID, chitID string) error {
	if _, err := s.expect(playerID, InputChit); err != nil {
		return err
	}
	actor := s.byID[playerID]
	d := actor.data
	chit := actor.Character.Chit(chitID)
	if chit == nil {
		return s.resolicit(fmt.Errorf("%w: %q", ErrInvalidChit, chitID))
	}
	switch {
	case d.PendingWounds > 0:
		if chit.State == ChitWounded {
			return s.resolicit(fmt.Errorf("%w: %q is already wounded", ErrInvalidChit, chitID))
		}
		chit.State = ChitWounded
		d.PendingWounds--
		s.emit(Event{Kind: EventWound, ActorID: actor.ID, Narrative: fmt.Sprintf("%s takes a wound on %s.", actor.Name, chit.ID)})
		if len(chitsWhere(actor, func(ch *Chit) bool { return ch.State != ChitWounded })) == 0 {
			s.dieOfWounds(actor)
		}
	default:
		if chit.State != ChitActive || chit.Effort == 0 {
			return s.resolicit(fmt.Errorf("%w: %q cannot be fatigued", ErrInvalidChit, chitID))
		}
		chit.State = ChitFatigued
		d.FatigueDue = max(d.FatigueDue-chit.Effort, 0)
		s.emit(Event{Kind: EventInfo, ActorID: actor.ID, Narrative: fmt.Sprintf("%s fatigues %s.", actor.Name, chit.ID)})
	}
	s.index--
	s.EndPhase()
	return nil
}

func (s *Session) dieOfWounds(c *Combatant) {
	for _, id := range c.woundedBy {
		c.killers = appendUnique(c.killers, id)
	}
	s.kill(c)
}

func chitsWhere(c *Combatant, keep func(*Chit) bool) []string {
	var out []string
	for _, ch := range c.Character.Chits {
		if keep(ch) {
			out = append(out, ch.ID)
		}
	}
	return out
}

// disengage closes the round: selections are cleared and the quiet-round
// counter advances unless something happened or a red-side monster is
// still present.
func (s *Session) disengage() {
	for _, c := range s.combatants {
		if c.data != nil {
			c.data.clearSelections()
		}
	}
	s.spells = nil
	redSide := slices.ContainsFunc(s.combatants, (*Combatant).IsRedSideMonster)
	if s.activity || redSide {
		s.quietRounds = 0
	} else {
		s.quietRounds++
	}
	s.logger.Debug("round over",
		zap.Int("round", s.round),
		zap.Bool("activity", s.activity),
		zap.Int("quiet_rounds", s.quietRounds),
	)
}

// remove takes c out of combat. The living go back to the clearing; every
// reference to c held by another combatant or sheet is cleared.
func (s *Session) remove(c *Combatant) {
	if !s.inCombat(c) {
		return
	}
	s.detach(c)
	if sh := s.sheetFor(c.ID); sh != nil {
		for _, id := range sh.Members() {
			if m := s.byID[id]; m != nil && m.sheetOwner == c.ID {
				m.sheetOwner = ""
			}
		}
		s.deleteSheet(c.ID)
	}
	for _, o := range s.combatants {
		if o.target == c.ID {
			o.target = ""
		}
		if o.lurer == c.ID {
			o.lurer = ""
		}
	}
	s.spells = slices.DeleteFunc(s.spells, func(sp spellCast) bool {
		return sp.casterID == c.ID || sp.targetID == c.ID
	})
	delete(s.byID, c.ID)
	s.combatants = slices.DeleteFunc(s.combatants, func(x *Combatant) bool { return x == c })
	c.clearCombatRefs()
	if !c.Dead {
		c.Location = s.loc.LocationID()
		s.loc.Put(c)
	}
}

// teardown returns every survivor to the clearing and completes the summary.
func (s *Session) teardown() {
	for _, c := range s.combatants {
		c.clearCombatRefs()
		c.Location = s.loc.LocationID()
		s.loc.Put(c)
	}
	if tk, ok := s.loc.(TreasureKeeper); ok && len(s.returned) > 0 {
		tk.ReturnTreasure(s.returned)
		for group, items := range s.returned {
			s.logger.Debug("treasure returned", zap.String("group", group), zap.Int("items", len(items)))
		}
	}
	s.combatants = nil
	s.byID = make(map[string]*Combatant)
	s.sheets = nil
	s.actors = nil
	s.pending = nil
	s.queued = nil
	s.spells = nil
	s.summary.Rounds = s.round
	s.summary.EndedAt = s.now()
	s.emit(Event{Kind: EventInfo, Narrative: "Combat is over."})
	s.logger.Info("combat over",
		zap.Int("rounds", s.summary.Rounds),
		zap.Strings("deaths", s.summary.Deaths),
		zap.Strings("fled", s.summary.Fled),
	)
	if s.onDone != nil {
		s.onDone(s.summary)
	}
}
