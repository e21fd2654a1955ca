package combat

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// effect is one queued consequence of a hit, applied when its tie group closes.
type effect struct {
	attacker *Combatant
	victim   *Combatant
	lethal   bool
	wound    bool
	armor    *Armor
}

// CompareAttackOrder orders a before b (negative) when a attacks first. In the
// first round longer weapons strike first and speed breaks ties; afterwards
// faster attacks strike first and length breaks ties. Zero means the two
// attacks are simultaneous.
func CompareAttackOrder(round int, a, b *Combatant) int {
	byLength := cmp.Compare(b.WeaponLength(), a.WeaponLength())
	bySpeed := cmp.Compare(a.CurrentAttackSpeed(), b.CurrentAttackSpeed())
	if round <= 1 {
		if byLength != 0 {
			return byLength
		}
		return bySpeed
	}
	if bySpeed != 0 {
		return bySpeed
	}
	return byLength
}

// SortAttackOrder sorts cs into resolution order for round, keeping the
// existing order of simultaneous attackers.
func SortAttackOrder(round int, cs []*Combatant) {
	slices.SortStableFunc(cs, func(a, b *Combatant) int { return CompareAttackOrder(round, a, b) })
}

func (s *Session) startAttackResolution() {
	s.queued = nil
	SortAttackOrder(s.round, s.actors)
}

// ResolveNextAttack resolves c's attack, if it has one, and applies queued
// damage once the next attacker in order is not simultaneous with c.
func (s *Session) ResolveNextAttack(c *Combatant) {
	target := s.targetOf(c)
	switch {
	case target == nil:
	case c.IsDenizen() && c.CurrentStrength() == Negligible:
	case c.IsCharacter() && (c.data == nil || c.data.AttackChit == nil):
	default:
		s.attack(c, target)
	}
	if !s.tiedWithNext(c) {
		s.ApplyDamageEffects()
	}
}

func (s *Session) tiedWithNext(c *Combatant) bool {
	for i := s.index + 1; i < len(s.actors); i++ {
		next := s.actors[i]
		if !s.inCombat(next) {
			continue
		}
		return CompareAttackOrder(s.round, c, next) == 0
	}
	return false
}

func (s *Session) attack(c, t *Combatant) {
	s.activity = true
	atk, def := s.AttackType(c), s.DefenseType(t)
	res := &AttackResult{
		AttackerID: c.ID,
		TargetID:   t.ID,
		Hit:        HitTest(c.CurrentAttackSpeed(), t.CurrentMoveSpeed(), atk, def),
	}
	if res.Hit != Miss {
		s.inflict(c, t, atk, res)
	}
	s.emit(Event{Kind: EventAttack, ActorID: c.ID, TargetID: t.ID, Attack: res, Narrative: narrate(c, t, atk, res)})
	s.logger.Debug("attack resolved",
		zap.String("attacker", c.ID),
		zap.String("target", t.ID),
		zap.String("hit", res.Hit.String()),
		zap.String("harm", res.Harm.String()),
		zap.Bool("lethal", res.Lethal),
	)
}

// inflict works out the harm of a hit and queues its effect.
func (s *Session) inflict(c, t *Combatant, atk AttackType, res *AttackResult) {
	sharpness := c.CurrentSharpness()
	var armor *Armor
	if t.IsCharacter() && t.data != nil {
		armor = t.data.armorAgainst(atk)
	}
	if (t.IsDenizen() && t.Denizen.Armored) || armor != nil {
		sharpness = max(sharpness-1, 0)
	}
	bonus := 0
	if c.WeaponType() == Missile {
		res.MissileRoll = s.roller.Roll(dice.PurposeMissile)
		bonus = MissileBonus(res.MissileRoll)
	}
	raw := int(c.CurrentStrength()) + sharpness + bonus
	res.Harm = ClampStrength(raw)
	res.InstantKill = (c.WeaponType() == Missile && raw > int(Tremendous)) || c.IsRedSideMonster()

	e := effect{attacker: c, victim: t}
	switch {
	case res.InstantKill:
		e.lethal = true
	case t.IsCharacter() && armor != nil:
		res.Armor = armor.Name
		if res.Harm >= armor.Rank {
			e.armor = armor
		}
		e.wound = res.Harm >= Medium
	case t.IsCharacter():
		e.lethal = res.Harm >= t.Character.Vulnerability
		e.wound = !e.lethal && res.Harm > Negligible
	default:
		e.lethal = res.Harm >= t.Denizen.Weight
	}
	res.Lethal = e.lethal
	res.Wound = e.wound
	s.queued = append(s.queued, e)
}

func narrate(c, t *Combatant, atk AttackType, res *AttackResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s attacks %s with a %s", c.Name, t.Name, atk)
	switch res.Hit {
	case Miss:
		b.WriteString(" and misses.")
		return b.String()
	case Undercut:
		b.WriteString(", undercutting")
	case Intercept:
		b.WriteString(", intercepting")
	}
	fmt.Fprintf(&b, " for %s harm", res.Harm)
	if res.MissileRoll > 0 {
		fmt.Fprintf(&b, " (missile roll %d)", res.MissileRoll)
	}
	switch {
	case res.InstantKill:
		b.WriteString(": an instant kill.")
	case res.Lethal:
		b.WriteString(": a killing blow.")
	case res.Armor != "":
		fmt.Fprintf(&b, " against the %s.", res.Armor)
	default:
		b.WriteString(".")
	}
	return b.String()
}

// ApplyDamageEffects applies every queued effect of the closing tie group.
// Combatants killed by each other in the same group both die, and each is
// credited to the other.
func (s *Session) ApplyDamageEffects() {
	queued := s.queued
	s.queued = nil
	var dead []*Combatant
	for _, e := range queued {
		if !s.inCombat(e.victim) {
			continue
		}
		if e.armor != nil {
			s.damageArmor(e.victim, e.armor)
		}
		if e.wound && e.victim.data != nil {
			e.victim.data.PendingWounds++
			e.victim.woundedBy = appendUnique(e.victim.woundedBy, e.attacker.ID)
		}
		if e.lethal {
			e.victim.killers = appendUnique(e.victim.killers, e.attacker.ID)
			if !e.victim.Dead {
				e.victim.Dead = true
				dead = append(dead, e.victim)
			}
		}
	}
	for _, v := range dead {
		s.kill(v)
	}
}

// kill credits v's killers, records the death and removes v from combat.
func (s *Session) kill(v *Combatant) {
	v.Dead = true
	s.activity = true
	s.awardSpoils(v)
	s.summary.Deaths = append(s.summary.Deaths, v.Name)
	s.emit(Event{Kind: EventDeath, ActorID: v.ID, Narrative: fmt.Sprintf("%s is killed.", v.Name)})
	s.logger.Info("combatant killed", zap.String("combatant", v.ID), zap.Strings("killers", v.killers))
	s.remove(v)
}

// awardSpoils divides v's bounty evenly among its killers, remainders going
// to the earliest. A hireling's share goes to its controller; shares of
// unhired killers are forfeit.
func (s *Session) awardSpoils(v *Combatant) {
	if len(v.killers) == 0 {
		return
	}
	shares := v.Bounty().Split(len(v.killers))
	for i, id := range v.killers {
		killer := s.known[id]
		if killer == nil || shares[i].IsZero() {
			continue
		}
		recipient := s.known[killer.ControllerID()]
		if recipient == nil || !recipient.IsCharacter() {
			continue
		}
		recipient.Character.Spoils = recipient.Character.Spoils.Add(shares[i])
		s.summary.Spoils[recipient.ID] = s.summary.Spoils[recipient.ID].Add(shares[i])
	}
}

// damageArmor damages a whole piece or destroys an already damaged one.
// Destroyed treasure goes back to its native group; anything else is lost.
func (s *Session) damageArmor(owner *Combatant, a *Armor) {
	if !a.Damaged {
		a.Damaged = true
		s.emit(Event{Kind: EventArmor, ActorID: owner.ID, Narrative: fmt.Sprintf("%s's %s is damaged.", owner.Name, a.Name)})
		return
	}
	if owner.data != nil {
		for i, held := range owner.data.Armor {
			if held == a {
				owner.data.Armor[i] = nil
			}
		}
	}
	owner.Character.Armor = slices.DeleteFunc(owner.Character.Armor, func(x *Armor) bool { return x == a })
	if a.Treasure && a.Native != "" {
		s.returned[a.Native] = append(s.returned[a.Native], a)
	} else {
		s.destroyed = append(s.destroyed, a)
	}
	s.emit(Event{Kind: EventArmor, ActorID: owner.ID, Narrative: fmt.Sprintf("%s's %s is destroyed.", owner.Name, a.Name)})
}
