package content

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/realm/internal/game/board"
	"github.com/cory-johannsen/realm/internal/game/combat"
)

// SpawnDenizen creates a fresh denizen combatant from the definition defID.
//
// Postcondition: the combatant has a new UUID, starts light side up and is
// unhired.
func (r *Registry) SpawnDenizen(defID string) (*combat.Combatant, error) {
	d, ok := r.denizens[defID]
	if !ok {
		return nil, fmt.Errorf("unknown denizen %q", defID)
	}
	weight, _ := ParseStrength(d.Weight)
	den := &combat.Denizen{
		Weight:  weight,
		Armored: d.Armored,
		Hostile: d.Hostile,
		Light:   d.Light.stats(),
		Dark:    d.Dark.stats(),
		Spoils:  d.Spoils.spoils(),
	}
	if d.Horse != nil {
		den.Horse = &combat.Horse{WalkSpeed: d.Horse.Walk, GallopSpeed: d.Horse.Gallop}
	}
	return combat.NewDenizenCombatant(uuid.NewString(), d.Name, den), nil
}

// SpawnCharacter creates a fresh character combatant from the definition
// defID, with its own copies of chits, weapon and armor.
func (r *Registry) SpawnCharacter(defID string) (*combat.Combatant, error) {
	c, ok := r.characters[defID]
	if !ok {
		return nil, fmt.Errorf("unknown character %q", defID)
	}
	vul, _ := ParseStrength(c.Vulnerability)
	ch := &combat.Character{Vulnerability: vul, Spoils: combat.Spoils{Gold: c.Gold}}
	for _, cd := range c.Chits {
		str, _ := ParseStrength(cd.Strength)
		kind := combat.ChitFight
		if cd.Kind == "move" {
			kind = combat.ChitMove
		}
		ch.Chits = append(ch.Chits, &combat.Chit{ID: cd.ID, Kind: kind, Strength: str, Speed: cd.Speed, Effort: cd.Effort})
	}
	if c.Weapon != "" {
		w, ok := r.weapons[c.Weapon]
		if !ok {
			return nil, fmt.Errorf("character %q: unknown weapon %q", c.ID, c.Weapon)
		}
		ch.Weapon = newWeapon(w)
	}
	for _, id := range c.Armor {
		a, ok := r.armor[id]
		if !ok {
			return nil, fmt.Errorf("character %q: unknown armor %q", c.ID, id)
		}
		ch.Armor = append(ch.Armor, newArmor(a))
	}
	return combat.NewCharacterCombatant(uuid.NewString(), c.Name, ch), nil
}

func newWeapon(w *WeaponDef) *combat.Weapon {
	str, _ := ParseStrength(w.Strength)
	t := combat.Melee
	if w.Type == "missile" {
		t = combat.Missile
	}
	return &combat.Weapon{
		ID:               w.ID,
		Name:             w.Name,
		Type:             t,
		Length:           w.Length,
		Strength:         str,
		Sharpness:        w.Sharpness,
		Speed:            w.Speed,
		AlertedSharpness: w.AlertedSharpness,
		AlertedSpeed:     w.AlertedSpeed,
	}
}

func newArmor(a *ArmorDef) *combat.Armor {
	rank, _ := ParseStrength(a.Rank)
	guard, _ := combat.ParseAttackType(a.Guard)
	return &combat.Armor{
		ID:       a.ID,
		Name:     a.Name,
		Slot:     armorSlots[a.Slot],
		Rank:     rank,
		Guard:    guard,
		Treasure: a.Treasure,
		Native:   a.Native,
	}
}

// Stage builds the clearing of scenario id with every placed combatant in it.
// Hired denizens are controlled by the character placement named in hired_by.
func (r *Registry) Stage(id string) (*board.Clearing, error) {
	s, ok := r.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", id)
	}
	name := s.Name
	if name == "" {
		name = s.Clearing
	}
	clr := board.NewClearing(s.Clearing, name)
	placed := make(map[string]*combat.Combatant, len(s.Characters))
	for _, p := range s.Characters {
		c, err := r.SpawnCharacter(p.Character)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.ID, err)
		}
		c.Character.Hidden = p.Hidden
		placed[p.Character] = c
		clr.Put(c)
	}
	for _, p := range s.Denizens {
		n := max(p.Count, 1)
		for i := 1; i <= n; i++ {
			c, err := r.SpawnDenizen(p.Denizen)
			if err != nil {
				return nil, fmt.Errorf("scenario %q: %w", s.ID, err)
			}
			if n > 1 {
				c.Name = fmt.Sprintf("%s %d", c.Name, i)
			}
			if p.Side == "dark" {
				c.Denizen.Side = combat.DarkSide
			}
			if p.HiredBy != "" {
				owner, ok := placed[p.HiredBy]
				if !ok {
					return nil, fmt.Errorf("scenario %q: %q is not placed", s.ID, p.HiredBy)
				}
				c.Denizen.ControllerID = owner.ID
				c.Denizen.Hostile = false
			}
			clr.Put(c)
		}
	}
	return clr, nil
}
