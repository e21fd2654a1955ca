// Package content loads denizen, character, weapon, armor and scenario
// definitions from YAML and spawns combatants from them.
package content

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// strengths maps YAML rank names to combat ranks.
var strengths = map[string]combat.Strength{
	"negligible": combat.Negligible,
	"light":      combat.Light,
	"medium":     combat.Medium,
	"heavy":      combat.Heavy,
	"tremendous": combat.Tremendous,
}

// ParseStrength maps a rank name (case-insensitive) to a combat.Strength.
func ParseStrength(s string) (combat.Strength, error) {
	if v, ok := strengths[strings.ToLower(s)]; ok {
		return v, nil
	}
	return combat.Negligible, fmt.Errorf("unknown strength %q", s)
}

// SpoilsDef is the YAML form of combat.Spoils.
type SpoilsDef struct {
	Fame      int `yaml:"fame"`
	Notoriety int `yaml:"notoriety"`
	Gold      int `yaml:"gold"`
}

func (s SpoilsDef) validate() error {
	if s.Fame < 0 || s.Notoriety < 0 || s.Gold < 0 {
		return fmt.Errorf("spoils must not be negative")
	}
	return nil
}

func (s SpoilsDef) spoils() combat.Spoils {
	return combat.Spoils{Fame: s.Fame, Notoriety: s.Notoriety, Gold: s.Gold}
}

// SideDef is one face of a denizen counter.
type SideDef struct {
	Strength    string `yaml:"strength"`
	Sharpness   int    `yaml:"sharpness"`
	AttackSpeed int    `yaml:"attack_speed"`
	MoveSpeed   int    `yaml:"move_speed"`
	Length      int    `yaml:"length"`
	Missile     bool   `yaml:"missile"`
}

func (s SideDef) validate() error {
	if _, err := ParseStrength(s.Strength); err != nil {
		return err
	}
	if s.Sharpness < 0 || s.AttackSpeed < 0 || s.MoveSpeed < 0 || s.Length < 0 {
		return fmt.Errorf("sharpness, speeds and length must not be negative")
	}
	return nil
}

func (s SideDef) stats() combat.SideStats {
	str, _ := ParseStrength(s.Strength)
	w := combat.Melee
	if s.Missile {
		w = combat.Missile
	}
	return combat.SideStats{
		Strength:    str,
		Sharpness:   s.Sharpness,
		AttackSpeed: s.AttackSpeed,
		MoveSpeed:   s.MoveSpeed,
		Length:      s.Length,
		Weapon:      w,
	}
}

// HorseDef describes a native's mount.
type HorseDef struct {
	Walk   int `yaml:"walk"`
	Gallop int `yaml:"gallop"`
}

// DenizenDef defines a monster or native counter.
type DenizenDef struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	Weight  string    `yaml:"weight"`
	Armored bool      `yaml:"armored"`
	Hostile bool      `yaml:"hostile"`
	Light   SideDef   `yaml:"light"`
	Dark    SideDef   `yaml:"dark"`
	Horse   *HorseDef `yaml:"horse"`
	Spoils  SpoilsDef `yaml:"spoils"`
}

// Validate checks that the definition can be spawned.
//
// Postcondition: Returns nil iff ID and Name are non-empty and every rank and
// stat is valid; returns an error on the first violation otherwise.
func (d *DenizenDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("denizen: id must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("denizen %q: name must not be empty", d.ID)
	}
	if _, err := ParseStrength(d.Weight); err != nil {
		return fmt.Errorf("denizen %q: weight: %w", d.ID, err)
	}
	if err := d.Light.validate(); err != nil {
		return fmt.Errorf("denizen %q: light side: %w", d.ID, err)
	}
	if err := d.Dark.validate(); err != nil {
		return fmt.Errorf("denizen %q: dark side: %w", d.ID, err)
	}
	if d.Horse != nil && (d.Horse.Walk < 1 || d.Horse.Gallop < 1) {
		return fmt.Errorf("denizen %q: horse speeds must be >= 1", d.ID)
	}
	if err := d.Spoils.validate(); err != nil {
		return fmt.Errorf("denizen %q: %w", d.ID, err)
	}
	return nil
}

// ChitDef defines one action chit.
type ChitDef struct {
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind"`
	Strength string `yaml:"strength"`
	Speed    int    `yaml:"speed"`
	Effort   int    `yaml:"effort"`
}

func (c ChitDef) validate() error {
	if c.ID == "" {
		return fmt.Errorf("chit id must not be empty")
	}
	if c.Kind != "fight" && c.Kind != "move" {
		return fmt.Errorf("chit %q: kind must be one of [fight, move], got %q", c.ID, c.Kind)
	}
	if _, err := ParseStrength(c.Strength); err != nil {
		return fmt.Errorf("chit %q: %w", c.ID, err)
	}
	if c.Speed < 0 || c.Effort < 0 {
		return fmt.Errorf("chit %q: speed and effort must not be negative", c.ID)
	}
	return nil
}

// WeaponDef defines a character weapon.
type WeaponDef struct {
	ID               string `yaml:"id"`
	Name             string `yaml:"name"`
	Type             string `yaml:"type"`
	Length           int    `yaml:"length"`
	Strength         string `yaml:"strength"`
	Sharpness        int    `yaml:"sharpness"`
	Speed            int    `yaml:"speed"`
	AlertedSharpness int    `yaml:"alerted_sharpness"`
	AlertedSpeed     int    `yaml:"alerted_speed"`
}

// Validate checks the weapon definition.
func (w *WeaponDef) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("weapon: id must not be empty")
	}
	if w.Type != "melee" && w.Type != "missile" {
		return fmt.Errorf("weapon %q: type must be one of [melee, missile], got %q", w.ID, w.Type)
	}
	if _, err := ParseStrength(w.Strength); err != nil {
		return fmt.Errorf("weapon %q: %w", w.ID, err)
	}
	if w.Length < 0 || w.Sharpness < 0 || w.Speed < 0 || w.AlertedSharpness < 0 || w.AlertedSpeed < 0 {
		return fmt.Errorf("weapon %q: length, sharpness and speeds must not be negative", w.ID)
	}
	return nil
}

var armorSlots = map[string]combat.ArmorSlot{
	"shield":      combat.SlotShield,
	"helmet":      combat.SlotHelmet,
	"breastplate": combat.SlotBreastplate,
	"suit":        combat.SlotSuit,
}

// ArmorDef defines an armor counter.
type ArmorDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Slot string `yaml:"slot"`
	Rank string `yaml:"rank"`
	// Guard is the attack direction a shield protects against.
	Guard    string `yaml:"guard"`
	Treasure bool   `yaml:"treasure"`
	Native   string `yaml:"native"`
}

// Validate checks the armor definition.
func (a *ArmorDef) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("armor: id must not be empty")
	}
	slot, ok := armorSlots[a.Slot]
	if !ok {
		return fmt.Errorf("armor %q: slot must be one of [shield, helmet, breastplate, suit], got %q", a.ID, a.Slot)
	}
	if _, err := ParseStrength(a.Rank); err != nil {
		return fmt.Errorf("armor %q: rank: %w", a.ID, err)
	}
	if slot == combat.SlotShield {
		if _, ok := combat.ParseAttackType(a.Guard); !ok {
			return fmt.Errorf("armor %q: shield guard must be one of [thrust, swing, smash], got %q", a.ID, a.Guard)
		}
	}
	return nil
}

// CharacterDef defines a playable character.
type CharacterDef struct {
	ID            string    `yaml:"id"`
	Name          string    `yaml:"name"`
	Vulnerability string    `yaml:"vulnerability"`
	Chits         []ChitDef `yaml:"chits"`
	// Weapon is a WeaponDef ID; empty means unarmed.
	Weapon string `yaml:"weapon"`
	// Armor lists ArmorDef IDs.
	Armor []string `yaml:"armor"`
	Gold  int      `yaml:"gold"`
}

// Validate checks the character definition in isolation; references to
// weapons and armor are checked by Registry.Validate.
func (c *CharacterDef) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("character: id must not be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("character %q: name must not be empty", c.ID)
	}
	if _, err := ParseStrength(c.Vulnerability); err != nil {
		return fmt.Errorf("character %q: vulnerability: %w", c.ID, err)
	}
	if len(c.Chits) == 0 {
		return fmt.Errorf("character %q: must have at least one chit", c.ID)
	}
	seen := make(map[string]bool, len(c.Chits))
	for _, ch := range c.Chits {
		if err := ch.validate(); err != nil {
			return fmt.Errorf("character %q: %w", c.ID, err)
		}
		if seen[ch.ID] {
			return fmt.Errorf("character %q: duplicate chit %q", c.ID, ch.ID)
		}
		seen[ch.ID] = true
	}
	if c.Gold < 0 {
		return fmt.Errorf("character %q: gold must not be negative", c.ID)
	}
	return nil
}

// CharacterPlacement puts a character into a scenario.
type CharacterPlacement struct {
	Character string `yaml:"character"`
	Hidden    bool   `yaml:"hidden"`
}

// DenizenPlacement puts one or more denizens into a scenario.
type DenizenPlacement struct {
	Denizen string `yaml:"denizen"`
	Count   int    `yaml:"count"`
	// HiredBy names a character placement whose character controls these denizens.
	HiredBy string `yaml:"hired_by"`
	// Side is "light" or "dark"; empty means light.
	Side string `yaml:"side"`
}

// ScenarioDef stages an encounter in a single clearing.
type ScenarioDef struct {
	ID         string               `yaml:"id"`
	Name       string               `yaml:"name"`
	Clearing   string               `yaml:"clearing"`
	Characters []CharacterPlacement `yaml:"characters"`
	Denizens   []DenizenPlacement   `yaml:"denizens"`
}

// Validate checks the scenario in isolation; references are checked by
// Registry.Validate.
func (s *ScenarioDef) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("scenario: id must not be empty")
	}
	if s.Clearing == "" {
		return fmt.Errorf("scenario %q: clearing must not be empty", s.ID)
	}
	if len(s.Characters)+len(s.Denizens) == 0 {
		return fmt.Errorf("scenario %q: must place at least one combatant", s.ID)
	}
	for _, d := range s.Denizens {
		if d.Count < 0 {
			return fmt.Errorf("scenario %q: denizen %q: count must not be negative", s.ID, d.Denizen)
		}
		if d.Side != "" && d.Side != "light" && d.Side != "dark" {
			return fmt.Errorf("scenario %q: denizen %q: side must be one of [light, dark], got %q", s.ID, d.Denizen, d.Side)
		}
	}
	return nil
}
