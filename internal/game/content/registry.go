package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry holds every loaded definition, indexed by ID.
type Registry struct {
	denizens   map[string]*DenizenDef
	characters map[string]*CharacterDef
	weapons    map[string]*WeaponDef
	armor      map[string]*ArmorDef
	scenarios  map[string]*ScenarioDef
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		denizens:   make(map[string]*DenizenDef),
		characters: make(map[string]*CharacterDef),
		weapons:    make(map[string]*WeaponDef),
		armor:      make(map[string]*ArmorDef),
		scenarios:  make(map[string]*ScenarioDef),
	}
}

type definition interface {
	Validate() error
}

func add[T definition](m map[string]T, kind, id string, def T) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := m[id]; exists {
		return fmt.Errorf("duplicate %s ID: %q", kind, id)
	}
	m[id] = def
	return nil
}

// AddDenizen validates and registers d.
func (r *Registry) AddDenizen(d *DenizenDef) error { return add(r.denizens, "denizen", d.ID, d) }

// AddCharacter validates and registers c.
func (r *Registry) AddCharacter(c *CharacterDef) error {
	return add(r.characters, "character", c.ID, c)
}

// AddWeapon validates and registers w.
func (r *Registry) AddWeapon(w *WeaponDef) error { return add(r.weapons, "weapon", w.ID, w) }

// AddArmor validates and registers a.
func (r *Registry) AddArmor(a *ArmorDef) error { return add(r.armor, "armor", a.ID, a) }

// AddScenario validates and registers s.
func (r *Registry) AddScenario(s *ScenarioDef) error { return add(r.scenarios, "scenario", s.ID, s) }

// Denizen returns the denizen definition with the given ID.
func (r *Registry) Denizen(id string) (*DenizenDef, bool) {
	d, ok := r.denizens[id]
	return d, ok
}

// Character returns the character definition with the given ID.
func (r *Registry) Character(id string) (*CharacterDef, bool) {
	c, ok := r.characters[id]
	return c, ok
}

// Scenario returns the scenario definition with the given ID.
func (r *Registry) Scenario(id string) (*ScenarioDef, bool) {
	sc, ok := r.scenarios[id]
	return sc, ok
}

// ScenarioIDs returns every scenario ID, sorted.
func (r *Registry) ScenarioIDs() []string {
	ids := make([]string, 0, len(r.scenarios))
	for id := range r.scenarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks cross-references between definitions.
//
// Postcondition: Returns nil iff every weapon, armor, character and denizen
// reference resolves; otherwise the error lists every dangling reference.
func (r *Registry) Validate() error {
	var errs []error
	for _, c := range r.characters {
		if c.Weapon != "" {
			if _, ok := r.weapons[c.Weapon]; !ok {
				errs = append(errs, fmt.Errorf("character %q: unknown weapon %q", c.ID, c.Weapon))
			}
		}
		for _, a := range c.Armor {
			if _, ok := r.armor[a]; !ok {
				errs = append(errs, fmt.Errorf("character %q: unknown armor %q", c.ID, a))
			}
		}
	}
	for _, s := range r.scenarios {
		placed := make(map[string]bool, len(s.Characters))
		for _, p := range s.Characters {
			if _, ok := r.characters[p.Character]; !ok {
				errs = append(errs, fmt.Errorf("scenario %q: unknown character %q", s.ID, p.Character))
			}
			placed[p.Character] = true
		}
		for _, p := range s.Denizens {
			if _, ok := r.denizens[p.Denizen]; !ok {
				errs = append(errs, fmt.Errorf("scenario %q: unknown denizen %q", s.ID, p.Denizen))
			}
			if p.HiredBy != "" && !placed[p.HiredBy] {
				errs = append(errs, fmt.Errorf("scenario %q: denizen %q hired by %q, who is not placed", s.ID, p.Denizen, p.HiredBy))
			}
		}
	}
	return errors.Join(errs...)
}

// LoadRegistry reads dir/denizens, dir/characters, dir/weapons, dir/armor and
// dir/scenarios, one definition per *.yaml file, and validates references.
// Missing subdirectories are treated as empty.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a validated Registry or the first load error.
func LoadRegistry(dir string) (*Registry, error) {
	r := NewRegistry()
	loaders := []struct {
		sub  string
		load func([]byte) error
	}{
		{"weapons", func(b []byte) error { return decode(b, r.AddWeapon) }},
		{"armor", func(b []byte) error { return decode(b, r.AddArmor) }},
		{"denizens", func(b []byte) error { return decode(b, r.AddDenizen) }},
		{"characters", func(b []byte) error { return decode(b, r.AddCharacter) }},
		{"scenarios", func(b []byte) error { return decode(b, r.AddScenario) }},
	}
	for _, l := range loaders {
		if err := loadDir(filepath.Join(dir, l.sub), l.load); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("validating content in %q: %w", dir, err)
	}
	return r, nil
}

func decode[T any](data []byte, add func(*T) error) error {
	var def T
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	return add(&def)
}

func loadDir(dir string, load func([]byte) error) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading content dir %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		if err := load(data); err != nil {
			return fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return nil
}
