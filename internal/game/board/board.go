// Package board models the clearings that combat takes place in.
package board

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// Clearing is one location on the board. It satisfies combat.Location and
// combat.TreasureKeeper.
type Clearing struct {
	ID   string
	Name string

	mu        sync.Mutex
	occupants []*combat.Combatant
	// treasure holds items returned to native groups, keyed by group.
	treasure map[string][]*combat.Armor
}

// NewClearing creates an empty clearing.
//
// Precondition: id must be non-empty.
func NewClearing(id, name string) *Clearing {
	return &Clearing{ID: id, Name: name, treasure: make(map[string][]*combat.Armor)}
}

// LocationID returns the clearing ID.
func (c *Clearing) LocationID() string { return c.ID }

// Occupants returns a snapshot of the combatants in the clearing, in arrival order.
func (c *Clearing) Occupants() []*combat.Combatant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.occupants)
}

// Take removes x from the clearing. Unknown combatants are ignored.
func (c *Clearing) Take(x *combat.Combatant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.occupants = slices.DeleteFunc(c.occupants, func(o *combat.Combatant) bool { return o == x })
}

// Put places x in the clearing.
//
// Postcondition: x appears exactly once among the occupants; x.Location == c.ID.
func (c *Clearing) Put(x *combat.Combatant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	x.Location = c.ID
	if !slices.Contains(c.occupants, x) {
		c.occupants = append(c.occupants, x)
	}
}

// Occupant returns the occupant with the given ID.
func (c *Clearing) Occupant(id string) (*combat.Combatant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range c.occupants {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// ReturnTreasure hands destroyed treasure back to the native groups that own it.
func (c *Clearing) ReturnTreasure(byGroup map[string][]*combat.Armor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for group, items := range byGroup {
		for _, a := range items {
			a.Damaged = false
		}
		c.treasure[group] = append(c.treasure[group], items...)
	}
}

// Treasure returns the items held for a native group.
func (c *Clearing) Treasure(group string) []*combat.Armor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.treasure[group])
}

// TreasureGroups returns the native groups holding treasure here, sorted.
func (c *Clearing) TreasureGroups() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	groups := make([]string, 0, len(c.treasure))
	for g := range c.treasure {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Board indexes clearings by ID and is safe for concurrent use.
type Board struct {
	mu        sync.RWMutex
	clearings map[string]*Clearing
}

// New creates a Board from clearings.
//
// Postcondition: Returns an error on a duplicate clearing ID.
func New(clearings ...*Clearing) (*Board, error) {
	b := &Board{clearings: make(map[string]*Clearing, len(clearings))}
	for _, c := range clearings {
		if err := b.Add(c); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Add registers a clearing.
func (b *Board) Add(c *Clearing) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.clearings[c.ID]; exists {
		return fmt.Errorf("duplicate clearing ID: %q", c.ID)
	}
	b.clearings[c.ID] = c
	return nil
}

// Clearing returns the clearing with the given ID.
//
// Postcondition: Returns (clearing, true) if found, or (nil, false) otherwise.
func (b *Board) Clearing(id string) (*Clearing, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.clearings[id]
	return c, ok
}
