package combat

// AttackerData places a denizen in an attacker box of a sheet.
type AttackerData struct {
	ID     string
	Attack AttackType
}

// DefenderData places a denizen in a defender box of a sheet.
type DefenderData struct {
	ID      string
	Defense DefenseType
}

// CharacterData holds a character owner's equipment and per-round selections.
type CharacterData struct {
	Weapon *Weapon
	Armor  [4]*Armor

	AttackChit   *Chit
	AttackType   AttackType
	ManeuverChit *Chit
	ManeuverType DefenseType

	// PendingWounds counts wounds the character must still assign to chits.
	PendingWounds int
	// FatigueDue counts effort asterisks the character must still fatigue.
	FatigueDue int
}

func newCharacterData(ch *Character) *CharacterData {
	d := &CharacterData{Weapon: ch.Weapon}
	for _, a := range ch.Armor {
		if a != nil && int(a.Slot) < len(d.Armor) && d.Armor[a.Slot] == nil {
			d.Armor[a.Slot] = a
		}
	}
	return d
}

// armorAgainst returns the first armor piece standing in the way of dir.
func (d *CharacterData) armorAgainst(dir AttackType) *Armor {
	for _, slot := range ArmorSlots {
		if a := d.Armor[slot]; a != nil && a.Protects(dir) {
			return a
		}
	}
	return nil
}

func (d *CharacterData) clearSelections() {
	d.AttackChit = nil
	d.AttackType = AttackNone
	d.ManeuverChit = nil
	d.ManeuverType = DefenseNone
	d.FatigueDue = 0
}

// CombatSheet pairs an owner with the denizens fighting on its sheet.
//
// Invariant: a combatant ID appears at most once across Attackers, Defenders
// and DefenderTarget; DefenderTarget, when set, names the owner.
type CombatSheet struct {
	Owner     string
	Character *CharacterData
	// Attackers is ordered most-recent-first.
	Attackers []AttackerData
	// Defenders is ordered most-recent-first.
	Defenders      []DefenderData
	DefenderTarget *DefenderData
}

// Holds reports whether id occupies any box on the sheet.
func (s *CombatSheet) Holds(id string) bool {
	return s.attackerIndex(id) >= 0 || s.defenderIndex(id) >= 0 ||
		(s.DefenderTarget != nil && s.DefenderTarget.ID == id)
}

// Members returns the IDs in the attacker and defender boxes.
func (s *CombatSheet) Members() []string {
	ids := make([]string, 0, len(s.Attackers)+len(s.Defenders))
	for _, a := range s.Attackers {
		ids = append(ids, a.ID)
	}
	for _, d := range s.Defenders {
		ids = append(ids, d.ID)
	}
	return ids
}

// IsEmpty reports whether no one fights in the attacker or defender boxes.
func (s *CombatSheet) IsEmpty() bool {
	return len(s.Attackers) == 0 && len(s.Defenders) == 0
}

func (s *CombatSheet) attackerIndex(id string) int {
	for i, a := range s.Attackers {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *CombatSheet) defenderIndex(id string) int {
	for i, d := range s.Defenders {
		if d.ID == id {
			return i
		}
	}
	return -1
}

func (s *CombatSheet) remove(id string) {
	if i := s.attackerIndex(id); i >= 0 {
		s.Attackers = append(s.Attackers[:i], s.Attackers[i+1:]...)
	}
	if i := s.defenderIndex(id); i >= 0 {
		s.Defenders = append(s.Defenders[:i], s.Defenders[i+1:]...)
	}
	if s.DefenderTarget != nil && s.DefenderTarget.ID == id {
		s.DefenderTarget = nil
	}
}

// defenseCounts returns how many defenders occupy each defense box.
func (s *CombatSheet) defenseCounts() map[DefenseType]int {
	counts := make(map[DefenseType]int, len(DefenseTypes))
	for _, d := range DefenseTypes {
		counts[d] = 0
	}
	for _, d := range s.Defenders {
		if d.Defense != DefenseNone {
			counts[d.Defense]++
		}
	}
	return counts
}
