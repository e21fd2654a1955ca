package combat

// NoSpeed is the time value of a combatant that played no chit. It is slower
// than anything printed on a counter, so any real attack undercuts it.
const NoSpeed = 99

// ChitKind distinguishes fight chits from move chits.
type ChitKind int

const (
	ChitFight ChitKind = iota
	ChitMove
)

// String returns "fight" or "move".
func (k ChitKind) String() string {
	if k == ChitMove {
		return "move"
	}
	return "fight"
}

// ChitState tracks whether a chit can be played.
type ChitState int

const (
	ChitActive ChitState = iota
	ChitFatigued
	ChitWounded
)

// Chit is one of a character's action chits.
type Chit struct {
	ID       string
	Kind     ChitKind
	Strength Strength
	Speed    int
	// Effort is the number of effort asterisks the chit costs when played.
	Effort int
	State  ChitState
}

// Weapon is a character's or denizen's hand or missile weapon.
type Weapon struct {
	ID        string
	Name      string
	Type      WeaponType
	Length    int
	Strength  Strength
	Sharpness int
	// Speed is the weapon's attack time; 0 means the attack chit's speed applies.
	Speed            int
	AlertedSharpness int
	AlertedSpeed     int
	Alerted          bool
}

// CurrentSharpness returns the sharpness of the face-up side.
func (w *Weapon) CurrentSharpness() int {
	if w.Alerted {
		return w.AlertedSharpness
	}
	return w.Sharpness
}

// CurrentSpeed returns the attack time of the face-up side, or 0 if the weapon
// has none.
func (w *Weapon) CurrentSpeed() int {
	if w.Alerted {
		return w.AlertedSpeed
	}
	return w.Speed
}

// ArmorSlot is the position an armor counter occupies on a sheet.
type ArmorSlot int

const (
	SlotShield ArmorSlot = iota
	SlotHelmet
	SlotBreastplate
	SlotSuit
)

// ArmorSlots lists the slots in the order they absorb hits.
var ArmorSlots = []ArmorSlot{SlotShield, SlotHelmet, SlotBreastplate, SlotSuit}

// String returns the slot name.
func (s ArmorSlot) String() string {
	switch s {
	case SlotShield:
		return "shield"
	case SlotHelmet:
		return "helmet"
	case SlotBreastplate:
		return "breastplate"
	case SlotSuit:
		return "suit of armor"
	default:
		return "unknown"
	}
}

// Armor is one armor counter.
type Armor struct {
	ID   string
	Name string
	Slot ArmorSlot
	// Rank is the harm needed to damage the armor.
	Rank Strength
	// Guard is the attack direction a shield is held against.
	Guard    AttackType
	Damaged  bool
	Treasure bool
	// Native is the native group that owns treasure armor when it is destroyed.
	Native string
}

// Protects reports whether the armor stands in the way of an attack from dir.
func (a *Armor) Protects(dir AttackType) bool {
	if dir == AttackNone {
		return false
	}
	switch a.Slot {
	case SlotShield:
		return a.Guard == dir
	case SlotHelmet:
		return dir == Smash
	case SlotBreastplate:
		return dir == Thrust || dir == Swing
	case SlotSuit:
		return true
	default:
		return false
	}
}

// Character holds the equipment and chits of a player-controlled combatant.
type Character struct {
	Vulnerability Strength
	Chits         []*Chit
	Weapon        *Weapon
	Armor         []*Armor
	Hidden        bool
	// Spoils accumulates what this character has earned.
	Spoils Spoils
}

// Chit returns the chit with the given ID, or nil.
func (ch *Character) Chit(id string) *Chit {
	for _, c := range ch.Chits {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// SideStats is one face of a denizen counter.
type SideStats struct {
	Strength    Strength
	Sharpness   int
	AttackSpeed int
	MoveSpeed   int
	Length      int
	Weapon      WeaponType
}

// Horse is a native's mount; it flips between walk and gallop.
type Horse struct {
	WalkSpeed   int
	GallopSpeed int
	Galloping   bool
}

// MoveSpeed returns the face-up move time.
func (h *Horse) MoveSpeed() int {
	if h.Galloping {
		return h.GallopSpeed
	}
	return h.WalkSpeed
}

// Denizen holds the counter data of a monster or native.
type Denizen struct {
	// Weight is the denizen's vulnerability.
	Weight  Strength
	Armored bool
	Hostile bool
	Light   SideStats
	Dark    SideStats
	Side    Side
	Horse   *Horse
	// ControllerID is the ID of the character that hired this denizen; empty
	// for uncontrolled denizens.
	ControllerID string
	Spoils       Spoils
}

// Stats returns the face-up stat block.
func (d *Denizen) Stats() SideStats {
	if d.Side == DarkSide {
		return d.Dark
	}
	return d.Light
}

// IsTremendous reports whether the denizen has tremendous weight.
func (d *Denizen) IsTremendous() bool { return d.Weight == Tremendous }

// Combatant is one participant in a combat session: a character or a denizen,
// selected by Kind. References to other combatants and sheets are weak handles
// (IDs) resolved through the owning Session.
type Combatant struct {
	ID        string
	Name      string
	Kind      Kind
	Character *Character
	Denizen   *Denizen
	// Location is the ID of the clearing the combatant occupies.
	Location string
	Dead     bool

	target     string
	sheetOwner string
	lurer      string
	hasLured   bool
	killers    []string
	woundedBy  []string
	data       *CharacterData
}

// NewCharacterCombatant wraps ch as a combatant.
//
// Precondition: id is non-empty; ch is non-nil.
func NewCharacterCombatant(id, name string, ch *Character) *Combatant {
	return &Combatant{ID: id, Name: name, Kind: KindCharacter, Character: ch}
}

// NewDenizenCombatant wraps d as a combatant.
//
// Precondition: id is non-empty; d is non-nil.
func NewDenizenCombatant(id, name string, d *Denizen) *Combatant {
	return &Combatant{ID: id, Name: name, Kind: KindDenizen, Denizen: d}
}

// IsCharacter reports whether c is player-controlled.
func (c *Combatant) IsCharacter() bool { return c.Kind == KindCharacter }

// IsDenizen reports whether c is a denizen.
func (c *Combatant) IsDenizen() bool { return c.Kind == KindDenizen }

// IsControlled reports whether a player decides c's actions: characters always,
// denizens when hired.
func (c *Combatant) IsControlled() bool {
	switch c.Kind {
	case KindCharacter:
		return true
	case KindDenizen:
		return c.Denizen.ControllerID != ""
	default:
		return false
	}
}

// ControllerID returns the ID of the character whose spoils c's kills earn.
func (c *Combatant) ControllerID() string {
	if c.Kind == KindCharacter {
		return c.ID
	}
	return c.Denizen.ControllerID
}

// IsRedSideMonster reports whether c is a tremendous denizen on its dark side.
func (c *Combatant) IsRedSideMonster() bool {
	return c.Kind == KindDenizen && c.Denizen.IsTremendous() && c.Denizen.Side == DarkSide
}

// TargetID returns the ID of the combatant c is attacking, or "".
func (c *Combatant) TargetID() string { return c.target }

// SheetOwnerID returns the owner ID of the sheet c occupies, or "".
func (c *Combatant) SheetOwnerID() string { return c.sheetOwner }

// LurerID returns the ID of the combatant that lured c, or "".
func (c *Combatant) LurerID() string { return c.lurer }

// Killers returns the IDs of the combatants credited with killing c.
func (c *Combatant) Killers() []string {
	out := make([]string, len(c.killers))
	copy(out, c.killers)
	return out
}

// Data returns the character's per-combat selections, or nil for denizens and
// characters outside combat.
func (c *Combatant) Data() *CharacterData { return c.data }

// CurrentStrength returns the harm level c inflicts before sharpness.
// A character's fight chit stronger than its weapon raises the weapon's harm by one.
func (c *Combatant) CurrentStrength() Strength {
	switch c.Kind {
	case KindDenizen:
		return c.Denizen.Stats().Strength
	case KindCharacter:
		chitStr := Negligible
		if c.data != nil && c.data.AttackChit != nil {
			chitStr = c.data.AttackChit.Strength
		}
		w := c.weapon()
		if w == nil {
			return chitStr
		}
		if chitStr > w.Strength {
			return ClampStrength(int(w.Strength) + 1)
		}
		return w.Strength
	default:
		return Negligible
	}
}

// CurrentAttackSpeed returns c's attack time; lower is faster.
func (c *Combatant) CurrentAttackSpeed() int {
	switch c.Kind {
	case KindDenizen:
		return c.Denizen.Stats().AttackSpeed
	case KindCharacter:
		if w := c.weapon(); w != nil && w.CurrentSpeed() > 0 {
			return w.CurrentSpeed()
		}
		if c.data != nil && c.data.AttackChit != nil {
			return c.data.AttackChit.Speed
		}
		return NoSpeed
	default:
		return NoSpeed
	}
}

// CurrentMoveSpeed returns c's maneuver time; lower is faster.
func (c *Combatant) CurrentMoveSpeed() int {
	switch c.Kind {
	case KindDenizen:
		if c.Denizen.Horse != nil {
			return c.Denizen.Horse.MoveSpeed()
		}
		return c.Denizen.Stats().MoveSpeed
	case KindCharacter:
		if c.data != nil && c.data.ManeuverChit != nil {
			return c.data.ManeuverChit.Speed
		}
		return NoSpeed
	default:
		return NoSpeed
	}
}

// CurrentSharpness returns c's sharpness stars.
func (c *Combatant) CurrentSharpness() int {
	switch c.Kind {
	case KindDenizen:
		return c.Denizen.Stats().Sharpness
	case KindCharacter:
		if w := c.weapon(); w != nil {
			return w.CurrentSharpness()
		}
		return 0
	default:
		return 0
	}
}

// WeaponType returns whether c attacks with a missile weapon.
func (c *Combatant) WeaponType() WeaponType {
	switch c.Kind {
	case KindDenizen:
		return c.Denizen.Stats().Weapon
	case KindCharacter:
		if w := c.weapon(); w != nil {
			return w.Type
		}
	}
	return Melee
}

// WeaponLength returns c's weapon length; 0 when unarmed.
func (c *Combatant) WeaponLength() int {
	switch c.Kind {
	case KindDenizen:
		return c.Denizen.Stats().Length
	case KindCharacter:
		if w := c.weapon(); w != nil {
			return w.Length
		}
	}
	return 0
}

// Bounty returns what killing c is worth.
func (c *Combatant) Bounty() Spoils {
	switch c.Kind {
	case KindDenizen:
		return c.Denizen.Spoils
	case KindCharacter:
		return Spoils{Gold: c.Character.Spoils.Gold}
	default:
		return Spoils{}
	}
}

func (c *Combatant) weapon() *Weapon {
	if c.data != nil {
		return c.data.Weapon
	}
	if c.Character != nil {
		return c.Character.Weapon
	}
	return nil
}

func (c *Combatant) clearCombatRefs() {
	c.target = ""
	c.sheetOwner = ""
	c.lurer = ""
	c.hasLured = false
	c.woundedBy = nil
	c.data = nil
}
