// Package combat implements the round-based combat engine for a contested
// clearing: combat sheets, the phase state machine, and attack resolution.
package combat

// Kind distinguishes player characters from denizens.
type Kind int

const (
	KindCharacter Kind = iota
	KindDenizen
)

// String returns a human-readable kind label.
func (k Kind) String() string {
	switch k {
	case KindCharacter:
		return "character"
	case KindDenizen:
		return "denizen"
	default:
		return "unknown"
	}
}

// Strength is a harm or vulnerability rank.
type Strength int

const (
	Negligible Strength = iota
	Light
	Medium
	Heavy
	Tremendous
)

// String returns the rank name.
func (s Strength) String() string {
	switch s {
	case Negligible:
		return "negligible"
	case Light:
		return "light"
	case Medium:
		return "medium"
	case Heavy:
		return "heavy"
	case Tremendous:
		return "tremendous"
	default:
		return "unknown"
	}
}

// ClampStrength converts a raw level count into a valid rank.
//
// Postcondition: Negligible <= result <= Tremendous.
func ClampStrength(level int) Strength {
	switch {
	case level < int(Negligible):
		return Negligible
	case level > int(Tremendous):
		return Tremendous
	default:
		return Strength(level)
	}
}

// AttackType is the direction an attack comes from.
type AttackType int

const (
	AttackNone AttackType = iota
	Thrust
	Swing
	Smash
)

// AttackTypes lists the real attack directions in table order.
var AttackTypes = []AttackType{Thrust, Swing, Smash}

// String returns a lower-case direction name.
func (a AttackType) String() string {
	switch a {
	case Thrust:
		return "thrust"
	case Swing:
		return "swing"
	case Smash:
		return "smash"
	default:
		return "none"
	}
}

// Pair returns the defense direction that an attack in direction a intercepts.
func (a AttackType) Pair() DefenseType {
	switch a {
	case Thrust:
		return Charge
	case Swing:
		return Dodge
	case Smash:
		return Duck
	default:
		return DefenseNone
	}
}

// DefenseType is the maneuver a defender uses.
type DefenseType int

const (
	DefenseNone DefenseType = iota
	Charge
	Dodge
	Duck
)

// DefenseTypes lists the real defense directions in table order.
var DefenseTypes = []DefenseType{Charge, Dodge, Duck}

// String returns a lower-case maneuver name.
func (d DefenseType) String() string {
	switch d {
	case Charge:
		return "charge"
	case Dodge:
		return "dodge"
	case Duck:
		return "duck"
	default:
		return "none"
	}
}

// Pair returns the attack direction that intercepts maneuver d.
func (d DefenseType) Pair() AttackType {
	switch d {
	case Charge:
		return Thrust
	case Dodge:
		return Swing
	case Duck:
		return Smash
	default:
		return AttackNone
	}
}

// ParseAttackType maps a direction name to an AttackType.
func ParseAttackType(s string) (AttackType, bool) {
	for _, a := range AttackTypes {
		if a.String() == s {
			return a, true
		}
	}
	return AttackNone, false
}

// ParseDefenseType maps a maneuver name to a DefenseType.
func ParseDefenseType(s string) (DefenseType, bool) {
	for _, d := range DefenseTypes {
		if d.String() == s {
			return d, true
		}
	}
	return DefenseNone, false
}

// WeaponType distinguishes hand weapons from missile weapons.
type WeaponType int

const (
	Melee WeaponType = iota
	Missile
)

// String returns "melee" or "missile".
func (w WeaponType) String() string {
	if w == Missile {
		return "missile"
	}
	return "melee"
}

// Side selects which of a denizen's two stat blocks is face up.
type Side int

const (
	LightSide Side = iota
	DarkSide
)

// Flip returns the other side.
func (s Side) Flip() Side {
	if s == LightSide {
		return DarkSide
	}
	return LightSide
}

// String returns "light" or "dark".
func (s Side) String() string {
	if s == DarkSide {
		return "dark"
	}
	return "light"
}

// HitKind classifies the outcome of a hit test.
type HitKind int

const (
	Miss HitKind = iota
	Intercept
	Undercut
)

// String returns a human-readable hit label.
func (h HitKind) String() string {
	switch h {
	case Intercept:
		return "intercepted"
	case Undercut:
		return "undercut"
	default:
		return "missed"
	}
}

// HitTest decides whether an attack lands. Undercut takes precedence over the
// direction match.
//
// Postcondition: Undercut iff attackSpeed < moveSpeed; otherwise Intercept iff
// atk is a real direction and def is None or atk's paired maneuver; Miss otherwise.
func HitTest(attackSpeed, moveSpeed int, atk AttackType, def DefenseType) HitKind {
	if attackSpeed < moveSpeed {
		return Undercut
	}
	if atk == AttackNone {
		return Miss
	}
	if def == DefenseNone || atk.Pair() == def {
		return Intercept
	}
	return Miss
}

// HarmLevel returns the clamped harm an attack inflicts.
//
// Postcondition: result == ClampStrength(strength + sharpness + bonus).
func HarmLevel(strength Strength, sharpness, bonus int) Strength {
	return ClampStrength(int(strength) + sharpness + bonus)
}

// Spoils is what a kill is worth.
type Spoils struct {
	Fame      int
	Notoriety int
	Gold      int
}

// Add returns the field-wise sum of s and o.
func (s Spoils) Add(o Spoils) Spoils {
	return Spoils{Fame: s.Fame + o.Fame, Notoriety: s.Notoriety + o.Notoriety, Gold: s.Gold + o.Gold}
}

// IsZero reports whether every field is zero.
func (s Spoils) IsZero() bool { return s == Spoils{} }

// Split divides s into n shares. Remainders go one unit at a time to the
// earliest shares.
//
// Precondition: n >= 1; every field of s is >= 0.
// Postcondition: the shares sum to s; no two shares differ by more than one per field.
func (s Spoils) Split(n int) []Spoils {
	shares := make([]Spoils, n)
	split := func(total int, set func(i, v int)) {
		base, rem := total/n, total%n
		for i := 0; i < n; i++ {
			v := base
			if i < rem {
				v++
			}
			set(i, v)
		}
	}
	split(s.Fame, func(i, v int) { shares[i].Fame = v })
	split(s.Notoriety, func(i, v int) { shares[i].Notoriety = v })
	split(s.Gold, func(i, v int) { shares[i].Gold = v })
	return shares
}
