package combat

// repositionRows lists, for each die roll, where the first, second and third
// boxes move to. Every row is a permutation of {0, 1, 2}.
var repositionRows = [6][3]int{
	{0, 1, 2},
	{0, 2, 1},
	{1, 0, 2},
	{2, 1, 0},
	{1, 2, 0},
	{2, 0, 1},
}

// missileBonus is the harm adjustment a missile weapon gets per die roll.
var missileBonus = [6]int{2, 1, 0, -1, -2, -3}

// RepositionAttack maps an attack direction through the row for roll.
// AttackNone and out-of-range rolls return a unchanged.
func RepositionAttack(roll int, a AttackType) AttackType {
	if roll < 1 || roll > 6 || a == AttackNone {
		return a
	}
	return AttackTypes[repositionRows[roll-1][int(a)-1]]
}

// RepositionDefense maps a defense direction through the row for roll.
// DefenseNone and out-of-range rolls return d unchanged.
func RepositionDefense(roll int, d DefenseType) DefenseType {
	if roll < 1 || roll > 6 || d == DefenseNone {
		return d
	}
	return DefenseTypes[repositionRows[roll-1][int(d)-1]]
}

// MissileBonus returns the missile table harm adjustment for roll.
//
// Precondition: 1 <= roll <= 6; other rolls return 0.
func MissileBonus(roll int) int {
	if roll < 1 || roll > 6 {
		return 0
	}
	return missileBonus[roll-1]
}

// maxPlacementRolls bounds the re-roll loop of pickBalancedDefense.
const maxPlacementRolls = 64

// pickBalancedDefense chooses a defense box for a new defender: rolls map
// uniformly onto the three boxes and are repeated until the chosen box is one
// of the least occupied. After maxPlacementRolls the first least-occupied box
// is used.
func pickBalancedDefense(counts map[DefenseType]int, roll func() int) DefenseType {
	lowest := -1
	for _, d := range DefenseTypes {
		if lowest < 0 || counts[d] < lowest {
			lowest = counts[d]
		}
	}
	for i := 0; i < maxPlacementRolls; i++ {
		d := DefenseTypes[(roll()-1)/2%len(DefenseTypes)]
		if counts[d] == lowest {
			return d
		}
	}
	for _, d := range DefenseTypes {
		if counts[d] == lowest {
			return d
		}
	}
	return Charge
}
