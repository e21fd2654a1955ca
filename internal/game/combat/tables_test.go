package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRepositionRows_ArePermutations(t *testing.T) {
	for i, row := range repositionRows {
		seen := map[int]bool{}
		for _, v := range row {
			seen[v] = true
		}
		assert.Len(t, seen, 3, "row %d", i+1)
	}
	assert.Equal(t, [3]int{0, 1, 2}, repositionRows[0])
}

func TestReposition_IsBijective(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		roll := rapid.IntRange(1, 6).Draw(rt, "roll")
		atk := map[AttackType]bool{}
		for _, a := range AttackTypes {
			atk[RepositionAttack(roll, a)] = true
		}
		def := map[DefenseType]bool{}
		for _, d := range DefenseTypes {
			def[RepositionDefense(roll, d)] = true
		}
		assert.Len(rt, atk, 3)
		assert.Len(rt, def, 3)
	})
}

func TestReposition_NoneIsFixed(t *testing.T) {
	assert.Equal(t, AttackNone, RepositionAttack(4, AttackNone))
	assert.Equal(t, DefenseNone, RepositionDefense(4, DefenseNone))
	assert.Equal(t, Swing, RepositionAttack(0, Swing))
}

func TestMissileBonus(t *testing.T) {
	assert.Equal(t, 2, MissileBonus(1))
	assert.Equal(t, 0, MissileBonus(3))
	assert.Equal(t, -3, MissileBonus(6))
	assert.Equal(t, 0, MissileBonus(7))
}

func TestPickBalancedDefense_RerollsUntilLeastOccupied(t *testing.T) {
	counts := map[DefenseType]int{Charge: 1, Dodge: 0, Duck: 1}
	rolls := []int{1, 6, 3}
	i := 0
	got := pickBalancedDefense(counts, func() int {
		v := rolls[i]
		i++
		return v
	})
	assert.Equal(t, Dodge, got)
	assert.Equal(t, 3, i)
}

func TestPickBalancedDefense_FallsBackAfterCap(t *testing.T) {
	counts := map[DefenseType]int{Charge: 2, Dodge: 1, Duck: 0}
	got := pickBalancedDefense(counts, func() int { return 1 })
	assert.Equal(t, Duck, got)
}

func TestPickBalancedDefense_AlwaysLeastOccupied(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		counts := map[DefenseType]int{
			Charge: rapid.IntRange(0, 3).Draw(rt, "charge"),
			Dodge:  rapid.IntRange(0, 3).Draw(rt, "dodge"),
			Duck:   rapid.IntRange(0, 3).Draw(rt, "duck"),
		}
		got := pickBalancedDefense(counts, func() int { return rapid.IntRange(1, 6).Draw(rt, "roll") })
		for _, d := range DefenseTypes {
			assert.LessOrEqual(rt, counts[got], counts[d])
		}
	})
}
