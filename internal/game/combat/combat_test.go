package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

func TestPair_RoundTrips(t *testing.T) {
	for _, a := range combat.AttackTypes {
		assert.Equal(t, a, a.Pair().Pair(), a.String())
	}
	assert.Equal(t, combat.Charge, combat.Thrust.Pair())
	assert.Equal(t, combat.Dodge, combat.Swing.Pair())
	assert.Equal(t, combat.Duck, combat.Smash.Pair())
	assert.Equal(t, combat.DefenseNone, combat.AttackNone.Pair())
}

func TestHitTest(t *testing.T) {
	tests := []struct {
		name     string
		atkSpeed int
		movSpeed int
		atk      combat.AttackType
		def      combat.DefenseType
		want     combat.HitKind
	}{
		{"faster attack undercuts", 2, 4, combat.Thrust, combat.Dodge, combat.Undercut},
		{"undercut beats matching pair", 2, 4, combat.Thrust, combat.Charge, combat.Undercut},
		{"matching pair intercepts", 4, 4, combat.Swing, combat.Dodge, combat.Intercept},
		{"no maneuver intercepts", 5, 4, combat.Smash, combat.DefenseNone, combat.Intercept},
		{"mismatch misses", 4, 3, combat.Thrust, combat.Duck, combat.Miss},
		{"no attack misses", 4, 4, combat.AttackNone, combat.Charge, combat.Miss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, combat.HitTest(tt.atkSpeed, tt.movSpeed, tt.atk, tt.def))
		})
	}
}

func TestHitTest_UndercutIffFaster(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		as := rapid.IntRange(0, 8).Draw(rt, "attack_speed")
		ms := rapid.IntRange(0, 8).Draw(rt, "move_speed")
		atk := rapid.SampledFrom(append([]combat.AttackType{combat.AttackNone}, combat.AttackTypes...)).Draw(rt, "atk")
		def := rapid.SampledFrom(append([]combat.DefenseType{combat.DefenseNone}, combat.DefenseTypes...)).Draw(rt, "def")
		got := combat.HitTest(as, ms, atk, def)
		assert.Equal(rt, as < ms, got == combat.Undercut)
	})
}

func TestClampStrength(t *testing.T) {
	assert.Equal(t, combat.Negligible, combat.ClampStrength(-3))
	assert.Equal(t, combat.Heavy, combat.ClampStrength(3))
	assert.Equal(t, combat.Tremendous, combat.ClampStrength(9))
}

func TestHarmLevel_StaysInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := combat.Strength(rapid.IntRange(0, 4).Draw(rt, "strength"))
		sharp := rapid.IntRange(0, 3).Draw(rt, "sharpness")
		bonus := rapid.IntRange(-3, 2).Draw(rt, "bonus")
		h := combat.HarmLevel(s, sharp, bonus)
		assert.GreaterOrEqual(rt, h, combat.Negligible)
		assert.LessOrEqual(rt, h, combat.Tremendous)
	})
}

func TestSpoils_Split_RemainderToEarliest(t *testing.T) {
	shares := combat.Spoils{Fame: 5, Notoriety: 3, Gold: 1}.Split(2)
	require.Len(t, shares, 2)
	assert.Equal(t, combat.Spoils{Fame: 3, Notoriety: 2, Gold: 1}, shares[0])
	assert.Equal(t, combat.Spoils{Fame: 2, Notoriety: 1, Gold: 0}, shares[1])
}

func TestSpoils_Split_Conserves(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := combat.Spoils{
			Fame:      rapid.IntRange(0, 50).Draw(rt, "fame"),
			Notoriety: rapid.IntRange(0, 50).Draw(rt, "notoriety"),
			Gold:      rapid.IntRange(0, 50).Draw(rt, "gold"),
		}
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		var sum combat.Spoils
		for _, sh := range s.Split(n) {
			sum = sum.Add(sh)
		}
		assert.Equal(rt, s, sum)
	})
}

func TestParseDirections(t *testing.T) {
	a, ok := combat.ParseAttackType("swing")
	require.True(t, ok)
	assert.Equal(t, combat.Swing, a)
	d, ok := combat.ParseDefenseType("duck")
	require.True(t, ok)
	assert.Equal(t, combat.Duck, d)
	_, ok = combat.ParseAttackType("kick")
	assert.False(t, ok)
}

func TestArmor_Protects(t *testing.T) {
	shield := &combat.Armor{Slot: combat.SlotShield, Guard: combat.Swing}
	helmet := &combat.Armor{Slot: combat.SlotHelmet}
	breast := &combat.Armor{Slot: combat.SlotBreastplate}
	suit := &combat.Armor{Slot: combat.SlotSuit}

	assert.True(t, shield.Protects(combat.Swing))
	assert.False(t, shield.Protects(combat.Thrust))
	assert.True(t, helmet.Protects(combat.Smash))
	assert.False(t, helmet.Protects(combat.Swing))
	assert.True(t, breast.Protects(combat.Thrust))
	assert.True(t, breast.Protects(combat.Swing))
	assert.False(t, breast.Protects(combat.Smash))
	for _, a := range combat.AttackTypes {
		assert.True(t, suit.Protects(a))
	}
}

func TestCombatant_RedSideMonster(t *testing.T) {
	d := &combat.Denizen{Weight: combat.Tremendous, Side: combat.DarkSide}
	c := combat.NewDenizenCombatant("dragon", "Dragon", d)
	assert.True(t, c.IsRedSideMonster())
	d.Side = combat.LightSide
	assert.False(t, c.IsRedSideMonster())
}

func TestCombatant_CharacterStrengthOutsideCombatIsWeapon(t *testing.T) {
	ch := &combat.Character{Weapon: &combat.Weapon{Strength: combat.Light}}
	c := combat.NewCharacterCombatant("hero", "Hero", ch)
	assert.Equal(t, combat.Light, c.CurrentStrength())
}
