package autopilot_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/autopilot"
	"github.com/cory-johannsen/realm/internal/game/board"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/content"
	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/scripting"
)

func newHero(id string) *combat.Combatant {
	return combat.NewCharacterCombatant(id, "Hero", &combat.Character{
		Vulnerability: combat.Medium,
		Chits: []*combat.Chit{
			{ID: "f1", Kind: combat.ChitFight, Strength: combat.Medium, Speed: 4, Effort: 1},
			{ID: "f2", Kind: combat.ChitFight, Strength: combat.Heavy, Speed: 3, Effort: 2},
			{ID: "m1", Kind: combat.ChitMove, Strength: combat.Medium, Speed: 4},
			{ID: "m2", Kind: combat.ChitMove, Strength: combat.Medium, Speed: 3, Effort: 1},
		},
		Weapon: &combat.Weapon{ID: "sword", Name: "short sword", Type: combat.Melee, Length: 3, Strength: combat.Light, Sharpness: 1},
	})
}

func newGoblin(id string) *combat.Combatant {
	return combat.NewDenizenCombatant(id, "Goblin", &combat.Denizen{
		Weight:  combat.Medium,
		Hostile: true,
		Light:   combat.SideStats{Strength: combat.Medium, AttackSpeed: 4, MoveSpeed: 4, Length: 2},
		Dark:    combat.SideStats{Strength: combat.Heavy, AttackSpeed: 5, MoveSpeed: 3, Length: 2},
		Spoils:  combat.Spoils{Fame: 1, Notoriety: 2, Gold: 1},
	})
}

func newSession(logger *zap.Logger, seed uint64, cs ...*combat.Combatant) (*combat.Session, *board.Clearing) {
	clr := board.NewClearing("clearing-1", "Clearing")
	for _, c := range cs {
		clr.Put(c)
	}
	roller := dice.NewPools(dice.NewSeededSource(seed), zap.NewNop())
	return combat.NewSession(clr, roller, combat.NopSink{}, logger, combat.DefaultRules()), clr
}

func newScripts(t *testing.T, src string) *scripting.Manager {
	t.Helper()
	mgr := scripting.NewManager(dice.NewSeededSource(1), zap.NewNop(), 0)
	t.Cleanup(mgr.Close)
	require.NoError(t, mgr.LoadString(src))
	return mgr
}

func TestRun_NoScript_LoneCharacterEndsAfterQuietRounds(t *testing.T) {
	s, clr := newSession(zap.NewNop(), 1, newHero("hero"))
	s.Start()
	d := autopilot.New(nil, zap.NewNop(), 10)
	require.NoError(t, d.Run(context.Background(), s))
	assert.True(t, s.Done())
	assert.Equal(t, 2, s.Round())
	_, ok := clr.Occupant("hero")
	assert.True(t, ok)
}

func TestRun_ScriptedRunAway(t *testing.T) {
	mgr := newScripts(t, `
		seen = {}
		function choose_action(req)
			local me = engine.combat.query_combatant(req.actor)
			seen.kind = req.kind
			seen.actor = req.actor
			seen.name = me.name
			seen.first_option = req.options[1]
			return "run_away"
		end
		function seen_summary()
			return seen.kind .. "|" .. seen.actor .. "|" .. seen.name .. "|" .. seen.first_option
		end
	`)
	s, _ := newSession(zap.NewNop(), 1, newHero("hero"), newGoblin("gob"))
	s.Start()
	d := autopilot.New(mgr, zap.NewNop(), 10)
	require.NoError(t, d.Run(context.Background(), s))

	assert.True(t, s.Done())
	assert.Equal(t, []string{"Hero"}, s.Summary().Fled)
	assert.Empty(t, s.Summary().Deaths)

	ret, err := mgr.CallHook("seen_summary")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("action|hero|Hero|pass"), ret)
}

func TestRun_ScriptedSelectionsAndFatigue(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	mgr := newScripts(t, `
		function choose_attack(req) return {chit = "f2", direction = "smash"} end
		function choose_maneuver(req) return {chit = "m2", direction = "duck"} end
		function choose_chit(req)
			for _, id in ipairs(req.options) do
				if id == "f2" then return id end
			end
			return req.options[1]
		end
	`)
	hero := newHero("hero")
	s, _ := newSession(zap.NewNop(), 1, hero)
	s.Start()
	d := autopilot.New(mgr, zap.New(core), 10)
	require.NoError(t, d.Run(context.Background(), s))

	assert.True(t, s.Done())
	assert.Equal(t, combat.ChitFatigued, hero.Character.Chit("f2").State)
	for _, id := range []string{"f1", "m1", "m2"} {
		assert.Equal(t, combat.ChitActive, hero.Character.Chit(id).State, id)
	}
	// Round two: f2 is fatigued, so the scripted attack is rejected.
	assert.Equal(t, 1, logs.FilterMessage("scripted choice rejected; using default").Len())
}

func TestRun_HookErrorFallsBackToDefault(t *testing.T) {
	mgr := newScripts(t, `function choose_action(req) error("boom") end`)
	s, _ := newSession(zap.NewNop(), 1, newHero("hero"))
	s.Start()
	require.NoError(t, autopilot.New(mgr, zap.NewNop(), 10).Run(context.Background(), s))
	assert.True(t, s.Done())
	assert.Empty(t, s.Summary().Fled)
}

func TestRun_CancelledContext(t *testing.T) {
	s, _ := newSession(zap.NewNop(), 1, newHero("hero"), newGoblin("gob"))
	s.Start()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := autopilot.New(nil, zap.NewNop(), 10).Run(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Done())
}

func TestRun_NotStartedSessionStalls(t *testing.T) {
	s, _ := newSession(zap.NewNop(), 1, newHero("hero"))
	err := autopilot.New(nil, zap.NewNop(), 10).Run(context.Background(), s)
	assert.ErrorIs(t, err, autopilot.ErrStalled)
}

func TestProperty_RunAlwaysTerminates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		goblins := rapid.IntRange(1, 3).Draw(rt, "goblins")
		cs := []*combat.Combatant{newHero("hero")}
		for i := 0; i < goblins; i++ {
			cs = append(cs, newGoblin(string(rune('a'+i))+"-gob"))
		}
		s, _ := newSession(zap.NewNop(), seed, cs...)
		s.Start()
		err := autopilot.New(nil, zap.NewNop(), 20).Run(context.Background(), s)
		if err != nil && !errors.Is(err, autopilot.ErrRoundLimit) {
			rt.Fatalf("unexpected error: %v", err)
		}
		if err == nil && !s.Done() {
			rt.Fatalf("Run returned nil on a live session")
		}
	})
}

func TestRun_ShippedScriptOnShippedScenarios(t *testing.T) {
	root := filepath.Join("..", "..", "..", "content")
	reg, err := content.LoadRegistry(root)
	require.NoError(t, err)
	for _, id := range reg.ScenarioIDs() {
		t.Run(id, func(t *testing.T) {
			mgr := scripting.NewManager(dice.NewSeededSource(3), zap.NewNop(), 0)
			defer mgr.Close()
			require.NoError(t, mgr.Load(filepath.Join(root, "scripts", "autopilot.lua")))

			clr, err := reg.Stage(id)
			require.NoError(t, err)
			roller := dice.NewPools(dice.NewSeededSource(3), zap.NewNop())
			engine := combat.NewEngine(roller, zap.NewNop(), combat.DefaultRules(), nil)
			s, err := engine.Start(clr, combat.NopSink{})
			require.NoError(t, err)

			err = autopilot.New(mgr, zap.NewNop(), 30).Run(context.Background(), s)
			if err != nil {
				assert.ErrorIs(t, err, autopilot.ErrRoundLimit)
				return
			}
			assert.True(t, s.Done())
			assert.Positive(t, s.Summary().Rounds)
		})
	}
}
