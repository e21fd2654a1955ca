package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/scripting"
)

func newTestManager(t testing.TB, limit int) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	mgr := scripting.NewManager(dice.NewSeededSource(1), zap.New(core), limit)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

func TestManager_Load_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "hooks.lua", `
		function test_hook(a, b)
			return a + b
		end
	`)
	require.NoError(t, mgr.Load(dir))
	assert.True(t, mgr.HasHook("test_hook"))
	ret, err := mgr.CallHook("test_hook", lua.LNumber(3), lua.LNumber(4))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_Load_SingleFile(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "one.lua", `function one() return "one" end`)
	require.NoError(t, mgr.Load(filepath.Join(dir, "one.lua")))
	ret, err := mgr.CallHook("one")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("one"), ret)
}

func TestManager_Load_MissingPath(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	assert.Error(t, mgr.Load(filepath.Join(t.TempDir(), "absent.lua")))
}

func TestManager_CallHook_MissingHook_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString(`-- no functions`))
	assert.False(t, mgr.HasHook("nonexistent_hook"))
	ret, err := mgr.CallHook("nonexistent_hook")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_NonFunctionGlobal_NoOp(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString(`choose = 5`))
	ret, err := mgr.CallHook("choose")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_RuntimeError_WarnLog(t *testing.T) {
	mgr, logs := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString(`
		function bad_hook()
			error("intentional error")
		end
	`))
	ret, err := mgr.CallHook("bad_hook")
	require.Error(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestManager_CallHook_BudgetIsPerCall(t *testing.T) {
	mgr, _ := newTestManager(t, 200)
	require.NoError(t, mgr.LoadString(`
		function small() local s = 0 for i = 1, 5 do s = s + i end return s end
		function spin() while true do end end
	`))
	for i := 0; i < 50; i++ {
		ret, err := mgr.CallHook("small")
		require.NoError(t, err)
		assert.Equal(t, lua.LNumber(15), ret)
	}
	_, err := mgr.CallHook("spin")
	assert.Error(t, err)
	ret, err := mgr.CallHook("small")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(15), ret)
}

func TestManager_Load_InvalidLua_ReturnsError(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := writeTempLua(t, "bad.lua", `this is not valid lua @@@@`)
	assert.Error(t, mgr.Load(dir))
}

func TestManager_Load_MultipleFiles_OrderedByName(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base_val = 10`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`
		function get_val() return base_val end
	`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0o644))
	require.NoError(t, mgr.Load(dir))
	ret, err := mgr.CallHook("get_val")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(10), ret)
}

func TestManager_TableHelpers(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString(`
		function describe(req)
			return req.kind .. ":" .. req.round .. ":" .. tostring(req.hidden) .. ":" .. #req.options .. ":" .. req.options[2]
		end
		function count(list) return #list end
	`))
	req := mgr.NewRecord(map[string]any{
		"kind":    "target",
		"round":   3,
		"hidden":  true,
		"options": []string{"a", "b"},
		"ignored": 1.5,
	})
	ret, err := mgr.CallHook("describe", req)
	require.NoError(t, err)
	assert.Equal(t, lua.LString("target:3:true:2:b"), ret)

	ret, err = mgr.CallHook("count", mgr.NewStringList([]string{"x", "y", "z"}))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(3), ret)
}

func TestManager_ConcurrentCalls_NoRace(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	require.NoError(t, mgr.LoadString(`
		function concurrent_hook(a, b)
			return a + b
		end
	`))

	const goroutines = 10
	const callsEach = 5
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsEach; j++ {
				ret, err := mgr.CallHook("concurrent_hook", lua.LNumber(1), lua.LNumber(2))
				assert.NoError(t, err)
				assert.Equal(t, lua.LNumber(3), ret)
			}
		}()
	}
	wg.Wait()
}

func TestProperty_CallHookUndefinedNeverErrors(t *testing.T) {
	mgr, _ := newTestManager(t, 0)
	rapid.Check(t, func(rt *rapid.T) {
		hook := rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "hook")
		ret, err := mgr.CallHook("undefined_" + hook)
		if err != nil || ret != lua.LNil {
			rt.Fatalf("expected (nil, nil), got (%v, %v)", ret, err)
		}
	})
}

func TestNewManager_PanicsOnNilSource(t *testing.T) {
	assert.Panics(t, func() {
		scripting.NewManager(nil, zap.NewNop(), 0)
	})
}

func TestNewManager_PanicsOnNilLogger(t *testing.T) {
	assert.Panics(t, func() {
		scripting.NewManager(dice.NewSeededSource(1), nil, 0)
	})
}

func TestManager_Close(t *testing.T) {
	mgr := scripting.NewManager(dice.NewSeededSource(1), zap.NewNop(), 0)
	require.NoError(t, mgr.LoadString(`function get_x() return 1 end`))
	mgr.Close()
	mgr.Close()
	ret, err := mgr.CallHook("get_x")
	assert.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.False(t, mgr.HasHook("get_x"))
	assert.ErrorIs(t, mgr.LoadString(`x = 1`), scripting.ErrClosed)
}
