package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine.log and engine.dice Lua tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "combat", m.combatModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, logf := range levels {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			logf(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

// diceModule exposes engine.dice.roll(sides), returning a value in
// [1, sides]; sides defaults to 6.
func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(func(L *lua.LState) int {
		sides := L.OptInt(1, 6)
		if sides < 1 {
			L.ArgError(1, "sides must be >= 1")
			return 0
		}
		L.Push(lua.LNumber(m.src.Intn(sides) + 1))
		return 1
	}))
	return mod
}

// combatModule exposes engine.combat.query_combatant(id), returning a table
// of the combatant's visible state or nil.
func (m *Manager) combatModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "query_combatant", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		if m.QueryCombatant == nil {
			L.Push(lua.LNil)
			return 1
		}
		fields := m.QueryCombatant(id)
		if fields == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(record(L, fields))
		return 1
	}))
	return mod
}
