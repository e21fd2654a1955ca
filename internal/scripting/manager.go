package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// ErrClosed is returned when loading into a closed Manager.
var ErrClosed = errors.New("scripting: manager closed")

// Manager owns one sandboxed LState and exposes hook dispatch.
//
// Manager is safe for concurrent use; calls into the VM are serialized.
type Manager struct {
	mu     sync.Mutex
	state  *lua.LState
	limit  int
	src    dice.Source
	logger *zap.Logger

	// QueryCombatant backs engine.combat.query_combatant. Injected after
	// construction; nil makes the query return nil. It runs while the VM is
	// locked and must not call back into the Manager.
	QueryCombatant func(id string) map[string]any
}

// NewManager creates a Manager with an empty sandboxed VM whose engine.*
// modules are registered.
//
// Precondition: src and logger must be non-nil; instLimit >= 0 (0 uses
// DefaultInstructionLimit).
// Postcondition: Returns a non-nil Manager. Callers must call Close.
func NewManager(src dice.Source, logger *zap.Logger, instLimit int) *Manager {
	if src == nil {
		panic("scripting.NewManager: src must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	m := &Manager{
		state:  NewSandboxedState(instLimit),
		limit:  normalizeLimit(instLimit),
		src:    src,
		logger: logger,
	}
	m.RegisterModules(m.state)
	return m
}

// Load executes the script at path. When path is a directory every *.lua file
// in it is executed in lexicographic order.
//
// Precondition: path must be a readable file or directory.
// Postcondition: Returns an error on the first read or Lua load failure;
// globals defined by files executed before the failure remain defined.
func (m *Manager) Load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("scripting: reading %q: %w", path, err)
	}
	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return fmt.Errorf("scripting: reading script dir %q: %w", path, err)
		}
		files = files[:0]
		for _, e := range entries {
			if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return ErrClosed
	}
	for _, f := range files {
		cancel := Budget(m.state, m.limit)
		err := m.state.DoFile(f)
		cancel()
		if err != nil {
			return fmt.Errorf("scripting: loading %q: %w", f, err)
		}
	}
	return nil
}

// LoadString executes src as a Lua chunk.
func (m *Manager) LoadString(src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return ErrClosed
	}
	cancel := Budget(m.state, m.limit)
	defer cancel()
	if err := m.state.DoString(src); err != nil {
		return fmt.Errorf("scripting: loading chunk: %w", err)
	}
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return false
	}
	return m.state.GetGlobal(hook).Type() == lua.LTFunction
}

// CallHook calls the named Lua global function with a fresh instruction
// budget. Returns (LNil, nil) if the hook is not defined or the Manager is
// closed. Lua runtime errors, including an exhausted budget, are logged at
// Warn level and returned.
//
// Precondition: args must be valid lua.LValue instances, built by this
// Manager's table helpers when they are tables.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return lua.LNil, nil
	}

	fn := m.state.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	cancel := Budget(m.state, m.limit)
	defer cancel()
	if err := m.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: hook %q: %w", hook, err)
	}

	ret := m.state.Get(-1)
	m.state.Pop(1)
	return ret, nil
}

// NewStringList returns a 1-indexed Lua array of values.
//
// Precondition: the Manager is not closed.
func (m *Manager) NewStringList(values []string) *lua.LTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.state.NewTable()
	for _, v := range values {
		t.Append(lua.LString(v))
	}
	return t
}

// NewRecord returns a Lua table holding fields. Supported value types are
// string, int, bool, []string and lua.LValue; other values are skipped.
//
// Precondition: the Manager is not closed.
func (m *Manager) NewRecord(fields map[string]any) *lua.LTable {
	m.mu.Lock()
	defer m.mu.Unlock()
	return record(m.state, fields)
}

func record(L *lua.LState, fields map[string]any) *lua.LTable {
	t := L.NewTable()
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			t.RawSetString(k, lua.LString(val))
		case int:
			t.RawSetString(k, lua.LNumber(val))
		case bool:
			t.RawSetString(k, lua.LBool(val))
		case []string:
			list := L.NewTable()
			for _, s := range val {
				list.Append(lua.LString(s))
			}
			t.RawSetString(k, list)
		case lua.LValue:
			t.RawSetString(k, val)
		}
	}
	return t
}

// Close releases the VM. Subsequent CallHook calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != nil {
		m.state.Close()
		m.state = nil
	}
}
