package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// globalZoneID is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no zone VM is found.
const globalZoneID = "__global__"

// zoneVM is one zone's interpreter. An LState is single-threaded, so mu
// serializes every call into it.
type zoneVM struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per zone and exposes hook dispatch.
// Safe for concurrent use; calls into the same zone are serialized and
// different zones run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*zoneVM
	src    dice.Source
	logger *zap.Logger

	// Announce delivers engine.announce(zone, text). nil = no-op.
	Announce func(zoneID, text string)
}

// NewManager creates a Manager.
//
// Precondition: src and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no zones loaded.
func NewManager(src dice.Source, logger *zap.Logger) *Manager {
	if src == nil {
		panic("scripting.NewManager: src must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		vms:    make(map[string]*zoneVM),
		src:    src,
		logger: logger,
	}
}

// LoadZone creates a sandboxed VM for zoneID, registers the engine module,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: zoneID must be non-empty; scriptDir must be a readable directory.
// Postcondition: the zone VM replaces any previous one; returns an error on
// Lua load failure, leaving the previous VM in place.
func (m *Manager) LoadZone(zoneID, scriptDir string, instLimit int) error {
	return m.loadInto(zoneID, scriptDir, instLimit)
}

// LoadGlobal creates the fallback VM used for zones without their own scripts.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalZoneID, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState(instLimit)
	m.RegisterModules(L, key)
	for _, path := range luaFiles {
		cancel := withBudget(L, instLimit)
		err := L.DoFile(path)
		cancel()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	vm := &zoneVM{L: L, limit: instLimit}
	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = vm
	m.mu.Unlock()
	if old != nil {
		old.close()
	}
	m.logger.Info("scripts loaded",
		zap.String("zone", key), zap.Int("files", len(luaFiles)))
	return nil
}

func (vm *zoneVM) close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.L != nil {
		vm.L.Close()
		vm.L = nil
	}
}

// HasZone reports whether zoneID has its own VM.
func (m *Manager) HasZone(zoneID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[zoneID]
	return ok
}

// CallHook calls the named Lua global function in zoneID's VM, falling back
// to the global VM. Returns (LNil, nil) if the hook is not a defined function
// or no VM exists. Lua runtime errors, including an exhausted instruction budget, are
// logged at Warn and never propagated. Every call gets a fresh budget.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(zoneID, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	vm, ok := m.vms[zoneID]
	if !ok {
		vm = m.vms[globalZoneID]
	}
	m.mu.RUnlock()

	if vm == nil {
		m.logger.Debug("scripting: no VM for zone",
			zap.String("zone", zoneID),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.L == nil {
		return lua.LNil, nil
	}
	L := vm.L

	fn := L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}

	cancel := withBudget(L, vm.limit)
	defer cancel()
	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("zone", zoneID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*zoneVM)
	m.mu.Unlock()
	for _, vm := range vms {
		vm.close()
	}
}
