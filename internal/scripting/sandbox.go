// Package scripting runs zone hooks in sandboxed GopherLua states. It knows
// nothing of the game packages: the game service calls the typed hook methods
// and the server injects the announce callback.
package scripting

import (
	"context"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps the opcodes one chunk or hook call may run
// when the zone sets no limit of its own.
const DefaultInstructionLimit = 100_000

// removedGlobals are base functions that reach the filesystem, load
// arbitrary chunks or tune the collector.
var removedGlobals = []string{"dofile", "loadfile", "load", "collectgarbage", "require"}

// opBudget is a context that GopherLua polls once per opcode through Done.
// It cancels itself when the budget reaches zero, which aborts the running
// chunk at the next instruction.
type opBudget struct {
	context.Context
	left   atomic.Int64
	cancel context.CancelFunc
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

// withBudget gives L a fresh budget of limit opcodes (DefaultInstructionLimit
// when limit <= 0) and returns its cancel. Every hook call takes a new
// budget.
func withBudget(L *lua.LState, limit int) context.CancelFunc {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	L.SetContext(b)
	return cancel
}

// NewSandboxedState returns an LState with only the base, table, string and
// math libraries, without removedGlobals, and with an opcode budget of limit.
//
// Postcondition: The caller owns the state and must Close it.
func NewSandboxedState(limit int) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	withBudget(L, limit) //nolint:govet // the budget cancels itself when spent
	return L
}
