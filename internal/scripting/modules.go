package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// RegisterModules defines the engine global in L:
//
//	engine.log(level, msg)       -- level: debug|info|warn|error
//	engine.announce(zone, text)  -- zone-wide message
//	engine.random(min, max)      -- uniform integer in [min, max]
//	engine.zone()                -- id of the zone that owns this VM
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState, zoneID string) {
	engine := L.NewTable()
	L.SetField(engine, "log", L.NewFunction(m.luaLog(zoneID)))
	L.SetField(engine, "announce", L.NewFunction(m.luaAnnounce))
	L.SetField(engine, "random", L.NewFunction(m.luaRandom))
	L.SetField(engine, "zone", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(zoneID))
		return 1
	}))
	L.SetGlobal("engine", engine)
}

func (m *Manager) luaLog(zoneID string) lua.LGFunction {
	return func(L *lua.LState) int {
		level := L.CheckString(1)
		msg := L.CheckString(2)
		fields := []zap.Field{zap.String("zone", zoneID), zap.String("source", "lua")}
		switch level {
		case "debug":
			m.logger.Debug(msg, fields...)
		case "warn":
			m.logger.Warn(msg, fields...)
		case "error":
			m.logger.Error(msg, fields...)
		default:
			m.logger.Info(msg, fields...)
		}
		return 0
	}
}

func (m *Manager) luaAnnounce(L *lua.LState) int {
	zoneID := L.CheckString(1)
	text := L.CheckString(2)
	if m.Announce != nil {
		m.Announce(zoneID, text)
	}
	return 0
}

func (m *Manager) luaRandom(L *lua.LState) int {
	lo := L.CheckInt(1)
	hi := L.CheckInt(2)
	L.Push(lua.LNumber(dice.Between(m.src, lo, hi)))
	return 1
}
