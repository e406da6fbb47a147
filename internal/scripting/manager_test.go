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

// newTestManager returns a manager logging to an observer at Debug.
func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return scripting.NewManager(dice.NewSeededSource(1), zap.New(core)), logs
}

// scriptDir writes files (name -> source) into a fresh directory.
func scriptDir(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
	}
	return dir
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	return scriptDir(t, map[string]string{filename: src})
}

func TestManager_ZoneHookReturnsValue(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadZone("dark-forest", writeTempLua(t, "hooks.lua", `
		function bounty(kills, per_kill)
			return kills * per_kill
		end
	`), 0))
	require.True(t, mgr.HasZone("dark-forest"))

	ret, err := mgr.CallHook("dark-forest", "bounty", lua.LNumber(3), lua.LNumber(5))
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(15), ret)
}

func TestManager_CallHookYieldsNil(t *testing.T) {
	for name, tc := range map[string]struct {
		zone   string
		script string
		hook   string
		warns  int
		debugs int
	}{
		"undefined hook":  {zone: "dark-forest", script: `-- nothing here`, hook: "on_monster_death"},
		"zone not loaded": {zone: "", hook: "on_monster_death", debugs: 1},
		"hook raises":     {zone: "dark-forest", script: `function on_monster_death() error("no corpse") end`, hook: "on_monster_death", warns: 1},
		"not a function":  {zone: "dark-forest", script: `on_monster_death = 7`, hook: "on_monster_death"},
	} {
		t.Run(name, func(t *testing.T) {
			mgr, logs := newTestManager(t)
			zone := "goblin-camp"
			if tc.zone != "" {
				zone = tc.zone
				require.NoError(t, mgr.LoadZone(zone, writeTempLua(t, "hooks.lua", tc.script), 0))
			}
			ret, err := mgr.CallHook(zone, tc.hook)
			require.NoError(t, err)
			assert.Equal(t, lua.LNil, ret)
			assert.Equal(t, tc.warns, logs.FilterLevelExact(zap.WarnLevel).Len())
			assert.Equal(t, tc.debugs, logs.FilterLevelExact(zap.DebugLevel).Len())
		})
	}
}

func TestManager_RunawayHookDoesNotPoisonVM(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadZone("dark-forest", writeTempLua(t, "hooks.lua", `
		function on_monster_death()
			local n = 0
			while true do n = n + 1 end
		end
		function howl() return "awoo" end
	`), 500))

	ret, err := mgr.CallHook("dark-forest", "on_monster_death")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterLevelExact(zap.WarnLevel).Len())

	ret, err = mgr.CallHook("dark-forest", "howl")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("awoo"), ret)
}

func TestManager_GlobalScriptsServeEveryZone(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadGlobal(writeTempLua(t, "global.lua", `function motd() return "welcome" end`), 0))
	require.NoError(t, mgr.LoadZone("dark-forest", writeTempLua(t, "hooks.lua", `function motd() return "beware" end`), 0))

	ret, err := mgr.CallHook("starting-village", "motd")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("welcome"), ret)

	ret, err = mgr.CallHook("dark-forest", "motd")
	require.NoError(t, err)
	assert.Equal(t, lua.LString("beware"), ret, "zone scripts shadow global ones")
}

func TestManager_LoadZoneFailures(t *testing.T) {
	mgr, _ := newTestManager(t)

	assert.Error(t, mgr.LoadZone("broken", writeTempLua(t, "hooks.lua", `function (`), 0))
	assert.False(t, mgr.HasZone("broken"))

	assert.Error(t, mgr.LoadZone("absent", filepath.Join(t.TempDir(), "nope"), 0))
	assert.False(t, mgr.HasZone("absent"))

	require.NoError(t, mgr.LoadZone("empty", t.TempDir(), 0))
	ret, err := mgr.CallHook("empty", "anything")
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_ReloadAndFileOrder(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadZone("z", writeTempLua(t, "a.lua", `function version() return 1 end`), 0))
	require.NoError(t, mgr.LoadZone("z", scriptDir(t, map[string]string{
		"10_base.lua":  `wolf_bounty = 4`,
		"20_hooks.lua": `function version() return wolf_bounty * 2 end`,
	}), 0))

	ret, err := mgr.CallHook("z", "version")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(8), ret)
}

func TestEngine_Announce(t *testing.T) {
	mgr, _ := newTestManager(t)
	var gotZone, gotText string
	mgr.Announce = func(zoneID, text string) {
		gotZone, gotText = zoneID, text
	}
	dir := writeTempLua(t, "hooks.lua", `
		function shout(name)
			engine.announce(engine.zone(), name .. " has fallen")
		end
	`)
	require.NoError(t, mgr.LoadZone("dark-forest", dir, 0))
	_, err := mgr.CallHook("dark-forest", "shout", lua.LString("Alpha Wolf"))
	require.NoError(t, err)
	assert.Equal(t, "dark-forest", gotZone)
	assert.Equal(t, "Alpha Wolf has fallen", gotText)
}

func TestEngine_AnnounceWithoutCallback_NoOp(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `function shout() engine.announce("z", "hi") return 1 end`)
	require.NoError(t, mgr.LoadZone("z", dir, 0))
	ret, err := mgr.CallHook("z", "shout")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(1), ret)
	assert.Equal(t, 0, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestEngine_Log(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `
		function speak()
			engine.log("warn", "the forest stirs")
			engine.log("bogus", "defaults to info")
		end
	`)
	require.NoError(t, mgr.LoadZone("z", dir, 0))
	_, err := mgr.CallHook("z", "speak")
	require.NoError(t, err)

	warns := logs.FilterMessage("the forest stirs").All()
	require.Len(t, warns, 1)
	assert.Equal(t, zap.WarnLevel, warns[0].Level)
	assert.Equal(t, "z", warns[0].ContextMap()["zone"])
	infos := logs.FilterMessage("defaults to info").All()
	require.Len(t, infos, 1)
	assert.Equal(t, zap.InfoLevel, infos[0].Level)
}

func TestEngine_RandomWithinBounds(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `function roll(lo, hi) return engine.random(lo, hi) end`)
	require.NoError(t, mgr.LoadZone("z", dir, 0))
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-50, 50).Draw(rt, "lo")
		hi := lo + rapid.IntRange(0, 100).Draw(rt, "span")
		ret, err := mgr.CallHook("z", "roll", lua.LNumber(lo), lua.LNumber(hi))
		if err != nil {
			rt.Fatal(err)
		}
		n, ok := ret.(lua.LNumber)
		if !ok {
			rt.Fatalf("expected number, got %v", ret)
		}
		if int(n) < lo || int(n) > hi {
			rt.Fatalf("roll %d outside [%d, %d]", int(n), lo, hi)
		}
	})
}

func TestTypedHooks_PassArguments(t *testing.T) {
	mgr, _ := newTestManager(t)
	var got []string
	mgr.Announce = func(_, text string) { got = append(got, text) }
	dir := writeTempLua(t, "hooks.lua", `
		function on_monster_death(id, tmpl, killer)
			engine.announce("z", id .. "/" .. tmpl .. "/" .. killer)
		end
		function on_item_collected(char, item, qty)
			engine.announce("z", char .. "/" .. item .. "/" .. tostring(qty))
		end
		function on_quest_completed(char, quest)
			engine.announce("z", char .. "/" .. quest)
		end
	`)
	require.NoError(t, mgr.LoadZone("z", dir, 0))

	mgr.OnMonsterDeath("z", "wolf-1", "wolf", "hero")
	mgr.OnItemCollected("z", "hero", "wolf-pelt", 2)
	mgr.OnQuestCompleted("z", "hero", "wolf-problem")

	assert.Equal(t, []string{"wolf-1/wolf/hero", "hero/wolf-pelt/2", "hero/wolf-problem"}, got)
}

func TestManager_ConcurrentCallsShareOneVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadZone("dark-forest", writeTempLua(t, "hooks.lua", `
		kills = 0
		function on_monster_death()
			kills = kills + 1
			return kills
		end
		function tally() return kills end
	`), 0))

	const hunters, each = 8, 25
	var wg sync.WaitGroup
	for range hunters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				_, err := mgr.CallHook("dark-forest", "on_monster_death")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	ret, err := mgr.CallHook("dark-forest", "tally")
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(hunters*each), ret)
}

func TestNewManager_RequiresDeps(t *testing.T) {
	assert.Panics(t, func() { scripting.NewManager(nil, zap.NewNop()) })
	assert.Panics(t, func() { scripting.NewManager(dice.NewSeededSource(1), nil) })
}

func TestManager_CloseForgetsEveryVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadGlobal(writeTempLua(t, "g.lua", `function ping() return 1 end`), 0))
	require.NoError(t, mgr.LoadZone("dark-forest", writeTempLua(t, "z.lua", `function ping() return 2 end`), 0))
	mgr.Close()

	assert.False(t, mgr.HasZone("dark-forest"))
	for _, zone := range []string{"dark-forest", "starting-village"} {
		ret, err := mgr.CallHook(zone, "ping")
		assert.NoError(t, err)
		assert.Equal(t, lua.LNil, ret)
	}
}
