package gameserver_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/content"
	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/game/schedule"
	"github.com/cory-johannsen/realm/internal/game/spawn"
	"github.com/cory-johannsen/realm/internal/game/world"
	"github.com/cory-johannsen/realm/internal/gameserver"
	"github.com/cory-johannsen/realm/internal/storage/memory"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Wolves take three unarmed hits (7 each) and hit back for 2 against the
// default constitution under the fixed dice below.
func testMonsters() []*npc.Template {
	return []*npc.Template{
		{
			ID: "wolf", Name: "Wolf", Level: 1, Aggression: npc.Aggressive, RespawnSeconds: 60,
			Stats:      npc.Stats{MaxHealth: 20, Damage: npc.Range{Min: 3, Max: 3}},
			Experience: 40,
			Gold:       npc.GoldFromScalar(10),
			Loot:       npc.LootTable{{ItemID: "wolf-pelt", Chance: 1, MinQty: 1, MaxQty: 1}},
		},
		{
			ID: "dire-wolf", Name: "Dire Wolf", Level: 2, RespawnSeconds: 120,
			Stats:      npc.Stats{MaxHealth: 50, Damage: npc.Range{Min: 1, Max: 1}},
			Experience: 25,
			Gold:       npc.GoldRange{Min: 1, Max: 5},
			Loot:       npc.LootTable{{ItemID: "wolf-fang", Chance: 0.4, MinQty: 1, MaxQty: 1}},
		},
		{
			ID: "goblin", Name: "Goblin", Level: 3,
			Stats:      npc.Stats{MaxHealth: 30, Damage: npc.Range{Min: 4, Max: 4}},
			Experience: 60,
		},
	}
}

func testItems() []*inventory.Template {
	return []*inventory.Template{
		{ID: "wolf-pelt", Name: "Wolf Pelt", Type: inventory.TypeMiscellaneous, Rarity: "common", Stackable: true, MaxStack: 10},
		{ID: "wolf-fang", Name: "Wolf Fang", Type: inventory.TypeMiscellaneous, Rarity: "uncommon", Stackable: true, MaxStack: 20},
		{ID: "health-potion", Name: "Health Potion", Type: inventory.TypeConsumable, Rarity: "common", Stackable: true, MaxStack: 5},
		{ID: "iron-sword", Name: "Iron Sword", Type: inventory.TypeWeapon, Rarity: "common",
			EquipSlot: inventory.SlotMainHand, Damage: &inventory.DamageRange{Min: 20, Max: 20}},
	}
}

func testZones() []*world.Zone {
	return []*world.Zone{
		{
			ID: "starting-village", Name: "Starting Village", Safe: true, Starting: true,
			Levels:      world.LevelRange{Min: 1, Max: 3},
			Connections: []world.Connection{{Target: "dark-forest", Direction: world.North}},
		},
		{
			ID: "dark-forest", Name: "Dark Forest",
			Levels:   world.LevelRange{Min: 1, Max: 5},
			Monsters: []world.SpawnRule{{Template: "wolf", Min: 3, Max: 3}},
			Connections: []world.Connection{
				{Target: "starting-village", Direction: world.South},
				{Target: "goblin-camp", Direction: world.East, RequiredLevel: 3},
			},
		},
		{
			ID: "goblin-camp", Name: "Goblin Camp",
			Levels:      world.LevelRange{Min: 3, Max: 6},
			Monsters:    []world.SpawnRule{{Template: "goblin", Min: 1, Max: 1}},
			Connections: []world.Connection{{Target: "dark-forest", Direction: world.West}},
		},
	}
}

func testQuests() []*quest.Template {
	return []*quest.Template{
		{
			ID: "wolf-problem", Title: "Wolf Problem", Level: 1, Category: quest.CategorySide, Active: true,
			Objectives: []quest.Objective{{Type: quest.ObjectiveKill, Target: "wolf", Required: 3}},
			Rewards: []quest.Reward{
				{Type: quest.RewardExperience, Value: 50},
				{Type: quest.RewardGold, Value: 25},
				{Type: quest.RewardItem, Item: "health-potion", Quantity: 2},
			},
		},
		{
			ID: "goblin-threat", Title: "Goblin Threat", Level: 1, Category: quest.CategoryMain, Active: true,
			Prerequisites: []string{"wolf-problem"},
			Objectives:    []quest.Objective{{Type: quest.ObjectiveKill, Target: "goblin", Required: 1}},
		},
		{
			ID: "village-bounty", Title: "Village Bounty", Level: 1, Category: quest.CategorySide, Active: true,
			Zone:       "starting-village",
			Objectives: []quest.Objective{{Type: quest.ObjectiveTalk, Target: "elder", Required: 1}},
			Rewards: []quest.Reward{
				{Type: quest.RewardExperience, Value: 400},
				{Type: quest.RewardAttribute, Attribute: "wisdom", Value: 2},
			},
		},
		{
			ID: "healing-supplies", Title: "Healing Supplies", Level: 1, Category: quest.CategoryRepeatable, Active: true,
			Repeatable: true, RepeatCooldownHours: 24,
			Objectives: []quest.Objective{{Type: quest.ObjectiveCollect, Target: "wolf-pelt", Required: 2}},
			Rewards:    []quest.Reward{{Type: quest.RewardGold, Value: 10}},
		},
		{
			ID: "far-off", Title: "Far Off", Level: 4, Category: quest.CategorySide, Active: true,
			Objectives: []quest.Objective{{Type: quest.ObjectiveDiscover, Target: "goblin-camp", Required: 1}},
		},
		{
			ID: "retired", Title: "Retired", Level: 1, Category: quest.CategoryEvent, Active: false,
			Objectives: []quest.Objective{{Type: quest.ObjectiveTalk, Target: "elder", Required: 1}},
		},
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []gameserver.Event
}

func (n *recordingNotifier) NotifyZone(_ string, ev gameserver.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) ofType(typ gameserver.EventType) []gameserver.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []gameserver.Event
	for _, ev := range n.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type recordingHooks struct {
	mu     sync.Mutex
	deaths []string
	pickup []string
	quests []string
}

func (h *recordingHooks) OnMonsterDeath(_, instanceID, _, _ string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deaths = append(h.deaths, instanceID)
}

func (h *recordingHooks) OnItemCollected(_, _, itemID string, _ int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pickup = append(h.pickup, itemID)
}

func (h *recordingHooks) OnQuestCompleted(_, _, questID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quests = append(h.quests, questID)
}

// flakyStore fails saves while failing is set.
type flakyStore struct {
	*memory.Store
	mu      sync.Mutex
	failing bool
}

var errStoreDown = errors.New("store down")

func (f *flakyStore) SaveCharacter(ctx context.Context, c *character.Character) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	if failing {
		return errStoreDown
	}
	return f.Store.SaveCharacter(ctx, c)
}

func (f *flakyStore) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

type fixture struct {
	svc       *gameserver.Service
	store     *flakyStore
	clock     *schedule.Manual
	instancer *spawn.Instancer
	library   *content.Library
	notes     *recordingNotifier
	hooks     *recordingHooks
}

type option func(*gameserver.Config)

func withCapacity(n int) option {
	return func(c *gameserver.Config) { c.InventoryCapacity = n }
}

func withZones(starting, respawn string) option {
	return func(c *gameserver.Config) { c.StartingZone, c.RespawnZone = starting, respawn }
}

// newFixture builds a service whose dice always roll the minimum, never
// crit and apply no jitter.
func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	lib, err := content.New(testMonsters(), testItems(), testZones(), testQuests())
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	clock := schedule.NewManual(start)
	src := &dice.Fixed{Ints: []int{0}, Floats: []float64{0.5}}
	inst := spawn.NewInstancer(clock, 0, 0)
	notes := &recordingNotifier{}
	reg := spawn.NewRegistry(lib, inst, clock, src, logger, spawn.Options{
		OnSpawn: func(v spawn.MonsterView) { notes.NotifyZone(v.ZoneID, gameserver.MonsterSpawnEvent(v, clock.Now())) },
	})
	t.Cleanup(reg.Close)

	cfg := gameserver.DefaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	f := &fixture{
		store:     &flakyStore{Store: memory.NewStore()},
		clock:     clock,
		instancer: inst,
		library:   lib,
		notes:     notes,
		hooks:     &recordingHooks{},
	}
	f.svc = gameserver.NewService(gameserver.Deps{
		Templates:  lib,
		Characters: f.store,
		Registry:   reg,
		Instancer:  inst,
		Notifier:   notes,
		Hooks:      f.hooks,
		Source:     src,
		Clock:      clock,
		Logger:     logger,
	}, cfg)
	return f
}

// hero creates a character and walks it into the dark forest.
func (f *fixture) hero(t *testing.T, id string) *character.Character {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.CreateCharacter(ctx, id, "Hero")
	require.NoError(t, err)
	require.True(t, res.Success, res.Message)
	zr, err := f.svc.EnterZone(ctx, id, "dark-forest")
	require.NoError(t, err)
	require.True(t, zr.Success, zr.Message)
	return f.load(t, id)
}

func (f *fixture) load(t *testing.T, id string) *character.Character {
	t.Helper()
	c, err := f.store.LoadCharacter(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (f *fixture) update(t *testing.T, id string, fn func(c *character.Character)) {
	t.Helper()
	c := f.load(t, id)
	fn(c)
	require.NoError(t, f.store.SaveCharacter(context.Background(), c))
}

func (f *fixture) wolves() []spawn.MonsterView {
	return f.svc.Registry().ListLiveMonsters("dark-forest")
}

// slay attacks monsterID until it dies and returns the killing blow.
func (f *fixture) slay(t *testing.T, characterID, monsterID string) gameserver.AttackResult {
	t.Helper()
	for i := 0; i < 10; i++ {
		res, err := f.svc.Attack(context.Background(), characterID, monsterID)
		require.NoError(t, err)
		require.True(t, res.Success, res.Message)
		if res.Outcome == gameserver.OutcomeMonsterDied {
			return res
		}
	}
	t.Fatalf("%s survived ten attacks", monsterID)
	return gameserver.AttackResult{}
}

func baseAttributes() combat.Attributes {
	b := character.BaseAttribute
	return combat.Attributes{Strength: b, Dexterity: b, Intelligence: b, Constitution: b, Wisdom: b, Vitality: b}
}
