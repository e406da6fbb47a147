package npc_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/npc"
)

func wolfTemplate(t *testing.T) *npc.Template {
	t.Helper()
	tmpl, err := npc.LoadTemplateFromBytes([]byte(wolfYAML))
	require.NoError(t, err)
	return tmpl
}

func TestNewInstance_FullHealthAndCopied(t *testing.T) {
	tmpl := wolfTemplate(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inst := npc.NewInstance("wolf-1", tmpl, "dark-forest", now)

	assert.Equal(t, 40, inst.CurrentHealth)
	assert.True(t, inst.Alive)
	assert.Equal(t, "dark-forest", inst.ZoneID)
	assert.Equal(t, now, inst.SpawnedAt)

	inst.Abilities[0] = "howl"
	inst.Loot[0].ItemID = "changed"
	assert.Equal(t, "bite", tmpl.Abilities[0], "instance must not alias template abilities")
	assert.Equal(t, "wolf-pelt", tmpl.Loot[0].ItemID, "instance must not alias template loot")
}

func TestInstance_ApplyDamageClampsAndKills(t *testing.T) {
	inst := npc.NewInstance("wolf-1", wolfTemplate(t), "z", time.Now())
	assert.False(t, inst.ApplyDamage(39, time.Now()))
	assert.Equal(t, 1, inst.CurrentHealth)
	assert.True(t, inst.ApplyDamage(500, time.Now()))
	assert.Equal(t, 0, inst.CurrentHealth)
	assert.False(t, inst.Alive)
}

func TestProperty_Instance_HealthInvariant(t *testing.T) {
	tmpl := &npc.Template{ID: "x", Name: "X", Level: 1, Stats: npc.Stats{MaxHealth: 50}}
	rapid.Check(t, func(rt *rapid.T) {
		inst := npc.NewInstance("x-1", tmpl, "z", time.Now())
		hits := rapid.SliceOf(rapid.IntRange(0, 30)).Draw(rt, "hits")
		for _, h := range hits {
			if !inst.Alive {
				break
			}
			inst.ApplyDamage(h, time.Now())
			assert.GreaterOrEqual(rt, inst.CurrentHealth, 0)
			assert.LessOrEqual(rt, inst.CurrentHealth, inst.Stats.MaxHealth)
			assert.Equal(rt, inst.CurrentHealth > 0, inst.Alive)
		}
	})
}

func TestInstance_ApplyPatchMergesStats(t *testing.T) {
	inst := npc.NewInstance("wolf-1", wolfTemplate(t), "z", time.Now())
	maxMana := 12
	inst.Apply(npc.Patch{Stats: &npc.StatsPatch{MaxMana: &maxMana}})

	assert.Equal(t, 12, inst.Stats.MaxMana)
	assert.Equal(t, 40, inst.Stats.MaxHealth, "unpatched stats fields must survive")
	assert.Equal(t, npc.Range{Min: 4, Max: 8}, inst.Stats.Damage)
}

func TestInstance_ApplyPatchReestablishesInvariant(t *testing.T) {
	inst := npc.NewInstance("wolf-1", wolfTemplate(t), "z", time.Now())
	lower := 10
	inst.Apply(npc.Patch{Stats: &npc.StatsPatch{MaxHealth: &lower}})
	assert.Equal(t, 10, inst.CurrentHealth)

	zero := 0
	inst.Apply(npc.Patch{CurrentHealth: &zero})
	assert.False(t, inst.Alive)

	revive := 5
	inst.Apply(npc.Patch{CurrentHealth: &revive})
	assert.True(t, inst.Alive)
}

func TestInstance_CloneIsDeep(t *testing.T) {
	inst := npc.NewInstance("wolf-1", wolfTemplate(t), "z", time.Now())
	c := inst.Clone()
	c.Abilities[0] = "howl"
	c.CurrentHealth = 1
	assert.Equal(t, "bite", inst.Abilities[0])
	assert.Equal(t, 40, inst.CurrentHealth)
}

func TestInstance_HealthDescription(t *testing.T) {
	inst := npc.NewInstance("wolf-1", wolfTemplate(t), "z", time.Now())
	assert.Equal(t, "unharmed", inst.HealthDescription())
	inst.ApplyDamage(30, time.Now())
	assert.Equal(t, "heavily wounded", inst.HealthDescription())
	inst.ApplyDamage(30, time.Now())
	assert.Equal(t, "dead", inst.HealthDescription())
}
