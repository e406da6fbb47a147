package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/inventory"
)

func potion() *inventory.Template {
	return &inventory.Template{ID: "health-potion-minor", Name: "Minor Health Potion", Type: inventory.TypeConsumable, Stackable: true, MaxStack: 10}
}

func sword() *inventory.Template {
	dmg := inventory.DamageRange{Min: 6, Max: 10}
	return &inventory.Template{ID: "iron-sword", Name: "Iron Sword", Type: inventory.TypeWeapon, EquipSlot: inventory.SlotMainHand, Damage: &dmg}
}

func TestBackpack_StackableMergesIntoExisting(t *testing.T) {
	bp := inventory.NewBackpack(5)
	require.NoError(t, bp.Add(potion(), 4))
	require.NoError(t, bp.Add(potion(), 5))
	assert.Equal(t, 1, bp.UsedSlots())
	assert.Equal(t, 9, bp.Count("health-potion-minor"))
}

func TestBackpack_StackableOverflowsIntoNewSlot(t *testing.T) {
	bp := inventory.NewBackpack(5)
	require.NoError(t, bp.Add(potion(), 8))
	require.NoError(t, bp.Add(potion(), 7))
	assert.Equal(t, 2, bp.UsedSlots())
	assert.Equal(t, []inventory.Stack{
		{ItemID: "health-potion-minor", Quantity: 10},
		{ItemID: "health-potion-minor", Quantity: 5},
	}, bp.Items())
}

func TestBackpack_NonStackableUsesOneSlotEach(t *testing.T) {
	bp := inventory.NewBackpack(3)
	require.NoError(t, bp.Add(sword(), 2))
	assert.Equal(t, 2, bp.UsedSlots())
}

func TestBackpack_FullIsAtomic(t *testing.T) {
	bp := inventory.NewBackpack(2)
	require.NoError(t, bp.Add(sword(), 1))
	before := bp.Items()

	err := bp.Add(sword(), 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, inventory.ErrInventoryFull)
	assert.Equal(t, before, bp.Items())
	assert.False(t, bp.CanAdd(sword(), 2))
	assert.True(t, bp.CanAdd(sword(), 1))
}

func TestBackpack_FullStillAcceptsMergeableStack(t *testing.T) {
	bp := inventory.NewBackpack(1)
	require.NoError(t, bp.Add(potion(), 3))
	assert.True(t, bp.CanAdd(potion(), 7))
	assert.False(t, bp.CanAdd(potion(), 8))
	assert.False(t, bp.CanAdd(sword(), 1))
}

func TestBackpack_Remove(t *testing.T) {
	bp := inventory.NewBackpack(5)
	require.NoError(t, bp.Add(potion(), 15))
	require.NoError(t, bp.Remove("health-potion-minor", 6))
	assert.Equal(t, 9, bp.Count("health-potion-minor"))
	assert.Equal(t, 1, bp.UsedSlots())

	assert.Error(t, bp.Remove("health-potion-minor", 10))
	assert.Equal(t, 9, bp.Count("health-potion-minor"))
}

func TestBackpack_CloneIsIndependent(t *testing.T) {
	bp := inventory.NewBackpack(5)
	require.NoError(t, bp.Add(potion(), 1))
	c := bp.Clone()
	require.NoError(t, c.Add(potion(), 1))
	assert.Equal(t, 1, bp.Count("health-potion-minor"))
}

func TestProperty_Backpack_NeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(0, 10).Draw(rt, "capacity")
		bp := inventory.NewBackpack(capacity)
		ops := rapid.SliceOf(rapid.IntRange(1, 25)).Draw(rt, "ops")
		total := 0
		for i, qty := range ops {
			def := potion()
			if i%2 == 1 {
				def = sword()
				qty = qty%3 + 1
			}
			before := bp.Count(def.ID)
			if err := bp.Add(def, qty); err == nil {
				total += qty
				assert.Equal(rt, before+qty, bp.Count(def.ID))
			} else {
				assert.Equal(rt, before, bp.Count(def.ID))
			}
			assert.LessOrEqual(rt, bp.UsedSlots(), capacity)
			for _, s := range bp.Items() {
				assert.GreaterOrEqual(rt, s.Quantity, 1)
			}
		}
		assert.Equal(rt, total, bp.Count("health-potion-minor")+bp.Count("iron-sword"))
	})
}
