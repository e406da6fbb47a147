package inventory_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/realm/internal/game/inventory"
)

func TestLoadItems_ParsesWeaponAndConsumable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sword.yaml"), []byte(`
id: iron-sword
name: Iron Sword
type: weapon
rarity: common
equip_slot: mainHand
damage: {min: 6, max: 10}
value: 40
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "potion.yml"), []byte(`
id: health-potion-minor
name: Minor Health Potion
type: consumable
stackable: true
max_stack: 10
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	items, err := inventory.LoadItems(dir)
	require.NoError(t, err)
	require.Len(t, items, 2)

	reg := inventory.NewRegistry()
	for _, it := range items {
		require.NoError(t, reg.RegisterItem(it))
	}
	assert.Error(t, reg.RegisterItem(items[0]), "duplicate registration must fail")

	sword, ok := reg.Item("iron-sword")
	require.True(t, ok)
	assert.Equal(t, inventory.SlotMainHand, sword.EquipSlot)
	assert.Equal(t, &inventory.DamageRange{Min: 6, Max: 10}, sword.Damage)
	assert.Equal(t, 1, sword.StackLimit())

	pot, ok := reg.Item("health-potion-minor")
	require.True(t, ok)
	assert.Equal(t, 10, pot.StackLimit())
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, "health-potion-minor", reg.All()[0].ID)
}

func TestTemplate_Validate(t *testing.T) {
	for name, tmpl := range map[string]inventory.Template{
		"no id":            {Name: "x", Type: inventory.TypeQuest},
		"bad type":         {ID: "x", Name: "x", Type: "gadget"},
		"bad rarity":       {ID: "x", Name: "x", Type: inventory.TypeQuest, Rarity: "mythic"},
		"stack zero":       {ID: "x", Name: "x", Type: inventory.TypeQuest, Stackable: true},
		"bad slot":         {ID: "x", Name: "x", Type: inventory.TypeArmor, EquipSlot: "tail"},
		"weapon no damage": {ID: "x", Name: "x", Type: inventory.TypeWeapon},
	} {
		assert.Error(t, tmpl.Validate(), name)
	}
	ok := inventory.Template{ID: "x", Name: "x", Type: inventory.TypeArmor, EquipSlot: inventory.SlotHead}
	assert.NoError(t, ok.Validate())
}

func TestSlot_DisplayName(t *testing.T) {
	assert.Equal(t, "Main Hand", inventory.SlotMainHand.DisplayName())
	assert.Equal(t, "tail", inventory.Slot("tail").DisplayName())
}

func TestEquipment_CloneAndMainHand(t *testing.T) {
	eq := inventory.Equipment{inventory.SlotMainHand: "iron-sword"}
	c := eq.Clone()
	c[inventory.SlotMainHand] = "club"
	assert.Equal(t, "iron-sword", eq.MainHand())
	assert.Equal(t, "", inventory.Equipment{}.MainHand())
}

func TestGroundItems_ExpiryAndCopy(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	item := &inventory.ItemInstance{ID: "i1", TemplateID: "wolf-pelt", ZoneID: "z", Quantity: 1, DespawnAt: now.Add(time.Hour)}
	gold := &inventory.CurrencyDrop{ID: "g1", ZoneID: "z", Amount: 9, DespawnAt: now.Add(5 * time.Minute)}

	assert.False(t, item.Expired(now))
	assert.True(t, item.Expired(now.Add(time.Hour)))
	assert.True(t, gold.Expired(now.Add(5*time.Minute)))
	assert.False(t, (&inventory.CurrencyDrop{}).Expired(now), "zero despawn never expires")

	var g inventory.GroundItem = gold
	assert.Equal(t, inventory.KindCurrency, g.Kind())
	cp := g.Copy().(*inventory.CurrencyDrop)
	cp.Amount = 1
	assert.Equal(t, 9, gold.Amount)
	assert.Equal(t, inventory.KindItem, item.Kind())
	assert.Equal(t, "z", item.Zone())
}
