package npc

import (
	"fmt"

	"github.com/cory-johannsen/realm/internal/game/dice"
)

// ItemDrop defines a single item entry in a loot table with a drop chance.
type ItemDrop struct {
	ItemID string  `yaml:"item" json:"item"`
	Chance float64 `yaml:"chance" json:"chance"`
	MinQty int     `yaml:"min_qty" json:"minQty"`
	MaxQty int     `yaml:"max_qty" json:"maxQty"`
}

// LootTable lists the independent item drops of a monster.
type LootTable []ItemDrop

// Validate checks that the loot table satisfies its invariants.
//
// Postcondition: Returns nil iff every entry has an item id, a chance in (0, 1],
// and 1 <= min_qty <= max_qty. An empty table is valid.
func (lt LootTable) Validate() error {
	for i, item := range lt {
		if item.ItemID == "" {
			return fmt.Errorf("loot table: item[%d] must have a non-empty item id", i)
		}
		if item.Chance <= 0 || item.Chance > 1.0 {
			return fmt.Errorf("loot table: item[%d] chance must be in (0, 1.0], got %f", i, item.Chance)
		}
		if item.MinQty < 1 {
			return fmt.Errorf("loot table: item[%d] min_qty must be >= 1, got %d", i, item.MinQty)
		}
		if item.MinQty > item.MaxQty {
			return fmt.Errorf("loot table: item[%d] min_qty (%d) must be <= max_qty (%d)", i, item.MinQty, item.MaxQty)
		}
	}
	return nil
}

// Clone returns an independent copy of the table.
func (lt LootTable) Clone() LootTable {
	if lt == nil {
		return nil
	}
	out := make(LootTable, len(lt))
	copy(out, lt)
	return out
}

// LootItem is one rolled item drop.
type LootItem struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// GenerateLoot rolls every entry of lt independently.
//
// Precondition: lt must have passed Validate(); src must be non-nil.
// Postcondition: each returned Quantity is in [MinQty, MaxQty]; entries appear
// in table order.
func GenerateLoot(lt LootTable, src dice.Source) []LootItem {
	var out []LootItem
	for _, item := range lt {
		if !dice.Chance(src, item.Chance) {
			continue
		}
		out = append(out, LootItem{
			ItemID:   item.ItemID,
			Quantity: dice.Between(src, item.MinQty, item.MaxQty),
		})
	}
	return out
}

// RollGold draws a gold amount uniformly from g.
//
// Postcondition: g.Min <= result <= g.Max when g is ordered; 0 for an empty range.
func RollGold(g GoldRange, src dice.Source) int {
	if g.Max <= 0 {
		return 0
	}
	return dice.Between(src, g.Min, g.Max)
}
