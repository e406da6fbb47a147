package spawn

import (
	"time"

	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
)

// MonsterView is the read-only projection of a live monster shown in zone listings.
type MonsterView struct {
	ID         string         `json:"id" msgpack:"id"`
	TemplateID string         `json:"templateId" msgpack:"templateId"`
	ZoneID     string         `json:"zoneId" msgpack:"zoneId"`
	Name       string         `json:"name" msgpack:"name"`
	Level      int            `json:"level" msgpack:"level"`
	Health     int            `json:"health" msgpack:"health"`
	MaxHealth  int            `json:"maxHealth" msgpack:"maxHealth"`
	Condition  string         `json:"condition" msgpack:"condition"`
	Aggression npc.Aggression `json:"aggression" msgpack:"aggression"`
	Boss       bool           `json:"boss,omitempty" msgpack:"boss,omitempty"`
}

// ItemView is the read-only projection of a ground item.
type ItemView struct {
	ID         string         `json:"id" msgpack:"id"`
	ZoneID     string         `json:"zoneId" msgpack:"zoneId"`
	Kind       inventory.Kind `json:"kind" msgpack:"kind"`
	TemplateID string         `json:"templateId,omitempty" msgpack:"templateId,omitempty"`
	Quantity   int            `json:"quantity" msgpack:"quantity"`
	DespawnAt  time.Time      `json:"despawnAt" msgpack:"despawnAt"`
}

// ViewOfMonster projects a monster instance.
func ViewOfMonster(m *npc.Instance) MonsterView {
	return MonsterView{
		ID:         m.ID,
		TemplateID: m.TemplateID,
		ZoneID:     m.ZoneID,
		Name:       m.Name,
		Level:      m.Level,
		Health:     m.CurrentHealth,
		MaxHealth:  m.Stats.MaxHealth,
		Condition:  m.HealthDescription(),
		Aggression: m.Aggression,
		Boss:       m.Boss,
	}
}

// ViewOfItem projects a ground item. Currency drops report their amount as Quantity.
func ViewOfItem(g inventory.GroundItem) ItemView {
	switch it := g.(type) {
	case *inventory.ItemInstance:
		return ItemView{ID: it.ID, ZoneID: it.ZoneID, Kind: inventory.KindItem,
			TemplateID: it.TemplateID, Quantity: it.Quantity, DespawnAt: it.DespawnAt}
	case *inventory.CurrencyDrop:
		return ItemView{ID: it.ID, ZoneID: it.ZoneID, Kind: inventory.KindCurrency,
			Quantity: it.Amount, DespawnAt: it.DespawnAt}
	default:
		return ItemView{ID: g.InstanceID(), ZoneID: g.Zone(), Kind: g.Kind()}
	}
}
