package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/game/spawn"
)

// CollectResult reports a pickup.
type CollectResult struct {
	Result
	Item      spawn.ItemView       `json:"item"`
	Quests    []QuestUpdate        `json:"quests,omitempty"`
	Character *character.Character `json:"character,omitempty"`
}

// CollectItem moves a ground item into the character's inventory, or gold
// into the wallet.
//
// Precondition: characterID and itemID must be non-empty.
// Postcondition: When the inventory cannot take the item it stays in the
// zone. Of two characters racing for one item exactly one succeeds; the
// other gets CodeConflict.
func (s *Service) CollectItem(ctx context.Context, characterID, itemID string) (CollectResult, error) {
	unlock := s.locks.Lock(characterID)
	defer unlock()

	c, res, err := s.loadCharacter(ctx, "collect item", characterID)
	if c == nil {
		return CollectResult{Result: res}, err
	}
	ground, err := s.registry.GetItem(itemID)
	if errors.Is(err, spawn.ErrNotFound) {
		return CollectResult{Result: reject(CodeInvalid, "There is no %q here.", itemID)}, nil
	}
	if err != nil {
		res, err := s.unavailable("collect item", err)
		return CollectResult{Result: res}, err
	}
	if ground.Zone() != c.ZoneID {
		return CollectResult{Result: reject(CodeInvalid, "That item is not in your zone.")}, nil
	}

	work := c.Clone()
	var tmpl *inventory.Template
	if it, ok := ground.(*inventory.ItemInstance); ok {
		tmpl, res, err = lookup(ctx, s, "collect item",
			reject(CodeInvalid, "Unknown item %q.", it.TemplateID),
			func(ctx context.Context) (*inventory.Template, error) { return s.templates.ItemTemplate(ctx, it.TemplateID) })
		if !res.Success {
			return CollectResult{Result: res}, err
		}
		if !work.Backpack(s.cfg.InventoryCapacity).CanAdd(tmpl, it.Quantity) {
			return CollectResult{Result: reject(CodeInvalid, "Your inventory is full.")}, nil
		}
	}

	taken, err := s.registry.CollectItem(itemID)
	if errors.Is(err, spawn.ErrNotFound) {
		return CollectResult{Result: reject(CodeConflict, "Someone else got there first.")}, nil
	}
	if err != nil {
		res, err := s.unavailable("collect item", err)
		return CollectResult{Result: res}, err
	}

	cr := CollectResult{Item: spawn.ViewOfItem(taken)}
	var (
		hookItem string
		qty      int
		msg      Result
	)
	switch it := taken.(type) {
	case *inventory.CurrencyDrop:
		work.Gold += it.Amount
		hookItem, qty = string(inventory.KindCurrency), it.Amount
		msg = success("You pick up %d gold.", it.Amount)
	case *inventory.ItemInstance:
		if err := work.Inventory.Add(tmpl, it.Quantity); err != nil {
			s.restore(taken)
			return CollectResult{Result: reject(CodeInvalid, "Your inventory is full.")}, nil
		}
		cr.Quests = updates(work.Quests.ApplyEvent(quest.ObjectiveCollect, it.TemplateID, it.Quantity))
		hookItem, qty = it.TemplateID, it.Quantity
		msg = success("You pick up %d x %s.", it.Quantity, tmpl.Name)
	}

	if err := s.saveCharacter(ctx, work); err != nil {
		s.restore(taken)
		res, err := s.unavailable("collect item", err)
		return CollectResult{Result: res}, err
	}
	cr.Result = msg
	cr.Character = work

	s.notify(c.ZoneID, EventItemCollected, CollectPayload{
		CharacterID: c.ID,
		InstanceID:  taken.InstanceID(),
		TemplateID:  cr.Item.TemplateID,
		Quantity:    qty,
		Currency:    taken.Kind() == inventory.KindCurrency,
	})
	s.hooks.OnItemCollected(c.ZoneID, c.ID, hookItem, qty)
	return cr, nil
}

// restore puts an item taken from the zone back after a failed pickup.
func (s *Service) restore(it inventory.GroundItem) {
	if err := s.registry.AddItems(it.Zone(), it); err != nil {
		s.logger.Warn("collected item lost", zap.String("item", it.InstanceID()), zap.Error(err))
		return
	}
	s.logger.Info("collected item returned to zone",
		zap.String("item", it.InstanceID()), zap.String("zone", it.Zone()))
}
