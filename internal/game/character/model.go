// Package character defines the persistent character model and the pure
// progression rules: creation, experience and level-up, and the death penalty.
package character

import (
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/quest"
)

// BaseAttribute is the starting value of every attribute.
const BaseAttribute = 10

const maxNameLength = 20

// Pool is a current/maximum resource such as health or mana.
//
// Invariant: 0 <= Current <= Max.
type Pool struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Restore sets Current to Max.
func (p *Pool) Restore() { p.Current = p.Max }

// Character is a player character's persistent state. Stores replace the
// whole document on save.
type Character struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Level      int                 `json:"level"`
	Experience int                 `json:"experience"`
	Attributes combat.Attributes   `json:"attributes"`
	Health     Pool                `json:"health"`
	Mana       Pool                `json:"mana"`
	Gold       int                 `json:"gold"`
	Inventory  *inventory.Backpack `json:"inventory"`
	Equipment  inventory.Equipment `json:"equipment"`
	ZoneID     string              `json:"zoneId"`
	Quests     quest.Journal       `json:"quests"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// New builds a level-1 character in zoneID with every attribute at
// BaseAttribute and full health and mana pools.
//
// Precondition: id and name must be non-empty; name at most 20 characters.
// Postcondition: Returns a Character ready for persistence, or a non-nil error.
func New(id, name, zoneID string, capacity int, now time.Time) (*Character, error) {
	if id == "" {
		return nil, errors.New("character id must not be empty")
	}
	if name == "" {
		return nil, errors.New("character name must not be empty")
	}
	if len(name) > maxNameLength {
		return nil, fmt.Errorf("character name must be at most %d characters", maxNameLength)
	}
	attrs := combat.Attributes{
		Strength: BaseAttribute, Dexterity: BaseAttribute, Intelligence: BaseAttribute,
		Constitution: BaseAttribute, Wisdom: BaseAttribute, Vitality: BaseAttribute,
	}
	hp := combat.MaxHealth(1, attrs.Vitality)
	mana := combat.MaxMana(1, attrs.Intelligence, attrs.Wisdom)
	return &Character{
		ID:         id,
		Name:       name,
		Level:      1,
		Attributes: attrs,
		Health:     Pool{Current: hp, Max: hp},
		Mana:       Pool{Current: mana, Max: mana},
		Inventory:  inventory.NewBackpack(capacity),
		Equipment:  inventory.Equipment{},
		ZoneID:     zoneID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Clone returns a deep copy of c. Mutations are applied to a clone and saved
// only once the whole transition succeeds.
func (c *Character) Clone() *Character {
	out := *c
	if c.Inventory != nil {
		out.Inventory = c.Inventory.Clone()
	}
	out.Equipment = c.Equipment.Clone()
	out.Quests = c.Quests.Clone()
	return &out
}

// Backpack returns the inventory, creating one of capacity if absent.
func (c *Character) Backpack(capacity int) *inventory.Backpack {
	if c.Inventory == nil {
		c.Inventory = inventory.NewBackpack(capacity)
	}
	return c.Inventory
}

// TakeDamage lowers health by amount, clamping at zero.
//
// Postcondition: Returns true when health reached zero.
func (c *Character) TakeDamage(amount int) bool {
	if amount > 0 {
		c.Health.Current -= amount
	}
	if c.Health.Current < 0 {
		c.Health.Current = 0
	}
	return c.Health.Current == 0
}

// Alive reports whether the character has health left.
func (c *Character) Alive() bool { return c.Health.Current > 0 }
