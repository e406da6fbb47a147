package inventory

import (
	"errors"
	"fmt"
)

// DefaultCapacity is the slot count of a newly created character's inventory.
const DefaultCapacity = 20

// ErrInventoryFull is returned when an addition would need more slots than remain.
var ErrInventoryFull = errors.New("inventory full")

// Stack is one occupied inventory slot.
type Stack struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// Backpack is a slot-bounded container. Stackable items merge into existing
// stacks up to their max stack before opening new slots.
type Backpack struct {
	Capacity int     `json:"capacity"`
	Slots    []Stack `json:"slots"`
}

// NewBackpack creates an empty Backpack with the given slot capacity.
//
// Precondition: capacity >= 0.
// Postcondition: returned Backpack has zero stacks.
func NewBackpack(capacity int) *Backpack {
	return &Backpack{Capacity: capacity, Slots: []Stack{}}
}

// plan computes how quantity units of def would be placed without mutating b.
// It returns the per-slot merge amounts (indexed like b.Slots) and the sizes
// of the new stacks to open.
func (b *Backpack) plan(def *Template, quantity int) (merges map[int]int, fresh []int) {
	limit := def.StackLimit()
	remaining := quantity
	merges = make(map[int]int)

	if limit > 1 {
		for i := range b.Slots {
			if remaining <= 0 {
				break
			}
			if b.Slots[i].ItemID != def.ID || b.Slots[i].Quantity >= limit {
				continue
			}
			take := limit - b.Slots[i].Quantity
			if take > remaining {
				take = remaining
			}
			merges[i] = take
			remaining -= take
		}
	}

	for remaining > 0 {
		q := remaining
		if q > limit {
			q = limit
		}
		fresh = append(fresh, q)
		remaining -= q
	}
	return merges, fresh
}

// CanAdd reports whether quantity units of def fit.
//
// Precondition: def must be non-nil; quantity > 0.
func (b *Backpack) CanAdd(def *Template, quantity int) bool {
	_, fresh := b.plan(def, quantity)
	return len(b.Slots)+len(fresh) <= b.Capacity
}

// Add places quantity units of def into the backpack.
// It is atomic: if the capacity would be exceeded, no state is modified.
//
// Precondition: def must be non-nil.
// Postcondition: on success, Count(def.ID) grows by quantity and UsedSlots() <= Capacity;
// on error, backpack state is unchanged.
func (b *Backpack) Add(def *Template, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("backpack: quantity must be > 0")
	}
	merges, fresh := b.plan(def, quantity)
	if len(b.Slots)+len(fresh) > b.Capacity {
		return fmt.Errorf("backpack: adding %d of %q: %w", quantity, def.ID, ErrInventoryFull)
	}

	for i, q := range merges {
		b.Slots[i].Quantity += q
	}
	for _, q := range fresh {
		b.Slots = append(b.Slots, Stack{ItemID: def.ID, Quantity: q})
	}
	return nil
}

// Remove takes quantity units of itemID out of the backpack, draining the
// last stacks first.
//
// Precondition: quantity > 0.
// Postcondition: on error (not enough units), backpack state is unchanged.
func (b *Backpack) Remove(itemID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("backpack: quantity must be > 0")
	}
	if have := b.Count(itemID); have < quantity {
		return fmt.Errorf("backpack: cannot remove %d of %q, have %d", quantity, itemID, have)
	}
	remaining := quantity
	for i := len(b.Slots) - 1; i >= 0 && remaining > 0; i-- {
		if b.Slots[i].ItemID != itemID {
			continue
		}
		take := b.Slots[i].Quantity
		if take > remaining {
			take = remaining
		}
		b.Slots[i].Quantity -= take
		remaining -= take
		if b.Slots[i].Quantity == 0 {
			b.Slots = append(b.Slots[:i], b.Slots[i+1:]...)
		}
	}
	return nil
}

// Count returns the total units of itemID across all stacks.
func (b *Backpack) Count(itemID string) int {
	n := 0
	for _, s := range b.Slots {
		if s.ItemID == itemID {
			n += s.Quantity
		}
	}
	return n
}

// UsedSlots returns the number of occupied slots.
//
// Postcondition: result >= 0 and <= Capacity.
func (b *Backpack) UsedSlots() int {
	return len(b.Slots)
}

// Items returns a snapshot copy of all stacks.
//
// Postcondition: returned slice is a copy; mutations do not affect the backpack.
func (b *Backpack) Items() []Stack {
	out := make([]Stack, len(b.Slots))
	copy(out, b.Slots)
	return out
}

// Clone returns an independent copy of the backpack.
func (b *Backpack) Clone() *Backpack {
	return &Backpack{Capacity: b.Capacity, Slots: b.Items()}
}
