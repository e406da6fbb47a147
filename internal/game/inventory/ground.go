package inventory

import "time"

// Kind distinguishes the variants of GroundItem.
type Kind string

const (
	KindItem     Kind = "item"
	KindCurrency Kind = "currency"
)

// GroundItem is a collectible lying in a zone. The concrete variants are
// *ItemInstance and *CurrencyDrop.
type GroundItem interface {
	InstanceID() string
	Zone() string
	Kind() Kind
	// Expired reports whether the item has despawned at now.
	Expired(now time.Time) bool
	// Copy returns an independent copy of the variant.
	Copy() GroundItem
}

// ItemInstance is a stack of one item template lying in a zone.
type ItemInstance struct {
	ID         string
	TemplateID string
	ZoneID     string
	Quantity   int
	SpawnedAt  time.Time
	DespawnAt  time.Time
}

func (i *ItemInstance) InstanceID() string { return i.ID }
func (i *ItemInstance) Zone() string       { return i.ZoneID }
func (i *ItemInstance) Kind() Kind         { return KindItem }

// Expired reports whether now is at or past DespawnAt. A zero DespawnAt never expires.
func (i *ItemInstance) Expired(now time.Time) bool {
	return !i.DespawnAt.IsZero() && !now.Before(i.DespawnAt)
}

func (i *ItemInstance) Copy() GroundItem {
	c := *i
	return &c
}

// CurrencyDrop is a pile of gold lying in a zone. Collecting it credits the
// collector's wallet and never occupies an inventory slot.
type CurrencyDrop struct {
	ID        string
	ZoneID    string
	Amount    int
	SpawnedAt time.Time
	DespawnAt time.Time
}

func (c *CurrencyDrop) InstanceID() string { return c.ID }
func (c *CurrencyDrop) Zone() string       { return c.ZoneID }
func (c *CurrencyDrop) Kind() Kind         { return KindCurrency }

// Expired reports whether now is at or past DespawnAt. A zero DespawnAt never expires.
func (c *CurrencyDrop) Expired(now time.Time) bool {
	return !c.DespawnAt.IsZero() && !now.Before(c.DespawnAt)
}

func (c *CurrencyDrop) Copy() GroundItem {
	d := *c
	return &d
}
