// Package spawn creates ephemeral monster and item instances from templates
// and tracks them per zone, including timed respawns of killed monsters.
package spawn

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/schedule"
)

const (
	// DefaultItemTTL is how long a dropped item stays on the ground.
	DefaultItemTTL = time.Hour
	// CurrencyTTL is how long dropped gold stays on the ground.
	CurrencyTTL = 5 * time.Minute

	currencyPrefix = "gold"
)

// Instancer builds instances from templates. It never registers them.
type Instancer struct {
	clock       schedule.Clock
	itemTTL     time.Duration
	currencyTTL time.Duration
}

// NewInstancer returns an Instancer reading time from clock. Non-positive TTLs
// fall back to DefaultItemTTL and CurrencyTTL.
//
// Precondition: clock must be non-nil.
func NewInstancer(clock schedule.Clock, itemTTL, currencyTTL time.Duration) *Instancer {
	if itemTTL <= 0 {
		itemTTL = DefaultItemTTL
	}
	if currencyTTL <= 0 {
		currencyTTL = CurrencyTTL
	}
	return &Instancer{clock: clock, itemTTL: itemTTL, currencyTTL: currencyTTL}
}

// newID returns <prefix>-<unix millis>-<random UUID>.
func newID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), uuid.NewString())
}

// SpawnMonster creates a full-health instance of tmpl in zoneID.
//
// Precondition: tmpl must be non-nil.
// Postcondition: the instance is alive with CurrentHealth == MaxHealth and owns
// copies of the template's slices.
func (in *Instancer) SpawnMonster(tmpl *npc.Template, zoneID string) *npc.Instance {
	now := in.clock.Now()
	return npc.NewInstance(newID(tmpl.ID, now), tmpl, zoneID, now)
}

// SpawnItem creates a ground item of tmpl in zoneID that despawns after the
// item TTL. A quantity below one is treated as one.
//
// Precondition: tmpl must be non-nil.
func (in *Instancer) SpawnItem(tmpl *inventory.Template, zoneID string, quantity int) *inventory.ItemInstance {
	if quantity < 1 {
		quantity = 1
	}
	now := in.clock.Now()
	return &inventory.ItemInstance{
		ID:         newID(tmpl.ID, now),
		TemplateID: tmpl.ID,
		ZoneID:     zoneID,
		Quantity:   quantity,
		SpawnedAt:  now,
		DespawnAt:  now.Add(in.itemTTL),
	}
}

// SpawnCurrency creates a gold drop of amount in zoneID that despawns after
// the currency TTL.
func (in *Instancer) SpawnCurrency(zoneID string, amount int) *inventory.CurrencyDrop {
	now := in.clock.Now()
	return &inventory.CurrencyDrop{
		ID:        newID(currencyPrefix, now),
		ZoneID:    zoneID,
		Amount:    amount,
		SpawnedAt: now,
		DespawnAt: now.Add(in.currencyTTL),
	}
}
