package npc

import (
	"time"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// Instance is a live monster occupying a zone.
//
// Invariant: 0 <= CurrentHealth <= Stats.MaxHealth; Alive == (CurrentHealth > 0).
type Instance struct {
	// ID uniquely identifies this runtime instance.
	ID string
	// TemplateID is the source template's ID.
	TemplateID string
	Name       string
	Type       string
	ZoneID     string
	Level      int
	Aggression Aggression
	Attributes combat.Attributes
	Stats      Stats
	// CurrentHealth is the instance's remaining health.
	CurrentHealth int
	Abilities     []string
	Loot          LootTable
	Experience    int
	Gold          GoldRange
	Boss          bool
	Alive         bool
	// RespawnSeconds is copied from the template; <= 0 means no respawn.
	RespawnSeconds int
	SpawnedAt      time.Time
	LastCombatAt   time.Time
	DiedAt         time.Time
	KilledBy       string
}

// NewInstance creates a full-health monster instance from a template, placed in zoneID.
// Slices are copied so that the instance never aliases template memory.
//
// Precondition: id must be non-empty; tmpl must be non-nil; zoneID must be non-empty.
// Postcondition: CurrentHealth == tmpl.Stats.MaxHealth and Alive is true.
func NewInstance(id string, tmpl *Template, zoneID string, now time.Time) *Instance {
	return &Instance{
		ID:             id,
		TemplateID:     tmpl.ID,
		Name:           tmpl.Name,
		Type:           tmpl.Type,
		ZoneID:         zoneID,
		Level:          tmpl.Level,
		Aggression:     tmpl.Aggression,
		Attributes:     tmpl.Attributes,
		Stats:          tmpl.Stats,
		CurrentHealth:  tmpl.Stats.MaxHealth,
		Abilities:      append([]string(nil), tmpl.Abilities...),
		Loot:           tmpl.Loot.Clone(),
		Experience:     tmpl.Experience,
		Gold:           tmpl.Gold,
		Boss:           tmpl.Boss,
		Alive:          true,
		RespawnSeconds: tmpl.RespawnSeconds,
		SpawnedAt:      now,
	}
}

// Clone returns a deep copy of the instance.
func (i *Instance) Clone() *Instance {
	c := *i
	c.Abilities = append([]string(nil), i.Abilities...)
	c.Loot = i.Loot.Clone()
	return &c
}

// RespawnDelay returns the configured respawn delay, zero when the instance
// is removed on death.
func (i *Instance) RespawnDelay() time.Duration {
	if i.RespawnSeconds <= 0 {
		return 0
	}
	return time.Duration(i.RespawnSeconds) * time.Second
}

// ApplyDamage reduces CurrentHealth by amount, flooring at zero, and stamps
// LastCombatAt.
//
// Precondition: amount >= 0; the instance must be alive.
// Postcondition: CurrentHealth >= 0; returns true iff this call killed the instance.
func (i *Instance) ApplyDamage(amount int, now time.Time) bool {
	if amount < 0 {
		amount = 0
	}
	i.LastCombatAt = now
	i.CurrentHealth -= amount
	if i.CurrentHealth <= 0 {
		i.CurrentHealth = 0
		i.Alive = false
		return true
	}
	return false
}

// StatsPatch is a partial update of Stats; nil fields are left unchanged.
type StatsPatch struct {
	MaxHealth *int
	MaxMana   *int
	Damage    *Range
}

// Patch is a partial update of an Instance. Nil fields are left unchanged and
// Stats is merged field by field.
type Patch struct {
	Name          *string
	Level         *int
	Attributes    *combat.Attributes
	Stats         *StatsPatch
	CurrentHealth *int
	Abilities     []string
}

// Apply merges p into the instance and re-establishes the health invariant.
//
// Postcondition: 0 <= CurrentHealth <= Stats.MaxHealth; Alive == (CurrentHealth > 0).
func (i *Instance) Apply(p Patch) {
	if p.Name != nil {
		i.Name = *p.Name
	}
	if p.Level != nil {
		i.Level = *p.Level
	}
	if p.Attributes != nil {
		i.Attributes = *p.Attributes
	}
	if p.Stats != nil {
		if p.Stats.MaxHealth != nil {
			i.Stats.MaxHealth = *p.Stats.MaxHealth
		}
		if p.Stats.MaxMana != nil {
			i.Stats.MaxMana = *p.Stats.MaxMana
		}
		if p.Stats.Damage != nil {
			i.Stats.Damage = *p.Stats.Damage
		}
	}
	if p.CurrentHealth != nil {
		i.CurrentHealth = *p.CurrentHealth
	}
	if p.Abilities != nil {
		i.Abilities = append([]string(nil), p.Abilities...)
	}
	if i.Stats.MaxHealth < 0 {
		i.Stats.MaxHealth = 0
	}
	if i.CurrentHealth > i.Stats.MaxHealth {
		i.CurrentHealth = i.Stats.MaxHealth
	}
	if i.CurrentHealth < 0 {
		i.CurrentHealth = 0
	}
	i.Alive = i.CurrentHealth > 0
}

// HealthDescription returns a visible health state string for zone listings.
//
// Postcondition: Returns a non-empty string.
func (i *Instance) HealthDescription() string {
	if i.CurrentHealth <= 0 || i.Stats.MaxHealth <= 0 {
		return "dead"
	}
	pct := float64(i.CurrentHealth) / float64(i.Stats.MaxHealth)
	switch {
	case pct >= 1.0:
		return "unharmed"
	case pct >= 0.85:
		return "barely scratched"
	case pct >= 0.60:
		return "lightly wounded"
	case pct >= 0.40:
		return "moderately wounded"
	case pct >= 0.20:
		return "heavily wounded"
	default:
		return "critically wounded"
	}
}
