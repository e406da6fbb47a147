// Package npc provides monster template definitions, live monster instances,
// and loot generation.
package npc

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/realm/internal/game/combat"
)

// Aggression describes how a monster reacts to players. It is carried as data only.
type Aggression string

const (
	Passive    Aggression = "passive"
	Neutral    Aggression = "neutral"
	Aggressive Aggression = "aggressive"
)

// Range is an inclusive integer range.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Stats holds the combat pools and weapon range of a monster.
type Stats struct {
	MaxHealth int   `yaml:"max_health" json:"maxHealth"`
	MaxMana   int   `yaml:"max_mana" json:"maxMana"`
	Damage    Range `yaml:"damage" json:"damage"`
}

// GoldRange is the gold a monster drops on death.
//
// In YAML it may be written either as a scalar v, which normalizes to
// {round(0.8v), round(1.2v)}, or as a {min, max} mapping.
type GoldRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// GoldFromScalar normalizes a single gold value into a ±20% range.
//
// Postcondition: Min <= Max; both are zero when v <= 0.
func GoldFromScalar(v int) GoldRange {
	if v <= 0 {
		return GoldRange{}
	}
	return GoldRange{
		Min: int(math.Round(float64(v) * 0.8)),
		Max: int(math.Round(float64(v) * 1.2)),
	}
}

// UnmarshalYAML accepts a scalar or a {min, max} mapping.
func (g *GoldRange) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var v int
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("gold: %w", err)
		}
		*g = GoldFromScalar(v)
		return nil
	}
	type plain GoldRange
	var p plain
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("gold: %w", err)
	}
	*g = GoldRange(p)
	return nil
}

// Template defines a reusable monster archetype loaded from YAML.
type Template struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Type        string            `yaml:"type"`
	Level       int               `yaml:"level"`
	Aggression  Aggression        `yaml:"aggression"`
	Attributes  combat.Attributes `yaml:"attributes"`
	Stats       Stats             `yaml:"stats"`
	Abilities   []string          `yaml:"abilities"`
	Loot        LootTable         `yaml:"loot"`
	Experience  int               `yaml:"experience"`
	Gold        GoldRange         `yaml:"gold"`
	// RespawnSeconds is the delay before a dead instance is replaced.
	// Zero or negative means the instance is removed on death.
	RespawnSeconds int  `yaml:"respawn_seconds"`
	Boss           bool `yaml:"boss"`
}

// RespawnDelay returns RespawnSeconds as a duration; zero when the template
// does not respawn.
func (t *Template) RespawnDelay() time.Duration {
	if t.RespawnSeconds <= 0 {
		return 0
	}
	return time.Duration(t.RespawnSeconds) * time.Second
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, Level >= 1,
// max_health >= 1, the damage and gold ranges are ordered, and the loot table is valid.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("monster template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("monster template %q: name must not be empty", t.ID)
	}
	if t.Level < 1 {
		return fmt.Errorf("monster template %q: level must be >= 1", t.ID)
	}
	if t.Stats.MaxHealth < 1 {
		return fmt.Errorf("monster template %q: stats.max_health must be >= 1", t.ID)
	}
	if t.Stats.Damage.Min < 0 || t.Stats.Damage.Min > t.Stats.Damage.Max {
		return fmt.Errorf("monster template %q: stats.damage must satisfy 0 <= min <= max, got %d..%d",
			t.ID, t.Stats.Damage.Min, t.Stats.Damage.Max)
	}
	if t.Gold.Min < 0 || t.Gold.Min > t.Gold.Max {
		return fmt.Errorf("monster template %q: gold must satisfy 0 <= min <= max, got %d..%d",
			t.ID, t.Gold.Min, t.Gold.Max)
	}
	switch t.Aggression {
	case "", Passive, Neutral, Aggressive:
	default:
		return fmt.Errorf("monster template %q: unknown aggression %q", t.ID, t.Aggression)
	}
	if err := t.Loot.Validate(); err != nil {
		return fmt.Errorf("monster template %q: %w", t.ID, err)
	}
	return nil
}

// LoadTemplateFromBytes parses a single monster template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading monster dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
