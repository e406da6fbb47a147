// Package inventory defines item templates, collectible ground items, and the
// slot-bounded character inventory.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Type constants for Template.Type.
const (
	TypeWeapon        = "weapon"
	TypeArmor         = "armor"
	TypeConsumable    = "consumable"
	TypeQuest         = "quest"
	TypeMiscellaneous = "miscellaneous"
	TypeCurrency      = "currency"
)

var validTypes = map[string]bool{
	TypeWeapon:        true,
	TypeArmor:         true,
	TypeConsumable:    true,
	TypeQuest:         true,
	TypeMiscellaneous: true,
	TypeCurrency:      true,
}

var validRarities = map[string]bool{
	"":          true,
	"common":    true,
	"uncommon":  true,
	"rare":      true,
	"epic":      true,
	"legendary": true,
}

// DamageRange is the inclusive base damage of a weapon.
type DamageRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Template defines the static properties of an item loaded from YAML.
type Template struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Type        string       `yaml:"type"`
	Rarity      string       `yaml:"rarity"`
	Level       int          `yaml:"level"`
	Value       int          `yaml:"value"`
	Stackable   bool         `yaml:"stackable"`
	MaxStack    int          `yaml:"max_stack"`
	EquipSlot   Slot         `yaml:"equip_slot"`
	Damage      *DamageRange `yaml:"damage"`
}

// StackLimit returns the number of units one inventory slot can hold.
//
// Postcondition: Returns 1 for non-stackable items and >= 1 otherwise.
func (d *Template) StackLimit() int {
	if !d.Stackable || d.MaxStack < 1 {
		return 1
	}
	return d.MaxStack
}

// Validate checks that the Template satisfies its invariants.
//
// Precondition: d is non-nil.
// Postcondition: returns nil iff all fields are valid.
func (d *Template) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if d.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if !validTypes[d.Type] {
		errs = append(errs, fmt.Errorf("type must be one of weapon, armor, consumable, quest, miscellaneous, currency; got %q", d.Type))
	}
	if !validRarities[d.Rarity] {
		errs = append(errs, fmt.Errorf("unknown rarity %q", d.Rarity))
	}
	if d.Stackable && d.MaxStack < 1 {
		errs = append(errs, errors.New("max_stack must be >= 1 for stackable items"))
	}
	if d.EquipSlot != "" && !d.EquipSlot.Valid() {
		errs = append(errs, fmt.Errorf("unknown equip_slot %q", d.EquipSlot))
	}
	if d.Damage != nil && (d.Damage.Min < 0 || d.Damage.Min > d.Damage.Max) {
		errs = append(errs, fmt.Errorf("damage must satisfy 0 <= min <= max, got %d..%d", d.Damage.Min, d.Damage.Max))
	}
	if d.Type == TypeWeapon && d.Damage == nil {
		errs = append(errs, errors.New("damage is required when type is weapon"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("item %q validation failed: %w", d.ID, errors.Join(errs...))
	}
	return nil
}

// LoadItems reads all *.yaml and *.yml files from dir, parses each as a
// Template, validates it, and returns the collected slice.
//
// Precondition: dir is a readable directory path.
// Postcondition: returns all valid Templates or the first encountered error.
func LoadItems(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadItems: cannot read directory %q: %w", dir, err)
	}

	var items []*Template
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("LoadItems: cannot read file %q: %w", path, err)
		}
		var d Template
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("LoadItems: cannot parse file %q: %w", path, err)
		}
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("LoadItems: invalid item in %q: %w", path, err)
		}
		items = append(items, &d)
	}
	return items, nil
}
