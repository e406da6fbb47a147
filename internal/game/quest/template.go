// Package quest defines quest templates and the per-character progress
// journal. The journal is a pure state machine; persistence and reward
// application live with the character and the game service.
package quest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ObjectiveType names the kind of gameplay event an objective listens for.
type ObjectiveType string

const (
	ObjectiveKill     ObjectiveType = "kill"
	ObjectiveCollect  ObjectiveType = "collect"
	ObjectiveTalk     ObjectiveType = "talk"
	ObjectiveDiscover ObjectiveType = "discover"
	ObjectiveInteract ObjectiveType = "interact"
	ObjectiveCraft    ObjectiveType = "craft"
	ObjectiveDeliver  ObjectiveType = "deliver"
)

var validObjectiveTypes = map[ObjectiveType]bool{
	ObjectiveKill: true, ObjectiveCollect: true, ObjectiveTalk: true, ObjectiveDiscover: true,
	ObjectiveInteract: true, ObjectiveCraft: true, ObjectiveDeliver: true,
}

// RewardType names what a quest reward grants.
type RewardType string

const (
	RewardExperience RewardType = "experience"
	RewardGold       RewardType = "gold"
	RewardItem       RewardType = "item"
	RewardAttribute  RewardType = "attribute"
)

// Category is informational quest grouping.
type Category string

const (
	CategoryMain        Category = "main"
	CategorySide        Category = "side"
	CategoryDaily       Category = "daily"
	CategoryRepeatable  Category = "repeatable"
	CategoryAchievement Category = "achievement"
	CategoryEvent       Category = "event"
)

// Objective is one requirement of a quest.
type Objective struct {
	Type        ObjectiveType `yaml:"type" json:"type"`
	Target      string        `yaml:"target" json:"target"`
	Required    int           `yaml:"required" json:"required"`
	Description string        `yaml:"description" json:"description"`
	// TargetName is the display name of Target; empty falls back to Target.
	TargetName string `yaml:"target_name" json:"targetName,omitempty"`
}

// DisplayTarget returns TargetName, or Target when no display name is set.
func (o Objective) DisplayTarget() string {
	if o.TargetName != "" {
		return o.TargetName
	}
	return o.Target
}

// Reward is granted on turn-in. Value is the experience, gold or attribute
// delta; Item and Quantity apply to item rewards; Attribute to attribute rewards.
type Reward struct {
	Type      RewardType `yaml:"type" json:"type"`
	Value     int        `yaml:"value" json:"value"`
	Item      string     `yaml:"item" json:"item,omitempty"`
	Quantity  int        `yaml:"quantity" json:"quantity,omitempty"`
	Attribute string     `yaml:"attribute" json:"attribute,omitempty"`
}

// ItemQuantity returns Quantity, treating values below one as one.
func (r Reward) ItemQuantity() int {
	if r.Quantity < 1 {
		return 1
	}
	return r.Quantity
}

// Template is an immutable quest definition.
type Template struct {
	ID          string
	Title       string
	Description string
	Level       int
	Category    Category
	Giver       string
	// Zone restricts availability to one zone. Empty = available everywhere.
	Zone                string
	Active              bool
	Objectives          []Objective
	Rewards             []Reward
	Prerequisites       []string
	Repeatable          bool
	RepeatCooldownHours int
	DialogueStart       string
	DialogueComplete    string
}

// RepeatCooldown returns the minimum time between completions of a repeatable quest.
func (t *Template) RepeatCooldown() time.Duration {
	if t.RepeatCooldownHours <= 0 {
		return 0
	}
	return time.Duration(t.RepeatCooldownHours) * time.Hour
}

// AvailableIn reports whether the quest may be offered in zoneID.
func (t *Template) AvailableIn(zoneID string) bool {
	return t.Zone == "" || t.Zone == zoneID
}

var attributeNames = map[string]bool{
	"strength": true, "dexterity": true, "intelligence": true,
	"constitution": true, "wisdom": true, "vitality": true,
}

// Validate checks the template for structural errors.
//
// Postcondition: Returns nil or an error joining every violation found.
func (t *Template) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if t.Title == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}
	if t.Level < 1 {
		errs = append(errs, fmt.Errorf("level must be >= 1, got %d", t.Level))
	}
	if len(t.Objectives) == 0 {
		errs = append(errs, errors.New("at least one objective is required"))
	}
	for i, o := range t.Objectives {
		if !validObjectiveTypes[o.Type] {
			errs = append(errs, fmt.Errorf("objective %d: unknown type %q", i, o.Type))
		}
		if o.Target == "" {
			errs = append(errs, fmt.Errorf("objective %d: target must not be empty", i))
		}
		if o.Required < 1 {
			errs = append(errs, fmt.Errorf("objective %d: required must be >= 1, got %d", i, o.Required))
		}
	}
	for i, r := range t.Rewards {
		switch r.Type {
		case RewardExperience, RewardGold:
			if r.Value < 0 {
				errs = append(errs, fmt.Errorf("reward %d: value must be >= 0", i))
			}
		case RewardItem:
			if r.Item == "" {
				errs = append(errs, fmt.Errorf("reward %d: item reward needs an item", i))
			}
		case RewardAttribute:
			if !attributeNames[r.Attribute] {
				errs = append(errs, fmt.Errorf("reward %d: unknown attribute %q", i, r.Attribute))
			}
		default:
			errs = append(errs, fmt.Errorf("reward %d: unknown type %q", i, r.Type))
		}
	}
	for _, p := range t.Prerequisites {
		if p == t.ID {
			errs = append(errs, errors.New("quest cannot be its own prerequisite"))
		}
	}
	if t.RepeatCooldownHours < 0 {
		errs = append(errs, errors.New("repeat_cooldown_hours must be >= 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("quest %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

type yamlTemplate struct {
	ID                  string      `yaml:"id"`
	Title               string      `yaml:"title"`
	Description         string      `yaml:"description"`
	Level               int         `yaml:"level"`
	Category            Category    `yaml:"category"`
	Giver               string      `yaml:"giver"`
	Zone                string      `yaml:"zone"`
	Active              *bool       `yaml:"active"`
	Objectives          []Objective `yaml:"objectives"`
	Rewards             []Reward    `yaml:"rewards"`
	Prerequisites       []string    `yaml:"prerequisites"`
	Repeatable          bool        `yaml:"repeatable"`
	RepeatCooldownHours int         `yaml:"repeat_cooldown_hours"`
	DialogueStart       string      `yaml:"dialogue_start"`
	DialogueComplete    string      `yaml:"dialogue_complete"`
}

// LoadTemplateFromBytes parses and validates one quest from YAML.
// Omitted fields default to level 1, category side, active true and
// objective required 1.
//
// Postcondition: Returns a validated Template or a non-nil error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var y yamlTemplate
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("parsing quest YAML: %w", err)
	}
	t := &Template{
		ID:                  y.ID,
		Title:               y.Title,
		Description:         strings.TrimSpace(y.Description),
		Level:               y.Level,
		Category:            y.Category,
		Giver:               y.Giver,
		Zone:                y.Zone,
		Active:              y.Active == nil || *y.Active,
		Objectives:          y.Objectives,
		Rewards:             y.Rewards,
		Prerequisites:       y.Prerequisites,
		Repeatable:          y.Repeatable,
		RepeatCooldownHours: y.RepeatCooldownHours,
		DialogueStart:       strings.TrimSpace(y.DialogueStart),
		DialogueComplete:    strings.TrimSpace(y.DialogueComplete),
	}
	if t.Level == 0 {
		t.Level = 1
	}
	if t.Category == "" {
		t.Category = CategorySide
	}
	for i := range t.Objectives {
		if t.Objectives[i].Required == 0 {
			t.Objectives[i].Required = 1
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTemplates loads every *.yaml / *.yml file in dir, sorted by ID.
//
// Postcondition: Returns the templates or the first error encountered.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading quest directory %s: %w", dir, err)
	}
	var out []*Template
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		t, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", e.Name(), err)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
