// Package world provides the zone model: level bands, spawn rules, and the
// level-gated connections between zones.
package world

import (
	"fmt"
	"path/filepath"
)

// Direction names the way a connection leaves a zone.
type Direction string

// Standard compass directions and vertical movements.
const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
	Up    Direction = "up"
	Down  Direction = "down"
)

// Opposite returns the opposite of a standard direction.
// For custom directions, it returns an empty string.
func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	default:
		return ""
	}
}

// LevelRange is the intended character level band of a zone.
type LevelRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// SpawnRule asks for between Min and Max instances of Template at population time.
//
// Invariant: 0 <= Min <= Max.
type SpawnRule struct {
	Template string
	Min      int
	Max      int
}

// Connection is a one-way passage from a zone to Target.
type Connection struct {
	Target        string    `yaml:"zone"`
	Direction     Direction `yaml:"direction"`
	RequiredLevel int       `yaml:"required_level"`
}

// Zone is an immutable zone template.
type Zone struct {
	ID          string
	Name        string
	Description string
	Levels      LevelRange
	// Safe zones host no hostile spawns; the death respawn zone is normally safe.
	Safe bool
	// Starting marks the zone new characters are created in.
	Starting    bool
	Monsters    []SpawnRule
	Resources   []SpawnRule
	Connections []Connection
	// ScriptDir overrides <scripts root>/<zone id> as the zone's Lua directory.
	ScriptDir string
	// ScriptInstructionLimit overrides the default Lua instruction budget.
	// 0 = use the default.
	ScriptInstructionLimit int
}

// ScriptPath is the directory holding the zone's Lua scripts: ScriptDir
// when set, otherwise root/<id>. It is empty when neither is configured.
func (z *Zone) ScriptPath(root string) string {
	switch {
	case z.ScriptDir != "":
		return z.ScriptDir
	case root != "":
		return filepath.Join(root, z.ID)
	default:
		return ""
	}
}

// ConnectionTo returns the connection leading to target, if any.
//
// Postcondition: Returns (conn, true) if found, or (Connection{}, false).
func (z *Zone) ConnectionTo(target string) (Connection, bool) {
	for _, c := range z.Connections {
		if c.Target == target {
			return c, true
		}
	}
	return Connection{}, false
}

// Validate checks zone invariants that do not depend on other zones.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (z *Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("zone ID must not be empty")
	}
	if z.Name == "" {
		return fmt.Errorf("zone %q: name must not be empty", z.ID)
	}
	if z.Levels.Min < 0 || (z.Levels.Max != 0 && z.Levels.Min > z.Levels.Max) {
		return fmt.Errorf("zone %q: level range %d..%d is invalid", z.ID, z.Levels.Min, z.Levels.Max)
	}
	for _, rules := range [][]SpawnRule{z.Monsters, z.Resources} {
		for _, r := range rules {
			if r.Template == "" {
				return fmt.Errorf("zone %q: spawn rule has empty template", z.ID)
			}
			if r.Min < 0 || r.Min > r.Max {
				return fmt.Errorf("zone %q: spawn rule %q must satisfy 0 <= min <= max, got %d..%d",
					z.ID, r.Template, r.Min, r.Max)
			}
		}
	}
	for _, c := range z.Connections {
		if c.Target == "" {
			return fmt.Errorf("zone %q: connection %q has empty target", z.ID, c.Direction)
		}
		if c.Target == z.ID {
			return fmt.Errorf("zone %q: connection %q loops to itself", z.ID, c.Direction)
		}
		if c.RequiredLevel < 0 {
			return fmt.Errorf("zone %q: connection to %q has negative required_level", z.ID, c.Target)
		}
	}
	return nil
}
