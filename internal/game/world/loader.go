package world

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// zoneDoc is the layout of one zone file: a single `zone:` mapping.
type zoneDoc struct {
	Zone struct {
		ID          string       `yaml:"id"`
		Name        string       `yaml:"name"`
		Description string       `yaml:"description"`
		Levels      LevelRange   `yaml:"levels"`
		Safe        bool         `yaml:"safe"`
		Starting    bool         `yaml:"starting"`
		Monsters    []spawnDoc   `yaml:"monsters"`
		Resources   []spawnDoc   `yaml:"resources"`
		Connections []Connection `yaml:"connections"`
		ScriptDir   string       `yaml:"script_dir"`
		ScriptLimit int          `yaml:"script_instruction_limit"`
	} `yaml:"zone"`
}

// spawnDoc names its template under `monster:` in monster rules and `item:`
// in resource rules.
type spawnDoc struct {
	Monster string `yaml:"monster"`
	Item    string `yaml:"item"`
	Min     int    `yaml:"min"`
	Max     int    `yaml:"max"`
}

func spawnRules(docs []spawnDoc) []SpawnRule {
	var rules []SpawnRule
	for _, d := range docs {
		tmpl := d.Monster
		if tmpl == "" {
			tmpl = d.Item
		}
		rules = append(rules, SpawnRule{Template: tmpl, Min: d.Min, Max: d.Max})
	}
	return rules
}

func (d *zoneDoc) zone() *Zone {
	z := d.Zone
	return &Zone{
		ID:                     z.ID,
		Name:                   z.Name,
		Description:            strings.TrimSpace(z.Description),
		Levels:                 z.Levels,
		Safe:                   z.Safe,
		Starting:               z.Starting,
		Monsters:               spawnRules(z.Monsters),
		Resources:              spawnRules(z.Resources),
		Connections:            z.Connections,
		ScriptDir:              z.ScriptDir,
		ScriptInstructionLimit: z.ScriptLimit,
	}
}

// LoadZoneFromBytes parses one zone document and validates it.
func LoadZoneFromBytes(data []byte) (*Zone, error) {
	var doc zoneDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing zone: %w", err)
	}
	z := doc.zone()
	if err := z.Validate(); err != nil {
		return nil, fmt.Errorf("zone %q: %w", z.ID, err)
	}
	return z, nil
}

// LoadZoneFromFile reads and parses a zone file.
func LoadZoneFromFile(path string) (*Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading zone file: %w", err)
	}
	return LoadZoneFromBytes(data)
}

// LoadZonesFromDir loads every .yaml and .yml file in dir, in name order.
//
// Postcondition: Either every file loaded, or the error names each file
// that failed. A directory without zone files is an error.
func LoadZonesFromDir(dir string) ([]*Zone, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading zone directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if ext := filepath.Ext(e.Name()); !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no zone files in %s", dir)
	}
	slices.Sort(names)

	zones := make([]*Zone, 0, len(names))
	var errs []error
	for _, name := range names {
		z, err := LoadZoneFromFile(filepath.Join(dir, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		zones = append(zones, z)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return zones, nil
}
