// Package content aggregates the static template data (monsters, items,
// zones, quests) loaded from YAML into one read-only lookup service.
package content

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/game/world"
)

// ErrNotFound is returned when a template id is unknown.
var ErrNotFound = errors.New("template not found")

// Dirs names the YAML directories to load. Empty entries are skipped, except
// Zones which is required.
type Dirs struct {
	Monsters string
	Items    string
	Zones    string
	Quests   string
}

// Library is an immutable template store. Safe for concurrent use.
type Library struct {
	monsters map[string]*npc.Template
	items    *inventory.Registry
	world    *world.Manager
	quests   map[string]*quest.Template
	ordered  []*quest.Template
}

// New indexes the given templates.
//
// Precondition: zones must contain at least one zone.
// Postcondition: Returns a Library or an error on duplicate ids or invalid zone graphs.
func New(monsters []*npc.Template, items []*inventory.Template, zones []*world.Zone, quests []*quest.Template) (*Library, error) {
	l := &Library{
		monsters: make(map[string]*npc.Template, len(monsters)),
		items:    inventory.NewRegistry(),
		quests:   make(map[string]*quest.Template, len(quests)),
	}
	for _, m := range monsters {
		if _, dup := l.monsters[m.ID]; dup {
			return nil, fmt.Errorf("duplicate monster template %q", m.ID)
		}
		l.monsters[m.ID] = m
	}
	for _, it := range items {
		if err := l.items.RegisterItem(it); err != nil {
			return nil, err
		}
	}
	for _, q := range quests {
		if _, dup := l.quests[q.ID]; dup {
			return nil, fmt.Errorf("duplicate quest template %q", q.ID)
		}
		l.quests[q.ID] = q
		l.ordered = append(l.ordered, q)
	}
	sort.Slice(l.ordered, func(i, j int) bool {
		if l.ordered[i].Level != l.ordered[j].Level {
			return l.ordered[i].Level < l.ordered[j].Level
		}
		return l.ordered[i].ID < l.ordered[j].ID
	})
	wm, err := world.NewManager(zones)
	if err != nil {
		return nil, fmt.Errorf("building world: %w", err)
	}
	l.world = wm
	return l, nil
}

// Load reads every configured directory and builds a Library.
//
// Postcondition: Returns a Library or the first load error.
func Load(d Dirs) (*Library, error) {
	var (
		monsters []*npc.Template
		items    []*inventory.Template
		quests   []*quest.Template
		err      error
	)
	if d.Monsters != "" {
		if monsters, err = npc.LoadTemplates(d.Monsters); err != nil {
			return nil, fmt.Errorf("loading monsters: %w", err)
		}
	}
	if d.Items != "" {
		if items, err = inventory.LoadItems(d.Items); err != nil {
			return nil, fmt.Errorf("loading items: %w", err)
		}
	}
	if d.Quests != "" {
		if quests, err = quest.LoadTemplates(d.Quests); err != nil {
			return nil, fmt.Errorf("loading quests: %w", err)
		}
	}
	zones, err := world.LoadZonesFromDir(d.Zones)
	if err != nil {
		return nil, fmt.Errorf("loading zones: %w", err)
	}
	return New(monsters, items, zones, quests)
}

// MonsterTemplate returns the monster template with id.
func (l *Library) MonsterTemplate(_ context.Context, id string) (*npc.Template, error) {
	if m, ok := l.monsters[id]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("monster %q: %w", id, ErrNotFound)
}

// ItemTemplate returns the item template with id.
func (l *Library) ItemTemplate(_ context.Context, id string) (*inventory.Template, error) {
	if it, ok := l.items.Item(id); ok {
		return it, nil
	}
	return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
}

// ZoneTemplate returns the zone with id.
func (l *Library) ZoneTemplate(_ context.Context, id string) (*world.Zone, error) {
	if z, ok := l.world.Zone(id); ok {
		return z, nil
	}
	return nil, fmt.Errorf("zone %q: %w", id, ErrNotFound)
}

// QuestTemplate returns the quest with id.
func (l *Library) QuestTemplate(_ context.Context, id string) (*quest.Template, error) {
	if q, ok := l.quests[id]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("quest %q: %w", id, ErrNotFound)
}

// QuestTemplates returns every quest sorted by level then id.
func (l *Library) QuestTemplates(_ context.Context) ([]*quest.Template, error) {
	return append([]*quest.Template(nil), l.ordered...), nil
}

// StartingZone returns the zone new characters are created in.
func (l *Library) StartingZone() *world.Zone { return l.world.StartingZone() }

// Zones returns every zone sorted by id.
func (l *Library) Zones() []*world.Zone { return l.world.AllZones() }

// Counts reports how many templates of each kind are loaded.
func (l *Library) Counts() (monsters, items, zones, quests int) {
	return len(l.monsters), l.items.Len(), l.world.ZoneCount(), len(l.quests)
}

// Problems cross-checks references between templates: spawn rules, loot
// tables, quest item rewards and prerequisites. These are not fatal; the
// registry skips unknown templates at spawn time.
//
// Postcondition: Returns one message per dangling reference, sorted.
func (l *Library) Problems() []string {
	var out []string
	for _, z := range l.world.AllZones() {
		for _, r := range z.Monsters {
			if _, ok := l.monsters[r.Template]; !ok {
				out = append(out, fmt.Sprintf("zone %q spawns unknown monster %q", z.ID, r.Template))
			}
		}
		for _, r := range z.Resources {
			if _, ok := l.items.Item(r.Template); !ok {
				out = append(out, fmt.Sprintf("zone %q spawns unknown item %q", z.ID, r.Template))
			}
		}
	}
	for id, m := range l.monsters {
		for _, d := range m.Loot {
			if _, ok := l.items.Item(d.ItemID); !ok {
				out = append(out, fmt.Sprintf("monster %q drops unknown item %q", id, d.ItemID))
			}
		}
	}
	for id, q := range l.quests {
		for _, r := range q.Rewards {
			if r.Type != quest.RewardItem {
				continue
			}
			if _, ok := l.items.Item(r.Item); !ok {
				out = append(out, fmt.Sprintf("quest %q rewards unknown item %q", id, r.Item))
			}
		}
		for _, p := range q.Prerequisites {
			if _, ok := l.quests[p]; !ok {
				out = append(out, fmt.Sprintf("quest %q requires unknown quest %q", id, p))
			}
		}
		if q.Zone != "" {
			if _, ok := l.world.Zone(q.Zone); !ok {
				out = append(out, fmt.Sprintf("quest %q is offered in unknown zone %q", id, q.Zone))
			}
		}
	}
	sort.Strings(out)
	return out
}
