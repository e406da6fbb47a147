package world

import (
	"fmt"
	"sort"
)

// Manager indexes the loaded zones. It is read-only after construction and
// therefore safe for concurrent use.
type Manager struct {
	zones    map[string]*Zone
	order    []string
	starting string
}

// NewManager creates a Manager from the given zones.
//
// Precondition: zones must contain at least one zone.
// Postcondition: Returns a Manager with all zones indexed by ID, or an error on
// duplicate zone IDs, more than one starting zone, or dangling connections.
// When no zone is marked starting, the first zone is used.
func NewManager(zones []*Zone) (*Manager, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("world: at least one zone is required")
	}
	m := &Manager{zones: make(map[string]*Zone, len(zones))}
	for _, z := range zones {
		if _, exists := m.zones[z.ID]; exists {
			return nil, fmt.Errorf("duplicate zone ID: %q", z.ID)
		}
		m.zones[z.ID] = z
		m.order = append(m.order, z.ID)
		if z.Starting {
			if m.starting != "" {
				return nil, fmt.Errorf("zones %q and %q are both marked starting", m.starting, z.ID)
			}
			m.starting = z.ID
		}
	}
	if m.starting == "" {
		m.starting = zones[0].ID
	}
	sort.Strings(m.order)
	if err := m.ValidateConnections(); err != nil {
		return nil, err
	}
	return m, nil
}

// ValidateConnections checks that every connection target resolves to a loaded zone.
//
// Postcondition: Returns nil if all connections resolve, or an error naming the first dangling target.
func (m *Manager) ValidateConnections() error {
	for _, id := range m.order {
		for _, c := range m.zones[id].Connections {
			if _, ok := m.zones[c.Target]; !ok {
				return fmt.Errorf("zone %q: connection %q targets unknown zone %q", id, c.Direction, c.Target)
			}
		}
	}
	return nil
}

// Zone returns the zone with the given ID.
//
// Postcondition: Returns (zone, true) if found, or (nil, false).
func (m *Manager) Zone(id string) (*Zone, bool) {
	z, ok := m.zones[id]
	return z, ok
}

// StartingZone returns the zone new characters are created in.
func (m *Manager) StartingZone() *Zone {
	return m.zones[m.starting]
}

// ZoneCount returns the number of loaded zones.
func (m *Manager) ZoneCount() int {
	return len(m.zones)
}

// AllZones returns every zone sorted by ID.
func (m *Manager) AllZones() []*Zone {
	out := make([]*Zone, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.zones[id])
	}
	return out
}
