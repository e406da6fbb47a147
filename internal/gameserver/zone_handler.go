package gameserver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/game/spawn"
	"github.com/cory-johannsen/realm/internal/game/world"
	"github.com/cory-johannsen/realm/internal/storage"
)

// ZoneView describes a zone to its occupants.
type ZoneView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	MinLevel    int        `json:"minLevel"`
	MaxLevel    int        `json:"maxLevel"`
	Safe        bool       `json:"safe,omitempty"`
	Exits       []ExitView `json:"exits,omitempty"`
}

// ExitView is one connection out of a zone.
type ExitView struct {
	Zone          string          `json:"zone"`
	Direction     world.Direction `json:"direction"`
	RequiredLevel int             `json:"requiredLevel,omitempty"`
}

func viewOfZone(z *world.Zone) ZoneView {
	v := ZoneView{
		ID:          z.ID,
		Name:        z.Name,
		Description: z.Description,
		MinLevel:    z.Levels.Min,
		MaxLevel:    z.Levels.Max,
		Safe:        z.Safe,
	}
	for _, c := range z.Connections {
		v.Exits = append(v.Exits, ExitView{Zone: c.Target, Direction: c.Direction, RequiredLevel: c.RequiredLevel})
	}
	return v
}

// ZoneResult describes a zone and what currently occupies it.
type ZoneResult struct {
	Result
	Zone      *ZoneView            `json:"zone,omitempty"`
	Monsters  []spawn.MonsterView  `json:"monsters,omitempty"`
	Items     []spawn.ItemView     `json:"items,omitempty"`
	Quests    []QuestUpdate        `json:"quests,omitempty"`
	Character *character.Character `json:"character,omitempty"`
}

func (s *Service) zoneTemplate(ctx context.Context, op, zoneID string) (*world.Zone, Result, error) {
	return lookup(ctx, s, op, reject(CodeInvalid, "Unknown zone %q.", zoneID),
		func(ctx context.Context) (*world.Zone, error) { return s.templates.ZoneTemplate(ctx, zoneID) })
}

// PopulateZone spawns the zone's monsters and resources from its rules.
func (s *Service) PopulateZone(ctx context.Context, zoneID string) (ZoneResult, error) {
	z, res, err := s.zoneTemplate(ctx, "populate zone", zoneID)
	if !res.Success {
		return ZoneResult{Result: res}, err
	}
	pop, err := s.registry.PopulateZone(ctx, z)
	if err != nil {
		res, err := s.unavailable("populate zone", err)
		return ZoneResult{Result: res}, err
	}
	v := viewOfZone(z)
	return ZoneResult{
		Result:   success("%s populated: %d monsters, %d items.", z.Name, len(pop.Monsters), len(pop.Items)),
		Zone:     &v,
		Monsters: pop.Monsters,
		Items:    pop.Items,
	}, nil
}

// PopulateAll populates every zone not yet populated.
//
// Postcondition: Returns the number of zones this call populated, or the
// first failure.
func (s *Service) PopulateAll(ctx context.Context, zones []*world.Zone) (int, error) {
	n := 0
	for _, z := range zones {
		_, did, err := s.registry.EnsurePopulated(ctx, z)
		if err != nil {
			return n, fmt.Errorf("populating %s: %w", z.ID, err)
		}
		if did {
			n++
		}
	}
	return n, nil
}

// ListLiveMonsters returns the alive monsters of zoneID.
func (s *Service) ListLiveMonsters(ctx context.Context, zoneID string) (ZoneResult, error) {
	z, res, err := s.zoneTemplate(ctx, "list monsters", zoneID)
	if !res.Success {
		return ZoneResult{Result: res}, err
	}
	v := viewOfZone(z)
	return ZoneResult{Result: success(""), Zone: &v, Monsters: s.registry.ListLiveMonsters(zoneID)}, nil
}

// ListLiveItems returns the unexpired ground items of zoneID.
func (s *Service) ListLiveItems(ctx context.Context, zoneID string) (ZoneResult, error) {
	z, res, err := s.zoneTemplate(ctx, "list items", zoneID)
	if !res.Success {
		return ZoneResult{Result: res}, err
	}
	v := viewOfZone(z)
	return ZoneResult{Result: success(""), Zone: &v, Items: s.registry.ListLiveItems(zoneID)}, nil
}

// EnterZone moves the character along a connection of its current zone.
// Zones not yet populated are populated on entry.
//
// Precondition: characterID and zoneID must be non-empty.
// Postcondition: On success player_left and player_arrived events are sent
// and a discover event for zoneID is applied to the character's quests.
func (s *Service) EnterZone(ctx context.Context, characterID, zoneID string) (ZoneResult, error) {
	unlock := s.locks.Lock(characterID)
	defer unlock()

	c, res, err := s.loadCharacter(ctx, "enter zone", characterID)
	if c == nil {
		return ZoneResult{Result: res}, err
	}
	if c.ZoneID == zoneID {
		return ZoneResult{Result: reject(CodeInvalid, "You are already there.")}, nil
	}
	target, res, err := s.zoneTemplate(ctx, "enter zone", zoneID)
	if !res.Success {
		return ZoneResult{Result: res}, err
	}
	current, res, err := s.zoneTemplate(ctx, "enter zone", c.ZoneID)
	if !res.Success {
		return ZoneResult{Result: res}, err
	}
	conn, ok := current.ConnectionTo(zoneID)
	if !ok {
		return ZoneResult{Result: reject(CodeInvalid, "There is no path from %s to %s.", current.Name, target.Name)}, nil
	}
	if c.Level < conn.RequiredLevel {
		return ZoneResult{Result: reject(CodeInvalid, "You must be level %d to enter %s.", conn.RequiredLevel, target.Name)}, nil
	}

	if _, _, err := s.registry.EnsurePopulated(ctx, target); err != nil {
		res, err := s.unavailable("enter zone", err)
		return ZoneResult{Result: res}, err
	}

	work := c.Clone()
	work.ZoneID = zoneID
	changed := updates(work.Quests.ApplyEvent(quest.ObjectiveDiscover, zoneID, 1))
	if err := s.saveCharacter(ctx, work); err != nil {
		res, err := s.unavailable("enter zone", err)
		return ZoneResult{Result: res}, err
	}
	s.notifyMove(work, c.ZoneID, zoneID)

	v := viewOfZone(target)
	return ZoneResult{
		Result:    success("You travel %s to %s.", conn.Direction, target.Name),
		Zone:      &v,
		Monsters:  s.registry.ListLiveMonsters(zoneID),
		Items:     s.registry.ListLiveItems(zoneID),
		Quests:    changed,
		Character: work,
	}, nil
}

// CreateCharacter creates a level-1 character in the starting zone,
// populating the zone if needed.
func (s *Service) CreateCharacter(ctx context.Context, characterID, name string) (CharacterResult, error) {
	unlock := s.locks.Lock(characterID)
	defer unlock()

	lctx, cancel := s.storeCtx(ctx)
	_, err := s.chars.LoadCharacter(lctx, characterID)
	cancel()
	switch {
	case err == nil:
		return CharacterResult{Result: reject(CodeConflict, "Character %q already exists.", characterID)}, nil
	case !errors.Is(err, storage.ErrCharacterNotFound):
		res, err := s.unavailable("create character", err)
		return CharacterResult{Result: res}, err
	}
	startZone, res, err := s.zoneTemplate(ctx, "create character", s.cfg.StartingZone)
	if !res.Success {
		return CharacterResult{Result: res}, err
	}
	if _, _, err := s.registry.EnsurePopulated(ctx, startZone); err != nil {
		res, err := s.unavailable("create character", err)
		return CharacterResult{Result: res}, err
	}

	c, err := character.New(characterID, name, s.cfg.StartingZone, s.cfg.InventoryCapacity, s.clock.Now())
	if err != nil {
		return CharacterResult{Result: reject(CodeInvalid, "%s.", err.Error())}, nil
	}
	if err := s.saveCharacter(ctx, c); err != nil {
		res, err := s.unavailable("create character", err)
		return CharacterResult{Result: res}, err
	}
	s.logger.Info("character created", zap.String("character", c.ID), zap.String("zone", c.ZoneID))
	s.notifyMove(c, "", c.ZoneID)
	return CharacterResult{Result: success("Welcome, %s.", c.Name), Character: c}, nil
}
