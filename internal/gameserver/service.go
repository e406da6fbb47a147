// Package gameserver is the authoritative game service: combat resolution,
// item collection, quest tracking and zone entry over the spawn registry and
// the character store.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/content"
	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/game/schedule"
	"github.com/cory-johannsen/realm/internal/game/spawn"
	"github.com/cory-johannsen/realm/internal/game/world"
	"github.com/cory-johannsen/realm/internal/storage"
)

// TemplateStore resolves immutable template data. Missing ids return an error
// wrapping content.ErrNotFound.
type TemplateStore interface {
	MonsterTemplate(ctx context.Context, id string) (*npc.Template, error)
	ItemTemplate(ctx context.Context, id string) (*inventory.Template, error)
	ZoneTemplate(ctx context.Context, id string) (*world.Zone, error)
	QuestTemplate(ctx context.Context, id string) (*quest.Template, error)
	QuestTemplates(ctx context.Context) ([]*quest.Template, error)
}

// CharacterStore loads and replaces whole character documents. A missing
// character returns an error wrapping storage.ErrCharacterNotFound.
type CharacterStore interface {
	LoadCharacter(ctx context.Context, id string) (*character.Character, error)
	SaveCharacter(ctx context.Context, c *character.Character) error
}

// Notifier delivers zone-wide events. Delivery is fire-and-forget.
type Notifier interface {
	NotifyZone(zoneID string, ev Event)
}

// HookRunner runs zone scripts for gameplay events.
type HookRunner interface {
	OnMonsterDeath(zoneID, instanceID, templateID, killerID string)
	OnItemCollected(zoneID, characterID, itemID string, quantity int)
	OnQuestCompleted(zoneID, characterID, questID string)
}

type nopNotifier struct{}

func (nopNotifier) NotifyZone(string, Event) {}

type nopHooks struct{}

func (nopHooks) OnMonsterDeath(string, string, string, string) {}
func (nopHooks) OnItemCollected(string, string, string, int)   {}
func (nopHooks) OnQuestCompleted(string, string, string)       {}

// Config holds the tunable game rules.
type Config struct {
	// StartingZone is where CreateCharacter places new characters.
	StartingZone string
	// RespawnZone is where a character killed in combat wakes up.
	RespawnZone string
	// DeathXPPenalty is the fraction of experience lost on death.
	DeathXPPenalty float64
	Carryover      character.Carryover
	// InventoryCapacity is the slot count of new backpacks.
	InventoryCapacity int
	// StoreTimeout bounds every template and character store call.
	StoreTimeout time.Duration
}

// DefaultConfig returns the standard rules.
func DefaultConfig() Config {
	return Config{
		StartingZone:      "starting-village",
		RespawnZone:       "starting-village",
		DeathXPPenalty:    0.1,
		Carryover:         character.Carry,
		InventoryCapacity: inventory.DefaultCapacity,
		StoreTimeout:      2 * time.Second,
	}
}

// Deps are the collaborators of a Service. Notifier and Hooks may be nil.
type Deps struct {
	Templates  TemplateStore
	Characters CharacterStore
	Registry   *spawn.Registry
	Instancer  *spawn.Instancer
	Notifier   Notifier
	Hooks      HookRunner
	Source     dice.Source
	Clock      schedule.Clock
	Logger     *zap.Logger
}

// Service implements the gameplay operations. Every operation on a character
// holds that character's lock for its whole read-modify-write; zone state is
// serialized by the spawn registry. Lock order: character, then zone.
type Service struct {
	templates TemplateStore
	chars     CharacterStore
	registry  *spawn.Registry
	instancer *spawn.Instancer
	notifier  Notifier
	hooks     HookRunner
	src       dice.Source
	clock     schedule.Clock
	logger    *zap.Logger
	cfg       Config
	locks     keyedMutex
}

// NewService wires a Service.
//
// Precondition: Templates, Characters, Registry, Instancer, Source, Clock and
// Logger must be non-nil.
// Postcondition: Zero-valued Config fields fall back to DefaultConfig.
func NewService(d Deps, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.StartingZone == "" {
		cfg.StartingZone = def.StartingZone
	}
	if cfg.RespawnZone == "" {
		cfg.RespawnZone = def.RespawnZone
	}
	if cfg.Carryover == "" {
		cfg.Carryover = def.Carryover
	}
	if cfg.InventoryCapacity <= 0 {
		cfg.InventoryCapacity = def.InventoryCapacity
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Hooks == nil {
		d.Hooks = nopHooks{}
	}
	return &Service{
		templates: d.Templates,
		chars:     d.Characters,
		registry:  d.Registry,
		instancer: d.Instancer,
		notifier:  d.Notifier,
		hooks:     d.Hooks,
		src:       d.Source,
		clock:     d.Clock,
		logger:    d.Logger,
		cfg:       cfg,
	}
}

// Registry exposes the spawn registry backing the service.
func (s *Service) Registry() *spawn.Registry { return s.registry }

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// unavailable logs an infrastructure failure and builds its result.
func (s *Service) unavailable(op string, err error) (Result, error) {
	s.logger.Error("game operation failed", zap.String("op", op), zap.Error(err))
	return Result{Code: CodeUnavailable, Message: "The world is not responding. Try again shortly."},
		fmt.Errorf("%s: %w", op, err)
}

// loadCharacter fetches a character. A nil character means the returned
// Result (and error, on infrastructure failure) must be handed back as is.
func (s *Service) loadCharacter(ctx context.Context, op, id string) (*character.Character, Result, error) {
	lctx, cancel := s.storeCtx(ctx)
	defer cancel()
	c, err := s.chars.LoadCharacter(lctx, id)
	if errors.Is(err, storage.ErrCharacterNotFound) {
		return nil, reject(CodeInvalid, "Character %q not found.", id), nil
	}
	if err != nil {
		res, err := s.unavailable(op, err)
		return nil, res, err
	}
	return c, success(""), nil
}

func (s *Service) saveCharacter(ctx context.Context, c *character.Character) error {
	c.UpdatedAt = s.clock.Now()
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()
	return s.chars.SaveCharacter(sctx, c)
}

// lookup runs one template query under the store timeout. On failure the
// Result is missing for absent templates, or an unavailable result paired
// with an error for store failures.
func lookup[T any](ctx context.Context, s *Service, op string, missing Result, fn func(context.Context) (T, error)) (T, Result, error) {
	lctx, cancel := s.storeCtx(ctx)
	defer cancel()
	v, err := fn(lctx)
	if isNotFound(err) {
		var zero T
		return zero, missing, nil
	}
	if err != nil {
		var zero T
		res, err := s.unavailable(op, err)
		return zero, res, err
	}
	return v, success(""), nil
}

func isNotFound(err error) bool { return errors.Is(err, content.ErrNotFound) }

func (s *Service) notify(zoneID string, typ EventType, payload any) {
	s.notifier.NotifyZone(zoneID, Event{Type: typ, ZoneID: zoneID, At: s.clock.Now(), Payload: payload})
}

func (s *Service) notifyMove(c *character.Character, from, to string) {
	p := PlayerPayload{CharacterID: c.ID, Name: c.Name, Level: c.Level, From: from, To: to}
	if from != "" {
		s.notify(from, EventPlayerLeft, p)
	}
	s.notify(to, EventPlayerArrived, p)
}

// GetCharacter returns the stored character.
func (s *Service) GetCharacter(ctx context.Context, characterID string) (CharacterResult, error) {
	c, res, err := s.loadCharacter(ctx, "get character", characterID)
	if c == nil {
		return CharacterResult{Result: res}, err
	}
	return CharacterResult{Result: success(""), Character: c}, nil
}
