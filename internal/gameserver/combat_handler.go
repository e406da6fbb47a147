package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/npc"
	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/game/spawn"
)

// AttackOutcome summarizes how an exchange ended.
type AttackOutcome string

const (
	OutcomeHit           AttackOutcome = "hit"
	OutcomeMonsterDied   AttackOutcome = "monster_died"
	OutcomeCharacterDied AttackOutcome = "character_died"
)

// AttackResult reports one attack and, when the monster survived, its
// counter-attack.
type AttackResult struct {
	Result
	Outcome          AttackOutcome        `json:"outcome,omitempty"`
	Damage           int                  `json:"damage"`
	Critical         bool                 `json:"critical,omitempty"`
	MonsterHealth    int                  `json:"monsterHealth"`
	MonsterMaxHealth int                  `json:"monsterMaxHealth"`
	CounterDamage    int                  `json:"counterDamage,omitempty"`
	CounterCritical  bool                 `json:"counterCritical,omitempty"`
	CharacterHealth  int                  `json:"characterHealth"`
	Loot             []spawn.ItemView     `json:"loot"`
	Gold             int                  `json:"gold"`
	Experience       int                  `json:"experience,omitempty"`
	LevelUp          *character.LevelUp   `json:"levelUp,omitempty"`
	RespawnZone      string               `json:"respawnZone,omitempty"`
	Quests           []QuestUpdate        `json:"quests,omitempty"`
	Character        *character.Character `json:"character,omitempty"`
}

// Attack resolves one strike of characterID against monsterID. The character
// strikes first; a surviving monster counter-attacks.
//
// Precondition: characterID and monsterID must be non-empty.
// Postcondition: On rejection nothing is mutated. On success the character
// is saved and a combat_update event is sent to the zone.
func (s *Service) Attack(ctx context.Context, characterID, monsterID string) (AttackResult, error) {
	unlock := s.locks.Lock(characterID)
	defer unlock()

	c, res, err := s.loadCharacter(ctx, "attack", characterID)
	if c == nil {
		return AttackResult{Result: res}, err
	}
	m, err := s.registry.GetMonster(monsterID)
	if errors.Is(err, spawn.ErrNotFound) {
		return AttackResult{Result: reject(CodeInvalid, "There is no %q here.", monsterID)}, nil
	}
	if err != nil {
		res, err := s.unavailable("attack", err)
		return AttackResult{Result: res}, err
	}
	if !m.Alive {
		return AttackResult{Result: reject(CodeConflict, "%s is already dead.", m.Name)}, nil
	}
	if m.ZoneID != c.ZoneID {
		return AttackResult{Result: reject(CodeInvalid, "%s is not in your zone.", m.Name)}, nil
	}

	roll, res, err := s.playerRoll(ctx, c, m)
	if !res.Success {
		return AttackResult{Result: res}, err
	}
	hit := combat.RollDamage(s.src, roll)
	out, err := s.registry.ApplyDamage(m.ID, hit.Amount, c.ID)
	switch {
	case errors.Is(err, spawn.ErrMonsterDead), errors.Is(err, spawn.ErrNotFound):
		return AttackResult{Result: reject(CodeConflict, "%s is already dead.", m.Name)}, nil
	case err != nil:
		res, err := s.unavailable("attack", err)
		return AttackResult{Result: res}, err
	}

	work := c.Clone()
	ar := AttackResult{
		Damage:           hit.Amount,
		Critical:         hit.Critical,
		MonsterHealth:    out.Monster.CurrentHealth,
		MonsterMaxHealth: out.Monster.Stats.MaxHealth,
	}
	if out.Killed {
		s.resolveKill(ctx, work, out.Monster, &ar)
	} else {
		s.counterAttack(work, out.Monster, &ar)
	}
	ar.CharacterHealth = work.Health.Current

	if err := s.saveCharacter(ctx, work); err != nil {
		res, err := s.unavailable("attack", err)
		ar.Result = res
		return ar, err
	}
	ar.Character = work
	if ar.Outcome == OutcomeCharacterDied {
		s.populateRespawnZone(ctx, work.ZoneID)
	}

	s.notify(m.ZoneID, EventCombatUpdate, CombatPayload{
		CharacterID:   c.ID,
		MonsterID:     m.ID,
		Damage:        hit.Amount,
		Critical:      hit.Critical,
		MonsterHealth: out.Monster.CurrentHealth,
		MonsterDead:   out.Killed,
		CounterDamage: ar.CounterDamage,
		CharacterDied: ar.Outcome == OutcomeCharacterDied,
	})
	switch ar.Outcome {
	case OutcomeMonsterDied:
		s.hooks.OnMonsterDeath(m.ZoneID, m.ID, m.TemplateID, c.ID)
		ar.Result = success("You strike %s for %d damage. %s dies.", m.Name, hit.Amount, m.Name)
	case OutcomeCharacterDied:
		s.notifyMove(work, c.ZoneID, work.ZoneID)
		ar.Result = success("You strike %s for %d damage. %s hits back for %d. You have died.",
			m.Name, hit.Amount, m.Name, ar.CounterDamage)
	default:
		ar.Result = success("You strike %s for %d damage. %s hits back for %d.",
			m.Name, hit.Amount, m.Name, ar.CounterDamage)
	}
	return ar, nil
}

// playerRoll builds the character's damage roll against m: the main-hand
// weapon's range when one is equipped, the unarmed default otherwise.
func (s *Service) playerRoll(ctx context.Context, c *character.Character, m *npc.Instance) (combat.DamageRoll, Result, error) {
	resist := combat.ResistanceFor(combat.Physical, m.Attributes)
	roll := combat.Unarmed(c.Attributes, resist)
	weaponID := c.Equipment.MainHand()
	if weaponID == "" {
		return roll, success(""), nil
	}
	lctx, cancel := s.storeCtx(ctx)
	weapon, err := s.templates.ItemTemplate(lctx, weaponID)
	cancel()
	switch {
	case err == nil && weapon.Damage != nil:
		roll.Min, roll.Max = weapon.Damage.Min, weapon.Damage.Max
	case err == nil, isNotFound(err):
		s.logger.Warn("equipped weapon has no damage range; fighting unarmed",
			zap.String("character", c.ID), zap.String("item", weaponID), zap.Error(err))
	default:
		res, err := s.unavailable("attack", err)
		return roll, res, err
	}
	return roll, success(""), nil
}

// resolveKill drops loot and gold, then grants experience and the kill event.
// The monster's death is already recorded by the registry.
func (s *Service) resolveKill(ctx context.Context, work *character.Character, m *npc.Instance, ar *AttackResult) {
	ar.Outcome = OutcomeMonsterDied
	ar.Loot = []spawn.ItemView{}

	var drops []inventory.GroundItem
	for _, li := range npc.GenerateLoot(m.Loot, s.src) {
		lctx, cancel := s.storeCtx(ctx)
		tmpl, err := s.templates.ItemTemplate(lctx, li.ItemID)
		cancel()
		if err != nil {
			s.logger.Warn("loot drop skipped",
				zap.String("monster", m.TemplateID), zap.String("item", li.ItemID), zap.Error(err))
			continue
		}
		drops = append(drops, s.instancer.SpawnItem(tmpl, m.ZoneID, li.Quantity))
	}
	if gold := npc.RollGold(m.Gold, s.src); gold > 0 {
		drops = append(drops, s.instancer.SpawnCurrency(m.ZoneID, gold))
		ar.Gold = gold
	}
	if err := s.registry.AddItems(m.ZoneID, drops...); err != nil {
		s.logger.Warn("loot lost", zap.String("zone", m.ZoneID), zap.Error(err))
	} else {
		for _, d := range drops {
			if d.Kind() == inventory.KindItem {
				ar.Loot = append(ar.Loot, spawn.ViewOfItem(d))
			}
		}
	}

	ar.Experience = m.Experience
	if lv := work.GainExperience(m.Experience, s.cfg.Carryover); lv.Gained() {
		ar.LevelUp = &lv
	}
	ar.Quests = updates(work.Quests.ApplyEvent(quest.ObjectiveKill, m.TemplateID, 1))
}

// populateRespawnZone makes sure a fallen character wakes among the zone's
// spawns. Failures are logged; the character has already been moved.
func (s *Service) populateRespawnZone(ctx context.Context, zoneID string) {
	lctx, cancel := s.storeCtx(ctx)
	z, err := s.templates.ZoneTemplate(lctx, zoneID)
	cancel()
	if err == nil {
		_, _, err = s.registry.EnsurePopulated(ctx, z)
	}
	if err != nil {
		s.logger.Warn("respawn zone not populated", zap.String("zone", zoneID), zap.Error(err))
	}
}

// counterAttack lets the surviving monster strike back and applies the death
// penalty when the character falls.
func (s *Service) counterAttack(work *character.Character, m *npc.Instance, ar *AttackResult) {
	ar.Outcome = OutcomeHit
	hit := combat.RollDamage(s.src, combat.DamageRoll{
		Min:        m.Stats.Damage.Min,
		Max:        m.Stats.Damage.Max,
		Strength:   m.Attributes.Strength,
		Dexterity:  m.Attributes.Dexterity,
		Resistance: combat.ResistanceFor(combat.Physical, work.Attributes),
		Jitter:     combat.MonsterJitter,
	})
	ar.CounterDamage = hit.Amount
	ar.CounterCritical = hit.Critical
	if !work.TakeDamage(hit.Amount) {
		return
	}
	ar.Outcome = OutcomeCharacterDied
	work.ApplyDeathPenalty(s.cfg.RespawnZone, s.cfg.DeathXPPenalty)
	ar.RespawnZone = work.ZoneID
	s.logger.Info("character died",
		zap.String("character", work.ID), zap.String("killer", m.TemplateID),
		zap.String("respawn_zone", work.ZoneID))
}
