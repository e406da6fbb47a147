package gameserver

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/quest"
)

// QuestUpdate reports progress made on one active quest.
type QuestUpdate struct {
	QuestID  string `json:"questId" msgpack:"questId"`
	Title    string `json:"title" msgpack:"title"`
	Percent  int    `json:"progress" msgpack:"progress"`
	Complete bool   `json:"readyToComplete" msgpack:"readyToComplete"`
}

func updates(changed []*quest.Progress) []QuestUpdate {
	if len(changed) == 0 {
		return nil
	}
	out := make([]QuestUpdate, len(changed))
	for i, p := range changed {
		out[i] = QuestUpdate{QuestID: p.QuestID, Title: p.Title, Percent: p.Percent, Complete: p.AllComplete()}
	}
	return out
}

// QuestOffer is a quest a character may accept.
type QuestOffer struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Level       int               `json:"level"`
	Category    quest.Category    `json:"category"`
	Giver       string            `json:"giver,omitempty"`
	Zone        string            `json:"zone,omitempty"`
	Objectives  []quest.Objective `json:"objectives"`
	Rewards     []quest.Reward    `json:"rewards"`
	Repeatable  bool              `json:"repeatable,omitempty"`
	Dialogue    string            `json:"dialogue,omitempty"`
}

func offerOf(t *quest.Template) QuestOffer {
	return QuestOffer{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Level:       t.Level,
		Category:    t.Category,
		Giver:       t.Giver,
		Zone:        t.Zone,
		Objectives:  t.Objectives,
		Rewards:     t.Rewards,
		Repeatable:  t.Repeatable,
		Dialogue:    t.DialogueStart,
	}
}

// QuestListResult lists quests offered to a character.
type QuestListResult struct {
	Result
	Quests []QuestOffer `json:"quests"`
}

// ActiveQuestsResult lists a character's active quest records.
type ActiveQuestsResult struct {
	Result
	Quests []*quest.Progress `json:"quests"`
}

// QuestResult reports a quest state change.
type QuestResult struct {
	Result
	Progress  *quest.Progress      `json:"quest,omitempty"`
	Rewards   []quest.Reward       `json:"rewards,omitempty"`
	LevelUp   *character.LevelUp   `json:"levelUp,omitempty"`
	Character *character.Character `json:"character,omitempty"`
}

// EventResult reports the quest progress caused by one gameplay event.
type EventResult struct {
	Result
	Quests []QuestUpdate `json:"quests,omitempty"`
}

// ListAvailableQuests returns the active templates the character may accept
// now: level at most two above the character, offered in the character's zone
// or everywhere, not active, not completed unless repeatable and cooled
// down, and every prerequisite completed. Sorted by level then id.
func (s *Service) ListAvailableQuests(ctx context.Context, characterID string) (QuestListResult, error) {
	c, res, err := s.loadCharacter(ctx, "list quests", characterID)
	if c == nil {
		return QuestListResult{Result: res}, err
	}
	lctx, cancel := s.storeCtx(ctx)
	all, err := s.templates.QuestTemplates(lctx)
	cancel()
	if err != nil {
		res, err := s.unavailable("list quests", err)
		return QuestListResult{Result: res}, err
	}
	now := s.clock.Now()
	offers := make([]QuestOffer, 0, len(all))
	for _, t := range all {
		if c.Quests.Available(t, c.Level, c.ZoneID, now) {
			offers = append(offers, offerOf(t))
		}
	}
	sort.SliceStable(offers, func(i, j int) bool {
		if offers[i].Level != offers[j].Level {
			return offers[i].Level < offers[j].Level
		}
		return offers[i].ID < offers[j].ID
	})
	return QuestListResult{Result: success(""), Quests: offers}, nil
}

// ListActiveQuests returns copies of the character's active records.
func (s *Service) ListActiveQuests(ctx context.Context, characterID string) (ActiveQuestsResult, error) {
	c, res, err := s.loadCharacter(ctx, "list active quests", characterID)
	if c == nil {
		return ActiveQuestsResult{Result: res}, err
	}
	active := c.Quests.Active()
	out := make([]*quest.Progress, len(active))
	for i, p := range active {
		out[i] = p.Clone()
	}
	return ActiveQuestsResult{Result: success(""), Quests: out}, nil
}

func (s *Service) questTemplate(ctx context.Context, op, questID string) (*quest.Template, Result, error) {
	return lookup(ctx, s, op, reject(CodeInvalid, "Unknown quest %q.", questID),
		func(ctx context.Context) (*quest.Template, error) { return s.templates.QuestTemplate(ctx, questID) })
}

// startRejection maps a journal refusal to a result.
func startRejection(t *quest.Template, err error) Result {
	switch {
	case errors.Is(err, quest.ErrAlreadyActive):
		return reject(CodeInvalid, "You are already on %q.", t.Title)
	case errors.Is(err, quest.ErrAlreadyCompleted):
		return reject(CodeInvalid, "You have already completed %q.", t.Title)
	case errors.Is(err, quest.ErrCoolingDown):
		return reject(CodeInvalid, "%q cannot be repeated yet.", t.Title)
	case errors.Is(err, quest.ErrPrerequisites):
		return reject(CodeInvalid, "You must complete other quests before %q.", t.Title)
	default:
		return reject(CodeInvalid, "You cannot accept %q.", t.Title)
	}
}

// AcceptQuest starts questID for the character.
//
// Precondition: characterID and questID must be non-empty.
// Postcondition: On success the record is active with every objective at
// zero; a failed, abandoned or repeatable completed record is reset in place.
func (s *Service) AcceptQuest(ctx context.Context, characterID, questID string) (QuestResult, error) {
	unlock := s.locks.Lock(characterID)
	defer unlock()

	c, res, err := s.loadCharacter(ctx, "accept quest", characterID)
	if c == nil {
		return QuestResult{Result: res}, err
	}
	t, res, err := s.questTemplate(ctx, "accept quest", questID)
	if !res.Success {
		return QuestResult{Result: res}, err
	}
	if !t.Active {
		return QuestResult{Result: reject(CodeInvalid, "%q is not being offered.", t.Title)}, nil
	}
	if c.Level < t.Level {
		return QuestResult{Result: reject(CodeInvalid, "%q requires level %d.", t.Title, t.Level)}, nil
	}
	now := s.clock.Now()
	if err := c.Quests.CanStart(t, now); err != nil {
		return QuestResult{Result: startRejection(t, err)}, nil
	}

	work := c.Clone()
	p := work.Quests.Start(t, now)
	if err := s.saveCharacter(ctx, work); err != nil {
		res, err := s.unavailable("accept quest", err)
		return QuestResult{Result: res}, err
	}
	s.logger.Debug("quest accepted", zap.String("character", c.ID), zap.String("quest", t.ID))
	msg := success("Quest accepted: %s.", t.Title)
	if t.DialogueStart != "" {
		msg.Message = t.DialogueStart
	}
	return QuestResult{Result: msg, Progress: p.Clone(), Character: work}, nil
}

// AbandonQuest gives up an active quest.
func (s *Service) AbandonQuest(ctx context.Context, characterID, questID string) (QuestResult, error) {
	unlock := s.locks.Lock(characterID)
	defer unlock()

	c, res, err := s.loadCharacter(ctx, "abandon quest", characterID)
	if c == nil {
		return QuestResult{Result: res}, err
	}
	work := c.Clone()
	if err := work.Quests.Abandon(questID); err != nil {
		return QuestResult{Result: reject(CodeInvalid, "You are not on quest %q.", questID)}, nil
	}
	if err := s.saveCharacter(ctx, work); err != nil {
		res, err := s.unavailable("abandon quest", err)
		return QuestResult{Result: res}, err
	}
	p := work.Quests.Record(questID)
	return QuestResult{Result: success("Quest abandoned: %s.", p.Title), Progress: p.Clone(), Character: work}, nil
}

// CompleteQuest turns in a quest whose objectives are all complete. Rewards
// apply in listed order; if any cannot be granted the turn-in is rejected
// and nothing changes.
//
// Precondition: characterID and questID must be non-empty.
// Postcondition: On success the record is completed, repeatable quests gain a
// completion log entry and a quest_completed event reaches the zone.
func (s *Service) CompleteQuest(ctx context.Context, characterID, questID string) (QuestResult, error) {
	unlock := s.locks.Lock(characterID)
	defer unlock()

	c, res, err := s.loadCharacter(ctx, "complete quest", characterID)
	if c == nil {
		return QuestResult{Result: res}, err
	}
	t, res, err := s.questTemplate(ctx, "complete quest", questID)
	if !res.Success {
		return QuestResult{Result: res}, err
	}
	switch _, err := c.Quests.ReadyToComplete(questID); {
	case errors.Is(err, quest.ErrNotActive):
		return QuestResult{Result: reject(CodeInvalid, "You are not on %q.", t.Title)}, nil
	case errors.Is(err, quest.ErrIncomplete):
		return QuestResult{Result: reject(CodeInvalid, "%q is not finished yet.", t.Title)}, nil
	}

	work := c.Clone()
	lv, res, err := s.grantRewards(ctx, work, t)
	if !res.Success {
		return QuestResult{Result: res}, err
	}
	if err := work.Quests.MarkCompleted(t, s.clock.Now()); err != nil {
		return QuestResult{Result: reject(CodeInvalid, "%q is not finished yet.", t.Title)}, nil
	}
	if err := s.saveCharacter(ctx, work); err != nil {
		res, err := s.unavailable("complete quest", err)
		return QuestResult{Result: res}, err
	}

	s.notify(work.ZoneID, EventQuestCompleted, QuestPayload{CharacterID: work.ID, QuestID: t.ID, Title: t.Title})
	s.hooks.OnQuestCompleted(work.ZoneID, work.ID, t.ID)

	out := QuestResult{
		Result:    success("Quest completed: %s.", t.Title),
		Progress:  work.Quests.Record(t.ID).Clone(),
		Rewards:   t.Rewards,
		Character: work,
	}
	if t.DialogueComplete != "" {
		out.Message = t.DialogueComplete
	}
	if lv.Gained() {
		out.LevelUp = &lv
	}
	return out, nil
}

// grantRewards applies t's rewards to work in order.
func (s *Service) grantRewards(ctx context.Context, work *character.Character, t *quest.Template) (character.LevelUp, Result, error) {
	lv := character.LevelUp{From: work.Level, To: work.Level}
	for _, r := range t.Rewards {
		switch r.Type {
		case quest.RewardExperience:
			lv.To = work.GainExperience(r.Value, s.cfg.Carryover).To
		case quest.RewardGold:
			work.Gold += r.Value
		case quest.RewardItem:
			tmpl, res, err := lookup(ctx, s, "complete quest",
				reject(CodeInvalid, "Reward item %q does not exist.", r.Item),
				func(ctx context.Context) (*inventory.Template, error) { return s.templates.ItemTemplate(ctx, r.Item) })
			if !res.Success {
				return lv, res, err
			}
			if err := work.Backpack(s.cfg.InventoryCapacity).Add(tmpl, r.ItemQuantity()); err != nil {
				return lv, reject(CodeInvalid, "Your inventory is too full to accept the reward."), nil
			}
		case quest.RewardAttribute:
			if !work.Attributes.Increase(r.Attribute, r.Value) {
				s.logger.Warn("unknown reward attribute",
					zap.String("quest", t.ID), zap.String("attribute", r.Attribute))
			}
		}
	}
	return lv, success(""), nil
}

// OnGameplayEvent advances every matching objective of the character's active
// quests by amount, clamped to each objective's requirement. Quests never
// complete automatically. An amount below one counts as one.
func (s *Service) OnGameplayEvent(ctx context.Context, characterID string, eventType quest.ObjectiveType, targetID string, amount int) (EventResult, error) {
	if amount < 1 {
		amount = 1
	}
	unlock := s.locks.Lock(characterID)
	defer unlock()

	c, res, err := s.loadCharacter(ctx, "gameplay event", characterID)
	if c == nil {
		return EventResult{Result: res}, err
	}
	work := c.Clone()
	changed := updates(work.Quests.ApplyEvent(eventType, targetID, amount))
	if len(changed) == 0 {
		return EventResult{Result: success("")}, nil
	}
	if err := s.saveCharacter(ctx, work); err != nil {
		res, err := s.unavailable("gameplay event", err)
		return EventResult{Result: res}, err
	}
	return EventResult{Result: success(""), Quests: changed}, nil
}
