package grpcapi

import (
	"errors"

	"github.com/cory-johannsen/realm/internal/game/quest"
)

// Request messages of the realm.v1.Realm service. Responses are the
// gameserver result types.

type CreateCharacterRequest struct {
	CharacterID string `json:"characterId"`
	Name        string `json:"name"`
}

func (r *CreateCharacterRequest) validate() error { return required("characterId", r.CharacterID) }

type CharacterRequest struct {
	CharacterID string `json:"characterId"`
}

func (r *CharacterRequest) validate() error { return required("characterId", r.CharacterID) }

type ZoneRequest struct {
	ZoneID string `json:"zoneId"`
}

func (r *ZoneRequest) validate() error { return required("zoneId", r.ZoneID) }

type EnterZoneRequest struct {
	CharacterID string `json:"characterId"`
	ZoneID      string `json:"zoneId"`
}

func (r *EnterZoneRequest) validate() error {
	return errors.Join(required("characterId", r.CharacterID), required("zoneId", r.ZoneID))
}

type AttackRequest struct {
	CharacterID string `json:"characterId"`
	MonsterID   string `json:"monsterId"`
}

func (r *AttackRequest) validate() error {
	return errors.Join(required("characterId", r.CharacterID), required("monsterId", r.MonsterID))
}

type CollectItemRequest struct {
	CharacterID string `json:"characterId"`
	ItemID      string `json:"itemId"`
}

func (r *CollectItemRequest) validate() error {
	return errors.Join(required("characterId", r.CharacterID), required("itemId", r.ItemID))
}

type QuestRequest struct {
	CharacterID string `json:"characterId"`
	QuestID     string `json:"questId"`
}

func (r *QuestRequest) validate() error {
	return errors.Join(required("characterId", r.CharacterID), required("questId", r.QuestID))
}

// GameplayEventRequest reports progress made outside combat and collection,
// such as talking to an NPC. Amount defaults to 1.
type GameplayEventRequest struct {
	CharacterID string              `json:"characterId"`
	Type        quest.ObjectiveType `json:"type"`
	Target      string              `json:"target"`
	Amount      int                 `json:"amount,omitempty"`
}

func (r *GameplayEventRequest) validate() error {
	return errors.Join(
		required("characterId", r.CharacterID),
		required("type", string(r.Type)),
		required("target", r.Target),
	)
}

type WatchZoneRequest struct {
	ZoneID string `json:"zoneId"`
}

func (r *WatchZoneRequest) validate() error { return required("zoneId", r.ZoneID) }

type validator interface {
	validate() error
}

func required(field, value string) error {
	if value == "" {
		return errors.New(field + " must not be empty")
	}
	return nil
}
