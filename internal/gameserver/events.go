package gameserver

import (
	"time"

	"github.com/cory-johannsen/realm/internal/game/spawn"
)

// EventType names a zone notification.
type EventType string

const (
	EventMonsterSpawn   EventType = "monster_spawn"
	EventCombatUpdate   EventType = "combat_update"
	EventItemCollected  EventType = "item_collected"
	EventPlayerArrived  EventType = "player_arrived"
	EventPlayerLeft     EventType = "player_left"
	EventQuestCompleted EventType = "quest_completed"
	EventZoneMessage    EventType = "zone_message"
)

// Event is one zone-wide notification. Payload holds one of the payload
// types below, or a spawn.MonsterView for monster_spawn.
type Event struct {
	Type    EventType `json:"type" msgpack:"type"`
	ZoneID  string    `json:"zoneId" msgpack:"zoneId"`
	At      time.Time `json:"at" msgpack:"at"`
	Payload any       `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// CombatPayload describes one exchange of blows.
type CombatPayload struct {
	CharacterID   string `json:"characterId" msgpack:"characterId"`
	MonsterID     string `json:"monsterId" msgpack:"monsterId"`
	Damage        int    `json:"damage" msgpack:"damage"`
	Critical      bool   `json:"critical,omitempty" msgpack:"critical,omitempty"`
	MonsterHealth int    `json:"monsterHealth" msgpack:"monsterHealth"`
	MonsterDead   bool   `json:"monsterDead" msgpack:"monsterDead"`
	CounterDamage int    `json:"counterDamage,omitempty" msgpack:"counterDamage,omitempty"`
	CharacterDied bool   `json:"characterDied,omitempty" msgpack:"characterDied,omitempty"`
}

// CollectPayload reports a pickup.
type CollectPayload struct {
	CharacterID string `json:"characterId" msgpack:"characterId"`
	InstanceID  string `json:"instanceId" msgpack:"instanceId"`
	TemplateID  string `json:"templateId,omitempty" msgpack:"templateId,omitempty"`
	Quantity    int    `json:"quantity" msgpack:"quantity"`
	Currency    bool   `json:"currency,omitempty" msgpack:"currency,omitempty"`
}

// PlayerPayload reports a character entering or leaving a zone.
type PlayerPayload struct {
	CharacterID string `json:"characterId" msgpack:"characterId"`
	Name        string `json:"name" msgpack:"name"`
	Level       int    `json:"level" msgpack:"level"`
	From        string `json:"from,omitempty" msgpack:"from,omitempty"`
	To          string `json:"to" msgpack:"to"`
}

// QuestPayload reports a quest turn-in.
type QuestPayload struct {
	CharacterID string `json:"characterId" msgpack:"characterId"`
	QuestID     string `json:"questId" msgpack:"questId"`
	Title       string `json:"title" msgpack:"title"`
}

// MessagePayload carries free text announced to a zone.
type MessagePayload struct {
	Text string `json:"text" msgpack:"text"`
}

// MonsterSpawnEvent builds the monster_spawn event for v.
func MonsterSpawnEvent(v spawn.MonsterView, at time.Time) Event {
	return Event{Type: EventMonsterSpawn, ZoneID: v.ZoneID, At: at, Payload: v}
}

// ZoneMessageEvent builds a zone_message event.
func ZoneMessageEvent(zoneID, text string, at time.Time) Event {
	return Event{Type: EventZoneMessage, ZoneID: zoneID, At: at, Payload: MessagePayload{Text: text}}
}
