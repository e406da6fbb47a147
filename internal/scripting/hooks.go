package scripting

import lua "github.com/yuin/gopher-lua"

// Hook names called by the game service.
const (
	HookMonsterDeath  = "on_monster_death"
	HookItemCollected = "on_item_collected"
	HookQuestComplete = "on_quest_completed"
)

// OnMonsterDeath calls on_monster_death(instance_id, template_id, killer_id).
func (m *Manager) OnMonsterDeath(zoneID, instanceID, templateID, killerID string) {
	_, _ = m.CallHook(zoneID, HookMonsterDeath,
		lua.LString(instanceID), lua.LString(templateID), lua.LString(killerID))
}

// OnItemCollected calls on_item_collected(character_id, item_id, quantity).
func (m *Manager) OnItemCollected(zoneID, characterID, itemID string, quantity int) {
	_, _ = m.CallHook(zoneID, HookItemCollected,
		lua.LString(characterID), lua.LString(itemID), lua.LNumber(quantity))
}

// OnQuestCompleted calls on_quest_completed(character_id, quest_id).
func (m *Manager) OnQuestCompleted(zoneID, characterID, questID string) {
	_, _ = m.CallHook(zoneID, HookQuestComplete,
		lua.LString(characterID), lua.LString(questID))
}
