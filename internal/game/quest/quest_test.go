package quest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/realm/internal/game/quest"
)

const wolfProblemYAML = `
id: wolf-problem
title: The Wolf Problem
level: 1
category: main
giver: Captain Rodrick
zone: dark-forest
objectives:
  - {type: kill, target: wolf, required: 3, description: Slay forest wolves, target_name: Forest Wolf}
rewards:
  - {type: experience, value: 50}
  - {type: gold, value: 25}
  - {type: item, item: health-potion-minor, quantity: 2}
`

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustTemplate(t *testing.T, data string) *quest.Template {
	t.Helper()
	tmpl, err := quest.LoadTemplateFromBytes([]byte(data))
	require.NoError(t, err)
	return tmpl
}

func TestLoadTemplateFromBytes_Defaults(t *testing.T) {
	tmpl := mustTemplate(t, wolfProblemYAML)
	assert.True(t, tmpl.Active, "active defaults to true")
	assert.Equal(t, quest.CategoryMain, tmpl.Category)
	assert.Equal(t, "Forest Wolf", tmpl.Objectives[0].DisplayTarget())
	assert.Equal(t, 2, tmpl.Rewards[2].ItemQuantity())

	minimal := mustTemplate(t, "id: q\ntitle: Q\nobjectives: [{type: talk, target: elder}]\nactive: false\n")
	assert.Equal(t, 1, minimal.Level)
	assert.Equal(t, 1, minimal.Objectives[0].Required)
	assert.Equal(t, quest.CategorySide, minimal.Category)
	assert.False(t, minimal.Active)
	assert.Equal(t, "elder", minimal.Objectives[0].DisplayTarget())
}

func TestTemplate_ValidateRejects(t *testing.T) {
	for name, data := range map[string]string{
		"no objectives":  "id: q\ntitle: Q\n",
		"bad objective":  "id: q\ntitle: Q\nobjectives: [{type: dance, target: x}]\n",
		"bad reward":     "id: q\ntitle: Q\nobjectives: [{type: kill, target: x}]\nrewards: [{type: reputation, value: 1}]\n",
		"bad attribute":  "id: q\ntitle: Q\nobjectives: [{type: kill, target: x}]\nrewards: [{type: attribute, attribute: luck, value: 1}]\n",
		"self prereq":    "id: q\ntitle: Q\nobjectives: [{type: kill, target: x}]\nprerequisites: [q]\n",
		"item no id":     "id: q\ntitle: Q\nobjectives: [{type: kill, target: x}]\nrewards: [{type: item}]\n",
		"negative hours": "id: q\ntitle: Q\nobjectives: [{type: kill, target: x}]\nrepeat_cooldown_hours: -1\n",
	} {
		_, err := quest.LoadTemplateFromBytes([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestProgress_ClampsAndCompletes(t *testing.T) {
	tmpl := mustTemplate(t, wolfProblemYAML)
	p := quest.NewProgress(tmpl, epoch)

	assert.False(t, p.ApplyEvent(quest.ObjectiveKill, "bear", 1), "non-matching target")
	assert.False(t, p.ApplyEvent(quest.ObjectiveCollect, "wolf", 1), "non-matching type")

	require.True(t, p.ApplyEvent(quest.ObjectiveKill, "wolf", 1))
	assert.Equal(t, 33, p.Percent)
	assert.False(t, p.AllComplete())

	require.True(t, p.ApplyEvent(quest.ObjectiveKill, "wolf", 5))
	assert.Equal(t, 3, p.Objectives[0].Current, "clamped to required")
	assert.True(t, p.Objectives[0].Completed)
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, quest.StatusActive, p.Status, "never auto-completes")

	assert.False(t, p.ApplyEvent(quest.ObjectiveKill, "wolf", 1), "completed objectives do not move")
}

func TestProgress_PercentAcrossObjectives(t *testing.T) {
	tmpl := mustTemplate(t, `
id: healing-supplies
title: Healing Supplies
objectives:
  - {type: collect, target: healing-herb, required: 5}
  - {type: collect, target: wild-berries, required: 8}
`)
	p := quest.NewProgress(tmpl, epoch)
	p.ApplyEvent(quest.ObjectiveCollect, "healing-herb", 5)
	p.ApplyEvent(quest.ObjectiveCollect, "wild-berries", 2)
	assert.Equal(t, 53, p.Percent, "floor(7/13*100)")
}

func TestProgress_InvariantProperty(t *testing.T) {
	tmpl := mustTemplate(t, wolfProblemYAML)
	rapid.Check(t, func(rt *rapid.T) {
		p := quest.NewProgress(tmpl, epoch)
		events := rapid.SliceOfN(rapid.IntRange(1, 4), 0, 10).Draw(rt, "events")
		for _, amount := range events {
			p.ApplyEvent(quest.ObjectiveKill, "wolf", amount)
		}
		o := p.Objectives[0]
		if o.Current < 0 || o.Current > o.Required {
			rt.Fatalf("current %d out of [0,%d]", o.Current, o.Required)
		}
		if o.Completed != (o.Current >= o.Required) {
			rt.Fatalf("completed=%v with current=%d", o.Completed, o.Current)
		}
		if p.Percent < 0 || p.Percent > 100 {
			rt.Fatalf("percent %d out of range", p.Percent)
		}
	})
}

func TestJournal_AcceptanceRules(t *testing.T) {
	wolf := mustTemplate(t, wolfProblemYAML)
	goblin := mustTemplate(t, `
id: goblin-threat
title: The Goblin Threat
level: 2
objectives: [{type: kill, target: goblin-scout, required: 2}]
prerequisites: [wolf-problem]
`)
	var j quest.Journal

	assert.ErrorIs(t, j.CanStart(goblin, epoch), quest.ErrPrerequisites)
	require.NoError(t, j.CanStart(wolf, epoch))
	j.Start(wolf, epoch)
	assert.ErrorIs(t, j.CanStart(wolf, epoch), quest.ErrAlreadyActive)

	_, err := j.ReadyToComplete("wolf-problem")
	assert.ErrorIs(t, err, quest.ErrIncomplete)
	j.ApplyEvent(quest.ObjectiveKill, "wolf", 3)
	require.NoError(t, j.MarkCompleted(wolf, epoch.Add(time.Minute)))
	assert.Empty(t, j.Completions, "non-repeatable quests are not logged")

	assert.ErrorIs(t, j.CanStart(wolf, epoch), quest.ErrAlreadyCompleted)
	assert.NoError(t, j.CanStart(goblin, epoch))
	assert.True(t, j.HasCompleted("wolf-problem"))
}

func TestJournal_RepeatableCooldown(t *testing.T) {
	daily := mustTemplate(t, `
id: herbs
title: Herbs
repeatable: true
repeat_cooldown_hours: 24
objectives: [{type: collect, target: healing-herb, required: 1}]
`)
	var j quest.Journal
	j.Start(daily, epoch)
	j.ApplyEvent(quest.ObjectiveCollect, "healing-herb", 1)
	require.NoError(t, j.MarkCompleted(daily, epoch))
	require.Len(t, j.Completions, 1)

	assert.ErrorIs(t, j.CanStart(daily, epoch.Add(23*time.Hour)), quest.ErrCoolingDown)
	assert.False(t, j.Available(daily, 1, "anywhere", epoch.Add(23*time.Hour)))
	require.NoError(t, j.CanStart(daily, epoch.Add(24*time.Hour)))

	p := j.Start(daily, epoch.Add(24*time.Hour))
	assert.Len(t, j.Records, 1, "record is reset in place")
	assert.Equal(t, quest.StatusActive, p.Status)
	assert.Equal(t, 0, p.Objectives[0].Current)
	assert.True(t, p.CompletedAt.IsZero())
}

func TestJournal_AbandonAndReaccept(t *testing.T) {
	wolf := mustTemplate(t, wolfProblemYAML)
	var j quest.Journal
	j.Start(wolf, epoch)
	j.ApplyEvent(quest.ObjectiveKill, "wolf", 2)
	require.NoError(t, j.Abandon("wolf-problem"))
	assert.ErrorIs(t, j.Abandon("wolf-problem"), quest.ErrNotActive)
	assert.Empty(t, j.Active())

	assert.Empty(t, j.ApplyEvent(quest.ObjectiveKill, "wolf", 1), "abandoned records do not move")
	require.NoError(t, j.CanStart(wolf, epoch))
	p := j.Start(wolf, epoch)
	assert.Equal(t, 0, p.Objectives[0].Current)

	require.NoError(t, j.Fail("wolf-problem"))
	assert.Equal(t, quest.StatusFailed, j.Record("wolf-problem").Status)
}

func TestJournal_Available(t *testing.T) {
	wolf := mustTemplate(t, wolfProblemYAML)
	high := mustTemplate(t, "id: high\ntitle: High\nlevel: 4\nobjectives: [{type: kill, target: x}]\n")
	var j quest.Journal

	assert.True(t, j.Available(wolf, 1, "dark-forest", epoch))
	assert.False(t, j.Available(wolf, 1, "starting-village", epoch), "zone mismatch")
	assert.False(t, j.Available(high, 1, "anywhere", epoch), "more than two levels above")
	assert.True(t, j.Available(high, 2, "anywhere", epoch), "global quest at level+2")
}

func TestJournal_CloneIsDeep(t *testing.T) {
	wolf := mustTemplate(t, wolfProblemYAML)
	var j quest.Journal
	j.Start(wolf, epoch)
	c := j.Clone()
	c.ApplyEvent(quest.ObjectiveKill, "wolf", 1)
	assert.Equal(t, 0, j.Records[0].Objectives[0].Current)
	assert.Equal(t, 1, c.Records[0].Objectives[0].Current)
}
