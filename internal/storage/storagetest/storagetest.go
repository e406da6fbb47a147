// Package storagetest holds the behaviour every character store must share.
// Driver tests call Run with a constructor for a fresh, empty store.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/game/inventory"
	"github.com/cory-johannsen/realm/internal/game/quest"
	"github.com/cory-johannsen/realm/internal/storage"
)

var created = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Hero returns a level-1 character in the starting village.
func Hero(t testing.TB, id string) *character.Character {
	t.Helper()
	c, err := character.New(id, "Hero", "starting-village", inventory.DefaultCapacity, created)
	require.NoError(t, err)
	return c
}

// veteran returns a character with every document section populated.
func veteran(t testing.TB, id string) *character.Character {
	t.Helper()
	c := Hero(t, id)
	c.Level = 4
	c.Experience = 133
	c.Gold = 250
	c.ZoneID = "dark-forest"
	c.Health.Current = 40
	c.Attributes.Wisdom = 14
	c.Inventory.Slots = append(c.Inventory.Slots,
		inventory.Stack{ItemID: "wolf-pelt", Quantity: 7},
		inventory.Stack{ItemID: "iron-sword", Quantity: 1})
	c.Equipment[inventory.SlotMainHand] = "iron-sword"
	c.Quests.Records = []*quest.Progress{{
		QuestID: "wolf-problem", Title: "Wolf Problem", Status: quest.StatusActive, Percent: 66,
		StartedAt: created.Add(time.Hour),
		Objectives: []quest.ObjectiveProgress{
			{Type: quest.ObjectiveKill, Target: "wolf", Required: 3, Current: 2},
		},
	}}
	c.Quests.Completions = []quest.Completion{{QuestID: "healing-supplies", CompletedAt: created.Add(2 * time.Hour)}}
	c.UpdatedAt = created.Add(3 * time.Hour)
	return c
}

// Run exercises the store returned by newStore.
//
// Precondition: newStore returns an empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("RoundTrip", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		c := veteran(t, "veteran")
		require.NoError(t, s.SaveCharacter(ctx, c))

		got, err := s.LoadCharacter(ctx, "veteran")
		require.NoError(t, err)
		assert.Equal(t, c, got)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		_, err := newStore(t).LoadCharacter(context.Background(), "nobody")
		assert.ErrorIs(t, err, storage.ErrCharacterNotFound)
	})

	t.Run("SaveReplaces", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		c := Hero(t, "hero")
		require.NoError(t, s.SaveCharacter(ctx, c))

		c.Gold = 77
		c.ZoneID = "dark-forest"
		require.NoError(t, s.SaveCharacter(ctx, c))
		got, err := s.LoadCharacter(ctx, "hero")
		require.NoError(t, err)
		assert.Equal(t, 77, got.Gold)
		assert.Equal(t, "dark-forest", got.ZoneID)

		ids, err := s.ListCharacterIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"hero"}, ids)
	})

	t.Run("RejectsEmptyID", func(t *testing.T) {
		c := Hero(t, "hero")
		c.ID = ""
		assert.Error(t, newStore(t).SaveCharacter(context.Background(), c))
	})

	t.Run("DeleteAndList", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, s.SaveCharacter(ctx, Hero(t, id)))
		}
		ids, err := s.ListCharacterIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids)

		require.NoError(t, s.DeleteCharacter(ctx, "b"))
		require.NoError(t, s.DeleteCharacter(ctx, "never-existed"))
		_, err = s.LoadCharacter(ctx, "b")
		assert.ErrorIs(t, err, storage.ErrCharacterNotFound)
		ids, err = s.ListCharacterIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, ids)
	})

	t.Run("ConcurrentSaves", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.SaveCharacter(ctx, Hero(t, fmt.Sprintf("hero-%d", i))))
			}(i)
		}
		wg.Wait()
		ids, err := s.ListCharacterIDs(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, 8)
	})
}
