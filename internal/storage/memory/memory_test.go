package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/storage"
	"github.com/cory-johannsen/realm/internal/storage/memory"
	"github.com/cory-johannsen/realm/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(*testing.T) storage.Store { return memory.NewStore() })
}

func TestStore_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	c := storagetest.Hero(t, "hero")
	require.NoError(t, s.SaveCharacter(ctx, c))

	c.Gold = 999
	loaded, err := s.LoadCharacter(ctx, "hero")
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Gold)

	loaded.Attributes.Strength = 99
	loaded.Inventory.Slots = append(loaded.Inventory.Slots, loaded.Inventory.Slots...)
	again, err := s.LoadCharacter(ctx, "hero")
	require.NoError(t, err)
	assert.Equal(t, character.BaseAttribute, again.Attributes.Strength)
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := memory.NewStore()
	assert.ErrorIs(t, s.SaveCharacter(ctx, storagetest.Hero(t, "hero")), context.Canceled)
	_, err := s.LoadCharacter(ctx, "hero")
	assert.ErrorIs(t, err, context.Canceled)
}
