// Package memory is an in-process character store for tests and
// single-node development runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/storage"
)

// ErrCharacterNotFound is returned when no character matches.
var ErrCharacterNotFound = storage.ErrCharacterNotFound

// Store keeps deep copies of characters keyed by id. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	chars map[string]*character.Character
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{chars: make(map[string]*character.Character)}
}

// LoadCharacter returns a copy of the stored character.
//
// Postcondition: Returns ErrCharacterNotFound when id is unknown.
func (s *Store) LoadCharacter(ctx context.Context, id string) (*character.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chars[id]
	if !ok {
		return nil, fmt.Errorf("loading %q: %w", id, ErrCharacterNotFound)
	}
	return c.Clone(), nil
}

// SaveCharacter stores a copy of c, replacing any previous version.
func (s *Store) SaveCharacter(ctx context.Context, c *character.Character) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.ID == "" {
		return fmt.Errorf("saving character: id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chars[c.ID] = c.Clone()
	return nil
}

// DeleteCharacter removes a character. Unknown ids are not an error.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chars, id)
	return nil
}

// ListCharacterIDs returns every stored id, sorted.
func (s *Store) ListCharacterIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.chars))
	for id := range s.chars {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
