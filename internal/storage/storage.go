// Package storage holds what every character store shares. Drivers live in
// the postgres, sqlite and memory subpackages.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cory-johannsen/realm/internal/game/character"
)

// ErrCharacterNotFound is returned by every store when no character matches.
var ErrCharacterNotFound = errors.New("character not found")

// Store is a character store: whole-document load and replace plus the
// listing and deletion used by operator tooling.
type Store interface {
	LoadCharacter(ctx context.Context, id string) (*character.Character, error)
	SaveCharacter(ctx context.Context, c *character.Character) error
	DeleteCharacter(ctx context.Context, id string) error
	ListCharacterIDs(ctx context.Context) ([]string, error)
	Close() error
}

// Encode serializes a character into the document stored by the SQL drivers.
func Encode(c *character.Character) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding character %q: %w", c.ID, err)
	}
	return data, nil
}

// Decode parses a stored character document.
func Decode(data []byte) (*character.Character, error) {
	var c character.Character
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding character: %w", err)
	}
	return &c, nil
}
