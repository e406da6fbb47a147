package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/storage"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = storage.ErrCharacterNotFound

// CharacterStore keeps each character as one JSONB document. The name, zone
// and level columns mirror the document for querying.
type CharacterStore struct {
	db *pgxpool.Pool
}

// NewCharacterStore creates a CharacterStore backed by db.
//
// Precondition: db must be a valid, open connection pool with the
// characters table migrated.
func NewCharacterStore(db *pgxpool.Pool) *CharacterStore {
	return &CharacterStore{db: db}
}

// LoadCharacter returns the stored character with id.
//
// Postcondition: Returns ErrCharacterNotFound when no row matches.
func (s *CharacterStore) LoadCharacter(ctx context.Context, id string) (*character.Character, error) {
	var doc []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM characters WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("loading %q: %w", id, ErrCharacterNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", id, err)
	}
	return storage.Decode(doc)
}

// SaveCharacter inserts c or replaces the stored document.
//
// Precondition: c.ID must be non-empty.
func (s *CharacterStore) SaveCharacter(ctx context.Context, c *character.Character) error {
	if c.ID == "" {
		return errors.New("saving character: id must not be empty")
	}
	doc, err := storage.Encode(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO characters (id, name, zone_id, level, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			zone_id = EXCLUDED.zone_id,
			level = EXCLUDED.level,
			doc = EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.Name, c.ZoneID, c.Level, doc, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving %q: %w", c.ID, err)
	}
	return nil
}

// DeleteCharacter removes the character. Unknown ids are not an error.
func (s *CharacterStore) DeleteCharacter(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting %q: %w", id, err)
	}
	return nil
}

// ListCharacterIDs returns every stored id in ascending order.
func (s *CharacterStore) ListCharacterIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM characters ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning characters: %w", err)
	}
	return ids, nil
}

// ListInZone returns the ids of characters whose document places them in
// zoneID, ordered by id.
func (s *CharacterStore) ListInZone(ctx context.Context, zoneID string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM characters WHERE zone_id = $1 ORDER BY id`, zoneID)
	if err != nil {
		return nil, fmt.Errorf("listing characters in %q: %w", zoneID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning characters in %q: %w", zoneID, err)
	}
	return ids, nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *CharacterStore) Close() error { return nil }
