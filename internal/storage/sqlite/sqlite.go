// Package sqlite stores character documents in a single SQLite file through
// the pure-Go modernc driver. It suits single-node and development runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/realm/internal/game/character"
	"github.com/cory-johannsen/realm/internal/storage"
)

// ErrCharacterNotFound is returned when no character matches.
var ErrCharacterNotFound = storage.ErrCharacterNotFound

const schema = `
CREATE TABLE IF NOT EXISTS characters (
	id         TEXT    PRIMARY KEY,
	name       TEXT    NOT NULL,
	zone_id    TEXT    NOT NULL,
	level      INTEGER NOT NULL DEFAULT 1,
	doc        TEXT    NOT NULL,
	created_at TEXT    NOT NULL,
	updated_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_characters_zone ON characters (zone_id);
`

// Store is a character store over one SQLite database.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
//
// Postcondition: Returns a ready Store or a non-nil error; the connection is
// closed on error.
func Open(ctx context.Context, path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection serializes writers.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// LoadCharacter returns the stored character with id.
//
// Postcondition: Returns ErrCharacterNotFound when no row matches.
func (s *Store) LoadCharacter(ctx context.Context, id string) (*character.Character, error) {
	var doc string
	err := s.conn.QueryRowContext(ctx, `SELECT doc FROM characters WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loading %q: %w", id, ErrCharacterNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", id, err)
	}
	return storage.Decode([]byte(doc))
}

// SaveCharacter inserts c or replaces the stored document.
func (s *Store) SaveCharacter(ctx context.Context, c *character.Character) error {
	if c.ID == "" {
		return errors.New("saving character: id must not be empty")
	}
	doc, err := storage.Encode(c)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO characters (id, name, zone_id, level, doc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			zone_id = excluded.zone_id,
			level = excluded.level,
			doc = excluded.doc,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.ZoneID, c.Level, string(doc),
		c.CreatedAt.UTC().Format(time.RFC3339Nano), c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving %q: %w", c.ID, err)
	}
	return nil
}

// DeleteCharacter removes the character. Unknown ids are not an error.
func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting %q: %w", id, err)
	}
	return nil
}

// ListCharacterIDs returns every stored id in ascending order.
func (s *Store) ListCharacterIDs(ctx context.Context) ([]string, error) {
	return s.ids(ctx, `SELECT id FROM characters ORDER BY id`)
}

// ListInZone returns the ids of characters in zoneID, ordered by id.
func (s *Store) ListInZone(ctx context.Context, zoneID string) ([]string, error) {
	return s.ids(ctx, `SELECT id FROM characters WHERE zone_id = ? ORDER BY id`, zoneID)
}

func (s *Store) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning character id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}
