package preset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stepseq/sequencer"

	_ "modernc.org/sqlite"
)

// NumSlots is the number of preset memories
const NumSlots = 16

var (
	ErrNotFound    = errors.New("preset not found")
	ErrInvalidSlot = errors.New("invalid preset slot")
)

// Preset is one stored settings snapshot
type Preset struct {
	Slot     int                `json:"slot" yaml:"slot"`
	Name     string             `json:"name" yaml:"name"`
	Settings sequencer.Settings `json:"settings" yaml:"settings"`
	SavedAt  time.Time          `json:"savedAt" yaml:"savedAt"`
}

// Store keeps presets in a SQLite database
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS presets (
	slot     INTEGER PRIMARY KEY,
	name     TEXT NOT NULL DEFAULT '',
	settings TEXT NOT NULL,
	saved_at INTEGER NOT NULL
)`

// Open opens or creates the preset database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	return nil
}

// Save writes settings to a slot, replacing what was there
func (s *Store) Save(ctx context.Context, slot int, name string, settings sequencer.Settings) error {
	if err := checkSlot(slot); err != nil {
		return err
	}

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO presets (slot, name, settings, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			name = excluded.name,
			settings = excluded.settings,
			saved_at = excluded.saved_at`,
		slot, name, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save preset %d: %w", slot, err)
	}
	return nil
}

// Load reads a slot. Stored settings are clamped before they are returned.
func (s *Store) Load(ctx context.Context, slot int) (Preset, error) {
	if err := checkSlot(slot); err != nil {
		return Preset{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT slot, name, settings, saved_at FROM presets WHERE slot = ?`, slot)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: slot %d", ErrNotFound, slot)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("load preset %d: %w", slot, err)
	}
	return p, nil
}

// List returns all stored presets ordered by slot
func (s *Store) List(ctx context.Context) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, name, settings, saved_at FROM presets ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var out []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("list presets: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return out, nil
}

// Delete empties a slot
func (s *Store) Delete(ctx context.Context, slot int) error {
	if err := checkSlot(slot); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE slot = ?`, slot)
	if err != nil {
		return fmt.Errorf("delete preset %d: %w", slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: slot %d", ErrNotFound, slot)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (Preset, error) {
	var (
		p       Preset
		data    string
		savedAt int64
	)
	if err := row.Scan(&p.Slot, &p.Name, &data, &savedAt); err != nil {
		return Preset{}, err
	}

	settings := sequencer.DefaultSettings()
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return Preset{}, fmt.Errorf("decode settings: %w", err)
	}
	p.Settings = settings.Clamp()
	p.SavedAt = time.UnixMilli(savedAt)
	return p, nil
}
