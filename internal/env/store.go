package env

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Store persists named definitions in a sqlite database. Only the source
// forms are stored; loaded definitions come back with a nil Body and are
// recompiled by the session on first use.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS definitions (
	name      TEXT PRIMARY KEY,
	params    TEXT NOT NULL,
	source    TEXT NOT NULL,
	recursive INTEGER NOT NULL,
	depends   TEXT NOT NULL
);`

// OpenStore opens or creates the definition database at path. Use ":memory:"
// for a throwaway store.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("env: open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("env: init store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save writes or replaces one definition.
func (s *Store) Save(d *Definition) error {
	rec := 0
	if d.Recursive {
		rec = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO definitions (name, params, source, recursive, depends)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   params = excluded.params, source = excluded.source,
		   recursive = excluded.recursive, depends = excluded.depends`,
		d.Name, joinList(d.Params), d.Source, rec, joinList(d.DependsOn),
	)
	if err != nil {
		return fmt.Errorf("env: save %q: %w", d.Name, err)
	}
	return nil
}

// Load reads one definition by name; a missing name returns (nil, nil).
func (s *Store) Load(name string) (*Definition, error) {
	var params, source, depends string
	var rec int
	err := s.db.QueryRow(
		`SELECT params, source, recursive, depends FROM definitions WHERE name = ?`, name,
	).Scan(&params, &source, &rec, &depends)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("env: load %q: %w", name, err)
	}
	return &Definition{
		Name:      name,
		Params:    splitList(params),
		Source:    source,
		Recursive: rec != 0,
		DependsOn: splitList(depends),
	}, nil
}

// Delete removes one definition.
func (s *Store) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM definitions WHERE name = ?`, name); err != nil {
		return fmt.Errorf("env: delete %q: %w", name, err)
	}
	return nil
}

// All returns every stored definition, sorted by name.
func (s *Store) All() ([]*Definition, error) {
	rows, err := s.db.Query(`SELECT name, params, source, recursive, depends FROM definitions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("env: list: %w", err)
	}
	defer rows.Close()
	var out []*Definition
	for rows.Next() {
		var name, params, source, depends string
		var rec int
		if err := rows.Scan(&name, &params, &source, &rec, &depends); err != nil {
			return nil, fmt.Errorf("env: list: %w", err)
		}
		out = append(out, &Definition{
			Name:      name,
			Params:    splitList(params),
			Source:    source,
			Recursive: rec != 0,
			DependsOn: splitList(depends),
		})
	}
	return out, rows.Err()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
