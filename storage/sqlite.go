package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/minions/agent"
	"github.com/pthm-cable/minions/genome"
)

// SQLiteArchive is an Archive backed by a SQLite file.
type SQLiteArchive struct {
	path    string
	maxSize int

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteArchive creates an archive at path. Call Init before use.
func NewSQLiteArchive(path string, maxSize int) *SQLiteArchive {
	return &SQLiteArchive{path: path, maxSize: max(1, maxSize)}
}

func (s *SQLiteArchive) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteArchive) Put(ctx context.Context, e Entry) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO archive (id, run_id, agent_type, dna, fitness, children, survival, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fitness = excluded.fitness,
			children = excluded.children,
			survival = excluded.survival
	`, e.ID, e.RunID, int(e.Type), e.Dna.String(), e.Fitness, e.Children, e.Survival, e.Created.UnixNano())
	if err != nil {
		return fmt.Errorf("insert archive entry: %w", err)
	}

	// Keep only the fittest maxSize rows of this type.
	_, err = tx.ExecContext(ctx, `
		DELETE FROM archive
		WHERE agent_type = ? AND id NOT IN (
			SELECT id FROM archive WHERE agent_type = ?
			ORDER BY fitness DESC, created_at ASC
			LIMIT ?
		)
	`, int(e.Type), int(e.Type), s.maxSize)
	if err != nil {
		return fmt.Errorf("trim archive: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteArchive) Top(ctx context.Context, t agent.Type, n int) ([]Entry, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, dna, fitness, children, survival, created_at
		FROM archive WHERE agent_type = ?
		ORDER BY fitness DESC, created_at ASC
		LIMIT ?
	`, int(t), n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			dna     string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.RunID, &dna, &e.Fitness, &e.Children, &e.Survival, &created); err != nil {
			return nil, err
		}
		e.Dna, err = genome.ParseDna(dna)
		if err != nil {
			return nil, fmt.Errorf("archive entry %s: %w", e.ID, err)
		}
		e.Type = t
		e.Created = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteArchive) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteArchive) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("sqlite archive is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS archive (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			agent_type INTEGER NOT NULL,
			dna TEXT NOT NULL,
			fitness REAL NOT NULL,
			children INTEGER NOT NULL,
			survival REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS archive_type_fitness ON archive (agent_type, fitness DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
