package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/ports"
)

// SQLiteIndex is an advisory search index over version snapshots.
//
// It can always be rebuilt from the snapshot files and is never consulted to
// answer history or version lookups.
type SQLiteIndex struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenSQLiteIndex creates (or opens) the index database at path.
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, errors.Wrap(err, "create index directory")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open version index")
	}
	db.SetMaxOpenConns(1)
	idx := &SQLiteIndex{db: db, path: path}
	if err := idx.init(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteIndex) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS versions (
		prompt_id INTEGER NOT NULL,
		version INTEGER NOT NULL,
		name TEXT,
		template TEXT,
		message TEXT,
		strategy TEXT,
		created_at TEXT,
		PRIMARY KEY (prompt_id, version)
	);`)
	return errors.Wrap(err, "create versions table")
}

// Record inserts or refreshes one snapshot row.
func (s *SQLiteIndex) Record(ctx context.Context, snap domain.VersionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(ctx, s.db, snap)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *SQLiteIndex) insert(ctx context.Context, db execer, snap domain.VersionSnapshot) error {
	_, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO versions
		(prompt_id, version, name, template, message, strategy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.EntityID,
		snap.Version,
		snap.Snapshot.Name,
		snap.Snapshot.Template,
		snap.Message,
		snap.Strategy,
		snap.CreatedAt.Format(time.RFC3339Nano),
	)
	return errors.Wrapf(err, "index version %d of prompt %d", snap.Version, snap.EntityID)
}

// Forget drops every row for a prompt.
func (s *SQLiteIndex) Forget(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM versions WHERE prompt_id = ?", id)
	return errors.Wrapf(err, "forget prompt %d", id)
}

// Search returns snapshots whose name, template, message or strategy contains text.
// Returned snapshots carry only the indexed fields.
func (s *SQLiteIndex) Search(ctx context.Context, text string, limit int) ([]domain.VersionSnapshot, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT prompt_id, version, name, template, message, strategy, created_at FROM versions")
	var args []interface{}
	if text != "" {
		like := "%" + text + "%"
		builder.WriteString(" WHERE name LIKE ? OR template LIKE ? OR message LIKE ? OR strategy LIKE ?")
		args = append(args, like, like, like, like)
	}
	builder.WriteString(" ORDER BY prompt_id, version")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, builder.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "search version index")
	}
	defer rows.Close()

	var out []domain.VersionSnapshot
	for rows.Next() {
		var snap domain.VersionSnapshot
		var name, template, message, strategy, created sql.NullString
		if err := rows.Scan(&snap.EntityID, &snap.Version, &name, &template, &message, &strategy, &created); err != nil {
			return nil, errors.Wrap(err, "scan version index row")
		}
		snap.Snapshot = domain.PromptRecord{ID: snap.EntityID, Name: name.String, Template: template.String}
		snap.Message = message.String
		snap.Strategy = strategy.String
		if t, err := domain.ParseTimestamp(created.String); err == nil {
			snap.CreatedAt = t
		}
		out = append(out, snap)
	}
	return out, errors.Wrap(rows.Err(), "iterate version index")
}

// Rebuild discards the index and repopulates it from the version files.
func (s *SQLiteIndex) Rebuild(ctx context.Context, versions ports.VersionStore) (int, error) {
	ids, err := versions.Entities(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin index rebuild")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM versions"); err != nil {
		return 0, errors.Wrap(err, "clear version index")
	}
	count := 0
	for _, id := range ids {
		snaps, err := versions.History(ctx, id)
		if err != nil {
			return 0, err
		}
		for _, snap := range snaps {
			if err := s.insert(ctx, tx, snap); err != nil {
				return 0, err
			}
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit index rebuild")
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Path returns the sqlite database path.
func (s *SQLiteIndex) Path() string {
	return s.path
}

var _ ports.VersionIndex = (*SQLiteIndex)(nil)
