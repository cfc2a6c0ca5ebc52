package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/store"
	"github.com/cognicore/chainer/pkg/chainer/store/memstore"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

// Store persists atoms and inference records in SQLite. Atoms are mirrored
// in an in-memory cache so handles stay identity-stable; scoped children
// are memory-only.
type Store struct {
	db    *sql.DB
	cache *memstore.Store

	mu  sync.Mutex
	ids map[string]int64 // atom key -> row id
}

// OpenSQLite opens a SQLite database with WAL mode enabled and loads every
// stored atom into the cache.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:    db,
		cache: memstore.New(),
		ids:   make(map[string]int64),
	}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load atoms: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.cache.Close()
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS atoms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	key TEXT UNIQUE NOT NULL,
	type TEXT NOT NULL,
	name TEXT,
	outgoing TEXT,
	strength REAL NOT NULL,
	confidence REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS inference_records (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	source TEXT NOT NULL,
	rule TEXT NOT NULL,
	products TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_inference_records_run ON inference_records(run_id, id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// load rebuilds the cache. Children always have lower row ids than their
// parents because Add persists bottom-up.
func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, type, name, outgoing, strength, confidence FROM atoms ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	byID := make(map[int64]*atom.Atom)
	for rows.Next() {
		var (
			id         int64
			typ        string
			name       sql.NullString
			outgoing   sql.NullString
			strength   float64
			confidence float64
		)
		if err := rows.Scan(&id, &typ, &name, &outgoing, &strength, &confidence); err != nil {
			return err
		}

		var a *atom.Atom
		if t := atom.Type(typ); t.IsLink() {
			var childIDs []int64
			if outgoing.Valid && outgoing.String != "" {
				if err := json.Unmarshal([]byte(outgoing.String), &childIDs); err != nil {
					return fmt.Errorf("atom %d: decode outgoing: %w", id, err)
				}
			}
			out := make([]*atom.Atom, len(childIDs))
			for i, cid := range childIDs {
				child, ok := byID[cid]
				if !ok {
					return fmt.Errorf("atom %d: missing child %d: %w", id, cid, internalerr.ErrNotFound)
				}
				out[i] = child
			}
			a = atom.NewLink(t, out...)
		} else {
			a = atom.NewNode(t, name.String)
		}
		a.TV = truth.New(strength, confidence)

		canon, err := s.cache.Add(ctx, a)
		if err != nil {
			return err
		}
		byID[id] = canon
		s.ids[canon.Key()] = id
	}
	return rows.Err()
}

// Add persists an atom together with any new children, then makes it
// visible in the cache. A failed write leaves the cache untouched.
func (s *Store) Add(ctx context.Context, a *atom.Atom) (*atom.Atom, error) {
	if a == nil {
		return nil, internalerr.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := a
	if existing, ok, err := s.cache.Get(ctx, a.Key()); err != nil {
		return nil, err
	} else if ok {
		staged = existing.WithTV(existing.TV.Merge(a.TV))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	pending := make(map[string]int64)
	if _, err := s.persist(ctx, tx, staged, pending, true); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	for k, id := range pending {
		s.ids[k] = id
	}
	return s.cache.Add(ctx, a)
}

// persist writes atom a bottom-up. Children that already have a row are reused;
// the top atom is always upserted so a merged truth value reaches disk.
func (s *Store) persist(ctx context.Context, tx *sql.Tx, a *atom.Atom, pending map[string]int64, top bool) (int64, error) {
	key := a.Key()
	if !top {
		if id, ok := pending[key]; ok {
			return id, nil
		}
		if id, ok := s.ids[key]; ok {
			return id, nil
		}
	}

	var outgoing sql.NullString
	if a.IsLink() {
		childIDs := make([]int64, len(a.Out))
		for i, c := range a.Out {
			id, err := s.persist(ctx, tx, c, pending, false)
			if err != nil {
				return 0, err
			}
			childIDs[i] = id
		}
		data, err := json.Marshal(childIDs)
		if err != nil {
			return 0, err
		}
		outgoing = sql.NullString{String: string(data), Valid: true}
	}

	const stmt = `
INSERT INTO atoms (key, type, name, outgoing, strength, confidence)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	strength=excluded.strength,
	confidence=excluded.confidence
RETURNING id;
`

	var id int64
	err := tx.QueryRowContext(ctx, stmt,
		key,
		string(a.Type),
		a.Name,
		outgoing,
		a.TV.Strength,
		a.TV.Confidence,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	pending[key] = id
	return id, nil
}

// Get returns the canonical atom for a key.
func (s *Store) Get(ctx context.Context, key string) (*atom.Atom, bool, error) {
	return s.cache.Get(ctx, key)
}

// Contains reports whether the atom is stored.
func (s *Store) Contains(ctx context.Context, a *atom.Atom) (bool, error) {
	return s.cache.Contains(ctx, a)
}

// Atoms returns stored atoms of type t in insertion order.
func (s *Store) Atoms(ctx context.Context, t atom.Type) ([]*atom.Atom, error) {
	return s.cache.Atoms(ctx, t)
}

// All returns every stored atom in insertion order.
func (s *Store) All(ctx context.Context) ([]*atom.Atom, error) {
	return s.cache.All(ctx)
}

// Len returns the number of stored atoms.
func (s *Store) Len() int { return s.cache.Len() }

// Child opens a memory-only scope on top of the stored atoms.
func (s *Store) Child() store.Store { return s.cache.NewChild() }

// WriteRecord persists one inference record.
func (s *Store) WriteRecord(ctx context.Context, r store.Record) error {
	products, err := json.Marshal(r.Products)
	if err != nil {
		return err
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO inference_records (id, run_id, iteration, source, rule, products, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`,
		r.ID,
		r.RunID,
		r.Iteration,
		r.Source,
		r.Rule,
		string(products),
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Records returns persisted records, oldest first. An empty runID returns
// records of every run.
func (s *Store) Records(ctx context.Context, runID string) ([]store.Record, error) {
	query := `SELECT id, run_id, iteration, source, rule, products, created_at FROM inference_records`
	var args []interface{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var (
			r         store.Record
			products  string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Iteration, &r.Source, &r.Rule, &products, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(products), &r.Products); err != nil {
			return nil, fmt.Errorf("record %s: decode products: %w", r.ID, err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = ts
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var (
	_ store.Store        = (*Store)(nil)
	_ store.RecordSink   = (*Store)(nil)
	_ store.RecordReader = (*Store)(nil)
)
