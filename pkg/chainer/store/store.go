package store

import (
	"context"
	"time"

	"github.com/cognicore/chainer/pkg/chainer/atom"
)

// Store is the knowledge store the chaining loop reads facts from and
// writes derived facts into.
type Store interface {
	Close() error

	// Add inserts a (idempotent by structural key) and returns the canonical
	// handle. Children are inserted first. Re-adding an atom owned by this
	// scope merges truth values; an atom inherited from a parent scope is
	// returned unchanged.
	Add(ctx context.Context, a *atom.Atom) (*atom.Atom, error)

	// Get returns the canonical handle for a structural key.
	Get(ctx context.Context, key string) (*atom.Atom, bool, error)

	// Contains reports whether a structurally equal atom is visible.
	Contains(ctx context.Context, a *atom.Atom) (bool, error)

	// Atoms returns every visible atom of type t in insertion order,
	// parent scopes first.
	Atoms(ctx context.Context, t atom.Type) ([]*atom.Atom, error)

	// All returns every visible atom in insertion order, parent scopes first.
	All(ctx context.Context) ([]*atom.Atom, error)

	// Len is the number of visible atoms.
	Len() int

	// Child opens a scoped sub-store. Reads fall through to the parent,
	// writes stay local and vanish when the child is closed.
	Child() Store
}

// Record is the persisted form of one inference step.
type Record struct {
	ID        string
	RunID     string
	Iteration int
	Source    string
	Rule      string
	Products  []string
	CreatedAt time.Time
}

// RecordSink persists inference records as they are appended
type RecordSink interface {
	WriteRecord(ctx context.Context, r Record) error
}

// RecordReader reads persisted inference records back, oldest first.
type RecordReader interface {
	Records(ctx context.Context, runID string) ([]Record, error)
}
