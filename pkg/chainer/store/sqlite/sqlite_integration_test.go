package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/store"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "facts.db")
	st, err := OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	return st, dbPath
}

// TestSQLiteAtomsSurviveReopen tests that atoms and their truth values are
// reloaded with the same structure.
func TestSQLiteAtomsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	st, dbPath := openTemp(t)

	link := atom.NewLink(atom.InheritanceLink, atom.Concept("cat"), atom.Concept("animal")).
		WithTV(truth.New(0.9, 0.8))
	if _, err := st.Add(ctx, link); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Len() != 3 {
		t.Fatalf("expected 3 atoms after reopen, got %d", reopened.Len())
	}
	got, ok, err := reopened.Get(ctx, link.Key())
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.TV != truth.New(0.9, 0.8) {
		t.Errorf("tv not persisted: %v", got.TV)
	}
	if got.Out[0] != mustGet(t, reopened, atom.Concept("cat")) {
		t.Error("reloaded link should point at canonical children")
	}
}

// TestSQLiteMergedTVPersisted tests that re-adding a more confident value
// updates the stored row.
func TestSQLiteMergedTVPersisted(t *testing.T) {
	ctx := context.Background()
	st, dbPath := openTemp(t)

	st.Add(ctx, atom.Concept("cat").WithTV(truth.New(0.5, 0.1)))
	st.Add(ctx, atom.Concept("cat").WithTV(truth.New(0.7, 0.6)))
	st.Close()

	reopened, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got := mustGet(t, reopened, atom.Concept("cat")); got.TV != truth.New(0.7, 0.6) {
		t.Errorf("expected merged tv, got %v", got.TV)
	}
}

// TestSQLiteFailedAddLeavesCacheUntouched tests that an atom whose write
// fails is neither visible nor persisted, and that a failed re-add keeps the
// stored truth value.
func TestSQLiteFailedAddLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	st, dbPath := openTemp(t)

	if _, err := st.Add(ctx, atom.Concept("dog").WithTV(truth.New(0.5, 0.1))); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	link := atom.NewLink(atom.InheritanceLink, atom.Concept("cat"), atom.Concept("animal"))
	if _, err := st.Add(cancelled, link); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ok, _ := st.Contains(ctx, link); ok {
		t.Error("failed Add left the link visible")
	}
	if ok, _ := st.Contains(ctx, atom.Concept("cat")); ok {
		t.Error("failed Add left a child visible")
	}
	if st.Len() != 1 {
		t.Errorf("expected 1 atom, got %d", st.Len())
	}

	if _, err := st.Add(cancelled, atom.Concept("dog").WithTV(truth.New(0.9, 0.9))); err == nil {
		t.Fatal("expected re-add with a cancelled context to fail")
	}
	if got := mustGet(t, st, atom.Concept("dog")); got.TV != truth.New(0.5, 0.1) {
		t.Errorf("failed re-add merged tv: %v", got.TV)
	}
	st.Close()

	reopened, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Len() != 1 {
		t.Errorf("expected 1 atom after reopen, got %d", reopened.Len())
	}
}

// TestSQLiteChildIsNotPersisted tests that scoped workspaces stay in memory.
func TestSQLiteChildIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	st, dbPath := openTemp(t)

	child := st.Child()
	child.Add(ctx, atom.Concept("scratch"))
	child.Close()
	st.Close()

	reopened, err := OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if reopened.Len() != 0 {
		t.Errorf("workspace atoms leaked to disk: %d", reopened.Len())
	}
}

// TestSQLiteRecords tests record persistence and run filtering.
func TestSQLiteRecords(t *testing.T) {
	ctx := context.Background()
	st, _ := openTemp(t)
	defer st.Close()

	recs := []store.Record{
		{ID: "01A", RunID: "run-1", Iteration: 0, Source: `(ConceptNode "a")`, Rule: "deduction", Products: []string{`(ConceptNode "b")`}},
		{ID: "01B", RunID: "run-1", Iteration: 1, Source: `(ConceptNode "b")`, Rule: "deduction"},
		{ID: "01C", RunID: "run-2", Iteration: 0, Source: `(ConceptNode "c")`, Rule: "abduction"},
	}
	for _, r := range recs {
		if err := st.WriteRecord(ctx, r); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	// duplicate ids are ignored
	if err := st.WriteRecord(ctx, recs[0]); err != nil {
		t.Fatalf("WriteRecord duplicate: %v", err)
	}

	got, err := st.Records(ctx, "run-1")
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for run-1, got %d", len(got))
	}
	if got[0].ID != "01A" || len(got[0].Products) != 1 || got[1].Products != nil {
		t.Errorf("unexpected records: %+v", got)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at should be filled in")
	}

	all, _ := st.Records(ctx, "")
	if len(all) != 3 {
		t.Errorf("expected 3 records overall, got %d", len(all))
	}
}

func mustGet(t *testing.T, s *Store, a *atom.Atom) *atom.Atom {
	t.Helper()
	got, ok, err := s.Get(context.Background(), a.Key())
	if err != nil || !ok {
		t.Fatalf("Get %s: ok=%v err=%v", a, ok, err)
	}
	return got
}
