package forward

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/rule"
	"github.com/cognicore/chainer/pkg/chainer/store"
)

// Record is one inference: a rule applied to a source and what it produced.
type Record struct {
	ID        string
	Iteration int
	Source    *atom.Atom
	Rule      *rule.Rule
	Products  []*atom.Atom
	CreatedAt time.Time
}

// Recorder is the append-only inference log of a run.
type Recorder struct {
	runID   string
	entropy *ulid.MonotonicEntropy
	records []Record
	sink    store.RecordSink
	log     *zap.Logger
}

// NewRecorder creates a recorder. A non-nil sink receives every record.
func NewRecorder(sink store.RecordSink, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	entropy := ulid.Monotonic(rand.Reader, 0)
	return &Recorder{
		runID:   ulid.MustNew(ulid.Now(), entropy).String(),
		entropy: entropy,
		sink:    sink,
		log:     log,
	}
}

// RunID identifies the run in persisted records.
func (r *Recorder) RunID() string { return r.runID }

// Append logs an inference. Sink failures are logged and otherwise ignored.
func (r *Recorder) Append(ctx context.Context, iteration int, source *atom.Atom, ru *rule.Rule, products []*atom.Atom) Record {
	rec := Record{
		ID:        ulid.MustNew(ulid.Now(), r.entropy).String(),
		Iteration: iteration,
		Source:    source,
		Rule:      ru,
		Products:  append([]*atom.Atom(nil), products...),
		CreatedAt: time.Now().UTC(),
	}
	r.records = append(r.records, rec)

	if r.sink != nil {
		if err := r.sink.WriteRecord(ctx, r.persisted(rec)); err != nil {
			r.log.Warn("persist inference record", zap.String("id", rec.ID), zap.Error(err))
		}
	}
	return rec
}

func (r *Recorder) persisted(rec Record) store.Record {
	products := make([]string, len(rec.Products))
	for i, p := range rec.Products {
		products[i] = p.String()
	}
	name := ""
	if rec.Rule != nil {
		name = rec.Rule.Name
	}
	return store.Record{
		ID:        rec.ID,
		RunID:     r.runID,
		Iteration: rec.Iteration,
		Source:    rec.Source.String(),
		Rule:      name,
		Products:  products,
		CreatedAt: rec.CreatedAt,
	}
}

// Len returns the number of records.
func (r *Recorder) Len() int { return len(r.records) }

// Records returns the log, oldest first.
func (r *Recorder) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// AllProducts returns the distinct products of every record in first-seen
// order.
func (r *Recorder) AllProducts() []*atom.Atom {
	return collect(r.records, func(Record) bool { return true })
}

// ProductsOf returns the distinct products of the rules named name.
func (r *Recorder) ProductsOf(name string) []*atom.Atom {
	return collect(r.records, func(rec Record) bool { return rec.Rule != nil && rec.Rule.Name == name })
}

func collect(records []Record, keep func(Record) bool) []*atom.Atom {
	var out []*atom.Atom
	seen := make(map[string]struct{})
	for _, rec := range records {
		if !keep(rec) {
			continue
		}
		for _, p := range rec.Products {
			if _, ok := seen[p.Key()]; ok {
				continue
			}
			seen[p.Key()] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
