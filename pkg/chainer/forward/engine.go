// Package forward implements the forward chaining control loop: pick a
// source, pick a rule that can fire on it, apply the rule and fold the
// products back into the source pool until a termination criterion holds.
package forward

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/pattern"
	"github.com/cognicore/chainer/pkg/chainer/rule"
	"github.com/cognicore/chainer/pkg/chainer/sampling"
	"github.com/cognicore/chainer/pkg/chainer/store"
	"github.com/cognicore/chainer/pkg/chainer/store/memstore"
)

// BulkSource names the placeholder source bulk runs are recorded under.
const BulkSource = "dummy-source"

// Options configures an Engine. Only Store and Catalog are required.
type Options struct {
	Store   store.Store
	Catalog *rule.Catalog

	// Source is the initial source. A SetLink stands for each of its
	// members.
	Source *atom.Atom
	// VarDecl declares the variables of the initial source that rules may
	// bind.
	VarDecl atom.VarDecl
	// FocusSet restricts matching to these facts plus the sources.
	FocusSet []*atom.Atom

	// Config defaults to DefaultConfig().
	Config *Config

	Matcher  pattern.Matcher
	Rand     *sampling.Rand
	Expander PoolExpander
	Sampler  sampling.Sampler
	Sink     store.RecordSink
	Logger   *zap.Logger
}

// Engine runs forward chaining over a store.
type Engine struct {
	cfg     *Config
	catalog *rule.Catalog
	matcher pattern.Matcher
	state   *State
	phase   Phase
	reason  string

	sources    *SourceSelector
	rules      *RuleSelector
	applicator *Applicator
	recorder   *Recorder
	log        *zap.Logger
}

// New creates an engine chaining from opts.Source.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: nil source", internalerr.ErrInvalidInput)
	}
	return newEngine(ctx, opts)
}

// NewBulk creates an engine without sources. Running it applies every rule
// once to the whole store.
func NewBulk(ctx context.Context, opts Options) (*Engine, error) {
	opts.Source = nil
	opts.VarDecl = nil
	return newEngine(ctx, opts)
}

func newEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: nil store", internalerr.ErrInvalidInput)
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%w: nil rule catalog", internalerr.ErrInvalidInput)
	}

	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	rng := opts.Rand
	if rng == nil {
		if cfg.Seed != 0 {
			rng = sampling.NewRand(cfg.Seed)
		} else {
			rng = sampling.NewTimeSeeded()
		}
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = pattern.New()
	}
	expander := opts.Expander
	if expander == nil {
		expander = ChildExpander{Probability: cfg.ExpansionProbability}
	}
	sampler := opts.Sampler
	if sampler == nil {
		s, err := sampling.NewSampler(cfg.RulePolicy, rng)
		if err != nil {
			return nil, err
		}
		sampler = s
	}
	if b, ok := sampler.(sampling.RandBinder); ok {
		b.Bind(rng)
	}

	e := &Engine{
		cfg:     &cfg,
		catalog: opts.Catalog,
		matcher: matcher,
		phase:   PhaseInit,
		log:     log,
	}
	e.state = &State{Store: opts.Store, VarDecl: opts.VarDecl, Rand: rng}

	var focus store.Store
	if len(opts.FocusSet) > 0 {
		fs := memstore.New()
		for _, f := range opts.FocusSet {
			if _, err := fs.Add(ctx, f); err != nil {
				return nil, fmt.Errorf("seed focus set: %w", err)
			}
		}
		focus = fs
		e.state.Focus = focus
	}

	// Sources are canonicalised in the scope they will be matched in.
	initial := initialSources(opts.Source)
	for i, src := range initial {
		h, err := e.state.Scope().Add(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("add source: %w", err)
		}
		initial[i] = h
	}
	e.state.InitialSources = initial
	e.state.Sources = NewSourceSet(initial...)

	rules, err := NewRuleSelector(opts.Catalog, sampler, rng, cfg.UnifyCacheSize, log)
	if err != nil {
		return nil, err
	}
	e.rules = rules
	e.sources = NewSourceSelector(e.cfg, expander, log)
	e.applicator = NewApplicator(matcher, log)
	e.recorder = NewRecorder(opts.Sink, log)
	return e, nil
}

func initialSources(src *atom.Atom) []*atom.Atom {
	if src == nil {
		return nil
	}
	if src.Type == atom.SetLink {
		return append([]*atom.Atom(nil), src.Out...)
	}
	return []*atom.Atom{src}
}

// Run chains until a termination criterion holds. Without sources every
// rule is applied once to the whole store instead.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Debug("start forward chaining", zap.Int("rules", e.catalog.Len()), zap.Int("sources", e.state.Sources.Len()))

	if e.state.Sources.Len() == 0 {
		return e.applyAll(ctx)
	}

	e.phase = PhaseRunning
	for !e.Terminated() {
		if err := e.Step(ctx); err != nil {
			return err
		}
	}
	e.phase = PhaseTerminated
	e.log.Debug("finished forward chaining",
		zap.Int("iterations", e.state.Iteration),
		zap.String("reason", e.reason),
		zap.Int("products", len(e.recorder.AllProducts())))
	return nil
}

// Step performs one iteration. Only selection failures are returned; a
// step without a valid rule or with a failing rule is not an error.
func (e *Engine) Step(ctx context.Context) error {
	e.state.Iteration++
	if e.phase == PhaseInit {
		e.phase = PhaseRunning
	}
	log := e.log.With(zap.Int("iteration", e.state.Iteration))
	log.Debug("step", zap.Int("max", e.cfg.MaxIterations))

	e.expandMetaRules(ctx, log)

	source, err := e.sources.Select(e.state)
	if err != nil {
		return fmt.Errorf("select source: %w", err)
	}
	log.Debug("selected source", zap.Stringer("source", source))

	valid, err := e.rules.ValidRules(ctx, e.state, source)
	if err != nil {
		log.Warn("computing valid rules", zap.Error(err))
	}
	r, ok := e.rules.Select(valid)
	if !ok {
		log.Debug("no selected rule, abort step")
		return nil
	}
	log.Debug("selected rule", zap.String("rule", r.Name), zap.Stringer("tv", r.TV))

	products := e.applicator.Apply(ctx, e.state, r)
	e.state.Sources.Update(products...)
	e.recorder.Append(ctx, e.state.Iteration-1, source, r, products)
	return nil
}

func (e *Engine) expandMetaRules(ctx context.Context, log *zap.Logger) {
	before := e.catalog.Len()
	if _, err := e.catalog.ExpandMetaRules(ctx, e.state.Store, e.matcher); err != nil {
		log.Warn("meta rule expansion", zap.Error(err))
	}
	if after := e.catalog.Len(); after != before {
		log.Debug("rule set grew", zap.Int("from", before), zap.Int("to", after))
	}
}

func (e *Engine) applyAll(ctx context.Context) error {
	e.phase = PhaseBulk
	dummy, err := e.state.Store.Add(ctx, atom.Concept(BulkSource))
	if err != nil {
		return fmt.Errorf("add bulk source: %w", err)
	}
	for _, r := range e.catalog.Rules() {
		e.log.Debug("apply rule", zap.String("rule", r.Name))
		products := e.applicator.ApplyAll(ctx, e.state, r)
		e.recorder.Append(ctx, e.state.Iteration, dummy, r, products)
		e.state.Sources.Update(products...)
	}
	return nil
}

// Terminated reports whether chaining should stop: every source was tried
// and retrying is off, or the iteration cap was reached.
func (e *Engine) Terminated() bool {
	reason, done := e.termination()
	if done && reason != e.reason {
		e.reason = reason
		e.log.Debug("terminate", zap.String("reason", reason))
	}
	return done
}

func (e *Engine) termination() (string, bool) {
	reason := ""
	if !e.cfg.RetrySources && e.state.Iteration > 0 && e.state.Sources.UnselectedLen() == 0 {
		reason = "all sources have been exhausted"
	}
	if e.cfg.reachedMax(e.state.Iteration) {
		reason = "reached the maximum number of iterations"
	}
	return reason, reason != ""
}

// TerminationReason explains the last positive Terminated check.
func (e *Engine) TerminationReason() string { return e.reason }

// Result returns every distinct fact produced so far.
func (e *Engine) Result() []*atom.Atom { return e.recorder.AllProducts() }

// Config exposes the live configuration; edits apply to the next step.
func (e *Engine) Config() *Config { return e.cfg }

// Iteration returns the number of steps taken.
func (e *Engine) Iteration() int { return e.state.Iteration }

// Phase returns the lifecycle phase.
func (e *Engine) Phase() Phase { return e.phase }

// State exposes the chaining state.
func (e *Engine) State() *State { return e.state }

// Sources returns the source pool.
func (e *Engine) Sources() *SourceSet { return e.state.Sources }

// Records returns the inference log.
func (e *Engine) Records() []Record { return e.recorder.Records() }

// Recorder returns the inference recorder.
func (e *Engine) Recorder() *Recorder { return e.recorder }
