package chainer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/config"
	"github.com/cognicore/chainer/pkg/chainer/forward"
	"github.com/cognicore/chainer/pkg/chainer/pattern"
	"github.com/cognicore/chainer/pkg/chainer/rule"
	"github.com/cognicore/chainer/pkg/chainer/store"
	"github.com/cognicore/chainer/pkg/chainer/store/memstore"
)

// Chainer is the main forward chaining facade
type Chainer struct {
	store   store.Store
	catalog *rule.Catalog
	matcher pattern.Matcher
	sink    store.RecordSink
	log     *zap.Logger
}

// Options configures a Chainer instance
type Options struct {
	Store   store.Store
	Catalog *rule.Catalog
	Matcher pattern.Matcher
	// Sink receives every inference record. When nil and Store is a
	// RecordSink, the store is used.
	Sink   store.RecordSink
	Logger *zap.Logger
}

// New creates a Chainer instance with the given dependencies
func New(opts Options) *Chainer {
	c := &Chainer{
		store:   opts.Store,
		catalog: opts.Catalog,
		matcher: opts.Matcher,
		sink:    opts.Sink,
		log:     opts.Logger,
	}
	if c.store == nil {
		c.store = memstore.New()
	}
	if c.catalog == nil {
		c.catalog, _ = rule.NewCatalog()
	}
	if c.matcher == nil {
		c.matcher = pattern.New()
	}
	if c.sink == nil {
		if s, ok := c.store.(store.RecordSink); ok {
			c.sink = s
		}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Close cleanly shuts down the Chainer instance
func (c *Chainer) Close() error {
	return c.store.Close()
}

// Store returns the knowledge store.
func (c *Chainer) Store() store.Store { return c.store }

// Catalog returns the rule base.
func (c *Chainer) Catalog() *rule.Catalog { return c.catalog }

// Assert adds facts to the store.
func (c *Chainer) Assert(ctx context.Context, facts ...*atom.Atom) error {
	for _, f := range facts {
		if _, err := c.store.Add(ctx, f); err != nil {
			return fmt.Errorf("assert %s: %w", f, err)
		}
	}
	return nil
}

// Request describes one chaining run. A nil Source applies every rule once
// to the whole store.
type Request struct {
	Source   *atom.Atom
	VarDecl  atom.VarDecl
	FocusSet []*atom.Atom
	Config   *forward.Config
}

// Result summarises a finished run
type Result struct {
	RunID      string
	Products   []*atom.Atom
	Records    []forward.Record
	Iterations int
	Reason     string
}

// Engine builds the engine for req without running it.
func (c *Chainer) Engine(ctx context.Context, req Request) (*forward.Engine, error) {
	opts := forward.Options{
		Store:    c.store,
		Catalog:  c.catalog,
		Matcher:  c.matcher,
		Source:   req.Source,
		VarDecl:  req.VarDecl,
		FocusSet: req.FocusSet,
		Config:   req.Config,
		Sink:     c.sink,
		Logger:   c.log,
	}
	if req.Source == nil {
		return forward.NewBulk(ctx, opts)
	}
	return forward.New(ctx, opts)
}

// Run chains from req.Source until termination.
func (c *Chainer) Run(ctx context.Context, req Request) (Result, error) {
	e, err := c.Engine(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if err := e.Run(ctx); err != nil {
		return Result{}, err
	}
	return Result{
		RunID:      e.Recorder().RunID(),
		Products:   e.Result(),
		Records:    e.Records(),
		Iterations: e.Iteration(),
		Reason:     e.TerminationReason(),
	}, nil
}

// FromComponents builds a Chainer over st from loaded configuration, asserting
// the configured facts, and returns the request the configuration describes.
func FromComponents(ctx context.Context, st store.Store, comp *config.Components, log *zap.Logger) (*Chainer, Request, error) {
	c := New(Options{Store: st, Catalog: comp.Catalog, Logger: log})
	if err := c.Assert(ctx, comp.Facts...); err != nil {
		return nil, Request{}, err
	}
	cfg := comp.Config
	return c, Request{
		Source:   comp.Source,
		VarDecl:  comp.VarDecl,
		FocusSet: comp.FocusSet,
		Config:   &cfg,
	}, nil
}
