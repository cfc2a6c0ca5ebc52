package config

import (
	"fmt"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/forward"
	"github.com/cognicore/chainer/pkg/chainer/rule"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	EnginePath        string
	KnowledgeBasePath string
}

// Components holds all loaded configuration components
type Components struct {
	Config  forward.Config
	Catalog *rule.Catalog
	Facts   []*atom.Atom
	// Source is nil without sources, the single source, or a SetLink of
	// several.
	Source   *atom.Atom
	VarDecl  atom.VarDecl
	FocusSet []*atom.Atom
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load engine parameters
	var engine *Engine
	if l.EnginePath != "" {
		e, err := LoadEngine(l.EnginePath)
		if err != nil {
			return nil, fmt.Errorf("load engine config: %w", err)
		}
		engine = e
	}
	cfg, err := engine.Forward()
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	comp.Config = cfg

	// Load knowledge base
	kb := &KnowledgeBase{}
	if l.KnowledgeBasePath != "" {
		kb, err = LoadKnowledgeBase(l.KnowledgeBasePath)
		if err != nil {
			return nil, fmt.Errorf("load knowledge base: %w", err)
		}
	}
	if err := comp.fill(kb); err != nil {
		return nil, fmt.Errorf("knowledge base: %w", err)
	}

	return comp, nil
}

func (c *Components) fill(kb *KnowledgeBase) error {
	var err error
	if c.Facts, err = parseAtoms(kb.Facts); err != nil {
		return fmt.Errorf("facts: %w", err)
	}
	if c.FocusSet, err = parseAtoms(kb.FocusSet); err != nil {
		return fmt.Errorf("focus set: %w", err)
	}

	sources, err := parseAtoms(kb.Sources)
	if err != nil {
		return fmt.Errorf("sources: %w", err)
	}
	switch len(sources) {
	case 0:
	case 1:
		c.Source = sources[0]
	default:
		c.Source = atom.Set(sources...)
	}

	vars := make([]*atom.Atom, 0, len(kb.VarDecl))
	for _, v := range kb.VarDecl {
		vars = append(vars, atom.Variable(v))
	}
	c.VarDecl = atom.NewVarDecl(vars...)

	rules := make([]*rule.Rule, 0, len(kb.Rules))
	for _, spec := range kb.Rules {
		r, err := spec.Rule()
		if err != nil {
			return err
		}
		rules = append(rules, r)
	}
	if c.Catalog, err = rule.NewCatalog(rules...); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}
