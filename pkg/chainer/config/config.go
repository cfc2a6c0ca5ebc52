package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/forward"
	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/rule"
	"github.com/cognicore/chainer/pkg/chainer/sampling"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

// Engine represents the chaining parameters file. Unset fields keep their
// defaults.
type Engine struct {
	MaxIterations        *int     `yaml:"max_iterations"`
	RetrySources         bool     `yaml:"retry_sources"`
	SelectionMode        string   `yaml:"selection_mode"`
	RulePolicy           string   `yaml:"rule_policy"`
	ExpansionProbability *float64 `yaml:"expansion_probability"`
	Seed                 uint64   `yaml:"seed"`
	UnifyCacheSize       *int     `yaml:"unify_cache_size"`
}

// LoadEngine loads chaining parameters from a YAML file
func LoadEngine(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var e Engine
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	return &e, nil
}

// Forward converts the file into a validated engine configuration.
func (e *Engine) Forward() (forward.Config, error) {
	cfg := forward.DefaultConfig()
	if e == nil {
		return cfg, nil
	}

	if e.MaxIterations != nil {
		cfg.MaxIterations = *e.MaxIterations
	}
	cfg.RetrySources = e.RetrySources
	if e.SelectionMode != "" {
		mode, err := forward.ParseSelectionMode(e.SelectionMode)
		if err != nil {
			return cfg, err
		}
		cfg.SelectionMode = mode
	}
	policy, err := sampling.ParsePolicy(e.RulePolicy)
	if err != nil {
		return cfg, err
	}
	cfg.RulePolicy = policy
	if e.ExpansionProbability != nil {
		cfg.ExpansionProbability = *e.ExpansionProbability
	}
	cfg.Seed = e.Seed
	if e.UnifyCacheSize != nil {
		cfg.UnifyCacheSize = *e.UnifyCacheSize
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// KnowledgeBase represents a knowledge base file. Atoms are written as
// s-expressions, e.g. (InheritanceLink (ConceptNode "cat") (ConceptNode "animal")).
type KnowledgeBase struct {
	Facts    []string   `yaml:"facts"`
	Sources  []string   `yaml:"sources"`
	VarDecl  []string   `yaml:"vardecl"`
	FocusSet []string   `yaml:"focus_set"`
	Rules    []RuleSpec `yaml:"rules"`
}

// RuleSpec is the file form of a rule. TV is [strength, confidence].
type RuleSpec struct {
	Name        string    `yaml:"name"`
	TV          []float64 `yaml:"tv"`
	Meta        bool      `yaml:"meta"`
	Vars        []string  `yaml:"vars"`
	Premises    []string  `yaml:"premises"`
	Conclusions []string  `yaml:"conclusions"`
	Template    *RuleSpec `yaml:"template"`
}

// LoadKnowledgeBase loads facts, sources and rules from a YAML file
func LoadKnowledgeBase(path string) (*KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var kb KnowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	return &kb, nil
}

// Rule builds the rule described by s.
func (s RuleSpec) Rule() (*rule.Rule, error) {
	r := &rule.Rule{Name: s.Name, Meta: s.Meta, TV: truth.Default}

	switch len(s.TV) {
	case 0:
	case 2:
		r.TV = truth.New(s.TV[0], s.TV[1])
	default:
		return nil, fmt.Errorf("%w: rule %s: tv must be [strength, confidence]", internalerr.ErrInvalidConfig, s.Name)
	}

	vars := make([]*atom.Atom, 0, len(s.Vars))
	for _, v := range s.Vars {
		vars = append(vars, atom.Variable(v))
	}
	r.Vars = atom.NewVarDecl(vars...)

	var err error
	if r.Premises, err = parseAtoms(s.Premises); err != nil {
		return nil, fmt.Errorf("rule %s premises: %w", s.Name, err)
	}
	if r.Conclusions, err = parseAtoms(s.Conclusions); err != nil {
		return nil, fmt.Errorf("rule %s conclusions: %w", s.Name, err)
	}
	if s.Template != nil {
		if r.Template, err = s.Template.Rule(); err != nil {
			return nil, fmt.Errorf("rule %s template: %w", s.Name, err)
		}
	}
	return r, nil
}

// parseAtoms parses each entry; an entry may hold several atoms.
func parseAtoms(entries []string) ([]*atom.Atom, error) {
	var out []*atom.Atom
	for _, e := range entries {
		atoms, err := atom.ParseAll(e)
		if err != nil {
			return nil, err
		}
		out = append(out, atoms...)
	}
	return out, nil
}
