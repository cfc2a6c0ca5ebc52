package forward

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/cognicore/chainer/pkg/chainer/atom"
	"github.com/cognicore/chainer/pkg/chainer/rule"
	"github.com/cognicore/chainer/pkg/chainer/sampling"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

// RuleSelector finds the rules that can fire on a source and draws one.
type RuleSelector struct {
	catalog *rule.Catalog
	sampler sampling.Sampler
	rand    *sampling.Rand
	log     *zap.Logger

	// rule key | source key | vardecl key -> variants
	cache *lru.Cache[string, []*rule.Rule]
}

// NewRuleSelector creates a selector. cacheSize <= 0 disables memoisation.
func NewRuleSelector(catalog *rule.Catalog, sampler sampling.Sampler, r *sampling.Rand, cacheSize int, log *zap.Logger) (*RuleSelector, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &RuleSelector{catalog: catalog, sampler: sampler, rand: r, log: log}
	if cacheSize > 0 {
		cache, err := lru.New[string, []*rule.Rule](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("unify cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// ValidRules unifies every concrete catalog rule with source. A source
// absent from the matching scope has no valid rules.
func (s *RuleSelector) ValidRules(ctx context.Context, state *State, source *atom.Atom) (*rule.Set, error) {
	valid := rule.NewSet()
	ok, err := state.Scope().Contains(ctx, source)
	if err != nil {
		return valid, fmt.Errorf("look up source: %w", err)
	}
	if !ok {
		return valid, nil
	}

	decl := state.DeclFor(source)
	for _, r := range s.catalog.Rules() {
		if r.Meta {
			continue
		}
		for _, v := range s.unify(r, source, decl) {
			valid.Add(v)
		}
	}

	if ce := s.log.Check(zap.DebugLevel, "valid rules"); ce != nil {
		ce.Write(zap.Strings("rules", valid.Names()))
	}
	return valid, nil
}

func (s *RuleSelector) unify(r *rule.Rule, source *atom.Atom, decl atom.VarDecl) []*rule.Rule {
	if s.cache == nil {
		return r.UnifySource(source, decl)
	}
	key := r.Key() + "|" + source.Key() + "|" + decl.Key()
	if variants, ok := s.cache.Get(key); ok {
		return variants
	}
	variants := r.UnifySource(source, decl)
	s.cache.Add(key, variants)
	return variants
}

// Select draws a rule with probability proportional to its sampled
// utility. It returns false for an empty set.
func (s *RuleSelector) Select(rules *rule.Set) (*rule.Rule, bool) {
	if rules.Empty() {
		return nil, false
	}
	candidates := rules.Rules()
	tvs := make([]truth.Value, len(candidates))
	for i, r := range candidates {
		tvs[i] = r.TV
	}
	weights := sampling.Weights(s.sampler, tvs)

	if ce := s.log.Check(zap.DebugLevel, "rule weights"); ce != nil {
		fields := make([]zap.Field, len(candidates))
		for i, r := range candidates {
			fields[i] = zap.Float64(fmt.Sprintf("%d:%s", i, r.Name), weights[i])
		}
		ce.Write(fields...)
	}

	idx := s.rand.Categorical(weights)
	if idx < 0 {
		return nil, false
	}
	return candidates[idx], true
}
