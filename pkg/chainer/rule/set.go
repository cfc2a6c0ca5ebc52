package rule

// Set is an insertion-ordered collection of rules, deduplicated by Key.
// The zero value is ready to use.
type Set struct {
	rules []*Rule
	keys  map[string]struct{}
}

// NewSet builds a set from rules, keeping the first of each key.
func NewSet(rules ...*Rule) *Set {
	s := &Set{}
	for _, r := range rules {
		s.Add(r)
	}
	return s
}

// Add inserts r unless a rule with the same key is present.
func (s *Set) Add(r *Rule) bool {
	if r == nil {
		return false
	}
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	k := r.Key()
	if _, ok := s.keys[k]; ok {
		return false
	}
	s.keys[k] = struct{}{}
	s.rules = append(s.rules, r)
	return true
}

// Has reports whether a rule with r's key is present.
func (s *Set) Has(r *Rule) bool {
	if s == nil || r == nil {
		return false
	}
	_, ok := s.keys[r.Key()]
	return ok
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Empty reports whether the set has no rules.
func (s *Set) Empty() bool { return s.Len() == 0 }

// Rules returns the rules in insertion order.
func (s *Set) Rules() []*Rule {
	if s == nil {
		return nil
	}
	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Names returns rule names in insertion order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.Name
	}
	return out
}
