package atom

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

func TestKeyIgnoresTruthValue(t *testing.T) {
	a := NewLink(InheritanceLink, Concept("cat"), Concept("animal"))
	b := a.WithTV(truth.New(0.9, 0.8))

	if a.Key() != b.Key() {
		t.Errorf("keys differ: %s vs %s", a.Key(), b.Key())
	}
	if !Equal(a, b) {
		t.Error("atoms with same structure should be equal")
	}
}

func TestKeyDistinguishesStructure(t *testing.T) {
	a := NewLink(InheritanceLink, Concept("cat"), Concept("animal"))
	b := NewLink(InheritanceLink, Concept("animal"), Concept("cat"))
	c := NewLink(SimilarityLink, Concept("cat"), Concept("animal"))

	if Equal(a, b) {
		t.Error("outgoing order should matter")
	}
	if Equal(a, c) {
		t.Error("link type should matter")
	}
	if Equal(Concept("x"), NewNode(PredicateNode, "x")) {
		t.Error("node type should matter")
	}
}

func TestIsClosed(t *testing.T) {
	closed := NewLink(InheritanceLink, Concept("cat"), Concept("animal"))
	open := NewLink(InheritanceLink, Variable("$X"), Concept("animal"))

	if !IsClosed(closed) {
		t.Error("expected closed")
	}
	if IsClosed(open) {
		t.Error("expected open")
	}
	if IsClosed(Variable("$X")) {
		t.Error("a bare variable is not closed")
	}
}

func TestVariables(t *testing.T) {
	a := NewLink(AndLink,
		NewLink(InheritanceLink, Variable("$A"), Variable("$B")),
		NewLink(InheritanceLink, Variable("$B"), Variable("$C")),
	)

	var names []string
	for _, v := range Variables(a) {
		names = append(names, v.Name)
	}
	if diff := cmp.Diff([]string{"$A", "$B", "$C"}, names); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}
}

func TestChildren(t *testing.T) {
	if Children(Concept("x")) != nil {
		t.Error("nodes have no children")
	}
	l := List(Concept("a"), Concept("b"))
	if len(Children(l)) != 2 {
		t.Errorf("expected 2 children, got %d", len(Children(l)))
	}
}

func TestVarDecl(t *testing.T) {
	d := NewVarDecl(Variable("$X"), Concept("not-a-var"), Variable("$X"), Variable("$Y"))
	if len(d) != 2 {
		t.Fatalf("expected 2 declared variables, got %d", len(d))
	}
	if !d.Contains(Variable("$Y")) {
		t.Error("expected $Y declared")
	}
	if d.Contains(Variable("$Z")) {
		t.Error("$Z is not declared")
	}
	if d.Key() != "$X,$Y" {
		t.Errorf("unexpected key %q", d.Key())
	}

	rest := d.Without(func(v *Atom) bool { return v.Name == "$X" })
	if len(rest) != 1 || rest[0].Name != "$Y" {
		t.Errorf("unexpected remainder %v", rest)
	}
}

func TestParse(t *testing.T) {
	a, err := Parse(`
; a comment
(InheritanceLink (stv 0.9 0.8)
  (ConceptNode "cat")
  (ConceptNode "animal"))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := NewLink(InheritanceLink, Concept("cat"), Concept("animal"))
	if !Equal(a, want) {
		t.Errorf("got %s, want %s", a, want)
	}
	if a.TV != truth.New(0.9, 0.8) {
		t.Errorf("unexpected tv %v", a.TV)
	}
}

func TestParseNodeTV(t *testing.T) {
	a, err := Parse(`(ConceptNode "cat" (stv 0.5 0.25))`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if a.Name != "cat" || a.TV != truth.New(0.5, 0.25) {
		t.Errorf("unexpected atom %s", a)
	}
}

func TestParseRoundTrip(t *testing.T) {
	src := `(EvaluationLink (stv 1 0.9) (PredicateNode "likes") (ListLink (ConceptNode "bob") (ConceptNode "quoted \"x\"")))`
	a := MustParse(src)
	if a.String() != src {
		t.Errorf("round trip mismatch:\n got %s\nwant %s", a.String(), src)
	}
}

func TestParseAll(t *testing.T) {
	atoms, err := ParseAll(`(ConceptNode "a") (ConceptNode "b")`)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	if len(atoms) != 2 {
		t.Fatalf("expected 2 atoms, got %d", len(atoms))
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unclosed":       `(ConceptNode "a"`,
		"unknown type":   `(Frobnicate "a")`,
		"node no name":   `(ConceptNode)`,
		"node child":     `(ConceptNode "a" (ConceptNode "b"))`,
		"bad number":     `(ConceptNode "a" (stv x 0.1))`,
		"unterminated":   `(ConceptNode "a)`,
		"stray symbol":   `(ListLink foo)`,
		"link with name": `(ListLink "a")`,
	}
	for name, src := range cases {
		if _, err := Parse(src); !errors.Is(err, internalerr.ErrParse) {
			t.Errorf("%s: expected ErrParse, got %v", name, err)
		}
	}
}
