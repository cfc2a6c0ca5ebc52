package atom

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cognicore/chainer/pkg/chainer/internalerr"
	"github.com/cognicore/chainer/pkg/chainer/truth"
)

// Parse reads a single atom from an s-expression such as
//
//	(InheritanceLink (stv 0.9 0.8)
//	  (ConceptNode "cat")
//	  (ConceptNode "animal"))
//
// Comments start with ';' and run to the end of the line.
func Parse(src string) (*Atom, error) {
	atoms, err := ParseAll(src)
	if err != nil {
		return nil, err
	}
	if len(atoms) != 1 {
		return nil, fmt.Errorf("%w: expected 1 atom, got %d", internalerr.ErrParse, len(atoms))
	}
	return atoms[0], nil
}

// ParseAll reads every top-level atom in src.
func ParseAll(src string) ([]*Atom, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var out []*Atom
	for !p.done() {
		a, err := p.atom()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// MustParse is Parse that panics; intended for tests and literals.
func MustParse(src string) *Atom {
	a, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return a
}

type tokKind int

const (
	tokOpen tokKind = iota
	tokClose
	tokString
	tokSymbol
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case unicode.IsSpace(rune(c)):
			i++
		case c == '(':
			toks = append(toks, token{kind: tokOpen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokClose, pos: i})
			i++
		case c == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(src) {
				return nil, fmt.Errorf("%w: offset %d: unterminated string", internalerr.ErrParse, start)
			}
			i++
			s, err := strconv.Unquote(src[start:i])
			if err != nil {
				return nil, fmt.Errorf("%w: offset %d: %v", internalerr.ErrParse, start, err)
			}
			toks = append(toks, token{kind: tokString, text: s, pos: start})
		default:
			start := i
			for i < len(src) && !unicode.IsSpace(rune(src[i])) && src[i] != '(' && src[i] != ')' && src[i] != '"' && src[i] != ';' {
				i++
			}
			toks = append(toks, token{kind: tokSymbol, text: src[start:i], pos: start})
		}
	}
	return toks, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() (token, bool) {
	if p.done() {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) next() (token, error) {
	t, ok := p.peek()
	if !ok {
		return token{}, fmt.Errorf("%w: unexpected end of input", internalerr.ErrParse)
	}
	p.pos++
	return t, nil
}

func (p *parser) expect(kind tokKind, what string) (token, error) {
	t, err := p.next()
	if err != nil {
		return t, err
	}
	if t.kind != kind {
		return t, fmt.Errorf("%w: offset %d: expected %s", internalerr.ErrParse, t.pos, what)
	}
	return t, nil
}

// atom parses '(' Type args ')'.
func (p *parser) atom() (*Atom, error) {
	open, err := p.expect(tokOpen, "'('")
	if err != nil {
		return nil, err
	}
	head, err := p.expect(tokSymbol, "atom type")
	if err != nil {
		return nil, err
	}
	typ := Type(head.text)
	if !typ.IsNode() && !typ.IsLink() {
		return nil, fmt.Errorf("%w: offset %d: unknown atom type %q", internalerr.ErrParse, head.pos, head.text)
	}

	tv := truth.Default
	var name *string
	var out []*Atom

	for {
		t, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("%w: offset %d: unclosed %s", internalerr.ErrParse, open.pos, typ)
		}
		switch t.kind {
		case tokClose:
			p.pos++
			if typ.IsNode() {
				if name == nil {
					return nil, fmt.Errorf("%w: offset %d: %s needs a name", internalerr.ErrParse, open.pos, typ)
				}
				return NewNode(typ, *name).WithTV(tv), nil
			}
			return NewLink(typ, out...).WithTV(tv), nil
		case tokString:
			p.pos++
			if !typ.IsNode() || name != nil {
				return nil, fmt.Errorf("%w: offset %d: unexpected string", internalerr.ErrParse, t.pos)
			}
			s := t.text
			name = &s
		case tokOpen:
			if p.isTV() {
				v, err := p.truthValue()
				if err != nil {
					return nil, err
				}
				tv = v
				continue
			}
			if typ.IsNode() {
				return nil, fmt.Errorf("%w: offset %d: %s cannot have children", internalerr.ErrParse, t.pos, typ)
			}
			child, err := p.atom()
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		default:
			return nil, fmt.Errorf("%w: offset %d: unexpected symbol %q", internalerr.ErrParse, t.pos, t.text)
		}
	}
}

func (p *parser) isTV() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	t := p.toks[p.pos+1]
	return t.kind == tokSymbol && strings.EqualFold(t.text, "stv")
}

// truthValue parses (stv strength confidence).
func (p *parser) truthValue() (truth.Value, error) {
	open, _ := p.next()
	p.pos++ // stv
	var nums [2]float64
	for i := range nums {
		t, err := p.expect(tokSymbol, "number")
		if err != nil {
			return truth.Value{}, err
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return truth.Value{}, fmt.Errorf("%w: offset %d: bad number %q", internalerr.ErrParse, t.pos, t.text)
		}
		nums[i] = f
	}
	if _, err := p.expect(tokClose, "')' after stv"); err != nil {
		return truth.Value{}, fmt.Errorf("%w (stv at offset %d)", err, open.pos)
	}
	return truth.New(nums[0], nums[1]), nil
}
