package loader

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/wlcheck/internal/typesystem"
)

// TypeTerm is a store-independent type. Forall keeps its body in Left,
// Arrow its domain and codomain in Left and Right.
type TypeTerm struct {
	Tag         typesystem.TypeTag
	Name        string           // Forall binder
	ID          typesystem.VarID // Var, Forall binder
	Left, Right *TypeTerm
}

// ExprTerm is a store-independent expression. Lam keeps its body in
// Left, App its function and argument, Let its bound expression and body.
type ExprTerm struct {
	Tag         typesystem.ExprTag
	Name        string // Lam, Let binder
	Index       int    // Var
	Left, Right *ExprTerm
}

// Build allocates t in s.
func (t *TypeTerm) Build(s *typesystem.Store) typesystem.Type {
	switch t.Tag {
	case typesystem.TypeVar:
		return s.Var(t.ID)
	case typesystem.TypeForall:
		return s.Forall(t.Name, t.ID, t.Left.Build(s))
	case typesystem.TypeArrow:
		return s.Arrow(t.Left.Build(s), t.Right.Build(s))
	}
	return s.Unit()
}

// Build allocates e in s.
func (e *ExprTerm) Build(s *typesystem.Store) typesystem.Expr {
	switch e.Tag {
	case typesystem.ExprVar:
		return s.EVar(e.Index)
	case typesystem.ExprLam:
		return s.ELam(e.Name, e.Left.Build(s))
	case typesystem.ExprApp:
		return s.EApp(e.Left.Build(s), e.Right.Build(s))
	case typesystem.ExprLet:
		return s.ELet(e.Name, e.Left.Build(s), e.Right.Build(s))
	}
	return s.EUnit()
}

// termParser turns YAML nodes into terms. Forall binders get ids in
// order of appearance, unique within a case.
type termParser struct {
	next typesystem.VarID
}

type binder struct {
	name string
	id   typesystem.VarID
}

func fields(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out[n.Content[i].Value] = n.Content[i+1]
	}
	return out, nil
}

func only(f map[string]*yaml.Node, line int, keys ...string) error {
	for k := range f {
		known := false
		for _, want := range keys {
			if k == want {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("line %d: unexpected key %q", line, k)
		}
	}
	for _, want := range keys {
		if f[want] == nil {
			return fmt.Errorf("line %d: missing %q", line, want)
		}
	}
	return nil
}

func scalarName(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode || n.Value == "" {
		return "", fmt.Errorf("line %d: expected a name", n.Line)
	}
	return n.Value, nil
}

func isUnit(n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode {
		return false
	}
	switch strings.ToLower(n.Value) {
	case "unit", "()":
		return true
	}
	return false
}

func (p *termParser) typ(n *yaml.Node, env []binder) (*TypeTerm, error) {
	if isUnit(n) {
		return &TypeTerm{Tag: typesystem.TypeUnit}, nil
	}
	f, err := fields(n)
	if err != nil {
		return nil, err
	}
	switch {
	case f["var"] != nil:
		if err := only(f, n.Line, "var"); err != nil {
			return nil, err
		}
		v := f["var"]
		name, err := scalarName(v)
		if err != nil {
			return nil, err
		}
		for i := len(env) - 1; i >= 0; i-- {
			if env[i].name == name {
				return &TypeTerm{Tag: typesystem.TypeVar, ID: env[i].id}, nil
			}
		}
		return nil, fmt.Errorf("line %d: unbound type variable %q", v.Line, name)

	case f["forall"] != nil:
		if err := only(f, n.Line, "forall", "body"); err != nil {
			return nil, err
		}
		name, err := scalarName(f["forall"])
		if err != nil {
			return nil, err
		}
		id := p.next
		p.next++
		body, err := p.typ(f["body"], append(env[:len(env):len(env)], binder{name, id}))
		if err != nil {
			return nil, err
		}
		return &TypeTerm{Tag: typesystem.TypeForall, Name: name, ID: id, Left: body}, nil

	case f["arrow"] != nil:
		if err := only(f, n.Line, "arrow"); err != nil {
			return nil, err
		}
		parts := f["arrow"]
		if parts.Kind != yaml.SequenceNode || len(parts.Content) < 2 {
			return nil, fmt.Errorf("line %d: arrow needs at least two types", parts.Line)
		}
		terms := make([]*TypeTerm, len(parts.Content))
		for i, c := range parts.Content {
			if terms[i], err = p.typ(c, env); err != nil {
				return nil, err
			}
		}
		t := terms[len(terms)-1]
		for i := len(terms) - 2; i >= 0; i-- {
			t = &TypeTerm{Tag: typesystem.TypeArrow, Left: terms[i], Right: t}
		}
		return t, nil
	}
	return nil, fmt.Errorf("line %d: not a type", n.Line)
}

func (p *termParser) expr(n *yaml.Node, env []string) (*ExprTerm, error) {
	if isUnit(n) {
		return &ExprTerm{Tag: typesystem.ExprUnit}, nil
	}
	f, err := fields(n)
	if err != nil {
		return nil, err
	}
	switch {
	case f["var"] != nil:
		if err := only(f, n.Line, "var"); err != nil {
			return nil, err
		}
		v := f["var"]
		if v.Tag == "!!int" {
			i, err := strconv.Atoi(v.Value)
			if err != nil || i < 0 {
				return nil, fmt.Errorf("line %d: bad de Bruijn index %q", v.Line, v.Value)
			}
			return &ExprTerm{Tag: typesystem.ExprVar, Index: i}, nil
		}
		name, err := scalarName(v)
		if err != nil {
			return nil, err
		}
		for i := len(env) - 1; i >= 0; i-- {
			if env[i] == name {
				return &ExprTerm{Tag: typesystem.ExprVar, Index: len(env) - 1 - i}, nil
			}
		}
		return nil, fmt.Errorf("line %d: unbound variable %q", v.Line, name)

	case f["lam"] != nil:
		if err := only(f, n.Line, "lam", "body"); err != nil {
			return nil, err
		}
		name, err := scalarName(f["lam"])
		if err != nil {
			return nil, err
		}
		body, err := p.expr(f["body"], append(env[:len(env):len(env)], name))
		if err != nil {
			return nil, err
		}
		return &ExprTerm{Tag: typesystem.ExprLam, Name: name, Left: body}, nil

	case f["app"] != nil:
		if err := only(f, n.Line, "app"); err != nil {
			return nil, err
		}
		parts := f["app"]
		if parts.Kind != yaml.SequenceNode || len(parts.Content) < 2 {
			return nil, fmt.Errorf("line %d: app needs a function and at least one argument", parts.Line)
		}
		e, err := p.expr(parts.Content[0], env)
		if err != nil {
			return nil, err
		}
		for _, c := range parts.Content[1:] {
			arg, err := p.expr(c, env)
			if err != nil {
				return nil, err
			}
			e = &ExprTerm{Tag: typesystem.ExprApp, Left: e, Right: arg}
		}
		return e, nil

	case f["let"] != nil:
		if err := only(f, n.Line, "let", "be", "in"); err != nil {
			return nil, err
		}
		name, err := scalarName(f["let"])
		if err != nil {
			return nil, err
		}
		bound, err := p.expr(f["be"], env)
		if err != nil {
			return nil, err
		}
		body, err := p.expr(f["in"], append(env[:len(env):len(env)], name))
		if err != nil {
			return nil, err
		}
		return &ExprTerm{Tag: typesystem.ExprLet, Name: name, Left: bound, Right: body}, nil
	}
	return nil, fmt.Errorf("line %d: not an expression", n.Line)
}
