package generators

import (
	"fmt"
	"math/rand"

	"github.com/funvibe/wlcheck/internal/loader"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

// RandomSource abstracts the source of randomness.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// RandSource wraps math/rand.
type RandSource struct {
	*rand.Rand
}

// ByteSource uses a byte slice as a source of randomness.
type ByteSource struct {
	data []byte
	pos  int
}

func (s *ByteSource) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	if s.pos >= len(s.data) {
		return 0
	}
	v := int(s.data[s.pos])
	s.pos++
	return v % n
}

func (s *ByteSource) Float64() float64 {
	if s.pos >= len(s.data) {
		return 0.0
	}
	v := int(s.data[s.pos])
	s.pos++
	return float64(v) / 255.0
}

// Generator generates random closed types, expressions and cases.
// Once a ByteSource is exhausted every choice is 0, which always picks
// a leaf, so generation terminates on any input.
type Generator struct {
	src   RandomSource
	next  typesystem.VarID
	names []string
	cases int
}

const (
	MaxTypeDepth = 4
	MaxExprDepth = 5
)

func New(seed int64) *Generator {
	return &Generator{
		src:   &RandSource{rand.New(rand.NewSource(seed))},
		names: []string{"x", "y", "z", "f", "g"},
	}
}

func NewFromData(data []byte) *Generator {
	return &Generator{
		src:   &ByteSource{data: data},
		names: []string{"x", "y", "z", "f", "g"},
	}
}

// Intn exposes the random source's Intn method for embedded structs.
func (g *Generator) Intn(n int) int {
	return g.src.Intn(n)
}

// Src returns the random source of the generator.
func (g *Generator) Src() RandomSource {
	return g.src
}

type binder struct {
	name string
	id   typesystem.VarID
}

// Type generates a closed type. Forall binders get ids unique within
// the generator, the same way the loader numbers them within a case.
func (g *Generator) Type() *loader.TypeTerm {
	return g.typ(nil, 0)
}

func (g *Generator) typ(env []binder, depth int) *loader.TypeTerm {
	choices := 4
	if depth >= MaxTypeDepth {
		choices = 2
	}
	switch g.src.Intn(choices) {
	case 1:
		if len(env) == 0 {
			return &loader.TypeTerm{Tag: typesystem.TypeUnit}
		}
		b := env[g.src.Intn(len(env))]
		return &loader.TypeTerm{Tag: typesystem.TypeVar, ID: b.id}
	case 2:
		dom := g.typ(env, depth+1)
		cod := g.typ(env, depth+1)
		return &loader.TypeTerm{Tag: typesystem.TypeArrow, Left: dom, Right: cod}
	case 3:
		name := string(rune('a' + len(env)%26))
		id := g.next
		g.next++
		body := g.typ(append(env[:len(env):len(env)], binder{name, id}), depth+1)
		return &loader.TypeTerm{Tag: typesystem.TypeForall, Name: name, ID: id, Left: body}
	}
	return &loader.TypeTerm{Tag: typesystem.TypeUnit}
}

// Expr generates a closed expression.
func (g *Generator) Expr() *loader.ExprTerm {
	return g.expr(0, 0)
}

func (g *Generator) expr(bound, depth int) *loader.ExprTerm {
	choices := 5
	if depth >= MaxExprDepth {
		choices = 2
	}
	switch g.src.Intn(choices) {
	case 1:
		if bound == 0 {
			return &loader.ExprTerm{Tag: typesystem.ExprUnit}
		}
		return &loader.ExprTerm{Tag: typesystem.ExprVar, Index: g.src.Intn(bound)}
	case 2:
		name := g.names[g.src.Intn(len(g.names))]
		return &loader.ExprTerm{Tag: typesystem.ExprLam, Name: name, Left: g.expr(bound+1, depth+1)}
	case 3:
		fn := g.expr(bound, depth+1)
		arg := g.expr(bound, depth+1)
		return &loader.ExprTerm{Tag: typesystem.ExprApp, Left: fn, Right: arg}
	case 4:
		name := g.names[g.src.Intn(len(g.names))]
		e1 := g.expr(bound, depth+1)
		e2 := g.expr(bound+1, depth+1)
		return &loader.ExprTerm{Tag: typesystem.ExprLet, Name: name, Left: e1, Right: e2}
	}
	return &loader.ExprTerm{Tag: typesystem.ExprUnit}
}

// Case generates a check, infer or subtype case with no expectation.
func (g *Generator) Case() *loader.Case {
	g.cases++
	c := &loader.Case{Name: fmt.Sprintf("generated%d", g.cases), File: "<generated>"}
	switch g.src.Intn(3) {
	case 0:
		c.Kind = loader.KindCheck
		c.Expr = g.Expr()
		c.Type = g.Type()
	case 1:
		c.Kind = loader.KindInfer
		c.Expr = g.Expr()
	default:
		c.Kind = loader.KindSubtype
		c.Sub = [2]*loader.TypeTerm{g.Type(), g.Type()}
	}
	return c
}

// Program generates an expression that is well typed by construction:
// a chain of lets binding identities and units, applied to each other.
func (g *Generator) Program() *loader.ExprTerm {
	n := 1 + g.src.Intn(4)
	id := func(name string) *loader.ExprTerm {
		return &loader.ExprTerm{Tag: typesystem.ExprLam, Name: name, Left: &loader.ExprTerm{Tag: typesystem.ExprVar}}
	}
	// innermost body: apply the most recent binding to unit
	body := &loader.ExprTerm{
		Tag:   typesystem.ExprApp,
		Left:  &loader.ExprTerm{Tag: typesystem.ExprVar, Index: 0},
		Right: &loader.ExprTerm{Tag: typesystem.ExprUnit},
	}
	for i := n - 1; i >= 0; i-- {
		name := g.names[i%len(g.names)]
		var bound *loader.ExprTerm
		if i == 0 || g.src.Intn(2) == 0 {
			bound = id("v")
		} else {
			// the previous binding applied to an identity is again an identity
			bound = &loader.ExprTerm{
				Tag:   typesystem.ExprApp,
				Left:  &loader.ExprTerm{Tag: typesystem.ExprVar, Index: 0},
				Right: id("w"),
			}
		}
		body = &loader.ExprTerm{Tag: typesystem.ExprLet, Name: name, Left: bound, Right: body}
	}
	return body
}
