package prettyprinter

import (
	"bytes"
	"strconv"

	"github.com/funvibe/wlcheck/internal/typesystem"
)

// --- Term Printer (output looks like the surface calculus) ---

// Precedence levels (higher = binds tighter)
const (
	precBinder = iota // forall / lambda / let extend to the right
	precArrow
	precApp
	precAtom
)

const (
	ansiReset  = "\x1b[0m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiBold   = "\x1b[1m"
)

// Namer gives display names to free type variables.
type Namer interface {
	VarName(id typesystem.VarID) (name string, existential bool)
}

// NamerFunc adapts a function to Namer.
type NamerFunc func(id typesystem.VarID) (string, bool)

func (f NamerFunc) VarName(id typesystem.VarID) (string, bool) { return f(id) }

// ExistentialNamer renders every free variable as an existential ?id.
var ExistentialNamer = NamerFunc(func(id typesystem.VarID) (string, bool) {
	return "?" + strconv.Itoa(int(id)), true
})

type CodePrinter struct {
	buf   bytes.Buffer
	store *typesystem.Store
	names Namer
	color bool

	bound map[typesystem.VarID]string
	env   []string // term binders, innermost last
}

func NewCodePrinter(store *typesystem.Store, names Namer) *CodePrinter {
	if names == nil {
		names = ExistentialNamer
	}
	return &CodePrinter{store: store, names: names, bound: map[typesystem.VarID]string{}}
}

// SetColor enables ANSI highlighting of variables and keywords.
func (p *CodePrinter) SetColor(on bool) {
	p.color = on
}

// Reset drops any partial output left by an interrupted render.
func (p *CodePrinter) Reset() {
	p.buf.Reset()
	p.env = nil
	p.bound = map[typesystem.VarID]string{}
}

func (p *CodePrinter) write(s string) {
	p.buf.WriteString(s)
}

func (p *CodePrinter) paint(code, s string) {
	if p.color {
		p.write(code + s + ansiReset)
		return
	}
	p.write(s)
}

func (p *CodePrinter) take() string {
	s := p.buf.String()
	p.buf.Reset()
	return s
}

// Type renders t.
func (p *CodePrinter) Type(t typesystem.Type) string {
	if t.IsZero() {
		return "<none>"
	}
	p.printType(t, precBinder)
	return p.take()
}

// Expr renders e with no enclosing term binders.
func (p *CodePrinter) Expr(e typesystem.Expr) string {
	return p.ExprIn(e, nil)
}

// ExprIn renders e under env, the names of the enclosing term binders
// with the innermost last.
func (p *CodePrinter) ExprIn(e typesystem.Expr, env []string) string {
	if e.IsZero() {
		return "<none>"
	}
	saved := p.env
	p.env = append([]string(nil), env...)
	p.printExpr(e, precBinder)
	p.env = saved
	return p.take()
}

func (p *CodePrinter) printType(t typesystem.Type, prec int) {
	s := p.store
	switch s.TypeTag(t) {
	case typesystem.TypeUnit:
		p.write("Unit")
	case typesystem.TypeVar:
		id := s.VarOf(t)
		if name, ok := p.bound[id]; ok {
			p.write(name)
			return
		}
		name, existential := p.names.VarName(id)
		if existential {
			p.paint(ansiYellow, name)
		} else {
			p.write(name)
		}
	case typesystem.TypeArrow:
		dom, cod := s.ArrowOf(t)
		if prec > precArrow {
			p.write("(")
		}
		p.printType(dom, precArrow+1)
		p.write(" -> ")
		p.printType(cod, precBinder)
		if prec > precArrow {
			p.write(")")
		}
	case typesystem.TypeForall:
		name, bound, body := s.ForallOf(t)
		if prec > precBinder {
			p.write("(")
		}
		prev, had := p.bound[bound]
		p.bound[bound] = name
		p.paint(ansiBold, "forall")
		p.write(" " + name + ". ")
		p.printType(body, precBinder)
		if had {
			p.bound[bound] = prev
		} else {
			delete(p.bound, bound)
		}
		if prec > precBinder {
			p.write(")")
		}
	}
}

func (p *CodePrinter) printExpr(e typesystem.Expr, prec int) {
	s := p.store
	switch s.ExprTag(e) {
	case typesystem.ExprUnit:
		p.write("()")
	case typesystem.ExprVar:
		i := s.VarIndex(e)
		if i >= 0 && i < len(p.env) {
			p.write(p.env[len(p.env)-1-i])
		} else {
			p.write("#" + strconv.Itoa(i))
		}
	case typesystem.ExprApp:
		fn, arg := s.AppOf(e)
		if prec > precApp {
			p.write("(")
		}
		p.printExpr(fn, precApp)
		p.write(" ")
		p.printExpr(arg, precAtom)
		if prec > precApp {
			p.write(")")
		}
	case typesystem.ExprLam:
		name, body := s.LamOf(e)
		if prec > precBinder {
			p.write("(")
		}
		p.paint(ansiCyan, "\\")
		p.write(name + ". ")
		p.env = append(p.env, name)
		p.printExpr(body, precBinder)
		p.env = p.env[:len(p.env)-1]
		if prec > precBinder {
			p.write(")")
		}
	case typesystem.ExprLet:
		name, bound, body := s.LetOf(e)
		if prec > precBinder {
			p.write("(")
		}
		p.paint(ansiBold, "let")
		p.write(" " + name + " = ")
		p.printExpr(bound, precBinder)
		p.write(" ")
		p.paint(ansiBold, "in")
		p.write(" ")
		p.env = append(p.env, name)
		p.printExpr(body, precBinder)
		p.env = p.env[:len(p.env)-1]
		if prec > precBinder {
			p.write(")")
		}
	}
}
