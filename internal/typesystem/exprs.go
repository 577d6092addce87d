package typesystem

// Expr is a handle to an immutable expression node owned by a Store.
type Expr struct {
	h handle
}

// IsZero reports whether e is the zero handle (no expression).
func (e Expr) IsZero() bool { return e.h.gen == 0 }

type ExprTag uint8

const (
	ExprUnit ExprTag = iota
	ExprVar
	ExprApp
	ExprLam
	ExprLet
)

func (t ExprTag) String() string {
	switch t {
	case ExprUnit:
		return "Unit"
	case ExprVar:
		return "Var"
	case ExprApp:
		return "App"
	case ExprLam:
		return "Lam"
	case ExprLet:
		return "Let"
	}
	return "?"
}

type exprNode struct {
	tag   ExprTag
	name  string
	index int // de Bruijn index of a Var
	a, b  Expr
}

func (s *Store) EUnit() Expr { return s.eunit }

// EVar refers to the index-th enclosing binder, 0 being the innermost.
func (s *Store) EVar(index int) Expr {
	return s.newExpr(exprNode{tag: ExprVar, index: index})
}

func (s *Store) EApp(fn, arg Expr) Expr {
	return s.newExpr(exprNode{tag: ExprApp, a: fn, b: arg})
}

func (s *Store) ELam(name string, body Expr) Expr {
	return s.newExpr(exprNode{tag: ExprLam, name: name, a: body})
}

// ELet binds name in body only; bound is outside the binder.
func (s *Store) ELet(name string, bound, body Expr) Expr {
	return s.newExpr(exprNode{tag: ExprLet, name: name, a: bound, b: body})
}

func (s *Store) ExprTag(e Expr) ExprTag {
	return s.exprs.get(e.h, "expression").tag
}

func (s *Store) VarIndex(e Expr) int {
	n := s.exprs.get(e.h, "expression")
	if n.tag != ExprVar {
		panic(invariantTag("VarIndex", n.tag))
	}
	return n.index
}

func (s *Store) AppOf(e Expr) (fn, arg Expr) {
	n := s.exprs.get(e.h, "expression")
	if n.tag != ExprApp {
		panic(invariantTag("AppOf", n.tag))
	}
	return n.a, n.b
}

func (s *Store) LamOf(e Expr) (name string, body Expr) {
	n := s.exprs.get(e.h, "expression")
	if n.tag != ExprLam {
		panic(invariantTag("LamOf", n.tag))
	}
	return n.name, n.a
}

func (s *Store) LetOf(e Expr) (name string, bound, body Expr) {
	n := s.exprs.get(e.h, "expression")
	if n.tag != ExprLet {
		panic(invariantTag("LetOf", n.tag))
	}
	return n.name, n.a, n.b
}

// ExprSize counts the nodes of e.
func (s *Store) ExprSize(e Expr) int {
	n := s.exprs.get(e.h, "expression")
	switch n.tag {
	case ExprApp, ExprLet:
		return 1 + s.ExprSize(n.a) + s.ExprSize(n.b)
	case ExprLam:
		return 1 + s.ExprSize(n.a)
	}
	return 1
}
