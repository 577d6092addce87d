package analyzer

import (
	"github.com/funvibe/wlcheck/internal/diagnostics"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

// infer processes expr => target, then continues with next. Every fresh
// existential is placed before target so its solution stays in scope.
func (m *Machine) infer(expr typesystem.Expr, target typesystem.VarID, next *Judgment) error {
	s := m.store
	c := m.ctx

	switch s.ExprTag(expr) {
	case typesystem.ExprVar:
		decl, err := c.LookupVar(s.VarIndex(expr))
		if err != nil {
			return err
		}
		if err := c.Solve(target, decl.Type); err != nil {
			return err
		}
		m.pushNext(next)
		return nil

	case typesystem.ExprUnit:
		if err := c.Solve(target, s.Unit()); err != nil {
			return err
		}
		m.pushNext(next)
		return nil

	case typesystem.ExprLam:
		name, body := s.LamOf(expr)
		a, err := m.declareExistentialBefore(target, "")
		if err != nil {
			return err
		}
		b, err := m.declareExistentialBefore(target, "")
		if err != nil {
			return err
		}
		if err := c.Solve(target, s.Arrow(s.Var(a), s.Var(b))); err != nil {
			return err
		}
		m.pushNext(next)
		c.DeclareVar(m.freshVar(), name, s.Var(a))
		m.push(Check(body, s.Var(b)))
		return nil

	case typesystem.ExprApp:
		fn, arg := s.AppOf(expr)
		f, err := m.declareExistentialBefore(target, "")
		if err != nil {
			return err
		}
		m.push(Infer(fn, f, ApplyInfer(s.Var(f), arg, target, next)))
		return nil

	case typesystem.ExprLet:
		name, bound, body := s.LetOf(expr)
		m.push(Infer(s.EApp(s.ELam(name, body), bound), target, next))
		return nil
	}
	return diagnostics.Invariant("cannot infer %s", s.ExprTag(expr))
}

// applyInfer processes fn . arg =>> target: the result type of applying
// a function of type fn to arg.
func (m *Machine) applyInfer(fn typesystem.Type, arg typesystem.Expr, target typesystem.VarID, next *Judgment) error {
	s := m.store
	c := m.ctx
	fn = c.Head(fn)
	if err := m.mustBeBound(fn); err != nil {
		return err
	}

	switch s.TypeTag(fn) {
	case typesystem.TypeArrow:
		dom, cod := s.ArrowOf(fn)
		if err := c.Solve(target, cod); err != nil {
			return err
		}
		m.pushNext(next)
		m.push(Check(arg, dom))
		return nil

	case typesystem.TypeForall:
		name, bound, body := s.ForallOf(fn)
		a, err := m.declareExistentialBefore(target, name)
		if err != nil {
			return err
		}
		m.push(ApplyInfer(s.Replace(body, bound, s.Var(a)), arg, target, next))
		return nil

	case typesystem.TypeVar:
		alpha, ok := c.IsUnsolvedExistential(fn)
		if !ok {
			break
		}
		a2, err := m.declareExistentialBefore(alpha, "")
		if err != nil {
			return err
		}
		a1, err := m.declareExistentialBefore(alpha, "")
		if err != nil {
			return err
		}
		if err := c.Solve(alpha, s.Arrow(s.Var(a1), s.Var(a2))); err != nil {
			return err
		}
		if err := c.Solve(target, s.Var(a2)); err != nil {
			return err
		}
		m.pushNext(next)
		m.push(Check(arg, s.Var(a1)))
		return nil
	}
	return diagnostics.NewError(diagnostics.ErrT001, "cannot apply a value of type %s", m.RenderType(c.Apply(fn)))
}
