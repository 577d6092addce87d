package analyzer

import (
	"github.com/funvibe/wlcheck/internal/typesystem"
)

// check processes expr <= ty.
func (m *Machine) check(expr typesystem.Expr, ty typesystem.Type) error {
	s := m.store
	ty = m.ctx.Head(ty)
	if err := m.mustBeBound(ty); err != nil {
		return err
	}

	if s.TypeTag(ty) == typesystem.TypeForall {
		name, bound, body := s.ForallOf(ty)
		u := m.DeclareUniversal(name)
		m.push(Check(expr, s.Replace(body, bound, s.Var(u))))
		return nil
	}

	switch s.ExprTag(expr) {
	case typesystem.ExprLam:
		if s.TypeTag(ty) == typesystem.TypeArrow {
			name, body := s.LamOf(expr)
			dom, cod := s.ArrowOf(ty)
			m.ctx.DeclareVar(m.freshVar(), name, dom)
			m.push(Check(body, cod))
			return nil
		}

	case typesystem.ExprLet:
		// The body is checked as a lambda over the bound name, whose
		// parameter type is whatever the bound expression infers to.
		name, bound, body := s.LetOf(expr)
		t := m.DeclareExistential("")
		m.push(Infer(bound, t, Check(s.ELam(name, body), s.Arrow(s.Var(t), ty))))
		return nil

	case typesystem.ExprUnit:
		if s.TypeTag(ty) == typesystem.TypeUnit {
			return nil
		}
	}

	t := m.DeclareExistential("")
	m.push(Infer(expr, t, Subtype(s.Var(t), ty)))
	return nil
}
