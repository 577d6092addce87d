package analyzer

import (
	"github.com/funvibe/wlcheck/internal/diagnostics"
	"github.com/funvibe/wlcheck/internal/ordindex"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

// subtype processes lhs <: rhs. Rules are tried in a fixed order:
// trivial equality, Forall on the right, Forall on the left, arrows,
// and finally instantiation of an unsolved existential on either side.
func (m *Machine) subtype(lhs, rhs typesystem.Type) error {
	s := m.store
	lhs = m.ctx.Head(lhs)
	rhs = m.ctx.Head(rhs)

	if err := m.mustBeBound(lhs); err != nil {
		return err
	}
	if err := m.mustBeBound(rhs); err != nil {
		return err
	}

	if s.TriviallyEqual(lhs, rhs) {
		return nil
	}

	if s.TypeTag(rhs) == typesystem.TypeForall {
		name, bound, body := s.ForallOf(rhs)
		u := m.DeclareUniversal(name)
		m.push(Subtype(lhs, s.Replace(body, bound, s.Var(u))))
		return nil
	}

	if s.TypeTag(lhs) == typesystem.TypeForall {
		name, bound, body := s.ForallOf(lhs)
		a := m.DeclareExistential(name)
		m.push(Subtype(s.Replace(body, bound, s.Var(a)), rhs))
		return nil
	}

	if s.TypeTag(lhs) == typesystem.TypeArrow && s.TypeTag(rhs) == typesystem.TypeArrow {
		a1, a2 := s.ArrowOf(lhs)
		b1, b2 := s.ArrowOf(rhs)
		m.push(Subtype(a2, b2))
		m.push(Subtype(b1, a1))
		return nil
	}

	if alpha, ok := m.ctx.IsUnsolvedExistential(lhs); ok {
		return m.instantiate(alpha, rhs, ordindex.Left)
	}
	if alpha, ok := m.ctx.IsUnsolvedExistential(rhs); ok {
		return m.instantiate(alpha, lhs, ordindex.Right)
	}

	return m.mismatch("%s is not a subtype of %s", lhs, rhs)
}

// mustBeBound rejects a head variable with no declaration and no solution.
func (m *Machine) mustBeBound(t typesystem.Type) error {
	if m.store.TypeTag(t) != typesystem.TypeVar {
		return nil
	}
	_, err := m.ctx.LookupTypeVar(m.store.VarOf(t))
	return err
}

func (m *Machine) mismatch(format string, lhs, rhs typesystem.Type) error {
	return diagnostics.NewError(diagnostics.ErrT001, format,
		m.RenderType(m.ctx.Apply(lhs)), m.RenderType(m.ctx.Apply(rhs)))
}

// instantiate solves the unsolved existential alpha against ty. Left
// means alpha <: ty, Right means ty <: alpha. ty is never a Forall here:
// the quantifier rules run first.
func (m *Machine) instantiate(alpha typesystem.VarID, ty typesystem.Type, dir ordindex.Direction) error {
	s := m.store
	c := m.ctx

	if s.Occurs(alpha, c.Apply(ty)) {
		return diagnostics.NewError(diagnostics.ErrT002, "%s occurs in %s", c.Name(alpha), m.RenderType(c.Apply(ty)))
	}

	switch s.TypeTag(ty) {
	case typesystem.TypeUnit:
		return c.Solve(alpha, ty)

	case typesystem.TypeVar:
		beta := s.VarOf(ty)
		info, err := c.LookupTypeVar(beta)
		if err != nil {
			return err
		}
		if info.Decl.Kind == typesystem.Existential {
			earlier, err := c.Before(alpha, beta)
			if err != nil {
				return err
			}
			if earlier {
				return c.Solve(beta, s.Var(alpha))
			}
			return c.Solve(alpha, ty)
		}
		inScope, err := c.Before(beta, alpha)
		if err != nil {
			return err
		}
		if !inScope {
			return diagnostics.NewError(diagnostics.ErrT001, "%s escapes its scope in %s", c.Name(beta), c.Name(alpha))
		}
		return c.Solve(alpha, ty)

	case typesystem.TypeArrow:
		full := c.Apply(ty)
		if s.IsMonotype(full) {
			ok, err := m.wellScoped(full, alpha)
			if err != nil {
				return err
			}
			if ok {
				return c.Solve(alpha, full)
			}
		}
		return m.splitArrow(alpha, ty, dir)
	}
	return diagnostics.Invariant("cannot instantiate %s with %s", c.Name(alpha), s.TypeTag(ty))
}

// wellScoped reports whether every free variable of t is declared
// before alpha.
func (m *Machine) wellScoped(t typesystem.Type, alpha typesystem.VarID) (bool, error) {
	for _, v := range m.store.FreeVars(t) {
		if _, live := m.ctx.tyVars[v]; !live {
			return false, nil
		}
		ok, err := m.ctx.Before(v, alpha)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// splitArrow solves alpha := a1 -> a2 with two fresh existentials placed
// just before alpha, then relates them to the halves of ty.
func (m *Machine) splitArrow(alpha typesystem.VarID, ty typesystem.Type, dir ordindex.Direction) error {
	s := m.store
	a2, err := m.declareExistentialBefore(alpha, "")
	if err != nil {
		return err
	}
	a1, err := m.declareExistentialBefore(alpha, "")
	if err != nil {
		return err
	}
	if err := m.ctx.Solve(alpha, s.Arrow(s.Var(a1), s.Var(a2))); err != nil {
		return err
	}

	dom, cod := s.ArrowOf(ty)
	if dir == ordindex.Left {
		m.push(Subtype(s.Var(a2), cod))
		m.push(Subtype(dom, s.Var(a1)))
	} else {
		m.push(Subtype(cod, s.Var(a2)))
		m.push(Subtype(s.Var(a1), dom))
	}
	return nil
}

func (m *Machine) declareExistentialBefore(anchor typesystem.VarID, name string) (typesystem.VarID, error) {
	id := m.freshVar()
	if _, err := m.ctx.DeclareTypeVarBefore(anchor, id, typesystem.Existential, name); err != nil {
		return 0, err
	}
	return id, nil
}
