package typesystem

// Replace substitutes with for every free occurrence of Var(id) in t.
// Subtrees that do not mention id are shared, not copied.
func (s *Store) Replace(t Type, id VarID, with Type) Type {
	n := s.types.get(t.h, "type")
	switch n.tag {
	case TypeVar:
		if n.id == id {
			return with
		}
		return t
	case TypeArrow:
		dom := s.Replace(n.a, id, with)
		cod := s.Replace(n.b, id, with)
		if Identical(dom, n.a) && Identical(cod, n.b) {
			return t
		}
		return s.Arrow(dom, cod)
	case TypeForall:
		if n.id == id {
			return t
		}
		body := s.Replace(n.a, id, with)
		if Identical(body, n.a) {
			return t
		}
		return s.Forall(n.name, n.id, body)
	default:
		return t
	}
}

// Resolver looks up the solution of a variable, if any.
type Resolver func(VarID) (Type, bool)

// Apply replaces every solved variable in t by its solution, repeatedly,
// until no solved variable remains. Solutions must be acyclic.
func (s *Store) Apply(t Type, resolve Resolver) Type {
	n := s.types.get(t.h, "type")
	switch n.tag {
	case TypeVar:
		if sol, ok := resolve(n.id); ok {
			return s.Apply(sol, resolve)
		}
		return t
	case TypeArrow:
		dom := s.Apply(n.a, resolve)
		cod := s.Apply(n.b, resolve)
		if Identical(dom, n.a) && Identical(cod, n.b) {
			return t
		}
		return s.Arrow(dom, cod)
	case TypeForall:
		bound := n.id
		body := s.Apply(n.a, func(id VarID) (Type, bool) {
			if id == bound {
				return Type{}, false
			}
			return resolve(id)
		})
		if Identical(body, n.a) {
			return t
		}
		return s.Forall(n.name, n.id, body)
	default:
		return t
	}
}

// Head resolves t only at the root: while t is a solved variable, it is
// replaced by its solution.
func (s *Store) Head(t Type, resolve Resolver) Type {
	for {
		n := s.types.get(t.h, "type")
		if n.tag != TypeVar {
			return t
		}
		sol, ok := resolve(n.id)
		if !ok {
			return t
		}
		t = sol
	}
}
