package typesystem

// Roots enumerates every node that must survive a collection.
type Roots interface {
	MarkRoots(m *Marker)
}

// RootsFunc adapts a function to Roots.
type RootsFunc func(m *Marker)

func (f RootsFunc) MarkRoots(m *Marker) { f(m) }

// Marker traces reachable nodes during Collect.
type Marker struct {
	s     *Store
	types []Type
	exprs []Expr
}

func (m *Marker) Type(t Type) {
	if t.IsZero() {
		return
	}
	m.types = append(m.types, t)
}

func (m *Marker) Expr(e Expr) {
	if e.IsZero() {
		return
	}
	m.exprs = append(m.exprs, e)
}

func (m *Marker) drain() {
	for len(m.types) > 0 || len(m.exprs) > 0 {
		for len(m.exprs) > 0 {
			e := m.exprs[len(m.exprs)-1]
			m.exprs = m.exprs[:len(m.exprs)-1]
			n := m.s.exprs.get(e.h, "expression")
			if !m.s.exprs.mark(e.h) {
				continue
			}
			switch n.tag {
			case ExprApp, ExprLet:
				m.exprs = append(m.exprs, n.a, n.b)
			case ExprLam:
				m.exprs = append(m.exprs, n.a)
			}
		}
		for len(m.types) > 0 {
			t := m.types[len(m.types)-1]
			m.types = m.types[:len(m.types)-1]
			n := m.s.types.get(t.h, "type")
			if !m.s.types.mark(t.h) {
				continue
			}
			switch n.tag {
			case TypeArrow:
				m.types = append(m.types, n.a, n.b)
			case TypeForall:
				m.types = append(m.types, n.a)
			}
		}
	}
}

// Collect frees every node not reachable from roots and returns how
// many nodes were freed. Handles to freed nodes become stale: using
// one afterwards is an invariant violation, never a silent alias.
func (s *Store) Collect(roots Roots) int {
	m := &Marker{s: s}
	m.Type(s.unit)
	m.Expr(s.eunit)
	if roots != nil {
		roots.MarkRoots(m)
	}
	m.drain()
	freed := s.types.sweep() + s.exprs.sweep()
	s.allocs = 0
	s.collections++
	s.freed += freed
	return freed
}
