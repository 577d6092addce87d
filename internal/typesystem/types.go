package typesystem

import (
	"sort"
)

// VarID names a type variable or a term variable declaration.
type VarID int

// Type is a handle to an immutable type node owned by a Store.
// Two handles are identical iff they name the same node.
type Type struct {
	h handle
}

// IsZero reports whether t is the zero handle (no type).
func (t Type) IsZero() bool { return t.h.gen == 0 }

type TypeTag uint8

const (
	TypeUnit TypeTag = iota
	TypeVar
	TypeForall
	TypeArrow
)

func (t TypeTag) String() string {
	switch t {
	case TypeUnit:
		return "Unit"
	case TypeVar:
		return "Var"
	case TypeForall:
		return "Forall"
	case TypeArrow:
		return "Arrow"
	}
	return "?"
}

type typeNode struct {
	tag  TypeTag
	name string // Forall binder name
	id   VarID  // Var reference, or the variable bound by Forall
	a, b Type   // Arrow domain/codomain, Forall body in a
}

// Unit returns the shared unit type node.
func (s *Store) Unit() Type { return s.unit }

func (s *Store) Var(id VarID) Type {
	return s.newType(typeNode{tag: TypeVar, id: id})
}

// Forall binds the variable bound inside body. Occurrences of the bound
// variable in body are written Var(bound).
func (s *Store) Forall(name string, bound VarID, body Type) Type {
	return s.newType(typeNode{tag: TypeForall, name: name, id: bound, a: body})
}

func (s *Store) Arrow(dom, cod Type) Type {
	return s.newType(typeNode{tag: TypeArrow, a: dom, b: cod})
}

func (s *Store) TypeTag(t Type) TypeTag {
	return s.types.get(t.h, "type").tag
}

// VarOf returns the id referenced by a Var node.
func (s *Store) VarOf(t Type) VarID {
	n := s.types.get(t.h, "type")
	if n.tag != TypeVar {
		panic(invariantTag("VarOf", n.tag))
	}
	return n.id
}

func (s *Store) ArrowOf(t Type) (dom, cod Type) {
	n := s.types.get(t.h, "type")
	if n.tag != TypeArrow {
		panic(invariantTag("ArrowOf", n.tag))
	}
	return n.a, n.b
}

func (s *Store) ForallOf(t Type) (name string, bound VarID, body Type) {
	n := s.types.get(t.h, "type")
	if n.tag != TypeForall {
		panic(invariantTag("ForallOf", n.tag))
	}
	return n.name, n.id, n.a
}

// Identical is the O(1) pointer-identity check.
func Identical(a, b Type) bool { return a == b }

// TriviallyEqual is the fast path taken before the subtyping rules:
// identical nodes, Unit against Unit, and Var(i) against Var(i).
// Every other pair needs the full rule set.
func (s *Store) TriviallyEqual(a, b Type) bool {
	if Identical(a, b) {
		return true
	}
	na := s.types.get(a.h, "type")
	nb := s.types.get(b.h, "type")
	switch {
	case na.tag == TypeUnit && nb.tag == TypeUnit:
		return true
	case na.tag == TypeVar && nb.tag == TypeVar:
		return na.id == nb.id
	}
	return false
}

// Equal is structural equality up to renaming of Forall binders. A
// variable bound on one side only matches the variable bound by the
// corresponding binder on the other side, never a free one.
func (s *Store) Equal(a, b Type) bool {
	return s.equal(a, b, map[VarID]VarID{}, map[VarID]VarID{})
}

// left maps binders of a to binders of b, right is its inverse.
func (s *Store) equal(a, b Type, left, right map[VarID]VarID) bool {
	if Identical(a, b) && len(left) == 0 {
		return true
	}
	na := s.types.get(a.h, "type")
	nb := s.types.get(b.h, "type")
	if na.tag != nb.tag {
		return false
	}
	switch na.tag {
	case TypeUnit:
		return true
	case TypeVar:
		mapped, boundA := left[na.id]
		back, boundB := right[nb.id]
		if boundA || boundB {
			return boundA && boundB && mapped == nb.id && back == na.id
		}
		return na.id == nb.id
	case TypeArrow:
		return s.equal(na.a, nb.a, left, right) && s.equal(na.b, nb.b, left, right)
	case TypeForall:
		prevL, hadL := left[na.id]
		prevR, hadR := right[nb.id]
		left[na.id] = nb.id
		right[nb.id] = na.id
		ok := s.equal(na.a, nb.a, left, right)
		restore(left, na.id, prevL, hadL)
		restore(right, nb.id, prevR, hadR)
		return ok
	}
	return false
}

func restore(m map[VarID]VarID, k, prev VarID, had bool) {
	if had {
		m[k] = prev
	} else {
		delete(m, k)
	}
}

// FreeVars returns the sorted ids referenced by t and not bound inside it.
func (s *Store) FreeVars(t Type) []VarID {
	seen := make(map[VarID]bool)
	s.freeVars(t, map[VarID]int{}, seen)
	out := make([]VarID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Store) freeVars(t Type, bound map[VarID]int, out map[VarID]bool) {
	n := s.types.get(t.h, "type")
	switch n.tag {
	case TypeVar:
		if bound[n.id] == 0 {
			out[n.id] = true
		}
	case TypeArrow:
		s.freeVars(n.a, bound, out)
		s.freeVars(n.b, bound, out)
	case TypeForall:
		bound[n.id]++
		s.freeVars(n.a, bound, out)
		bound[n.id]--
	}
}

// Occurs reports whether id occurs free in t.
func (s *Store) Occurs(id VarID, t Type) bool {
	n := s.types.get(t.h, "type")
	switch n.tag {
	case TypeVar:
		return n.id == id
	case TypeArrow:
		return s.Occurs(id, n.a) || s.Occurs(id, n.b)
	case TypeForall:
		if n.id == id {
			return false
		}
		return s.Occurs(id, n.a)
	}
	return false
}

// IsMonotype reports whether t contains no quantifier.
func (s *Store) IsMonotype(t Type) bool {
	n := s.types.get(t.h, "type")
	switch n.tag {
	case TypeForall:
		return false
	case TypeArrow:
		return s.IsMonotype(n.a) && s.IsMonotype(n.b)
	}
	return true
}

// MaxVar returns the largest variable id mentioned in t (bound or free),
// or -1 when there is none.
func (s *Store) MaxVar(t Type) VarID {
	n := s.types.get(t.h, "type")
	switch n.tag {
	case TypeVar:
		return n.id
	case TypeArrow:
		return maxVarID(s.MaxVar(n.a), s.MaxVar(n.b))
	case TypeForall:
		return maxVarID(n.id, s.MaxVar(n.a))
	}
	return -1
}

func maxVarID(a, b VarID) VarID {
	if a > b {
		return a
	}
	return b
}
