package typesystem

import (
	"github.com/funvibe/wlcheck/internal/diagnostics"
)

// handle is a stable reference into an arena. The generation
// distinguishes a live node from a reclaimed slot that was reused.
// A zero generation is never handed out, so the zero handle is invalid.
type handle struct {
	slot uint32
	gen  uint32
}

type slot[N any] struct {
	node   N
	gen    uint32
	used   bool
	marked bool
}

type arena[N any] struct {
	slots []slot[N]
	free  []uint32
	live  int
}

func (a *arena[N]) alloc(n N) handle {
	var idx uint32
	if k := len(a.free); k > 0 {
		idx = a.free[k-1]
		a.free = a.free[:k-1]
	} else {
		a.slots = append(a.slots, slot[N]{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.gen++
	s.node = n
	s.used = true
	s.marked = false
	a.live++
	return handle{slot: idx, gen: s.gen}
}

func (a *arena[N]) get(h handle, what string) N {
	if h.gen == 0 || int(h.slot) >= len(a.slots) {
		panic(diagnostics.Invariant("invalid %s handle", what))
	}
	s := &a.slots[h.slot]
	if !s.used || s.gen != h.gen {
		panic(diagnostics.Invariant("stale %s handle (slot %d, generation %d)", what, h.slot, h.gen))
	}
	return s.node
}

func (a *arena[N]) valid(h handle) bool {
	if h.gen == 0 || int(h.slot) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.slot]
	return s.used && s.gen == h.gen
}

// mark returns false if the node was already marked.
func (a *arena[N]) mark(h handle) bool {
	s := &a.slots[h.slot]
	if s.marked {
		return false
	}
	s.marked = true
	return true
}

func (a *arena[N]) sweep() int {
	var zero N
	freed := 0
	for i := range a.slots {
		s := &a.slots[i]
		if !s.used {
			continue
		}
		if s.marked {
			s.marked = false
			continue
		}
		s.used = false
		s.node = zero
		a.free = append(a.free, uint32(i))
		a.live--
		freed++
	}
	return freed
}

// Store owns every Type and Expr node. Nodes are immutable once
// allocated, so any number of judgments may share a subterm.
type Store struct {
	types arena[typeNode]
	exprs arena[exprNode]

	unit  Type
	eunit Expr

	allocs      int
	collections int
	freed       int
}

func NewStore() *Store {
	s := &Store{}
	s.unit = Type{s.types.alloc(typeNode{tag: TypeUnit})}
	s.eunit = Expr{s.exprs.alloc(exprNode{tag: ExprUnit})}
	return s
}

// Stats describes the arena after the last operation.
type Stats struct {
	LiveTypes   int
	LiveExprs   int
	Allocs      int // since the last collection
	Collections int
	Freed       int // total over all collections
}

func (s *Store) Stats() Stats {
	return Stats{
		LiveTypes:   s.types.live,
		LiveExprs:   s.exprs.live,
		Allocs:      s.allocs,
		Collections: s.collections,
		Freed:       s.freed,
	}
}

// AllocsSinceCollect is the allocation counter used by collection policies.
func (s *Store) AllocsSinceCollect() int {
	return s.allocs
}

func (s *Store) newType(n typeNode) Type {
	s.allocs++
	return Type{s.types.alloc(n)}
}

func (s *Store) newExpr(n exprNode) Expr {
	s.allocs++
	return Expr{s.exprs.alloc(n)}
}

// ValidType reports whether t still refers to a live node.
func (s *Store) ValidType(t Type) bool { return s.types.valid(t.h) }

// ValidExpr reports whether e still refers to a live node.
func (s *Store) ValidExpr(e Expr) bool { return s.exprs.valid(e.h) }
