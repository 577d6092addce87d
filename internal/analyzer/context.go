package analyzer

import (
	"sort"
	"strconv"

	"github.com/funvibe/wlcheck/internal/diagnostics"
	"github.com/funvibe/wlcheck/internal/ordindex"
	"github.com/funvibe/wlcheck/internal/scope"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

// TyVarDecl is the live declaration of a type variable.
type TyVarDecl struct {
	ID   typesystem.VarID
	Kind typesystem.VarKind
	Name string

	pos *scope.Node[Item]
	tok *ordindex.Token
}

// VarDecl is the live declaration of a term variable.
type VarDecl struct {
	ID   typesystem.VarID
	Name string
	Type typesystem.Type

	pos *scope.Node[Item]
	tok *ordindex.Token
}

// TypeVarInfo is the answer of LookupTypeVar: either a live declaration
// or a solution, never both.
type TypeVarInfo struct {
	Decl     *TyVarDecl
	Solution typesystem.Type
	Solved   bool
}

// Context holds the declaration maps and the substitution. It mutates
// the worklist and the order index together so that both always list
// the declarations in the same order.
type Context struct {
	store *typesystem.Store
	list  *scope.List[Item]
	order *ordindex.Index

	tyVars map[typesystem.VarID]*TyVarDecl
	vars   map[typesystem.VarID]*VarDecl
	solved map[typesystem.VarID]typesystem.Type

	// every type variable ever declared, kept for rendering and for
	// telling "already removed" apart from "never declared"
	seen map[typesystem.VarID]seenVar

	// term variables in scope, innermost last; de Bruijn index i is
	// terms[len(terms)-1-i]
	terms []typesystem.VarID
}

type seenVar struct {
	kind typesystem.VarKind
	name string
}

func newContext(store *typesystem.Store, list *scope.List[Item], order *ordindex.Index) *Context {
	return &Context{
		store:  store,
		list:   list,
		order:  order,
		tyVars: make(map[typesystem.VarID]*TyVarDecl),
		vars:   make(map[typesystem.VarID]*VarDecl),
		solved: make(map[typesystem.VarID]typesystem.Type),
		seen:   make(map[typesystem.VarID]seenVar),
	}
}

// DeclareTypeVar appends a type variable declaration at the back of the worklist.
func (c *Context) DeclareTypeVar(id typesystem.VarID, kind typesystem.VarKind, name string) *TyVarDecl {
	c.mustBeFresh(id)
	d := &TyVarDecl{ID: id, Kind: kind, Name: name}
	d.pos = c.list.PushBack(Item{Kind: ItemTyVarDecl, ID: id, VarKind: kind})
	d.tok = c.order.InsertLast()
	c.tyVars[id] = d
	c.seen[id] = seenVar{kind: kind, name: name}
	return d
}

// DeclareTypeVarBefore places a new declaration immediately left of the
// live declaration of anchor, i.e. in an outer scope relative to it.
func (c *Context) DeclareTypeVarBefore(anchor, id typesystem.VarID, kind typesystem.VarKind, name string) (*TyVarDecl, error) {
	a, ok := c.tyVars[anchor]
	if !ok {
		return nil, diagnostics.Invariant("cannot declare %s before %s: not a live declaration", c.Name(id), c.Name(anchor))
	}
	c.mustBeFresh(id)
	d := &TyVarDecl{ID: id, Kind: kind, Name: name}
	d.pos = c.list.InsertBefore(a.pos, Item{Kind: ItemTyVarDecl, ID: id, VarKind: kind})
	d.tok = c.order.InsertBefore(a.tok)
	c.tyVars[id] = d
	c.seen[id] = seenVar{kind: kind, name: name}
	return d, nil
}

// DeclareVar appends a term variable declaration; it becomes de Bruijn index 0.
func (c *Context) DeclareVar(id typesystem.VarID, name string, ty typesystem.Type) *VarDecl {
	c.mustBeFresh(id)
	d := &VarDecl{ID: id, Name: name, Type: ty}
	d.pos = c.list.PushBack(Item{Kind: ItemVarDecl, ID: id, Type: ty})
	d.tok = c.order.InsertLast()
	c.vars[id] = d
	c.terms = append(c.terms, id)
	return d
}

func (c *Context) mustBeFresh(id typesystem.VarID) {
	_, ty := c.seen[id]
	_, v := c.vars[id]
	if ty || v {
		panic(diagnostics.Invariant("variable %d declared twice", id))
	}
}

// Solve moves an unsolved existential into the substitution. Its list
// slot is tombstoned in place and its order token dropped.
func (c *Context) Solve(id typesystem.VarID, ty typesystem.Type) error {
	if _, ok := c.solved[id]; ok {
		return diagnostics.NewError(diagnostics.ErrI001, "%s is already solved", c.Name(id))
	}
	d, ok := c.tyVars[id]
	if !ok {
		if _, declared := c.seen[id]; declared {
			return diagnostics.NewError(diagnostics.ErrI001, "%s was already removed", c.Name(id))
		}
		return diagnostics.NewError(diagnostics.ErrT003, "type variable %d", id)
	}
	if d.Kind != typesystem.Existential {
		return diagnostics.Invariant("cannot solve universal %s", c.Name(id))
	}
	if c.store.Occurs(id, c.Apply(ty)) {
		return diagnostics.NewError(diagnostics.ErrT002, "%s occurs in its own solution", c.Name(id))
	}

	delete(c.tyVars, id)
	c.solved[id] = ty
	d.pos.Value = garbage
	c.order.Remove(d.tok)
	return nil
}

// LookupTypeVar returns the declaration or the solution of id.
func (c *Context) LookupTypeVar(id typesystem.VarID) (TypeVarInfo, error) {
	if d, ok := c.tyVars[id]; ok {
		return TypeVarInfo{Decl: d}, nil
	}
	if ty, ok := c.solved[id]; ok {
		return TypeVarInfo{Solution: ty, Solved: true}, nil
	}
	return TypeVarInfo{}, diagnostics.NewError(diagnostics.ErrT003, "type variable %s", c.Name(id))
}

// LookupVar resolves a de Bruijn index against the term variables in scope.
func (c *Context) LookupVar(index int) (*VarDecl, error) {
	if index < 0 || index >= len(c.terms) {
		return nil, diagnostics.NewError(diagnostics.ErrT003, "term variable #%d (%d in scope)", index, len(c.terms))
	}
	return c.vars[c.terms[len(c.terms)-1-index]], nil
}

// Discharge removes the declaration of id. Called on the closing visit
// the slot has already been popped; for a declaration that is still
// linked the slot is tombstoned instead.
func (c *Context) Discharge(id typesystem.VarID) error {
	if d, ok := c.tyVars[id]; ok {
		delete(c.tyVars, id)
		c.order.Remove(d.tok)
		if d.pos.Linked() {
			d.pos.Value = garbage
		}
		return nil
	}
	if d, ok := c.vars[id]; ok {
		if n := len(c.terms); n == 0 || c.terms[n-1] != id {
			return diagnostics.Invariant("term variable %s discharged out of scope order", d.Name)
		}
		c.terms = c.terms[:len(c.terms)-1]
		delete(c.vars, id)
		c.order.Remove(d.tok)
		if d.pos.Linked() {
			d.pos.Value = garbage
		}
		return nil
	}
	if _, ok := c.solved[id]; ok {
		return nil
	}
	return diagnostics.NewError(diagnostics.ErrT003, "declaration %d", id)
}

// Before reports whether the live declaration a is in an outer scope
// relative to the live declaration b.
func (c *Context) Before(a, b typesystem.VarID) (bool, error) {
	da, ok := c.tyVars[a]
	if !ok {
		return false, diagnostics.Invariant("%s is not a live declaration", c.Name(a))
	}
	db, ok := c.tyVars[b]
	if !ok {
		return false, diagnostics.Invariant("%s is not a live declaration", c.Name(b))
	}
	if a == b {
		return false, nil
	}
	return c.order.Before(da.tok, db.tok), nil
}

func (c *Context) resolve(id typesystem.VarID) (typesystem.Type, bool) {
	ty, ok := c.solved[id]
	return ty, ok
}

// Apply substitutes every solved existential in t.
func (c *Context) Apply(t typesystem.Type) typesystem.Type {
	return c.store.Apply(t, c.resolve)
}

// Head resolves solved existentials at the root of t only.
func (c *Context) Head(t typesystem.Type) typesystem.Type {
	return c.store.Head(t, c.resolve)
}

// IsUnsolvedExistential reports whether t is Var(id) with id a live existential.
func (c *Context) IsUnsolvedExistential(t typesystem.Type) (typesystem.VarID, bool) {
	if c.store.TypeTag(t) != typesystem.TypeVar {
		return 0, false
	}
	id := c.store.VarOf(t)
	d, ok := c.tyVars[id]
	return id, ok && d.Kind == typesystem.Existential
}

// Solution returns the fully substituted solution of id.
func (c *Context) Solution(id typesystem.VarID) (typesystem.Type, bool) {
	ty, ok := c.solved[id]
	if !ok {
		return typesystem.Type{}, false
	}
	return c.Apply(ty), true
}

// Solved returns the ids of every solved existential, ascending.
func (c *Context) Solved() []typesystem.VarID {
	ids := make([]typesystem.VarID, 0, len(c.solved))
	for id := range c.solved {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Residual is the number of declarations still live.
func (c *Context) Residual() int {
	return len(c.tyVars) + len(c.vars)
}

// Scope returns the names of the term variables in scope, innermost last.
func (c *Context) Scope() []string {
	names := make([]string, len(c.terms))
	for i, id := range c.terms {
		names[i] = c.vars[id].Name
	}
	return names
}

// Name renders a type variable for diagnostics.
func (c *Context) Name(id typesystem.VarID) string {
	name, _ := c.VarName(id)
	return name
}

// VarName implements prettyprinter.Namer.
func (c *Context) VarName(id typesystem.VarID) (string, bool) {
	sv, ok := c.seen[id]
	if !ok || sv.kind == typesystem.Existential {
		return "?" + strconv.Itoa(int(id)), true
	}
	if sv.name == "" {
		return "'" + strconv.Itoa(int(id)), false
	}
	return sv.name, false
}

// Compact unlinks tombstones. No declaration record points at a
// tombstone, so no cached position is invalidated.
func (c *Context) Compact() int {
	removed := 0
	c.list.Each(func(n *scope.Node[Item]) bool {
		if n.Value.Kind == ItemGarbage {
			c.list.Unlink(n)
			removed++
		}
		return true
	})
	return removed
}

// markRoots traces the types held by declarations and solutions.
func (c *Context) markRoots(m *typesystem.Marker) {
	for _, d := range c.vars {
		m.Type(d.Type)
	}
	for _, ty := range c.solved {
		m.Type(ty)
	}
}
