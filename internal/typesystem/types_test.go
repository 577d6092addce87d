package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/wlcheck/internal/diagnostics"
)

func TestTriviallyEqual(t *testing.T) {
	s := NewStore()
	arrow := s.Arrow(s.Unit(), s.Unit())

	assert.True(t, s.TriviallyEqual(s.Unit(), s.Unit()))
	assert.True(t, s.TriviallyEqual(s.Var(4), s.Var(4)))
	assert.False(t, s.TriviallyEqual(s.Var(4), s.Var(5)))
	assert.True(t, s.TriviallyEqual(arrow, arrow), "identical handles short-circuit")
	assert.False(t, s.TriviallyEqual(arrow, s.Arrow(s.Unit(), s.Unit())), "structural arrows need the rule set")
	assert.False(t, s.TriviallyEqual(s.Unit(), arrow))
}

func TestTriviallyEqualIsReflexive(t *testing.T) {
	s := NewStore()
	for _, ty := range []Type{
		s.Unit(),
		s.Var(0),
		s.Arrow(s.Var(1), s.Unit()),
		s.Forall("a", 2, s.Arrow(s.Var(2), s.Var(2))),
	} {
		assert.True(t, s.TriviallyEqual(ty, ty))
		assert.True(t, s.Equal(ty, ty))
	}
}

func TestEqualModuloBinders(t *testing.T) {
	s := NewStore()
	id1 := s.Forall("a", 1, s.Arrow(s.Var(1), s.Var(1)))
	id2 := s.Forall("b", 2, s.Arrow(s.Var(2), s.Var(2)))
	konst := s.Forall("b", 2, s.Arrow(s.Var(2), s.Unit()))

	assert.True(t, s.Equal(id1, id2))
	assert.False(t, s.Equal(id1, konst))
	assert.False(t, s.Equal(s.Var(1), s.Var(2)))
}

func TestEqualKeepsFreeAndBoundApart(t *testing.T) {
	s := NewStore()
	freeBody := s.Forall("a", 1, s.Var(2))
	boundBody := s.Forall("b", 2, s.Var(2))

	assert.False(t, s.Equal(freeBody, boundBody))
	assert.False(t, s.Equal(boundBody, freeBody))
	assert.True(t, s.Equal(freeBody, s.Forall("c", 3, s.Var(2))))

	// inner binders shadow outer ones on either side
	shadowL := s.Forall("a", 1, s.Forall("b", 2, s.Arrow(s.Var(1), s.Var(2))))
	shadowR := s.Forall("x", 5, s.Forall("y", 6, s.Arrow(s.Var(5), s.Var(6))))
	swapped := s.Forall("x", 5, s.Forall("y", 6, s.Arrow(s.Var(6), s.Var(5))))
	assert.True(t, s.Equal(shadowL, shadowR))
	assert.False(t, s.Equal(shadowL, swapped))
}

func TestFreeVarsAndOccurs(t *testing.T) {
	s := NewStore()
	// forall a. a -> ?7 -> ?3
	ty := s.Forall("a", 1, s.Arrow(s.Var(1), s.Arrow(s.Var(7), s.Var(3))))

	assert.Equal(t, []VarID{3, 7}, s.FreeVars(ty))
	assert.True(t, s.Occurs(7, ty))
	assert.False(t, s.Occurs(1, ty), "bound variables do not occur free")
	assert.False(t, s.IsMonotype(ty))
	assert.True(t, s.IsMonotype(s.Arrow(s.Var(7), s.Unit())))
	assert.Equal(t, VarID(7), s.MaxVar(ty))
	assert.Equal(t, VarID(-1), s.MaxVar(s.Unit()))
}

func TestReplaceSharesUntouchedSubtrees(t *testing.T) {
	s := NewStore()
	left := s.Arrow(s.Unit(), s.Unit())
	ty := s.Arrow(left, s.Var(9))

	out := s.Replace(ty, 9, s.Unit())
	dom, cod := s.ArrowOf(out)
	assert.True(t, Identical(dom, left))
	assert.Equal(t, TypeUnit, s.TypeTag(cod))

	assert.True(t, Identical(s.Replace(ty, 42, s.Unit()), ty), "no occurrence, no allocation")

	shadow := s.Forall("a", 9, s.Var(9))
	assert.True(t, Identical(s.Replace(shadow, 9, s.Unit()), shadow))
}

func TestApplyResolvesChains(t *testing.T) {
	s := NewStore()
	solutions := map[VarID]Type{
		1: s.Var(2),
		2: s.Arrow(s.Unit(), s.Var(3)),
	}
	resolve := func(id VarID) (Type, bool) {
		ty, ok := solutions[id]
		return ty, ok
	}

	out := s.Apply(s.Arrow(s.Var(1), s.Var(1)), resolve)
	want := s.Arrow(s.Arrow(s.Unit(), s.Var(3)), s.Arrow(s.Unit(), s.Var(3)))
	assert.True(t, s.Equal(out, want))

	head := s.Head(s.Var(1), resolve)
	assert.Equal(t, TypeArrow, s.TypeTag(head))
}

func TestAccessorOnWrongTagPanics(t *testing.T) {
	s := NewStore()
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*diagnostics.DiagnosticError)
		require.True(t, ok)
		assert.Equal(t, diagnostics.ErrI002, err.Code)
	}()
	s.ArrowOf(s.Unit())
}

func TestExprAccessors(t *testing.T) {
	s := NewStore()
	body := s.EVar(0)
	lam := s.ELam("x", body)
	app := s.EApp(lam, s.EUnit())
	let := s.ELet("y", app, s.EVar(0))

	name, b := s.LamOf(lam)
	assert.Equal(t, "x", name)
	assert.Equal(t, body, b)

	fn, arg := s.AppOf(app)
	assert.Equal(t, lam, fn)
	assert.Equal(t, s.EUnit(), arg)

	lname, bound, lbody := s.LetOf(let)
	assert.Equal(t, "y", lname)
	assert.Equal(t, app, bound)
	assert.Equal(t, 0, s.VarIndex(lbody))

	assert.Equal(t, 6, s.ExprSize(let))
}
