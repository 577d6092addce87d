package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/wlcheck/internal/diagnostics"
)

func TestCollectKeepsReachable(t *testing.T) {
	s := NewStore()
	kept := s.Arrow(s.Var(1), s.Arrow(s.Unit(), s.Var(2)))
	expr := s.ELam("x", s.EApp(s.EVar(0), s.EUnit()))
	dropped := s.Arrow(s.Var(3), s.Var(4))
	s.EVar(5)

	before := s.Stats()
	freed := s.Collect(RootsFunc(func(m *Marker) {
		m.Type(kept)
		m.Expr(expr)
	}))

	// dropped arrow + its two vars + the lone EVar
	assert.Equal(t, 4, freed)
	after := s.Stats()
	assert.Equal(t, before.LiveTypes-3, after.LiveTypes)
	assert.Equal(t, before.LiveExprs-1, after.LiveExprs)
	assert.Equal(t, 1, after.Collections)
	assert.Equal(t, 0, after.Allocs)

	assert.True(t, s.ValidType(kept))
	assert.True(t, s.ValidExpr(expr))
	assert.False(t, s.ValidType(dropped))

	dom, _ := s.ArrowOf(kept)
	assert.Equal(t, VarID(1), s.VarOf(dom))
}

func TestCollectPinsUnit(t *testing.T) {
	s := NewStore()
	s.Collect(nil)
	assert.True(t, s.ValidType(s.Unit()))
	assert.True(t, s.ValidExpr(s.EUnit()))
	assert.Equal(t, 1, s.Stats().LiveTypes)
}

func TestStaleHandleIsInvariantViolation(t *testing.T) {
	s := NewStore()
	stale := s.Var(1)
	s.Collect(nil)

	// The freed slot is reused with a new generation.
	fresh := s.Var(2)
	require.NotEqual(t, stale, fresh)
	assert.Equal(t, VarID(2), s.VarOf(fresh))

	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.True(t, diagnostics.HasCode(r.(error), diagnostics.ErrI002))
	}()
	s.VarOf(stale)
}

func TestCollectSharedSubtermsOnce(t *testing.T) {
	s := NewStore()
	shared := s.Arrow(s.Unit(), s.Unit())
	a := s.Arrow(shared, shared)
	b := s.Arrow(shared, a)

	freed := s.Collect(RootsFunc(func(m *Marker) {
		m.Type(a)
		m.Type(b)
	}))
	assert.Zero(t, freed)
	assert.True(t, s.ValidType(shared))
}
