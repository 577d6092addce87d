package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funvibe/wlcheck/internal/diagnostics"
	"github.com/funvibe/wlcheck/internal/prettyprinter"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

const sample = `
cases:
  - name: identity
    expr: {lam: x, body: {var: x}}
    type: {forall: a, body: {arrow: [{var: a}, {var: a}]}}
  - name: const
    expr: {lam: x, body: {lam: y, body: {var: x}}}
    infers: "?1 -> ?2 -> ?1"
  - name: codomain
    subtype: [{arrow: [unit, unit]}, {arrow: [unit, unit, unit]}]
    expect: TypeMismatch
  - name: let
    expr: {let: f, be: {lam: x, body: {var: x}}, in: {app: [{var: f}, unit, unit]}}
    expect: T001
  - expr: {lam: x, body: {var: 1}}
    type: {arrow: [unit, unit]}
    expect: T003
`

func TestParseCases(t *testing.T) {
	cases, err := Parse([]byte(sample), "sample.yaml")
	require.NoError(t, err)
	require.Len(t, cases, 5)

	s := typesystem.NewStore()
	p := prettyprinter.NewCodePrinter(s, nil)

	id := cases[0]
	assert.Equal(t, "identity", id.Name)
	assert.Equal(t, KindCheck, id.Kind)
	assert.Equal(t, 3, id.Line)
	assert.True(t, id.Expect.OK)
	assert.Equal(t, `\x. x`, p.Expr(id.Expr.Build(s)))
	assert.Equal(t, "forall a. a -> a", p.Type(id.Type.Build(s)))

	konst := cases[1]
	assert.Equal(t, KindInfer, konst.Kind)
	assert.Equal(t, "?1 -> ?2 -> ?1", konst.Infers)
	assert.Equal(t, `\x. \y. x`, p.Expr(konst.Expr.Build(s)))

	sub := cases[2]
	assert.Equal(t, KindSubtype, sub.Kind)
	assert.Equal(t, Expectation{Code: diagnostics.ErrT001}, sub.Expect)
	assert.Equal(t, "Unit -> Unit", p.Type(sub.Sub[0].Build(s)))
	assert.Equal(t, "Unit -> Unit -> Unit", p.Type(sub.Sub[1].Build(s)))

	let := cases[3]
	assert.Equal(t, `let f = \x. x in f () ()`, p.Expr(let.Expr.Build(s)))
	assert.Equal(t, diagnostics.ErrT001, let.Expect.Code)

	anon := cases[4]
	assert.Equal(t, "case5", anon.Name)
	assert.Equal(t, `\x. #1`, p.Expr(anon.Expr.Build(s)))
}

func TestForallBindersGetDistinctIDs(t *testing.T) {
	doc := `
cases:
  - subtype:
      - {forall: a, body: {forall: b, body: {arrow: [{var: a}, {var: b}]}}}
      - {forall: a, body: {var: a}}
`
	cases, err := Parse([]byte(doc), "t.yaml")
	require.NoError(t, err)
	lhs, rhs := cases[0].Sub[0], cases[0].Sub[1]

	a, b := lhs, lhs.Left
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.ID, b.Left.Left.ID)
	assert.Equal(t, b.ID, b.Left.Right.ID)
	assert.NotEqual(t, a.ID, rhs.ID)
	assert.NotEqual(t, b.ID, rhs.ID)
}

func TestShadowing(t *testing.T) {
	doc := `
cases:
  - expr: {lam: x, body: {lam: x, body: {app: [{var: x}, {var: 1}]}}}
`
	cases, err := Parse([]byte(doc), "t.yaml")
	require.NoError(t, err)
	app := cases[0].Expr.Left.Left
	assert.Equal(t, 0, app.Left.Index)
	assert.Equal(t, 1, app.Right.Index)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unbound term name", "cases: [{expr: {var: y}}]", `unbound variable "y"`},
		{"unbound type name", "cases: [{expr: unit, type: {var: a}}]", `unbound type variable "a"`},
		{"escaped binder", "cases: [{expr: {app: [{lam: x, body: unit}, {var: x}]}}]", `unbound variable "x"`},
		{"unknown expectation", "cases: [{expr: unit, expect: Maybe}]", "unknown expectation"},
		{"empty case", "cases: [{name: nothing}]", "needs expr or subtype"},
		{"mixed", "cases: [{expr: unit, subtype: [unit, unit]}]", "cannot be combined"},
		{"short subtype", "cases: [{subtype: [unit]}]", "exactly two types"},
		{"short arrow", "cases: [{expr: unit, type: {arrow: [unit]}}]", "at least two types"},
		{"extra key", "cases: [{expr: {lam: x, body: unit, type: unit}}]", `unexpected key "type"`},
		{"missing key", "cases: [{expr: {let: x, be: unit}}]", `missing "in"`},
		{"not a term", "cases: [{expr: 42}]", "expected a mapping"},
		{"infers with type", "cases: [{expr: unit, type: unit, infers: Unit}]", "infers is only meaningful"},
		{"duplicate", "cases: [{name: a, expr: unit}, {name: a, expr: unit}]", `case "a" already defined`},
		{"negative index", "cases: [{expr: {var: -1}}]", "bad de Bruijn index"},
		{"not yaml", "cases: [", "parsing t.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "t.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpectationMatches(t *testing.T) {
	ok := Expectation{OK: true}
	mismatch := Expectation{Code: diagnostics.ErrT001}
	err := diagnostics.NewError(diagnostics.ErrT001, "boom")

	assert.True(t, ok.Matches(nil))
	assert.False(t, ok.Matches(err))
	assert.True(t, mismatch.Matches(err))
	assert.False(t, mismatch.Matches(nil))
	assert.False(t, mismatch.Matches(diagnostics.NewError(diagnostics.ErrT002, "boom")))
	assert.Equal(t, "ok", ok.String())
	assert.Equal(t, "T001", mismatch.String())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cases, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cases, 5)
	assert.Equal(t, path, cases[0].File)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading cases")
}
