package diagnostics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  *DiagnosticError
		want string
	}{
		{"no detail", NewError(ErrT001, ""), "error [T001]: type mismatch: "},
		{"single value", NewError(ErrT003, "%d", 7), "error [T003]: unbound variable: 7"},
		{"format", NewError(ErrT002, "%s occurs in %s", "?1", "?1 -> Unit"), "error [T002]: circular instantiation: ?1 occurs in ?1 -> Unit"},
		{"invariant", Invariant("stale %s handle", "type"), "error [I002]: invariant violation: stale type handle"},
		{"literal percent", NewError(ErrT001, "%s", "100% arrow"), "error [T001]: type mismatch: 100% arrow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAtAddsJudgment(t *testing.T) {
	err := NewError(ErrT001, "Unit is not a subtype of a").At("Unit <: a")
	assert.Equal(t, "error [T001]: type mismatch: Unit is not a subtype of a\n  while checking: Unit <: a", err.Error())
}

func TestClassification(t *testing.T) {
	wrapped := fmt.Errorf("case 3: %w", NewError(ErrI001, "?2"))
	assert.True(t, HasCode(wrapped, ErrI001))
	assert.False(t, HasCode(wrapped, ErrT001))
	assert.Equal(t, ErrI001, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))

	assert.True(t, NewError(ErrI001, "?3").IsFatal())
	assert.True(t, Invariant("x").IsFatal())
	assert.False(t, NewError(ErrT002, "?3").IsFatal())
}

func TestParseCode(t *testing.T) {
	for _, code := range []ErrorCode{ErrT001, ErrT002, ErrT003, ErrI001, ErrI002} {
		got, ok := ParseCode(string(code))
		assert.True(t, ok)
		assert.Equal(t, code, got)

		got, ok = ParseCode(code.Name())
		assert.True(t, ok)
		assert.Equal(t, code, got)
	}
	_, ok := ParseCode("T999")
	assert.False(t, ok)
	assert.Equal(t, "TypeMismatch", ErrT001.Name())
	assert.Equal(t, "Z001", ErrorCode("Z001").Name())
}
