package typesystem

import (
	"fmt"

	"github.com/funvibe/wlcheck/internal/diagnostics"
)

// VarKind distinguishes variables bound by the program (Universal)
// from placeholders solved by inference (Existential).
type VarKind uint8

const (
	Universal VarKind = iota
	Existential
)

func (k VarKind) String() string {
	switch k {
	case Universal:
		return "universal"
	case Existential:
		return "existential"
	}
	return fmt.Sprintf("VarKind(%d)", uint8(k))
}

func invariantTag(op string, tag fmt.Stringer) *diagnostics.DiagnosticError {
	return diagnostics.Invariant("%s applied to a %s node", op, tag)
}
