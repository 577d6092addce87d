package analyzer

import (
	"fmt"

	"github.com/funvibe/wlcheck/internal/typesystem"
)

type JudgmentKind uint8

const (
	JudgeSubtype JudgmentKind = iota
	JudgeCheck
	JudgeInfer
	JudgeApplyInfer
)

func (k JudgmentKind) String() string {
	switch k {
	case JudgeSubtype:
		return "Subtype"
	case JudgeCheck:
		return "Check"
	case JudgeInfer:
		return "Infer"
	case JudgeApplyInfer:
		return "ApplyInfer"
	}
	return fmt.Sprintf("JudgmentKind(%d)", uint8(k))
}

// Judgment is a pending proof obligation. Infer and ApplyInfer carry the
// judgment to run once their target is solved in Next; the chain is
// plain data, never a closure, so the whole worklist can be inspected.
type Judgment struct {
	Kind JudgmentKind

	// Subtype: Lhs <: Rhs
	Lhs, Rhs typesystem.Type

	// Check: Expr <= Type. ApplyInfer: Type is the function type and
	// Expr the argument.
	Expr typesystem.Expr
	Type typesystem.Type

	// Infer, ApplyInfer
	Target typesystem.VarID
	Next   *Judgment
}

func Subtype(lhs, rhs typesystem.Type) *Judgment {
	return &Judgment{Kind: JudgeSubtype, Lhs: lhs, Rhs: rhs}
}

func Check(expr typesystem.Expr, ty typesystem.Type) *Judgment {
	return &Judgment{Kind: JudgeCheck, Expr: expr, Type: ty}
}

// Infer synthesizes the type of expr into the existential target, then
// continues with next (nil: nothing left to do).
func Infer(expr typesystem.Expr, target typesystem.VarID, next *Judgment) *Judgment {
	return &Judgment{Kind: JudgeInfer, Expr: expr, Target: target, Next: next}
}

// ApplyInfer synthesizes the result of applying a value of type fn to arg.
func ApplyInfer(fn typesystem.Type, arg typesystem.Expr, target typesystem.VarID, next *Judgment) *Judgment {
	return &Judgment{Kind: JudgeApplyInfer, Type: fn, Expr: arg, Target: target, Next: next}
}

type ItemKind uint8

const (
	ItemTyVarDecl ItemKind = iota
	ItemVarDecl
	ItemJudgment
	ItemGarbage
)

func (k ItemKind) String() string {
	switch k {
	case ItemTyVarDecl:
		return "TyVarDecl"
	case ItemVarDecl:
		return "VarDecl"
	case ItemJudgment:
		return "Judgment"
	case ItemGarbage:
		return "Garbage"
	}
	return fmt.Sprintf("ItemKind(%d)", uint8(k))
}

// Item is one entry of the worklist.
type Item struct {
	Kind ItemKind

	ID      typesystem.VarID   // TyVarDecl, VarDecl
	VarKind typesystem.VarKind // TyVarDecl
	Type    typesystem.Type    // VarDecl
	Judg    *Judgment          // Judgment
}

var garbage = Item{Kind: ItemGarbage}

func judgmentItem(j *Judgment) Item {
	return Item{Kind: ItemJudgment, Judg: j}
}
