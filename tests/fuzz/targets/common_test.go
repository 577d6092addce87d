package targets

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/funvibe/wlcheck/internal/analyzer"
	"github.com/funvibe/wlcheck/internal/diagnostics"
	"github.com/funvibe/wlcheck/internal/loader"
	"github.com/funvibe/wlcheck/internal/prettyprinter"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

// stepBudget is far above what any generated case needs; hitting it
// means the machine does not terminate.
const stepBudget = 200_000

// stepsPerNode bounds the steps of a run by the size of its input.
const stepsPerNode = 200

func init() {
	// Cap fuzz worker parallelism unless the caller explicitly set GOMAXPROCS.
	if _, ok := os.LookupEnv("GOMAXPROCS"); !ok {
		max := runtime.NumCPU()
		if max > 4 {
			max = 4
		}
		if runtime.GOMAXPROCS(0) > max {
			runtime.GOMAXPROCS(max)
		}
	}
}

// outcome is the store-independent summary of one run.
type outcome struct {
	State    analyzer.State
	Steps    int
	Size     int // expression and type nodes of the input
	Code     diagnostics.ErrorCode
	Inferred string
}

func typeSize(t *loader.TypeTerm) int {
	if t == nil {
		return 0
	}
	return 1 + typeSize(t.Left) + typeSize(t.Right)
}

func runCase(c *loader.Case, gc analyzer.GCPolicy) (outcome, error) {
	store := typesystem.NewStore()
	m := analyzer.NewMachine(store, analyzer.Options{MaxSteps: stepBudget, GC: gc})
	var target typesystem.VarID
	size := typeSize(c.Type) + typeSize(c.Sub[0]) + typeSize(c.Sub[1])
	switch c.Kind {
	case loader.KindCheck:
		expr := c.Expr.Build(store)
		size += store.ExprSize(expr)
		m.PushCheck(expr, c.Type.Build(store))
	case loader.KindInfer:
		expr := c.Expr.Build(store)
		size += store.ExprSize(expr)
		target = m.PushInfer(expr)
	case loader.KindSubtype:
		m.PushSubtype(c.Sub[0].Build(store), c.Sub[1].Build(store))
	}

	res, err := m.Run(context.Background())
	out := outcome{State: m.State(), Steps: m.Steps(), Size: size}
	if err != nil {
		var de *diagnostics.DiagnosticError
		if !errors.As(err, &de) {
			return out, err
		}
		out.Code = de.Code
	}
	if res != nil && c.Kind == loader.KindInfer && res.State == analyzer.Succeeded {
		if ty, ok := res.Solutions[target]; ok {
			out.Inferred = prettyprinter.NewCodePrinter(store, m.Context()).Type(ty)
		}
	}
	return out, nil
}

// checkOutcome fails t when a run did not terminate cleanly: a step limit,
// an error that is not a diagnostic, or an internal-invariant code.
func checkOutcome(t *testing.T, c *loader.Case, out outcome, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s (%s): %v", c.Name, c.Kind, err)
	}
	if out.State == analyzer.Running {
		t.Fatalf("%s (%s): still running after %d steps", c.Name, c.Kind, out.Steps)
	}
	if out.Code == diagnostics.ErrI001 || out.Code == diagnostics.ErrI002 {
		t.Fatalf("%s (%s): internal error %s", c.Name, c.Kind, out.Code)
	}
	if out.Steps > stepsPerNode*out.Size {
		t.Fatalf("%s (%s): %d steps for an input of %d nodes", c.Name, c.Kind, out.Steps, out.Size)
	}
	if (out.State == analyzer.Failed) != (out.Code != "") {
		t.Fatalf("%s (%s): state %s with code %q", c.Name, c.Kind, out.State, out.Code)
	}
}
