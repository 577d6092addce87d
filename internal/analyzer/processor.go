package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/funvibe/wlcheck/internal/diagnostics"
	"github.com/funvibe/wlcheck/internal/loader"
	"github.com/funvibe/wlcheck/internal/pipeline"
	"github.com/funvibe/wlcheck/internal/prettyprinter"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

// CheckProcessor runs the machine on the case of a pipeline context.
type CheckProcessor struct {
	Color bool
}

func (cp *CheckProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	c := ctx.Case
	if c == nil {
		ctx.Errors = append(ctx.Errors, fmt.Errorf("no case to check"))
		return ctx
	}
	cfg := ctx.Config

	opts := Options{
		MaxSteps: cfg.MaxSteps,
		GC:       GCPolicy{EverySteps: cfg.GC.EverySteps, AllocBudget: cfg.GC.AllocBudget},
	}
	if ctx.KeepTrace {
		opts.Tracer = TracerFunc(func(ev TraceEvent) {
			ctx.Trace = append(ctx.Trace, pipeline.StepRecord{
				Step:  ev.Step,
				Kind:  ev.Item.Kind.String(),
				Item:  ev.Text,
				State: ev.State.String(),
			})
		})
	}
	m := NewMachine(ctx.Store, opts)
	m.Printer().SetColor(cp.Color)

	var target typesystem.VarID
	switch c.Kind {
	case loader.KindCheck:
		m.PushCheck(c.Expr.Build(ctx.Store), c.Type.Build(ctx.Store))
	case loader.KindInfer:
		target = m.PushInfer(c.Expr.Build(ctx.Store))
	case loader.KindSubtype:
		m.PushSubtype(c.Sub[0].Build(ctx.Store), c.Sub[1].Build(ctx.Store))
	}

	runCtx := ctx.Context
	if d := cfg.TimeoutDuration(); d > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, d)
		defer cancel()
	}

	start := time.Now()
	res, err := m.Run(runCtx)
	v := &pipeline.Verdict{
		State:   m.State().String(),
		Steps:   m.Steps(),
		Err:     err,
		Elapsed: time.Since(start),
	}
	if res != nil {
		v.Collections = res.Collections
		if c.Kind == loader.KindInfer && res.State == Succeeded {
			if ty, ok := res.Solutions[target]; ok {
				// rendered without color so it compares against the case file
				v.Inferred = prettyprinter.NewCodePrinter(ctx.Store, m.Context()).Type(ty)
			}
		}
	}
	v.Passed = res != nil && c.Expect.Matches(err)
	if v.Passed && c.Infers != "" && v.Inferred != c.Infers {
		v.Passed = false
	}
	ctx.Verdict = v

	var de *diagnostics.DiagnosticError
	if errors.As(err, &de) && de.IsFatal() {
		ctx.Logf("case %q hit an internal error: %v", c.Name, err)
	}
	if ctx.KeepSnapshot {
		ctx.Snapshot = m.Snapshot()
	}
	return ctx
}
