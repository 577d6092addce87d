package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/funvibe/wlcheck/internal/diagnostics"
	"github.com/funvibe/wlcheck/internal/ordindex"
	"github.com/funvibe/wlcheck/internal/prettyprinter"
	"github.com/funvibe/wlcheck/internal/scope"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

type State uint8

const (
	Running State = iota
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// ErrStepLimit is returned by Run when Options.MaxSteps is exhausted.
// The machine stays Running and may be resumed.
var ErrStepLimit = errors.New("step limit reached")

// GCPolicy decides when Run lets the term store reclaim unreachable
// nodes. Zero fields disable the corresponding trigger.
type GCPolicy struct {
	EverySteps  int
	AllocBudget int
}

// TraceEvent describes one completed step.
type TraceEvent struct {
	Step  int
	Item  Item
	Text  string // rendered item
	State State
}

// Tracer observes the machine after every step.
type Tracer interface {
	Trace(ev TraceEvent)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(ev TraceEvent)

func (f TracerFunc) Trace(ev TraceEvent) { f(ev) }

type Options struct {
	MaxSteps int
	GC       GCPolicy
	Tracer   Tracer
}

// Machine is the worklist type checker. It owns the worklist, the order
// index and the context maps; all of them change only inside Step.
type Machine struct {
	store   *typesystem.Store
	list    *scope.List[Item]
	order   *ordindex.Index
	ctx     *Context
	printer *prettyprinter.CodePrinter
	opts    Options

	state State
	err   error
	steps int
	fresh typesystem.VarID

	targets []typesystem.VarID
	pinned  []Item // the obligations pushed from outside, kept for reporting
}

func NewMachine(store *typesystem.Store, opts Options) *Machine {
	m := &Machine{
		store: store,
		list:  scope.New[Item](),
		order: ordindex.New(),
		opts:  opts,
	}
	m.ctx = newContext(store, m.list, m.order)
	m.printer = prettyprinter.NewCodePrinter(store, m.ctx)
	return m
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Err() error { return m.err }
func (m *Machine) Steps() int { return m.steps }
func (m *Machine) Context() *Context { return m.ctx }
func (m *Machine) Store() *typesystem.Store { return m.store }
func (m *Machine) Targets() []typesystem.VarID { return m.targets }

// Pending is the number of entries left on the worklist.
func (m *Machine) Pending() int { return m.list.Len() }

// Printer returns a printer that names variables after this machine's context.
func (m *Machine) Printer() *prettyprinter.CodePrinter { return m.printer }

func (m *Machine) freshVar() typesystem.VarID {
	id := m.fresh
	m.fresh++
	return id
}

// reserve keeps fresh ids clear of every id mentioned by t.
func (m *Machine) reserve(t typesystem.Type) {
	if max := m.store.MaxVar(t); max >= m.fresh {
		m.fresh = max + 1
	}
}

func (m *Machine) push(j *Judgment) {
	m.list.PushBack(judgmentItem(j))
}

func (m *Machine) pushNext(j *Judgment) {
	if j != nil {
		m.push(j)
	}
}

func (m *Machine) pushExternal(j *Judgment) {
	item := judgmentItem(j)
	m.pinned = append(m.pinned, item)
	m.list.PushBack(item)
	if m.state == Succeeded {
		m.state = Running
	}
}

// PushCheck queues Check(expr, ty).
func (m *Machine) PushCheck(expr typesystem.Expr, ty typesystem.Type) {
	m.reserve(ty)
	m.pushExternal(Check(expr, ty))
}

// PushSubtype queues Subtype(lhs, rhs).
func (m *Machine) PushSubtype(lhs, rhs typesystem.Type) {
	m.reserve(lhs)
	m.reserve(rhs)
	m.pushExternal(Subtype(lhs, rhs))
}

// PushInfer declares a fresh existential target and queues Infer(expr, target).
// The target's solution is the inferred type once the machine succeeds.
func (m *Machine) PushInfer(expr typesystem.Expr) typesystem.VarID {
	target := m.DeclareExistential("")
	m.targets = append(m.targets, target)
	m.pushExternal(Infer(expr, target, nil))
	return target
}

// DeclareExistential appends a fresh existential declaration.
func (m *Machine) DeclareExistential(name string) typesystem.VarID {
	id := m.freshVar()
	m.ctx.DeclareTypeVar(id, typesystem.Existential, name)
	return id
}

// DeclareUniversal appends a fresh universal declaration.
func (m *Machine) DeclareUniversal(name string) typesystem.VarID {
	id := m.freshVar()
	m.ctx.DeclareTypeVar(id, typesystem.Universal, name)
	return id
}

// Step pops the most recently pushed item and processes it.
func (m *Machine) Step() State {
	if m.state != Running {
		return m.state
	}
	item, ok := m.popLive()
	if !ok {
		m.state = Succeeded
		return m.state
	}
	m.steps++

	var text string
	if m.opts.Tracer != nil {
		text = m.renderSafely(item)
	}

	if err := m.dispatch(item); err != nil {
		var de *diagnostics.DiagnosticError
		if errors.As(err, &de) && de.Judgment == "" && item.Kind == ItemJudgment {
			if text == "" {
				text = m.renderSafely(item)
			}
			de.At(text)
		}
		m.state = Failed
		m.err = err
	}

	if m.opts.Tracer != nil {
		m.opts.Tracer.Trace(TraceEvent{Step: m.steps, Item: item, Text: text, State: m.state})
	}
	return m.state
}

// popLive pops the last item that is not a tombstone. Tombstones are
// not steps, so compacting them away never changes the step count.
func (m *Machine) popLive() (Item, bool) {
	for {
		item, ok := m.list.PopBack()
		if !ok || item.Kind != ItemGarbage {
			return item, ok
		}
	}
}

// guard runs fn and turns an invariant panic raised underneath it
// (a stale handle, a detached position) into an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*diagnostics.DiagnosticError)
			if !ok {
				panic(r)
			}
			err = de
		}
	}()
	fn()
	return nil
}

// renderSafely renders item even when it refers to reclaimed nodes.
func (m *Machine) renderSafely(item Item) string {
	var text string
	if err := guard(func() { text = m.RenderItem(item) }); err != nil {
		m.printer.Reset()
		return "<unprintable " + item.Kind.String() + ">"
	}
	return text
}

func (m *Machine) renderTypeSafely(t typesystem.Type) string {
	var text string
	if err := guard(func() { text = m.RenderType(t) }); err != nil {
		m.printer.Reset()
		return "<unprintable type>"
	}
	return text
}

// dispatch converts invariant panics raised by the store, the list or
// the index into an error; such failures are final.
func (m *Machine) dispatch(item Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(*diagnostics.DiagnosticError)
			if !ok {
				panic(r)
			}
			err = de
		}
	}()

	switch item.Kind {
	case ItemTyVarDecl, ItemVarDecl:
		return m.ctx.Discharge(item.ID)
	case ItemJudgment:
		return m.judge(item.Judg)
	case ItemGarbage:
		return nil
	}
	return diagnostics.Invariant("unknown work item kind %s", item.Kind)
}

func (m *Machine) judge(j *Judgment) error {
	switch j.Kind {
	case JudgeSubtype:
		return m.subtype(j.Lhs, j.Rhs)
	case JudgeCheck:
		return m.check(j.Expr, j.Type)
	case JudgeInfer:
		return m.infer(j.Expr, j.Target, j.Next)
	case JudgeApplyInfer:
		return m.applyInfer(j.Type, j.Expr, j.Target, j.Next)
	}
	return diagnostics.Invariant("unknown judgment kind %s", j.Kind)
}

// Run steps the machine until it succeeds or fails. Between steps it
// honors ctx, the step limit and the collection policy; a cancelled or
// limited run leaves the machine Running and resumable.
func (m *Machine) Run(ctx context.Context) (*Result, error) {
	for m.state == Running {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.opts.MaxSteps > 0 && m.steps >= m.opts.MaxSteps {
			return nil, fmt.Errorf("%w after %d steps", ErrStepLimit, m.steps)
		}
		m.Step()
		if m.state == Running && m.shouldCollect() {
			if err := guard(func() { m.Collect() }); err != nil {
				m.state = Failed
				m.err = err
			}
		}
	}
	res := m.Result()
	if m.state == Failed {
		return res, m.err
	}
	return res, nil
}

func (m *Machine) shouldCollect() bool {
	p := m.opts.GC
	if p.EverySteps > 0 && m.steps%p.EverySteps == 0 {
		return true
	}
	return p.AllocBudget > 0 && m.store.AllocsSinceCollect() >= p.AllocBudget
}

// Collect drops tombstones from the worklist and reclaims every term
// not reachable from the machine. Returns the number of freed nodes.
func (m *Machine) Collect() int {
	m.ctx.Compact()
	return m.store.Collect(m)
}

// MarkRoots implements typesystem.Roots.
func (m *Machine) MarkRoots(mk *typesystem.Marker) {
	m.list.Each(func(n *scope.Node[Item]) bool {
		markItem(mk, n.Value)
		return true
	})
	for _, item := range m.pinned {
		markItem(mk, item)
	}
	m.ctx.markRoots(mk)
}

func markItem(mk *typesystem.Marker, item Item) {
	switch item.Kind {
	case ItemVarDecl:
		mk.Type(item.Type)
	case ItemJudgment:
		for j := item.Judg; j != nil; j = j.Next {
			mk.Type(j.Lhs)
			mk.Type(j.Rhs)
			mk.Type(j.Type)
			mk.Expr(j.Expr)
		}
	}
}

// Result is the outcome of a finished run.
type Result struct {
	State       State
	Steps       int
	Collections int
	Targets     []typesystem.VarID
	// Solutions maps every solved existential to its fully substituted type.
	Solutions map[typesystem.VarID]typesystem.Type
}

func (m *Machine) Result() *Result {
	res := &Result{
		State:       m.state,
		Steps:       m.steps,
		Collections: m.store.Stats().Collections,
		Targets:     append([]typesystem.VarID(nil), m.targets...),
		Solutions:   make(map[typesystem.VarID]typesystem.Type),
	}
	for _, id := range m.ctx.Solved() {
		var ty typesystem.Type
		// a solution that refers to reclaimed nodes is left out
		if err := guard(func() { ty, _ = m.ctx.Solution(id) }); err != nil {
			continue
		}
		res.Solutions[id] = ty
	}
	return res
}

// RenderType prints t with this machine's variable names.
func (m *Machine) RenderType(t typesystem.Type) string {
	return m.printer.Type(t)
}

// RenderJudgment prints j; expressions are shown under the current term scope.
func (m *Machine) RenderJudgment(j *Judgment) string {
	p := m.printer
	switch j.Kind {
	case JudgeSubtype:
		return fmt.Sprintf("%s <: %s", p.Type(j.Lhs), p.Type(j.Rhs))
	case JudgeCheck:
		return fmt.Sprintf("%s <= %s", p.ExprIn(j.Expr, m.ctx.Scope()), p.Type(j.Type))
	case JudgeInfer:
		s := fmt.Sprintf("%s => ?%d", p.ExprIn(j.Expr, m.ctx.Scope()), j.Target)
		if j.Next != nil {
			s += " then " + m.RenderJudgment(j.Next)
		}
		return s
	case JudgeApplyInfer:
		s := fmt.Sprintf("%s . %s =>> ?%d", p.Type(j.Type), p.ExprIn(j.Expr, m.ctx.Scope()), j.Target)
		if j.Next != nil {
			s += " then " + m.RenderJudgment(j.Next)
		}
		return s
	}
	return j.Kind.String()
}

// RenderItem prints a worklist entry.
func (m *Machine) RenderItem(item Item) string {
	switch item.Kind {
	case ItemTyVarDecl:
		return fmt.Sprintf("%s %s", item.VarKind, m.ctx.Name(item.ID))
	case ItemVarDecl:
		name := fmt.Sprintf("#%d", item.ID)
		if d, ok := m.ctx.vars[item.ID]; ok {
			name = d.Name
		}
		return fmt.Sprintf("%s : %s", name, m.printer.Type(item.Type))
	case ItemJudgment:
		return m.RenderJudgment(item.Judg)
	}
	return item.Kind.String()
}
