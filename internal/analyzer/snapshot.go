package analyzer

import (
	"sort"

	"github.com/funvibe/wlcheck/internal/typesystem"
)

// Snapshot is a printable view of the machine, front of the worklist
// first. It holds rendered strings only and stays valid after the
// machine moves on.
type Snapshot struct {
	State     string
	Steps     int
	Error     string
	Worklist  []string
	TypeVars  []string
	TermVars  []string
	Solutions map[string]string
	Store     typesystem.Stats
}

func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		State:     m.state.String(),
		Steps:     m.steps,
		Solutions: make(map[string]string),
		Store:     m.store.Stats(),
	}
	if m.err != nil {
		snap.Error = m.err.Error()
	}
	for _, item := range m.list.Values() {
		if item.Kind == ItemGarbage {
			continue
		}
		snap.Worklist = append(snap.Worklist, m.renderSafely(item))
	}

	ids := make([]int, 0, len(m.ctx.tyVars))
	for id := range m.ctx.tyVars {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		d := m.ctx.tyVars[typesystem.VarID(id)]
		snap.TypeVars = append(snap.TypeVars, d.Kind.String()+" "+m.ctx.Name(d.ID))
	}
	for _, id := range m.ctx.terms {
		d := m.ctx.vars[id]
		snap.TermVars = append(snap.TermVars, d.Name+" : "+m.renderTypeSafely(d.Type))
	}
	for _, id := range m.ctx.Solved() {
		text := "<unprintable type>"
		var ty typesystem.Type
		if err := guard(func() { ty, _ = m.ctx.Solution(id) }); err == nil {
			text = m.renderTypeSafely(ty)
		}
		snap.Solutions[m.ctx.Name(id)] = text
	}
	return snap
}
