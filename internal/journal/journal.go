// Package journal records case runs and their steps in a SQLite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/funvibe/wlcheck/internal/diagnostics"
	"github.com/funvibe/wlcheck/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	case_name   TEXT NOT NULL,
	file        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	state       TEXT NOT NULL,
	code        TEXT NOT NULL,
	message     TEXT NOT NULL,
	inferred    TEXT NOT NULL,
	expected    TEXT NOT NULL,
	passed      INTEGER NOT NULL,
	steps       INTEGER NOT NULL,
	collections INTEGER NOT NULL,
	elapsed_us  INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS steps (
	run_id TEXT NOT NULL REFERENCES runs(id),
	step   INTEGER NOT NULL,
	kind   TEXT NOT NULL,
	item   TEXT NOT NULL,
	state  TEXT NOT NULL,
	PRIMARY KEY (run_id, step)
);
`

// Journal is an open journal database.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path. ":memory:" gives a
// private in-memory journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal %s: %w", path, err)
	}
	// one connection: an in-memory database is per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema in %s: %w", path, err)
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Run is a journaled run as read back by Runs.
type Run struct {
	ID       uuid.UUID
	Case     string
	Kind     string
	State    string
	Code     string
	Inferred string
	Expected string
	Passed   bool
	Steps    int
}

// RecordRun stores the verdict of ctx together with its traced steps.
func (j *Journal) RecordRun(ctx context.Context, pc *pipeline.PipelineContext) error {
	v := pc.Verdict
	if v == nil {
		return fmt.Errorf("run %s has no verdict", pc.RunID)
	}
	var code, message string
	if v.Err != nil {
		code = string(diagnostics.CodeOf(v.Err))
		message = v.Err.Error()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, case_name, file, kind, state, code, message, inferred, expected, passed, steps, collections, elapsed_us, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pc.RunID.String(), pc.Case.Name, pc.Case.File, pc.Case.Kind.String(),
		v.State, code, message, v.Inferred, pc.Case.Expect.String(), v.Passed,
		v.Steps, v.Collections, v.Elapsed.Microseconds(), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("journal: recording run %s: %w", pc.RunID, err)
	}

	if len(pc.Trace) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO steps (run_id, step, kind, item, state) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer stmt.Close()
		for _, s := range pc.Trace {
			if _, err := stmt.ExecContext(ctx, pc.RunID.String(), s.Step, s.Kind, s.Item, s.State); err != nil {
				return fmt.Errorf("journal: recording step %d of run %s: %w", s.Step, pc.RunID, err)
			}
		}
	}
	return tx.Commit()
}

// Runs returns every journaled run, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT id, case_name, kind, state, code, inferred, expected, passed, steps
		FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var id string
		if err := rows.Scan(&id, &r.Case, &r.Kind, &r.State, &r.Code, &r.Inferred, &r.Expected, &r.Passed, &r.Steps); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("journal: run id %q: %w", id, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Steps returns the traced steps of a run in order.
func (j *Journal) Steps(ctx context.Context, run uuid.UUID) ([]pipeline.StepRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT step, kind, item, state FROM steps WHERE run_id = ? ORDER BY step`, run.String())
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	defer rows.Close()

	var out []pipeline.StepRecord
	for rows.Next() {
		var s pipeline.StepRecord
		if err := rows.Scan(&s.Step, &s.Kind, &s.Item, &s.State); err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Processor is the pipeline stage that journals a finished run.
type Processor struct {
	Journal *Journal
}

func (p *Processor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Verdict == nil {
		return ctx
	}
	if err := p.Journal.RecordRun(ctx.Context, ctx); err != nil {
		ctx.Errors = append(ctx.Errors, err)
		ctx.Logf("%v", err)
	}
	return ctx
}
