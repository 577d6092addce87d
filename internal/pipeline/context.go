package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/wlcheck/internal/config"
	"github.com/funvibe/wlcheck/internal/loader"
	"github.com/funvibe/wlcheck/internal/typesystem"
)

// PipelineContext carries one case through the pipeline.
type PipelineContext struct {
	Context context.Context
	RunID   uuid.UUID
	Case    *loader.Case
	Config  *config.Config
	Store   *typesystem.Store
	Logger  *log.Logger

	// KeepTrace asks the check stage to record every step in Trace.
	KeepTrace bool
	// KeepSnapshot asks the check stage to leave the final machine view in Snapshot.
	KeepSnapshot bool

	Verdict  *Verdict
	Trace    []StepRecord
	Snapshot interface{}

	// Errors collects failures of the stages themselves (I/O, journal),
	// never the outcome of the check.
	Errors []error
}

// Verdict is the outcome of checking a case.
type Verdict struct {
	State       string
	Steps       int
	Collections int
	Err         error
	Inferred    string // rendered solution of the infer target
	Passed      bool   // the outcome agrees with the case's expectation
	Elapsed     time.Duration
}

// StepRecord is one traced machine step.
type StepRecord struct {
	Step  int
	Kind  string
	Item  string
	State string
}

func NewPipelineContext(c *loader.Case, cfg *config.Config) *PipelineContext {
	if cfg == nil {
		cfg = config.Default()
	}
	return &PipelineContext{
		Context: context.Background(),
		RunID:   uuid.New(),
		Case:    c,
		Config:  cfg,
		Store:   typesystem.NewStore(),
		Logger:  log.New(log.Writer(), "", 0),
	}
}

// Logf logs with the run id prefixed.
func (ctx *PipelineContext) Logf(format string, args ...interface{}) {
	if ctx.Logger == nil {
		return
	}
	ctx.Logger.Printf("[%s] "+format, append([]interface{}{shortID(ctx.RunID)}, args...)...)
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
