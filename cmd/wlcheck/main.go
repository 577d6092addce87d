package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/jessevdk/go-flags"
	"github.com/mattn/go-isatty"

	"github.com/funvibe/wlcheck/internal/analyzer"
	"github.com/funvibe/wlcheck/internal/config"
	"github.com/funvibe/wlcheck/internal/journal"
	"github.com/funvibe/wlcheck/internal/loader"
	"github.com/funvibe/wlcheck/internal/pipeline"
)

type options struct {
	Config   string `short:"c" long:"config" value-name:"FILE" description:"configuration file (default: nearest wlcheck.yaml)"`
	Dump     bool   `long:"dump" description:"dump the final machine state of every case"`
	Trace    bool   `short:"v" long:"trace" description:"print every step"`
	Journal  string `long:"journal" value-name:"DB" description:"record runs in this SQLite database"`
	Color    string `long:"color" choice:"auto" choice:"always" choice:"never" description:"colorize output"`
	MaxSteps int    `long:"max-steps" value-name:"N" description:"step limit per case"`
	Filter   string `short:"r" long:"run" value-name:"TEXT" description:"only run cases whose name contains TEXT"`

	Args struct {
		Files []string `positional-arg-name:"FILE" required:"1"`
	} `positional-args:"yes"`
}

func main() {
	log.SetFlags(0)          // Disable timestamp in logs
	log.SetOutput(os.Stderr) // Results go to stdout, diagnostics to stderr
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run is main without the process exit: 0 when every case matched its
// expectation, 1 when some did not, 2 on usage errors.
func run(args []string, out io.Writer) int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] FILE..."
	if _, err := parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		log.Print(err)
		return 2
	}

	stages := []pipeline.Processor{&analyzer.CheckProcessor{Color: useColor(cfg.Color, out)}}
	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			log.Print(err)
			return 2
		}
		defer j.Close()
		stages = append(stages, &journal.Processor{Journal: j})
	}
	p := pipeline.New(stages...)

	dumper := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
	passed, failed := 0, 0
	for _, file := range opts.Args.Files {
		cases, err := loader.Load(file)
		if err != nil {
			log.Print(err)
			failed++
			continue
		}
		for _, c := range cases {
			if opts.Filter != "" && !strings.Contains(c.Name, opts.Filter) {
				continue
			}
			ctx := pipeline.NewPipelineContext(c, cfg)
			ctx.Logger = log.Default()
			ctx.KeepTrace = opts.Trace || cfg.Journal != ""
			ctx.KeepSnapshot = opts.Dump
			ctx = p.Run(ctx)

			report(out, ctx)
			if opts.Trace {
				for _, s := range ctx.Trace {
					fmt.Fprintf(out, "    %4d  %s\n", s.Step, s.Item)
				}
			}
			if opts.Dump && ctx.Snapshot != nil {
				dumper.Fdump(out, ctx.Snapshot)
			}
			if ctx.Verdict != nil && ctx.Verdict.Passed && len(ctx.Errors) == 0 {
				passed++
			} else {
				failed++
			}
		}
	}

	fmt.Fprintf(out, "%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func loadConfig(opts options) (*config.Config, error) {
	path := opts.Config
	if path == "" {
		found, err := config.FindConfig(".")
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if opts.MaxSteps > 0 {
		cfg.SetMaxSteps(opts.MaxSteps)
	}
	if opts.Color != "" {
		cfg.Color = opts.Color
	}
	if opts.Journal != "" {
		cfg.Journal = opts.Journal
	}
	return cfg, nil
}

func useColor(mode string, out io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func report(out io.Writer, ctx *pipeline.PipelineContext) {
	c, v := ctx.Case, ctx.Verdict
	where := fmt.Sprintf("%s:%d", c.File, c.Line)
	if v == nil {
		fmt.Fprintf(out, "FAIL %s %s: not checked\n", c.Name, where)
		return
	}

	got := "ok"
	if v.Err != nil {
		got = v.Err.Error()
	}
	switch {
	case v.Passed:
		detail := fmt.Sprintf("%s, %d steps", c.Kind, v.Steps)
		if v.Inferred != "" {
			detail += ", : " + v.Inferred
		}
		fmt.Fprintf(out, "ok   %s (%s)\n", c.Name, detail)
	case c.Infers != "" && v.Err == nil:
		fmt.Fprintf(out, "FAIL %s %s: inferred %s, expected %s\n", c.Name, where, v.Inferred, c.Infers)
	default:
		fmt.Fprintf(out, "FAIL %s %s: expected %s, got %s\n", c.Name, where, c.Expect, indent(got))
	}
	for _, err := range ctx.Errors {
		fmt.Fprintf(out, "     %v\n", err)
	}
}

func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n     ")
}
