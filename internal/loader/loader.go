// Package loader reads case files: YAML documents listing terms to
// check, infer or compare, together with the expected outcome.
//
//	cases:
//	  - name: identity
//	    expr: {lam: x, body: {var: x}}
//	    type: {forall: a, body: {arrow: [{var: a}, {var: a}]}}
//	  - name: codomain
//	    subtype: [{arrow: [unit, unit]}, {arrow: [unit, {arrow: [unit, unit]}]}]
//	    expect: TypeMismatch
//
// Names are resolved while loading; an unknown name is a load error.
// An integer expression var is taken verbatim as a de Bruijn index and
// is only checked by the machine.
package loader

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/wlcheck/internal/diagnostics"
)

type Kind uint8

const (
	KindCheck Kind = iota
	KindInfer
	KindSubtype
)

func (k Kind) String() string {
	switch k {
	case KindCheck:
		return "check"
	case KindInfer:
		return "infer"
	case KindSubtype:
		return "subtype"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Expectation is the outcome a case declares: success, or failure with Code.
type Expectation struct {
	OK   bool
	Code diagnostics.ErrorCode
}

func (e Expectation) String() string {
	if e.OK {
		return "ok"
	}
	return string(e.Code)
}

// Matches reports whether err is the outcome e describes.
func (e Expectation) Matches(err error) bool {
	if e.OK {
		return err == nil
	}
	return err != nil && diagnostics.CodeOf(err) == e.Code
}

// Case is one loaded obligation. Terms are kept store-independent so
// that every run can build them into a fresh store.
type Case struct {
	Name   string
	File   string
	Line   int
	Kind   Kind
	Expr   *ExprTerm
	Type   *TypeTerm    // KindCheck
	Sub    [2]*TypeTerm // KindSubtype
	Infers string       // optional rendering of the inferred type, KindInfer only
	Expect Expectation
}

type document struct {
	Cases []rawCase `yaml:"cases"`
}

type rawCase struct {
	Name    string    `yaml:"name"`
	Expr    yaml.Node `yaml:"expr"`
	Type    yaml.Node `yaml:"type"`
	Subtype yaml.Node `yaml:"subtype"`
	Infers  string    `yaml:"infers"`
	Expect  string    `yaml:"expect"`

	line int
}

// Load reads and parses a case file.
func Load(path string) ([]*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cases %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses case file content. The path argument is used only for
// error messages.
func Parse(data []byte, path string) ([]*Case, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	var doc document
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lines := caseLines(&root)

	seen := make(map[string]int)
	cases := make([]*Case, 0, len(doc.Cases))
	for i := range doc.Cases {
		raw := &doc.Cases[i]
		if i < len(lines) {
			raw.line = lines[i]
		}
		if raw.Name == "" {
			raw.Name = "case" + strconv.Itoa(i+1)
		}
		if prev, dup := seen[raw.Name]; dup {
			return nil, fmt.Errorf("%s:%d: case %q already defined at line %d", path, raw.line, raw.Name, prev)
		}
		seen[raw.Name] = raw.line

		c, err := raw.build(path)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// caseLines returns the line of every entry of the cases sequence.
func caseLines(root *yaml.Node) []int {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value != "cases" || m.Content[i+1].Kind != yaml.SequenceNode {
			continue
		}
		var lines []int
		for _, n := range m.Content[i+1].Content {
			lines = append(lines, n.Line)
		}
		return lines
	}
	return nil
}

func (r *rawCase) build(path string) (*Case, error) {
	c := &Case{Name: r.Name, File: path, Line: r.line, Infers: r.Infers}
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%s:%d: case %q: %s", path, r.line, r.Name, fmt.Sprintf(format, args...))
	}

	switch r.Expect {
	case "", "ok":
		c.Expect = Expectation{OK: true}
	default:
		code, ok := diagnostics.ParseCode(r.Expect)
		if !ok {
			return nil, fail("unknown expectation %q", r.Expect)
		}
		c.Expect = Expectation{Code: code}
	}

	p := &termParser{}
	hasExpr := !isAbsent(&r.Expr)
	hasType := !isAbsent(&r.Type)
	hasSub := !isAbsent(&r.Subtype)

	var err error
	switch {
	case hasSub:
		if hasExpr || hasType {
			return nil, fail("subtype cannot be combined with expr or type")
		}
		if r.Subtype.Kind != yaml.SequenceNode || len(r.Subtype.Content) != 2 {
			return nil, fail("subtype needs exactly two types")
		}
		c.Kind = KindSubtype
		for i, n := range r.Subtype.Content {
			if c.Sub[i], err = p.typ(n, nil); err != nil {
				return nil, fail("%v", err)
			}
		}
	case hasExpr:
		if c.Expr, err = p.expr(&r.Expr, nil); err != nil {
			return nil, fail("%v", err)
		}
		c.Kind = KindInfer
		if hasType {
			c.Kind = KindCheck
			if c.Type, err = p.typ(&r.Type, nil); err != nil {
				return nil, fail("%v", err)
			}
		}
	default:
		return nil, fail("needs expr or subtype")
	}
	if c.Infers != "" && c.Kind != KindInfer {
		return nil, fail("infers is only meaningful without a type")
	}
	return c, nil
}

func isAbsent(n *yaml.Node) bool {
	return n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}
