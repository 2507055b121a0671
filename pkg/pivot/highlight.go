package pivot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/matzehuels/pivotview/pkg/errors"
)

// HighlightRule flags cells matching a boolean expression.
//
//	[[highlight]]
//	name = "big"
//	when = "value > 1000 && !is_total"
//	columns = ["Sales"]
//
// Expressions see value, percent, has_percent, column, row_total, is_total
// and is_grand_total. An empty column list applies the rule to every column.
type HighlightRule struct {
	Name    string   `json:"name" toml:"name"`
	When    string   `json:"when" toml:"when"`
	Columns []string `json:"columns,omitempty" toml:"columns"`
}

// HighlightEnv is the variable set of a highlight expression.
type HighlightEnv struct {
	Value        float64 `expr:"value"`
	Percent      float64 `expr:"percent"`
	HasPercent   bool    `expr:"has_percent"`
	Column       string  `expr:"column"`
	RowTotal     float64 `expr:"row_total"`
	IsTotal      bool    `expr:"is_total"`
	IsGrandTotal bool    `expr:"is_grand_total"`
}

type compiledRule struct {
	rule    HighlightRule
	program *vm.Program
}

// Highlighter evaluates compiled highlight rules. The first matching rule
// names the cell's highlight.
type Highlighter struct {
	rules []compiledRule
}

// CompileHighlights compiles rules once. A nil Highlighter matches nothing.
func CompileHighlights(rules []HighlightRule) (*Highlighter, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	h := &Highlighter{rules: make([]compiledRule, 0, len(rules))}
	for i, r := range rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}
		if strings.TrimSpace(r.When) == "" {
			return nil, errors.New(errors.ErrCodeInvalidExpression, "highlight %q: empty condition", name)
		}
		program, err := expr.Compile(r.When, expr.Env(HighlightEnv{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidExpression, err, "highlight %q", name)
		}
		r.Name = name
		h.rules = append(h.rules, compiledRule{rule: r, program: program})
	}
	return h, nil
}

// Match returns the name of the first rule matching env, or "".
// Evaluation errors count as no match.
func (h *Highlighter) Match(env HighlightEnv) string {
	if h == nil {
		return ""
	}
	for _, r := range h.rules {
		if len(r.rule.Columns) > 0 && !slices.ContainsFunc(r.rule.Columns, func(c string) bool {
			return CanonicalKey(c) == CanonicalKey(env.Column)
		}) {
			continue
		}
		out, err := expr.Run(r.program, env)
		if err != nil {
			continue
		}
		if ok, _ := out.(bool); ok {
			return r.rule.Name
		}
	}
	return ""
}

// Rules returns the compiled rules' definitions.
func (h *Highlighter) Rules() []HighlightRule {
	if h == nil {
		return nil
	}
	out := make([]HighlightRule, len(h.rules))
	for i, r := range h.rules {
		out[i] = r.rule
	}
	return out
}
