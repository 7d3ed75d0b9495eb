// Package engine implements the dynamic-config question engine: it turns an
// externally-authored JSON exercise definition into a live question by
// resolving its expressions against a scope and substituting the results
// into templates.
package engine

import (
	"math"
	"math/rand"

	"github.com/expr-lang/expr"

	"mathapp/internal/generators"
)

// EvalResult is the explicit outcome of one expression evaluation. An
// unresolved expression is not an error: the resolver defers it to the next
// pass until the bounded pass count runs out.
type EvalResult struct {
	Value      interface{}
	Unresolved bool
}

// evaluate runs one expression against the scope. Any evaluation failure,
// typically a reference to a not-yet-resolved name, reports Unresolved.
func evaluate(expression string, scope map[string]interface{}) EvalResult {
	out, err := expr.Eval(expression, scope)
	if err != nil {
		return EvalResult{Unresolved: true}
	}
	return EvalResult{Value: out}
}

// newScope seeds an evaluation scope with the builtin functions exercise
// authors can call from their expressions.
func newScope(r *rand.Rand) map[string]interface{} {
	return map[string]interface{}{
		"randInt": func(min, max int) int {
			return generators.RandomInt(r, min, max)
		},
		"randNonZero": func(limit int) int {
			return generators.RandomNonZeroInt(r, limit)
		},
		"randChoice": func(pool ...interface{}) interface{} {
			return generators.Pick(r, pool)
		},
		"round": func(v float64, decimals int) float64 {
			scale := math.Pow(10, float64(decimals))
			return math.Round(v*scale) / scale
		},
		"abs":  math.Abs,
		"sqrt": math.Sqrt,
		"pow":  math.Pow,
		"gcd": func(a, b int) int {
			for b != 0 {
				a, b = b, a%b
			}
			if a < 0 {
				return -a
			}
			return a
		},
	}
}
