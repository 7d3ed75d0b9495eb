package engine

import (
	"context"
	"math/rand"
	"sort"

	"mathapp/internal/config"
)

// resolveScope evaluates variables and calculations as one combined
// dependency set. Each pass attempts every still-unresolved entry against
// the current scope; entries that fail stay queued for the next pass. A pass
// that makes no net progress, or running past the pass bound, force-sets all
// remaining entries to 0 and stops. Resolution never fails: degradation is
// silent apart from a logged warning.
func (e *Engine) resolveScope(ctx context.Context, r *rand.Rand, variables, calculations map[string]string) map[string]interface{} {
	env := newScope(r)
	values := make(map[string]interface{}, len(variables)+len(calculations))

	expressions := make(map[string]string, len(variables)+len(calculations))
	var pending []string
	// Variables first: they may not reference each other, so they usually
	// resolve in the first pass and seed the calculations.
	for _, name := range sortedKeys(variables) {
		expressions[name] = variables[name]
		pending = append(pending, name)
	}
	for _, name := range sortedKeys(calculations) {
		expressions[name] = calculations[name]
		pending = append(pending, name)
	}

	for pass := 0; pass < config.MaxResolverPasses && len(pending) > 0; pass++ {
		var deferred []string
		for _, name := range pending {
			result := evaluate(expressions[name], env)
			if result.Unresolved {
				deferred = append(deferred, name)
				continue
			}
			values[name] = result.Value
			env[name] = result.Value
		}

		if len(deferred) == len(pending) {
			// No net progress, the remaining entries are unresolvable
			break
		}
		pending = deferred
	}

	if len(pending) > 0 {
		for _, name := range pending {
			values[name] = 0
			env[name] = 0
		}
		e.logger.Warn(ctx, "Forcing unresolved expressions to zero", map[string]interface{}{
			"keys": pending,
		})
	}

	return values
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
