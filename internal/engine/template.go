package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"mathapp/internal/config"
	"mathapp/internal/generators"
)

// substitute replaces {name} placeholders in the template with the scope
// values. Keys are processed longest-name-first so {x} never corrupts an
// occurrence of {xy}.
func substitute(template string, scope map[string]interface{}) string {
	if template == "" || len(scope) == 0 {
		return template
	}

	keys := make([]string, 0, len(scope))
	for k := range scope {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, "{"+k+"}", formatScopeValue(scope[k]))
	}
	return out
}

// formatScopeValue renders a resolved value for display. Floats are rounded
// to the display precision with the comma decimal separator.
func formatScopeValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return generators.FormatDecimal(val, config.DisplayDecimals)
	case float32:
		return generators.FormatDecimal(float64(val), config.DisplayDecimals)
	default:
		return fmt.Sprintf("%v", val)
	}
}
