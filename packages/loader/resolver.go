package loader

import (
	"os"
	"regexp"
	"strings"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// resolver substitutes {{name}} references from the suite's vars block and
// {{$NAME}} references from the process environment. Unresolved references
// are left in place so they show up verbatim in failure messages.
type resolver struct {
	vars map[string]string
}

func newResolver(vars map[string]string) *resolver {
	return &resolver{vars: vars}
}

func (r *resolver) resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])

		if strings.HasPrefix(expr, "$") {
			if val := os.Getenv(expr[1:]); val != "" {
				return val
			}
			return match
		}

		if val, ok := r.vars[expr]; ok {
			return val
		}
		return match
	})
}

// resolveValue walks a decoded YAML value, resolving every string in place.
func (r *resolver) resolveValue(v any) any {
	switch val := v.(type) {
	case string:
		return r.resolve(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = r.resolveValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.resolveValue(item)
		}
		return out
	default:
		return v
	}
}

func (r *resolver) resolveArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	return r.resolveValue(args).(map[string]any)
}
