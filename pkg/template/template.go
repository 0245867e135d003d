// Package template resolves {{ ... }} placeholders in action configs against
// the data of the current run.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scope carries the data roots a template expression can reference. Output
// is the live accumulator of the run, so an action sees values written by
// the actions before it.
type Scope struct {
	Input   map[string]any
	Context map[string]any
	Output  map[string]any
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Render resolves template placeholders in value. Strings are expanded, maps
// and slices are walked recursively, and every other value passes through
// untouched. Rendering never fails: unresolvable references become the empty
// string.
func Render(value any, scope Scope) any {
	switch v := value.(type) {
	case string:
		return renderString(v, scope)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Render(item, scope)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Render(item, scope)
		}

		return out
	default:
		return value
	}
}

func renderString(s string, scope Scope) any {
	matches := placeholderPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	// A string that is exactly one placeholder resolves to the referenced
	// value with its native type.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(s) {
		return Resolve(s[matches[0][2]:matches[0][3]], scope)
	}

	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := placeholderPattern.FindStringSubmatch(m)

		return stringify(Resolve(sub[1], scope))
	})
}

// Resolve evaluates a single template expression: a builtin, a scope root, or
// a dotted path under input, context, or output. Unknown expressions resolve
// to the empty string.
func Resolve(expr string, scope Scope) any {
	e := strings.TrimSpace(expr)
	if e == "" {
		return ""
	}

	switch e {
	case "now_iso":
		return time.Now().UTC().Format(time.RFC3339)
	case "timestamp":
		return time.Now().UTC().Unix()
	case "uuid":
		return hexUUID()
	case "random6":
		return hexUUID()[:6]
	case "input":
		return scope.Input
	case "context":
		return scope.Context
	case "output":
		return scope.Output
	}

	if path, ok := strings.CutPrefix(e, "input."); ok {
		return walk(scope.Input, path)
	}

	if path, ok := strings.CutPrefix(e, "context."); ok {
		return walk(scope.Context, path)
	}

	if path, ok := strings.CutPrefix(e, "output."); ok {
		return walk(scope.Output, path)
	}

	return ""
}

// walk follows a dotted path through nested string-keyed maps. Any miss, or
// any intermediate value that is not a map, yields the empty string.
func walk(root any, path string) any {
	current := root

	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return ""
		}

		value, ok := m[part]
		if !ok {
			return ""
		}

		current = value
	}

	return current
}

func hexUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// stringify renders a resolved value for interpolation into mixed content.
// Composites serialize as compact JSON; nil becomes the empty string.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
