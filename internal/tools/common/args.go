package common

import (
	"fmt"
	"math"
	"strings"
)

// ArgError reports an invalid or missing tool argument. Handlers surface it
// as an LLM_ERROR_RESPONSE so the model can correct the call.
type ArgError struct {
	Name   string
	Reason string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("Invalid arguments: %s %s", e.Name, e.Reason)
}

func argErr(name, format string, a ...interface{}) error {
	return &ArgError{Name: name, Reason: fmt.Sprintf(format, a...)}
}

// RequireString returns a non-empty string argument.
func RequireString(args map[string]interface{}, name string) (string, error) {
	s, ok, err := OptionalString(args, name)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(s) == "" {
		return "", argErr(name, "is required")
	}
	return s, nil
}

// OptionalString returns a string argument and whether it was present.
func OptionalString(args map[string]interface{}, name string) (string, bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, argErr(name, "must be a string")
	}
	return s, true, nil
}

// OptionalStringSlice returns an array-of-strings argument. A missing
// argument yields nil.
func OptionalStringSlice(args map[string]interface{}, name string) ([]string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch vals := v.(type) {
	case []string:
		return vals, nil
	case []interface{}:
		out := make([]string, 0, len(vals))
		for i, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, argErr(name, "item %d must be a string", i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, argErr(name, "must be an array of strings")
	}
}

// RequireStringSlice is OptionalStringSlice with at least one element.
func RequireStringSlice(args map[string]interface{}, name string) ([]string, error) {
	vals, err := OptionalStringSlice(args, name)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, argErr(name, "must contain at least one item")
	}
	return vals, nil
}

// OptionalInt returns an integer argument in [min, max], or def when absent.
func OptionalInt(args map[string]interface{}, name string, def, min, max int64) (int64, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}

	var n int64
	switch num := v.(type) {
	case float64:
		if num != math.Trunc(num) {
			return 0, argErr(name, "must be an integer")
		}
		n = int64(num)
	case int:
		n = int64(num)
	case int64:
		n = num
	default:
		return 0, argErr(name, "must be a number")
	}

	if n < min || n > max {
		return 0, argErr(name, "must be between %d and %d", min, max)
	}
	return n, nil
}

// OptionalBool returns a boolean argument, or def when absent.
func OptionalBool(args map[string]interface{}, name string, def bool) (bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, argErr(name, "must be a boolean")
	}
	return b, nil
}

// OptionalEnum returns a string argument restricted to allowed, or def when
// absent.
func OptionalEnum(args map[string]interface{}, name, def string, allowed ...string) (string, error) {
	s, ok, err := OptionalString(args, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", argErr(name, "must be one of: %s", strings.Join(allowed, ", "))
}

// OptionalObject returns a JSON object argument and whether it was present.
func OptionalObject(args map[string]interface{}, name string) (map[string]interface{}, bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, false, nil
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, false, argErr(name, "must be an object")
	}
	return obj, true, nil
}
