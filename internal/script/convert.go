package script

import "fmt"

// ToJSONValue converts one evaluator-native value to its JSON-compatible
// form, per spec.md §4.6's conversion table: nil stays nil, bool/string
// pass through, integral floats become int64, non-integral floats stay
// float64, maps convert recursively, and anything else falls back to its
// textual form.
func ToJSONValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bool, string:
		return val
	case int, int32, int64:
		return val
	case float32:
		return toNumber(float64(val))
	case float64:
		return toNumber(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToJSONValue(elem)
		}
		return out
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toNumber(f float64) any {
	if f == float64(int64(f)) {
		return int64(f)
	}
	return f
}

// positionalToArgs zips a reversed-stack positional argument list against
// the tool schema's properties insertion order, per spec.md §4.6 step 2:
// the evaluator hands arguments in reverse stack order, so they are
// reversed back to call order before being mapped to parameter names.
func positionalToArgs(stackOrder []any, paramNames []string) map[string]any {
	args := make(map[string]any, len(stackOrder))

	n := len(stackOrder)
	for i := 0; i < n && i < len(paramNames); i++ {
		value := stackOrder[n-1-i] // undo the stack's reverse order
		args[paramNames[i]] = ToJSONValue(value)
	}
	return args
}
