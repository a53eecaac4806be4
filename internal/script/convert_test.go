package script

import "testing"

func TestToJSONValue_IntegralFloatBecomesInt(t *testing.T) {
	got := ToJSONValue(float64(4))
	if _, ok := got.(int64); !ok {
		t.Errorf("expected int64 for integral float, got %T (%v)", got, got)
	}
}

func TestToJSONValue_NonIntegralFloatStaysFloat(t *testing.T) {
	got := ToJSONValue(4.5)
	if _, ok := got.(float64); !ok {
		t.Errorf("expected float64 for non-integral float, got %T (%v)", got, got)
	}
}

func TestToJSONValue_MapRecurses(t *testing.T) {
	in := map[string]any{"count": 3.0, "label": "x"}
	got, ok := ToJSONValue(in).(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", got)
	}
	if _, ok := got["count"].(int64); !ok {
		t.Errorf("expected nested integral float converted to int64, got %T", got["count"])
	}
}

func TestToJSONValue_OtherFallsBackToTextualForm(t *testing.T) {
	type custom struct{ X int }
	got := ToJSONValue(custom{X: 5})
	if got != "{5}" {
		t.Errorf("expected textual fallback form, got %v", got)
	}
}

func TestPositionalToArgs_UndoesStackReversal(t *testing.T) {
	// Evaluator hands arguments in reverse stack order: call was f(a, b, c),
	// stack order arrives as [c, b, a].
	stackOrder := []any{"c-val", "b-val", "a-val"}
	paramNames := []string{"a", "b", "c"}

	args := positionalToArgs(stackOrder, paramNames)
	if args["a"] != "a-val" || args["b"] != "b-val" || args["c"] != "c-val" {
		t.Errorf("expected call-order mapping, got %+v", args)
	}
}

func TestPositionalToArgs_FewerArgsThanParams(t *testing.T) {
	args := positionalToArgs([]any{"only"}, []string{"first", "second"})
	if len(args) != 1 || args["first"] != "only" {
		t.Errorf("expected only the supplied argument mapped, got %+v", args)
	}
}
