package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolate(t *testing.T) {
	data := map[string]any{
		"name":  "ada",
		"count": float64(3),
		"ok":    true,
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"single placeholder", "hello {{name}}", "hello ada"},
		{"multiple placeholders", "{{name}}: {{count}}", "ada: 3"},
		{"bool value", "ok={{ok}}", "ok=true"},
		{"unmatched placeholder kept", "hi {{missing}}", "hi {{missing}}"},
		{"no placeholders", "plain text", "plain text"},
		{"case sensitive", "{{Name}}", "{{Name}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Interpolate(tt.template, data))
		})
	}
}

func TestInterpolateMap(t *testing.T) {
	result := InterpolateMap(map[string]string{
		"Authorization": "Bearer {{token}}",
		"Accept":        "application/json",
	}, map[string]any{"token": "t-123"})

	assert.Equal(t, "Bearer t-123", result["Authorization"])
	assert.Equal(t, "application/json", result["Accept"])
}

func TestEvaluateTemplate(t *testing.T) {
	data := map[string]any{
		"body": map[string]any{
			"location": map[string]any{"name": "Berlin"},
			"items":    []any{"first", "second"},
		},
		"count": float64(2),
	}

	tests := []struct {
		name     string
		value    any
		expected any
	}{
		{"path lookup", "{{ body.location.name }}", "Berlin"},
		{"index lookup", "{{ body.items[1] }}", "second"},
		{"missing path", "{{ body.missing }}", nil},
		{"comparison true", "{{ count == 2 }}", true},
		{"comparison false", "{{ count > 5 }}", false},
		{"non-template string unchanged", "plain", "plain"},
		{"embedded braces unchanged", "a {{ count }} b", "a {{ count }} b"},
		{"non-string unchanged", float64(7), float64(7)},
		{"numeric literal", "{{ 42 }}", float64(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EvaluateTemplate(tt.value, data))
		})
	}
}

func TestEvaluateCondition(t *testing.T) {
	data := map[string]any{
		"kind":  "vip",
		"count": float64(5),
		"flag":  false,
	}

	tests := []struct {
		name      string
		condition string
		expected  bool
	}{
		{"string equality", `{{ kind == "vip" }}`, true},
		{"string inequality", `{{ kind != "vip" }}`, false},
		{"single quotes", `{{ kind == 'vip' }}`, true},
		{"numeric comparison", "{{ count >= 5 }}", true},
		{"numeric string coercion", `{{ count == "5" }}`, true},
		{"falsy lookup", "{{ flag }}", false},
		{"missing lookup falsy", "{{ missing }}", false},
		{"plain non-empty string truthy", "anything", true},
		{"empty string falsy", "", false},
		{"whitespace only falsy", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EvaluateCondition(tt.condition, data))
		})
	}
}

func TestGetValue(t *testing.T) {
	data := map[string]any{
		"dotted.key": "literal",
		"nested":     map[string]any{"value": float64(1)},
	}

	// A literal top-level key wins over path traversal.
	assert.Equal(t, "literal", GetValue("dotted.key", data))
	assert.Equal(t, float64(1), GetValue("nested.value", data))
	assert.Nil(t, GetValue("nested.missing", data))

	// An unresolvable numeric expression falls back to the literal number.
	assert.Equal(t, float64(3.5), GetValue("3.5", data))

	// An unresolvable non-numeric expression yields nil, never the text
	// itself; bare identifiers are lookups, not string literals.
	assert.Nil(t, GetValue("pending", data))
	assert.Nil(t, GetValue("missing.x", map[string]any{}))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		left     any
		op       string
		right    any
		expected bool
	}{
		{"numbers equal", float64(1), "==", 1, true},
		{"bool coerces to number", true, "==", float64(1), true},
		{"numeric strings", "10", ">", "9", false}, // both strings: lexicographic
		{"string vs number", "10", ">", float64(9), true},
		{"nil equals nil", nil, "==", nil, true},
		{"nil not equal value", nil, "==", "x", false},
		{"incomparable", map[string]any{}, ">", float64(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Compare(tt.left, tt.op, tt.right))
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(float64(0)))
	assert.False(t, Truthy(false))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy(float64(0.1)))
	assert.True(t, Truthy(map[string]any{}))
	assert.True(t, Truthy([]any{}))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "text", Stringify("text"))
	assert.Equal(t, "3", Stringify(float64(3)))
	assert.Equal(t, "3.5", Stringify(float64(3.5)))
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "true", Stringify(true))
}
