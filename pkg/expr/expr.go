// Package expr evaluates the small template expressions used by workflow
// nodes: simple `{{key}}` substitution inside larger strings, whole-value
// `{{ expression }}` templates with an optional comparator, and dotted/indexed
// path lookups against loosely-typed JSON data.
package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	wholeTemplateRe = regexp.MustCompile(`^\{\{([^}]+)\}\}$`)
	placeholderRe   = regexp.MustCompile(`\{\{(\w+)\}\}`)
)

// comparators in scan order: two-character operators must win over their
// one-character prefixes.
var comparators = []string{">=", "<=", "==", "!=", ">", "<"}

// Interpolate replaces every `{{identifier}}` placeholder with the
// directly-keyed value from data, stringified. Unmatched placeholders are
// left untouched. Case-sensitive, no nested paths, no operators.
func Interpolate(template string, data map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := match[2 : len(match)-2]
		if value, ok := data[key]; ok {
			return Stringify(value)
		}

		return match
	})
}

// InterpolateMap applies Interpolate to every value of a string map.
func InterpolateMap(values map[string]string, data map[string]any) map[string]string {
	result := make(map[string]string, len(values))
	for key, value := range values {
		result[key] = Interpolate(value, data)
	}

	return result
}

// EvaluateTemplate evaluates a whole-value template. A non-string value, or
// a string that is not exactly `{{ expression }}`, is returned unchanged.
// Otherwise the braces are stripped, the expression trimmed, and evaluated
// as a comparison or a path lookup.
func EvaluateTemplate(value any, data map[string]any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}

	match := wholeTemplateRe.FindStringSubmatch(str)
	if match == nil {
		return str
	}

	return evaluate(strings.TrimSpace(match[1]), data)
}

// EvaluateCondition evaluates a condition string to a boolean. Strings not
// in `{{ ... }}` form are truthy when non-empty. Evaluation never fails:
// anything unresolvable is simply falsy.
func EvaluateCondition(condition string, data map[string]any) bool {
	trimmed := strings.TrimSpace(condition)

	match := wholeTemplateRe.FindStringSubmatch(trimmed)
	if match == nil {
		return trimmed != ""
	}

	return Truthy(evaluate(strings.TrimSpace(match[1]), data))
}

// evaluate handles the inner expression of a whole-value template: a single
// comparator splits it into left/operator/right, anything else is a path
// lookup.
func evaluate(expression string, data map[string]any) any {
	if op, left, right, ok := splitComparison(expression); ok {
		return Compare(resolveOperand(left, data), op, resolveOperand(right, data))
	}

	return GetValue(expression, data)
}

// splitComparison splits an expression on its single comparator occurrence.
// Expressions with no comparator, or with more than one, do not split and
// fall through to plain lookup.
func splitComparison(expression string) (op, left, right string, ok bool) {
	index := -1

	for _, candidate := range comparators {
		pos := strings.Index(expression, candidate)
		if pos < 0 {
			continue
		}

		// A one-character operator inside an already-found two-character one
		// is the same occurrence, not a second operator.
		if index >= 0 && (pos == index || pos == index+1) && len(candidate) < len(op) {
			continue
		}

		if index >= 0 {
			return "", "", "", false
		}

		index = pos
		op = candidate
	}

	if index < 0 {
		return "", "", "", false
	}

	left = strings.TrimSpace(expression[:index])
	right = strings.TrimSpace(expression[index+len(op):])

	if left == "" || right == "" {
		return "", "", "", false
	}

	// A second occurrence of the same operator also disqualifies the split.
	if strings.Contains(right, op) {
		return "", "", "", false
	}

	return op, left, right, true
}

// resolveOperand resolves one side of a comparison. Quoted text is a string
// literal; everything else goes through path lookup.
func resolveOperand(operand string, data map[string]any) any {
	if len(operand) >= 2 {
		first, last := operand[0], operand[len(operand)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return operand[1 : len(operand)-1]
		}
	}

	return GetValue(operand, data)
}

// GetValue resolves a path expression against data. The expression is first
// tried as a literal top-level key; otherwise it is split into `.` and
// `[index]` segments and walked. A segment that does not resolve yields nil,
// unless the whole expression parses as a number, in which case the numeric
// literal is returned.
func GetValue(path string, data map[string]any) any {
	trimmed := strings.TrimSpace(path)

	if value, ok := data[trimmed]; ok {
		return value
	}

	segments := parsePath(trimmed)
	if len(segments) == 0 {
		return data
	}

	var current any = data

	for _, segment := range segments {
		next, ok := step(current, segment)
		if !ok {
			if num, err := strconv.ParseFloat(trimmed, 64); err == nil {
				return num
			}

			return nil
		}

		current = next
	}

	return current
}

// pathSegment is either a map key or a sequence index.
type pathSegment struct {
	key   string
	index int
	isKey bool
}

// parsePath splits "body.items[1].value" into its key and index segments.
// Bracket segments must be non-negative integers; malformed brackets are
// dropped.
func parsePath(path string) []pathSegment {
	var segments []pathSegment

	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, pathSegment{key: current.String(), isKey: true})
			current.Reset()
		}
	}

	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '.':
			flush()
		case '[':
			flush()

			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return segments
			}

			if index, err := strconv.Atoi(path[i+1 : i+end]); err == nil && index >= 0 {
				segments = append(segments, pathSegment{index: index})
			}

			i += end
		default:
			current.WriteByte(path[i])
		}
	}

	flush()

	return segments
}

// step walks a single segment into current, reporting whether it resolved.
func step(current any, segment pathSegment) (any, bool) {
	if current == nil {
		return nil, false
	}

	if segment.isKey {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		value, ok := m[segment.key]

		return value, ok
	}

	seq, ok := current.([]any)
	if !ok || segment.index >= len(seq) {
		return nil, false
	}

	return seq[segment.index], true
}

// Compare applies a comparator with loose, JavaScript-style semantics:
// numeric strings compare as numbers, booleans coerce to 0/1, and
// unresolvable operands never panic.
func Compare(left any, op string, right any) bool {
	switch op {
	case "==":
		return looseEquals(left, right)
	case "!=":
		return !looseEquals(left, right)
	}

	ls, lok := left.(string)

	rs, rok := right.(string)
	if lok && rok {
		return ordered(op, strings.Compare(ls, rs) < 0, ls == rs)
	}

	ln, lok := toNumber(left)

	rn, rok := toNumber(right)
	if !lok || !rok {
		return false
	}

	return ordered(op, ln < rn, ln == rn)
}

func ordered(op string, less, equal bool) bool {
	switch op {
	case "<":
		return less
	case "<=":
		return less || equal
	case ">":
		return !less && !equal
	case ">=":
		return !less
	}

	return false
}

// looseEquals mirrors JavaScript `==` over JSON value kinds.
func looseEquals(left, right any) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	ls, lok := left.(string)

	rs, rok := right.(string)
	if lok && rok {
		return ls == rs
	}

	ln, lok := toNumber(left)

	rn, rok := toNumber(right)
	if lok && rok {
		return ln == rn
	}

	return false
}

// toNumber coerces scalar values to float64 the way JavaScript does.
func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case bool:
		if v {
			return 1, true
		}

		return 0, true
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return num, err == nil
	default:
		return 0, false
	}
}

// Truthy mirrors JavaScript Boolean() over JSON value kinds: nil and zero
// values are false, maps and sequences are always true.
func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case float32:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

// Stringify renders a value for placeholder substitution.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
