package evaluator

import (
	"regexp"
	"strings"

	"fleetgrid/warden/pkg/policy/ast"
)

// applyOperator applies op to (actual, operand). The second return value is
// false when the values cannot be compared under op (type mismatch, bad
// pattern, malformed range); the caller turns that into (false, 0), never an
// error.
func applyOperator(op ast.Operator, actual, operand any) (satisfied, ok bool) {
	switch op {
	case ast.OperatorEquals:
		return applyEquals(actual, operand)

	case ast.OperatorNotEquals:
		equal, ok := applyEquals(actual, operand)
		return !equal, ok

	case ast.OperatorGreaterThan:
		a, b, ok := bothNumeric(actual, operand)
		return ok && a > b, ok

	case ast.OperatorLessThan:
		a, b, ok := bothNumeric(actual, operand)
		return ok && a < b, ok

	case ast.OperatorGreaterOrEqual:
		a, b, ok := bothNumeric(actual, operand)
		return ok && a >= b, ok

	case ast.OperatorLessOrEqual:
		a, b, ok := bothNumeric(actual, operand)
		return ok && a <= b, ok

	case ast.OperatorContains:
		return applyContains(actual, operand)

	case ast.OperatorNotContains:
		contains, ok := applyContains(actual, operand)
		return !contains, ok

	case ast.OperatorIn:
		return applyIn(actual, operand)

	case ast.OperatorNotIn:
		in, ok := applyIn(actual, operand)
		return !in, ok

	case ast.OperatorMatches:
		return applyMatches(actual, operand)

	case ast.OperatorWithinRange:
		return applyWithinRange(actual, operand)

	default:
		return false, false
	}
}

// applyEquals compares numerically when both sides are numeric (so int 65 and
// float64 65.0 compare equal), otherwise by scalar identity.
func applyEquals(actual, operand any) (bool, bool) {
	if actual == nil || operand == nil {
		return actual == nil && operand == nil, true
	}

	if a, aok := toFloat64(actual); aok {
		b, bok := toFloat64(operand)
		if !bok {
			return false, false
		}
		return a == b, true
	}

	switch av := actual.(type) {
	case string:
		bv, ok := operand.(string)
		if !ok {
			return false, false
		}
		return av == bv, true
	case bool:
		bv, ok := operand.(bool)
		if !ok {
			return false, false
		}
		return av == bv, true
	default:
		return false, false
	}
}

// applyContains does substring matching for strings and element matching for
// list-valued fields.
func applyContains(actual, operand any) (bool, bool) {
	switch av := actual.(type) {
	case string:
		needle, ok := operand.(string)
		if !ok {
			return false, false
		}
		return strings.Contains(av, needle), true

	case []any:
		for _, elem := range av {
			if equal, ok := applyEquals(elem, operand); ok && equal {
				return true, true
			}
		}
		return false, true

	case []string:
		needle, ok := operand.(string)
		if !ok {
			return false, false
		}
		for _, elem := range av {
			if elem == needle {
				return true, true
			}
		}
		return false, true

	default:
		return false, false
	}
}

// applyIn checks membership of the field value in a list operand.
func applyIn(actual, operand any) (bool, bool) {
	switch set := operand.(type) {
	case []any:
		for _, elem := range set {
			if equal, ok := applyEquals(actual, elem); ok && equal {
				return true, true
			}
		}
		return false, true

	case []string:
		needle, ok := actual.(string)
		if !ok {
			return false, false
		}
		for _, elem := range set {
			if elem == needle {
				return true, true
			}
		}
		return false, true

	default:
		return false, false
	}
}

// applyMatches evaluates a regex pattern operand against a string field.
// An invalid pattern fails the leaf rather than erroring; the validator
// rejects bad patterns at write time, this only guards drifted storage.
func applyMatches(actual, operand any) (bool, bool) {
	str, ok := actual.(string)
	if !ok {
		return false, false
	}
	pattern, ok := operand.(string)
	if !ok {
		return false, false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, false
	}
	return re.MatchString(str), true
}

// applyWithinRange checks min <= actual <= max for a [min, max] operand.
func applyWithinRange(actual, operand any) (bool, bool) {
	bounds, ok := operand.([]any)
	if !ok || len(bounds) != 2 {
		return false, false
	}
	v, vok := toFloat64(actual)
	min, minok := toFloat64(bounds[0])
	max, maxok := toFloat64(bounds[1])
	if !vok || !minok || !maxok {
		return false, false
	}
	return v >= min && v <= max, true
}

// bothNumeric coerces both sides to float64 for ordered comparison.
func bothNumeric(actual, operand any) (float64, float64, bool) {
	a, aok := toFloat64(actual)
	b, bok := toFloat64(operand)
	return a, b, aok && bok
}

// toFloat64 coerces the numeric types that survive JSON/YAML decoding and
// native Go event producers.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
