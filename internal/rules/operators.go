// internal/rules/operators.go
package rules

import (
	"strings"

	"github.com/solatis/ordergate/internal/types"
)

/*
 * Operator comparison logic.
 *
 * Values reach Compare already coerced to the field's type, so each operator
 * only has to handle same-kind FieldValues. Mixed kinds never match.
 *
 * Operators:
 *   - equals/not_equals: typed equality (text case-insensitive, trimmed)
 *   - greater_than/less_than: numeric or chronological ordering
 *   - contains: case-insensitive substring on the text representation
 *   - in: membership using the same equality as equals
 *
 * Which operator applies to which type is decided at compile time by the
 * compatibility table; Compare itself is total and returns false for pairs
 * it cannot order.
 */

// compatibility is the operator table per value type.
var compatibility = map[types.ValueType]map[types.Operator]bool{
	types.ValueText: {
		types.OpEquals: true, types.OpNotEquals: true, types.OpContains: true, types.OpIn: true,
	},
	types.ValueNumber: {
		types.OpEquals: true, types.OpNotEquals: true, types.OpGreaterThan: true, types.OpLessThan: true, types.OpIn: true,
	},
	types.ValueDate: {
		types.OpEquals: true, types.OpNotEquals: true, types.OpGreaterThan: true, types.OpLessThan: true,
	},
	types.ValueEnumerated: {
		types.OpEquals: true, types.OpNotEquals: true, types.OpIn: true,
	},
}

// OperatorAllowed reports whether op may be applied to fields of type vt.
func OperatorAllowed(vt types.ValueType, op types.Operator) bool {
	return compatibility[vt][op]
}

// AllowedOperators returns the operators valid for vt in display order.
func AllowedOperators(vt types.ValueType) []types.Operator {
	var ops []types.Operator
	for _, op := range types.Operators {
		if OperatorAllowed(vt, op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// Compare applies op to value. For in, targets is the member list; every
// other operator compares against targets[0].
func Compare(op types.Operator, value FieldValue, targets ...FieldValue) bool {
	if len(targets) == 0 {
		return false
	}
	target := targets[0]

	switch op {
	case types.OpEquals:
		return equal(value, target)
	case types.OpNotEquals:
		return !equal(value, target)
	case types.OpGreaterThan:
		c, ok := order(value, target)
		return ok && c > 0
	case types.OpLessThan:
		c, ok := order(value, target)
		return ok && c < 0
	case types.OpContains:
		return strings.Contains(strings.ToLower(value.String()), strings.ToLower(target.String()))
	case types.OpIn:
		for _, member := range targets {
			if equal(value, member) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// equal is typed equality. Number compares by value (25 == 25.0), Date by
// instant, Text case-insensitively after trimming, Enumerated exactly after
// trimming.
func equal(a, b FieldValue) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case types.ValueNumber:
		return a.num.Equal(b.num)
	case types.ValueDate:
		return a.date.Equal(b.date)
	case types.ValueText:
		return strings.EqualFold(strings.TrimSpace(a.text), strings.TrimSpace(b.text))
	case types.ValueEnumerated:
		return strings.TrimSpace(a.text) == strings.TrimSpace(b.text)
	default:
		return false
	}
}

// order performs three-way comparison (-1/0/1) for orderable kinds.
func order(a, b FieldValue) (int, bool) {
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case types.ValueNumber:
		return a.num.Cmp(b.num), true
	case types.ValueDate:
		return a.date.Compare(b.date), true
	default:
		return 0, false
	}
}
