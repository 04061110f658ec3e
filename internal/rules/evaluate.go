// internal/rules/evaluate.go
package rules

import (
	"fmt"

	"github.com/solatis/ordergate/internal/types"
)

/*
 * Condition list evaluation.
 *
 * Reduces a compiled condition list and a record context to one boolean by a
 * strict left-to-right fold with no precedence and no grouping:
 *
 *   result = leaf(c0)
 *   result = result AND leaf(ci)   when ci.Logical == AND
 *   result = result OR  leaf(ci)   when ci.Logical == OR
 *
 * so "A AND B OR C" is (A AND B) OR C. Existing rules were authored against
 * this reading and it must not change.
 *
 * Every leaf is evaluated, even when the fold outcome is already decided, so
 * that all record coercion problems surface as warnings in one pass.
 *
 * Leaf outcomes:
 *   - relation absent, field absent, or null value: false, no warning
 *   - record value not coercible to the field type: false plus warning
 *   - otherwise: Compare(op, record value, condition value)
 */

// EvaluationWarning reports a fail-closed leaf caused by bad record data.
type EvaluationWarning struct {
	RuleID         types.RuleID `json:"ruleId,omitempty" yaml:"ruleId,omitempty"`
	ConditionIndex int          `json:"conditionIndex" yaml:"conditionIndex"`
	Reason         string       `json:"reason" yaml:"reason"`
}

// Evaluation is the outcome of one condition list.
type Evaluation struct {
	Matched  bool
	Warnings []EvaluationWarning
}

// EvaluateConditions folds a compiled condition list over ctx.
// Compiled lists are never empty; an empty list does not match.
func EvaluateConditions(conds []CompiledCondition, ctx types.RecordContext) Evaluation {
	var ev Evaluation
	if len(conds) == 0 {
		return ev
	}

	for i, cond := range conds {
		leaf, warning := evaluateLeaf(cond, ctx)
		if warning != nil {
			ev.Warnings = append(ev.Warnings, *warning)
		}

		if i == 0 {
			ev.Matched = leaf
			continue
		}
		if cond.Logical == types.LogicalAnd {
			ev.Matched = ev.Matched && leaf
		} else {
			ev.Matched = ev.Matched || leaf
		}
	}
	return ev
}

// EvaluateRule evaluates a compiled rule and tags warnings with its id.
func EvaluateRule(rule *CompiledRule, ctx types.RecordContext) Evaluation {
	ev := EvaluateConditions(rule.Conditions, ctx)
	for i := range ev.Warnings {
		ev.Warnings[i].RuleID = rule.RuleID
	}
	return ev
}

// Evaluate validates a raw condition list and evaluates it. Validation
// failures, including an empty list, are returned before any evaluation.
func Evaluate(resolver FieldResolver, conds []types.Condition, ctx types.RecordContext) (Evaluation, error) {
	compiled, err := CompileConditions(conds, resolver)
	if err != nil {
		return Evaluation{}, err
	}
	return EvaluateConditions(compiled, ctx), nil
}

// evaluateLeaf evaluates a single condition against ctx.
// Orchestrates: lookup -> coerce record value -> compare.
func evaluateLeaf(cond CompiledCondition, ctx types.RecordContext) (bool, *EvaluationWarning) {
	record, ok := ctx[cond.Relation]
	if !ok || record == nil {
		return false, nil
	}
	raw, ok := record[cond.Field]
	if !ok {
		return false, nil
	}

	coerced, err := CoerceRecord(raw, cond.Type)
	if err != nil {
		return false, &EvaluationWarning{
			ConditionIndex: cond.Index,
			Reason:         fmt.Sprintf("%s.%s: %v", cond.Relation, cond.Field, err),
		}
	}
	if coerced.IsNull {
		return false, nil
	}

	if cond.Operator == types.OpIn {
		return Compare(cond.Operator, coerced.Value, cond.Values...), nil
	}
	return Compare(cond.Operator, coerced.Value, cond.Value), nil
}
