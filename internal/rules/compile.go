// internal/rules/compile.go
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/ordergate/internal/schema"
	"github.com/solatis/ordergate/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compiles types.Rule to CompiledRule: every condition resolved against the
 * schema registry, its operator checked against the compatibility table and
 * its raw value coerced once to a FieldValue.
 *
 * Compilation workflow:
 *   1. Reject empty condition lists
 *   2. Check the logical operator invariant (first: none, rest: AND/OR)
 *   3. Per condition: relation -> field -> operator -> enumerated options
 *      -> value coercion
 *
 * Why compile-time validation: a malformed rule is a configuration error
 * reported once when rules are loaded. Evaluation assumes compiled input and
 * never re-validates, and a rule that fails here is excluded from selection,
 * which makes it non-matching (fail-closed).
 */

// FieldResolver resolves condition fields. Implemented by *schema.Registry.
type FieldResolver interface {
	ResolveField(relation, field string) (*schema.FieldDescriptor, error)
}

// CompiledCondition is a validated condition ready for evaluation.
type CompiledCondition struct {
	Index    int // position in the source list, reported in warnings
	Relation string
	Field    string
	Type     types.ValueType
	Operator types.Operator
	Logical  types.LogicalOperator
	Value    FieldValue   // comparison value (unused for in)
	Values   []FieldValue // members for the in operator
}

// CompiledRule is fully validated and ready for selection.
type CompiledRule struct {
	RuleID     types.RuleID
	Name       string
	Priority   int
	Action     types.Action
	Conditions []CompiledCondition
}

// ConfigurationError reports why a rule cannot be evaluated.
// ConditionIndex is -1 for rule-level problems such as an empty list.
type ConfigurationError struct {
	RuleID         types.RuleID
	RuleName       string
	ConditionIndex int
	Err            error
}

func (e *ConfigurationError) Error() string {
	if e.ConditionIndex < 0 {
		return fmt.Sprintf("rule %s (%s): %v", e.RuleID, e.RuleName, e.Err)
	}
	return fmt.Sprintf("rule %s (%s) condition %d: %v", e.RuleID, e.RuleName, e.ConditionIndex, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// conditionError carries the failing index out of CompileConditions.
type conditionError struct {
	index int
	err   error
}

func (e *conditionError) Error() string { return fmt.Sprintf("condition %d: %v", e.index, e.err) }
func (e *conditionError) Unwrap() error { return e.err }

// Compile validates and pre-processes a rule. Errors are *ConfigurationError.
func Compile(rule *types.Rule, resolver FieldResolver) (*CompiledRule, error) {
	conds, err := CompileConditions(rule.Conditions, resolver)
	if err != nil {
		cfgErr := &ConfigurationError{RuleID: rule.ID, RuleName: rule.Name, ConditionIndex: -1, Err: err}
		var ce *conditionError
		if errors.As(err, &ce) {
			cfgErr.ConditionIndex = ce.index
			cfgErr.Err = ce.err
		}
		return nil, cfgErr
	}

	return &CompiledRule{
		RuleID:     rule.ID,
		Name:       rule.Name,
		Priority:   rule.Priority,
		Action:     rule.Action,
		Conditions: conds,
	}, nil
}

// CompileConditions validates an ordered condition list, including the
// logical operator invariant, and returns it compiled.
func CompileConditions(conds []types.Condition, resolver FieldResolver) ([]CompiledCondition, error) {
	if len(conds) == 0 {
		return nil, types.ErrEmptyConditions
	}

	out := make([]CompiledCondition, 0, len(conds))
	for i, cond := range conds {
		logical, err := checkLogicalOperator(i, cond.LogicalOperator)
		if err != nil {
			return nil, &conditionError{index: i, err: err}
		}
		cc, err := compileCondition(cond, resolver)
		if err != nil {
			return nil, &conditionError{index: i, err: err}
		}
		cc.Index = i
		cc.Logical = logical
		out = append(out, cc)
	}
	return out, nil
}

func checkLogicalOperator(index int, raw types.LogicalOperator) (types.LogicalOperator, error) {
	logical, err := types.ParseLogicalOperator(string(raw))
	if err != nil {
		return "", err
	}
	if index == 0 && logical != types.LogicalNone {
		return "", types.ErrUnexpectedLogicalOperator
	}
	if index > 0 && logical == types.LogicalNone {
		return "", types.ErrMissingLogicalOperator
	}
	return logical, nil
}

// ValidateCondition checks a single condition against the registry.
// Order: relation, field, operator compatibility, enumerated options, value.
func ValidateCondition(cond types.Condition, resolver FieldResolver) error {
	_, err := compileCondition(cond, resolver)
	return err
}

func compileCondition(cond types.Condition, resolver FieldResolver) (CompiledCondition, error) {
	field, err := resolver.ResolveField(cond.Relation, cond.Field)
	if err != nil {
		return CompiledCondition{}, err
	}

	op, err := types.ParseOperator(string(cond.Operator))
	if err != nil {
		return CompiledCondition{}, fmt.Errorf("%w: %w", types.ErrInvalidOperator, err)
	}
	if !OperatorAllowed(field.Type, op) {
		return CompiledCondition{}, fmt.Errorf("%w: %s on %s field %s.%s", types.ErrInvalidOperator, op, field.Type, cond.Relation, cond.Field)
	}

	cc := CompiledCondition{
		Relation: cond.Relation,
		Field:    cond.Field,
		Type:     field.Type,
		Operator: op,
	}

	raw := []string{cond.Value}
	if op == types.OpIn {
		raw = SplitList(cond.Value)
		if len(raw) == 0 {
			return CompiledCondition{}, fmt.Errorf("%w: in requires at least one value", types.ErrInvalidConditionValue)
		}
	}

	if field.Type == types.ValueEnumerated {
		for _, v := range raw {
			if !field.HasOption(v) {
				return CompiledCondition{}, fmt.Errorf("%w: %q for %s.%s", types.ErrInvalidOptionValue, v, cond.Relation, cond.Field)
			}
		}
	}

	values := make([]FieldValue, 0, len(raw))
	for _, v := range raw {
		fv, err := Coerce(v, field.Type)
		if err != nil {
			return CompiledCondition{}, fmt.Errorf("%w: %w", types.ErrInvalidConditionValue, err)
		}
		values = append(values, fv)
	}

	if op == types.OpIn {
		cc.Values = values
	} else {
		cc.Value = values[0]
	}
	return cc, nil
}

// SplitList splits a comma-separated in value, trimming whitespace and
// dropping empty members.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
