// internal/types/rules.go
package types

/*
 * Domain types for condition evaluation.
 *
 * A rule is a flat, ordered list of comparisons chained pairwise by AND/OR.
 * There is no grouping: the list is folded strictly left to right, which is
 * the semantics rule authors see in the editor.
 *
 * Key types:
 *   - Condition: one comparison of relation.field against a raw string value
 *   - Rule: ordered conditions plus priority, active flag, and action payload
 *   - Action: opaque payload interpreted by the consumer (carrier, validation)
 */

// Condition is a single comparison. Value is kept raw and coerced to the
// field's declared type at compile time.
type Condition struct {
	Relation        string          `json:"relation" yaml:"relation"`
	Field           string          `json:"field" yaml:"field"`
	Operator        Operator        `json:"operator" yaml:"operator"`
	Value           string          `json:"value" yaml:"value"`
	LogicalOperator LogicalOperator `json:"logicalOperator,omitempty" yaml:"logicalOperator,omitempty"`
}

// Action is the consumer-defined outcome of a rule, e.g.
// {"carrier_id": "colissimo"} or {"type": "bloquer", "message": "..."}.
type Action map[string]any

// String returns the string value stored under key, or "".
func (a Action) String(key string) string {
	if a == nil {
		return ""
	}
	s, _ := a[key].(string)
	return s
}

// Rule wraps an ordered condition list with selection metadata.
// Lower Priority evaluates first; equal priorities keep insertion order.
type Rule struct {
	ID         RuleID      `json:"id" yaml:"id"`
	RuleSetID  RuleSetID   `json:"ruleSetId,omitempty" yaml:"ruleSetId,omitempty"`
	Name       string      `json:"name" yaml:"name"`
	Priority   int         `json:"priority" yaml:"priority"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
	Active     bool        `json:"active" yaml:"active"`
	Action     Action      `json:"action,omitempty" yaml:"action,omitempty"`
}
