// Package types provides domain models shared across ordergate components.
//
// Wire-format agnostic: the gRPC boundary and the SQL store convert to and
// from these types. Only ids.go pulls a third-party dependency (uuid).
package types

import (
	"fmt"
	"strings"
)

// RuleID represents a UUIDv7 rule identifier.
type RuleID string

// RuleSetID identifies a group of rules evaluated together (e.g. the carrier
// assignment rules of one warehouse, or the order validation rules).
type RuleSetID string

// ValueType is the declared type of a schema field.
type ValueType string

const (
	ValueText       ValueType = "text"
	ValueNumber     ValueType = "number"
	ValueDate       ValueType = "date"
	ValueEnumerated ValueType = "enumerated"
)

// ParseValueType accepts the canonical names plus "select", which the rule
// editor uses for enumerated fields.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string":
		return ValueText, nil
	case "number", "numeric":
		return ValueNumber, nil
	case "date", "datetime":
		return ValueDate, nil
	case "enumerated", "select", "enum":
		return ValueEnumerated, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownValueType, s)
	}
}

// Operator is a comparison applied by a single condition.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpIn          Operator = "in"
)

// Operators lists every supported operator in display order.
var Operators = []Operator{OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpContains, OpIn}

// ParseOperator normalizes operator spellings coming from stored rules.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equals", "=", "==", "eq":
		return OpEquals, nil
	case "not_equals", "!=", "<>", "neq":
		return OpNotEquals, nil
	case "greater_than", ">", "gt":
		return OpGreaterThan, nil
	case "less_than", "<", "lt":
		return OpLessThan, nil
	case "contains", "contient":
		return OpContains, nil
	case "in", "in_list", "dans":
		return OpIn, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}
}

// LogicalOperator joins a condition to the accumulated result of the
// conditions before it. The zero value means "none" and is only legal on the
// first condition of a list.
type LogicalOperator string

const (
	LogicalNone LogicalOperator = ""
	LogicalAnd  LogicalOperator = "AND"
	LogicalOr   LogicalOperator = "OR"
)

// ParseLogicalOperator accepts AND/OR in any case plus the French ET/OU.
func ParseLogicalOperator(s string) (LogicalOperator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return LogicalNone, nil
	case "AND", "ET", "&&":
		return LogicalAnd, nil
	case "OR", "OU", "||":
		return LogicalOr, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownLogicalOperator, s)
	}
}

// RecordContext maps a relation name to the raw field values of the record
// under test. Built fresh for every evaluation call.
type RecordContext map[string]map[string]any

// EntityIDs maps a relation name to the id of the record to load for it.
type EntityIDs map[string]string
