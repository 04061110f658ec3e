package types

import "errors"

// Sentinel errors for ordergate operations.
var (
	// ErrUnknownRelation indicates a relation name missing from the schema registry.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrUnknownField indicates a field key missing from its relation.
	ErrUnknownField = errors.New("unknown field")

	// ErrDuplicateFieldKey indicates two fields of one relation share a key.
	ErrDuplicateFieldKey = errors.New("duplicate field key")

	// ErrUnknownValueType indicates an unrecognized field value type.
	ErrUnknownValueType = errors.New("unknown value type")

	// ErrUnknownOperator indicates an unrecognized operator spelling.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrUnknownLogicalOperator indicates a logical operator other than AND/OR.
	ErrUnknownLogicalOperator = errors.New("unknown logical operator")

	// ErrInvalidOperator indicates an operator incompatible with the field type.
	ErrInvalidOperator = errors.New("invalid operator for field type")

	// ErrInvalidOptionValue indicates a value outside an enumerated field's options.
	ErrInvalidOptionValue = errors.New("value is not a declared option")

	// ErrInvalidConditionValue indicates a condition value that cannot be
	// coerced to the field type.
	ErrInvalidConditionValue = errors.New("condition value does not match field type")

	// ErrEmptyConditions indicates a rule or condition list with no conditions.
	ErrEmptyConditions = errors.New("condition list is empty")

	// ErrMissingLogicalOperator indicates a non-first condition without AND/OR.
	ErrMissingLogicalOperator = errors.New("condition is missing its logical operator")

	// ErrUnexpectedLogicalOperator indicates a first condition carrying AND/OR.
	ErrUnexpectedLogicalOperator = errors.New("first condition cannot have a logical operator")

	// ErrCoercionFailed indicates type coercion failed.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrRuleSetNotFound indicates a rule set id with no stored rule set.
	ErrRuleSetNotFound = errors.New("rule set not found")
)
