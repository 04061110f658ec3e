// Package validation arbitrates the actions of matched order-validation rules.
package validation

import (
	"strings"

	"github.com/solatis/ordergate/internal/rules"
)

/*
 * Severity arbitration for collect-all results.
 *
 * Validation rules declare an action payload of the form
 *
 *   {"type": "bloquer", "message": "..."}
 *
 * Several rules may fire for the same order. The selector reports all of them
 * in priority order; this package decides what the caller does with them:
 *
 *   bloquer            order is refused
 *   exiger_validation  order waits for manual approval
 *   alerter            order proceeds, messages are shown
 *
 * The severity table is explicit. Ranking never depends on string order.
 */

// Severity ranks validation action types. Zero means no constraint.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityAlert
	SeverityRequireApproval
	SeverityBlock
)

// Action type names as stored in rule payloads.
const (
	ActionAlert           = "alerter"
	ActionRequireApproval = "exiger_validation"
	ActionBlock           = "bloquer"
)

// Payload keys read from a rule action.
const (
	KeyType    = "type"
	KeyMessage = "message"
)

var severities = map[string]Severity{
	ActionAlert:           SeverityAlert,
	ActionRequireApproval: SeverityRequireApproval,
	ActionBlock:           SeverityBlock,
}

// SeverityOf returns the severity of an action type, or SeverityNone for
// unknown types.
func SeverityOf(actionType string) Severity {
	return severities[strings.ToLower(strings.TrimSpace(actionType))]
}

func (s Severity) String() string {
	switch s {
	case SeverityAlert:
		return ActionAlert
	case SeverityRequireApproval:
		return ActionRequireApproval
	case SeverityBlock:
		return ActionBlock
	default:
		return "none"
	}
}

// MarshalText encodes the severity by its action type name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Message is one fired validation rule.
type Message struct {
	RuleID   string   `json:"ruleId" yaml:"ruleId"`
	RuleName string   `json:"ruleName" yaml:"ruleName"`
	Severity Severity `json:"severity" yaml:"severity"`
	Text     string   `json:"text" yaml:"text"`
}

// Decision is the arbitrated outcome of all matched validation rules.
type Decision struct {
	Severity         Severity  `json:"severity" yaml:"severity"`
	Blocked          bool      `json:"blocked" yaml:"blocked"`
	RequiresApproval bool      `json:"requiresApproval" yaml:"requiresApproval"`
	DecidedBy        string    `json:"decidedBy,omitempty" yaml:"decidedBy,omitempty"` // first rule at the winning severity
	Messages         []Message `json:"messages,omitempty" yaml:"messages,omitempty"`   // priority order
}

// Decide picks the highest severity among the matches. Ties go to the
// earliest match, so the best-priority rule explains the decision.
func Decide(result rules.CollectAllResult) Decision {
	var d Decision
	for _, m := range result.Matches {
		sev := SeverityOf(m.Action.String(KeyType))
		if sev == SeverityNone {
			continue
		}

		text := m.Action.String(KeyMessage)
		if text == "" {
			text = m.Name
		}
		d.Messages = append(d.Messages, Message{
			RuleID:   string(m.RuleID),
			RuleName: m.Name,
			Severity: sev,
			Text:     text,
		})

		if sev > d.Severity {
			d.Severity = sev
			d.DecidedBy = string(m.RuleID)
		}
	}

	d.Blocked = d.Severity == SeverityBlock
	d.RequiresApproval = d.Severity == SeverityRequireApproval
	return d
}
