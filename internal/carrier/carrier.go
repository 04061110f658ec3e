// Package carrier interprets first-match results as carrier assignments.
package carrier

import (
	"strings"

	"github.com/solatis/ordergate/internal/rules"
	"github.com/solatis/ordergate/internal/types"
)

// Payload keys read from a carrier rule action.
const (
	KeyCarrierID    = "carrier_id"
	KeyServiceLevel = "service_level"
)

// Assignment is the carrier chosen for an order.
type Assignment struct {
	CarrierID    string       `json:"carrierId" yaml:"carrierId"`
	ServiceLevel string       `json:"serviceLevel,omitempty" yaml:"serviceLevel,omitempty"`
	RuleID       types.RuleID `json:"ruleId" yaml:"ruleId"`
	RuleName     string       `json:"ruleName" yaml:"ruleName"`
	Priority     int          `json:"priority" yaml:"priority"`
}

// Assign returns the carrier of the matched rule. It reports false when no
// rule matched or the matched action names no carrier.
func Assign(result rules.FirstMatchResult) (Assignment, bool) {
	if !result.Matched {
		return Assignment{}, false
	}
	id := strings.TrimSpace(result.Match.Action.String(KeyCarrierID))
	if id == "" {
		return Assignment{}, false
	}
	return Assignment{
		CarrierID:    id,
		ServiceLevel: strings.TrimSpace(result.Match.Action.String(KeyServiceLevel)),
		RuleID:       result.Match.RuleID,
		RuleName:     result.Match.Name,
		Priority:     result.Match.Priority,
	}, true
}
