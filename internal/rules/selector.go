// internal/rules/selector.go
package rules

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/solatis/ordergate/internal/types"
)

/*
 * Rule selection.
 *
 * Two strategies over a priority-ordered rule sequence:
 *   - FirstMatch: stop at the first rule whose conditions hold (carrier
 *     assignment, exactly one outcome)
 *   - CollectAll: evaluate every rule and report all matches in priority
 *     order (order validation, several actions may fire together)
 *
 * Severity arbitration between matched validation actions is the caller's
 * job (see internal/validation); selectors only report which rules matched.
 *
 * Both are pure functions of their inputs and safe for concurrent use.
 */

// Match is one matched rule with its declared action.
type Match struct {
	RuleID   types.RuleID `json:"ruleId" yaml:"ruleId"`
	Name     string       `json:"name" yaml:"name"`
	Priority int          `json:"priority" yaml:"priority"`
	Action   types.Action `json:"action,omitempty" yaml:"action,omitempty"`
}

// FirstMatchResult is Matched(rule) or NoMatch (Matched == false).
// MatchedAt is the index of the rule in the ordered sequence.
type FirstMatchResult struct {
	Matched     bool
	Match       Match
	MatchedAt   int
	Warnings    []EvaluationWarning
	Fingerprint string // snapshot the result was computed from, if any
}

// CollectAllResult lists matched rules in priority order. Empty means no
// rule fired.
type CollectAllResult struct {
	Matches     []Match
	Warnings    []EvaluationWarning
	Fingerprint string
}

// FirstMatch returns the first rule in order whose conditions evaluate true.
func FirstMatch(rules []*CompiledRule, ctx types.RecordContext) FirstMatchResult {
	result := FirstMatchResult{MatchedAt: -1}
	for i, rule := range rules {
		ev := EvaluateRule(rule, ctx)
		result.Warnings = append(result.Warnings, ev.Warnings...)
		if ev.Matched {
			result.Matched = true
			result.Match = matchOf(rule)
			result.MatchedAt = i
			return result
		}
	}
	return result
}

// CollectAll evaluates every rule independently and returns all matches.
func CollectAll(rules []*CompiledRule, ctx types.RecordContext) CollectAllResult {
	var result CollectAllResult
	for _, rule := range rules {
		ev := EvaluateRule(rule, ctx)
		result.Warnings = append(result.Warnings, ev.Warnings...)
		if ev.Matched {
			result.Matches = append(result.Matches, matchOf(rule))
		}
	}
	return result
}

func matchOf(rule *CompiledRule) Match {
	return Match{RuleID: rule.RuleID, Name: rule.Name, Priority: rule.Priority, Action: rule.Action}
}

// SortRules orders rules by ascending priority. Stable: equal priorities
// keep insertion order.
func SortRules(rules []*CompiledRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
}

// RuleSet is an immutable, compiled snapshot of one rule set's active rules.
type RuleSet struct {
	ID          types.RuleSetID
	Rules       []*CompiledRule       // active, valid, priority ordered
	Excluded    []*ConfigurationError // rules dropped at compile time
	Fingerprint string                // xxhash64 of the source rules
}

// NewRuleSet compiles rules in their given (insertion) order. Inactive rules
// are skipped; invalid rules are reported in Excluded and skipped.
func NewRuleSet(id types.RuleSetID, resolver FieldResolver, rules []types.Rule) *RuleSet {
	set := &RuleSet{ID: id, Fingerprint: fingerprint(rules)}
	for i := range rules {
		if !rules[i].Active {
			continue
		}
		compiled, err := Compile(&rules[i], resolver)
		if err != nil {
			set.Excluded = append(set.Excluded, err.(*ConfigurationError))
			continue
		}
		set.Rules = append(set.Rules, compiled)
	}
	SortRules(set.Rules)
	return set
}

// FirstMatch applies the first-match strategy to the snapshot.
func (s *RuleSet) FirstMatch(ctx types.RecordContext) FirstMatchResult {
	result := FirstMatch(s.Rules, ctx)
	result.Fingerprint = s.Fingerprint
	return result
}

// CollectAll applies the collect-all strategy to the snapshot.
func (s *RuleSet) CollectAll(ctx types.RecordContext) CollectAllResult {
	result := CollectAll(s.Rules, ctx)
	result.Fingerprint = s.Fingerprint
	return result
}

// fingerprint is content-addressable: the same rules in the same order
// always produce the same value.
func fingerprint(rules []types.Rule) string {
	blob, err := json.Marshal(rules)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(blob))
}
