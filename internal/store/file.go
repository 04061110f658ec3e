package store

import (
	"fmt"
	"os"
	"time"

	"github.com/solatis/ordergate/internal/types"
	"gopkg.in/yaml.v3"
)

/*
 * YAML documents for offline tooling and seeding.
 *
 * Rules file:
 *
 *   rule_sets:
 *     - id: carriers
 *       name: Transporteurs
 *       rules:
 *         - name: colis lourds
 *           priority: 1
 *           conditions:
 *             - {relation: Order, field: poids_total, operator: greater_than, value: "20"}
 *           action: {carrier_id: geodis}
 *
 * A rule without an "active" key is active. A rule without an id gets a new
 * UUIDv7.
 *
 * Records file (also accepted as JSON):
 *
 *   Order:
 *     CMD-1: {poids_total: 25, pays_livraison: FR}
 */

type rulesFile struct {
	RuleSets []ruleSetEntry `yaml:"rule_sets"`
}

type ruleSetEntry struct {
	ID    types.RuleSetID `yaml:"id"`
	Name  string          `yaml:"name"`
	Rules []ruleEntry     `yaml:"rules"`
}

type ruleEntry struct {
	ID         types.RuleID      `yaml:"id"`
	Name       string            `yaml:"name"`
	Priority   int               `yaml:"priority"`
	Active     *bool             `yaml:"active"`
	Conditions []types.Condition `yaml:"conditions"`
	Action     types.Action      `yaml:"action"`
}

// LoadRulesFile reads rule sets from a YAML file.
func LoadRulesFile(path string) ([]RuleSetDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	docs, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// ParseRules decodes a rules document.
func ParseRules(data []byte) ([]RuleSetDoc, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	docs := make([]RuleSetDoc, 0, len(file.RuleSets))
	seen := make(map[types.RuleSetID]bool, len(file.RuleSets))
	for i, entry := range file.RuleSets {
		if entry.ID == "" {
			return nil, fmt.Errorf("rule set %d: missing id", i)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("rule set %s: declared twice", entry.ID)
		}
		seen[entry.ID] = true

		doc := RuleSetDoc{ID: entry.ID, Name: entry.Name, Rules: make([]types.Rule, 0, len(entry.Rules))}
		for _, re := range entry.Rules {
			rule := types.Rule{
				ID:         re.ID,
				RuleSetID:  entry.ID,
				Name:       re.Name,
				Priority:   re.Priority,
				Active:     re.Active == nil || *re.Active,
				Conditions: re.Conditions,
				Action:     normalizeAction(re.Action),
			}
			if rule.ID == "" {
				rule.ID = types.NewRuleID()
			}
			doc.Rules = append(doc.Rules, rule)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// LoadRecordsFile reads entity records from a YAML or JSON file.
func LoadRecordsFile(path string) (Records, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}

	var recs Records
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%s: failed to parse records: %w", path, err)
	}
	for _, byID := range recs {
		for id, fields := range byID {
			byID[id] = normalizeMap(fields)
		}
	}
	return recs, nil
}

// LoadContextFile reads a single record context (relation -> fields) from a
// YAML or JSON file.
func LoadContextFile(path string) (types.RecordContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read context file: %w", err)
	}

	var rc types.RecordContext
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("%s: failed to parse context: %w", path, err)
	}
	for relation, fields := range rc {
		rc[relation] = normalizeMap(fields)
	}
	return rc, nil
}

func normalizeAction(a types.Action) types.Action {
	if a == nil {
		return nil
	}
	return types.Action(normalizeMap(a))
}

// normalizeMap rewrites YAML timestamps to RFC 3339 strings so records and
// actions survive a JSON round trip unchanged.
func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		switch x := v.(type) {
		case time.Time:
			m[k] = x.UTC().Format(time.RFC3339Nano)
		case map[string]any:
			m[k] = normalizeMap(x)
		}
	}
	return m
}
