// Package store provides the rule repositories and record context resolvers
// the engine reads from: SQL (sqlite/postgres), in-memory, and YAML files.
package store

import (
	"slices"

	"github.com/solatis/ordergate/internal/types"
)

// RuleSetDoc is a rule set with its rules in insertion order.
type RuleSetDoc struct {
	ID    types.RuleSetID `json:"id" yaml:"id"`
	Name  string          `json:"name" yaml:"name"`
	Rules []types.Rule    `json:"rules" yaml:"rules"`
}

// Records maps relation -> entity id -> field values.
type Records map[string]map[string]map[string]any

// cloneRule returns a copy sharing no mutable state with r.
func cloneRule(r types.Rule) types.Rule {
	r.Conditions = slices.Clone(r.Conditions)
	if r.Action != nil {
		r.Action = types.Action(cloneMap(r.Action))
	}
	return r
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case types.Action:
		return types.Action(cloneMap(x))
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	default:
		return v
	}
}

// resolveFrom builds a record context from records for ids. Unknown ids are
// left out, which makes conditions on them evaluate false.
func resolveFrom(records Records, ids types.EntityIDs) types.RecordContext {
	rc := make(types.RecordContext, len(ids))
	for relation, id := range ids {
		rec, ok := records[relation][id]
		if !ok {
			continue
		}
		rc[relation] = cloneMap(rec)
	}
	return rc
}
