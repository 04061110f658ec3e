package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/solatis/ordergate/internal/types"
)

// MemoryStore is an in-process RuleRepository and RecordContextResolver.
// Reads return deep copies, so a snapshot handed to the engine is never
// changed by later writes.
type MemoryStore struct {
	mu       sync.RWMutex
	sets     map[types.RuleSetID]*RuleSetDoc
	rulesets []types.RuleSetID // insertion order
	records  Records
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sets:    make(map[types.RuleSetID]*RuleSetDoc),
		records: make(Records),
	}
}

// PutRuleSet creates or replaces a rule set.
func (s *MemoryStore) PutRuleSet(doc RuleSetDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := RuleSetDoc{ID: doc.ID, Name: doc.Name, Rules: make([]types.Rule, 0, len(doc.Rules))}
	for _, r := range doc.Rules {
		r.RuleSetID = doc.ID
		stored.Rules = append(stored.Rules, cloneRule(r))
	}
	if _, ok := s.sets[doc.ID]; !ok {
		s.rulesets = append(s.rulesets, doc.ID)
	}
	s.sets[doc.ID] = &stored
}

// AddRule appends a rule to an existing rule set.
func (s *MemoryStore) AddRule(ruleSetID types.RuleSetID, rule types.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.sets[ruleSetID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrRuleSetNotFound, ruleSetID)
	}
	rule.RuleSetID = ruleSetID
	set.Rules = append(set.Rules, cloneRule(rule))
	return nil
}

// DeactivateRule soft-deletes a rule. Returns false if no rule has that id.
func (s *MemoryStore) DeactivateRule(id types.RuleID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, set := range s.sets {
		for i := range set.Rules {
			if set.Rules[i].ID == id {
				set.Rules[i].Active = false
				return true
			}
		}
	}
	return false
}

// RuleSets returns the stored rule set ids in insertion order.
func (s *MemoryStore) RuleSets() []types.RuleSetID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.RuleSetID(nil), s.rulesets...)
}

// ListActiveRules returns copies of the active rules in insertion order.
func (s *MemoryStore) ListActiveRules(_ context.Context, ruleSetID types.RuleSetID) ([]types.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[ruleSetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrRuleSetNotFound, ruleSetID)
	}

	var out []types.Rule
	for _, r := range set.Rules {
		if r.Active {
			out = append(out, cloneRule(r))
		}
	}
	return out, nil
}

// PutRecord stores the field values of one entity.
func (s *MemoryStore) PutRecord(relation, entityID string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[relation] == nil {
		s.records[relation] = make(map[string]map[string]any)
	}
	s.records[relation][entityID] = cloneMap(fields)
}

// PutRecords stores every record of recs.
func (s *MemoryStore) PutRecords(recs Records) {
	for relation, byID := range recs {
		for id, fields := range byID {
			s.PutRecord(relation, id, fields)
		}
	}
}

// ResolveContext returns copies of the records named by ids.
func (s *MemoryStore) ResolveContext(_ context.Context, ids types.EntityIDs) (types.RecordContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return resolveFrom(s.records, ids), nil
}
