package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/solatis/ordergate/internal/core/db"
	"github.com/solatis/ordergate/internal/types"
)

/*
 * SQL persistence.
 *
 * Rules keep their insertion order in a per-rule-set seq column so the
 * engine can break priority ties the way rules were authored. Conditions and
 * action payloads are stored as JSON documents; records are stored as one JSON
 * object per (relation, entity id).
 *
 * Rules are never hard-deleted. DeactivateRule flips the active flag and
 * ListActiveRules filters on it.
 */

// SQLRuleRepository stores rule sets and rules.
type SQLRuleRepository struct {
	q   *db.Queries
	now func() time.Time
}

// NewSQLRuleRepository creates a repository over loaded queries.
func NewSQLRuleRepository(q *db.Queries) *SQLRuleRepository {
	return &SQLRuleRepository{q: q, now: func() time.Time { return time.Now().UTC() }}
}

type ruleRow struct {
	ID         string `db:"rule_id"`
	RuleSetID  string `db:"rule_set_id"`
	Name       string `db:"name"`
	Priority   int    `db:"priority"`
	Active     bool   `db:"active"`
	Conditions []byte `db:"conditions"`
	Action     []byte `db:"action"`
}

type ruleSetRow struct {
	ID   string `db:"rule_set_id"`
	Name string `db:"name"`
}

// CreateRuleSet inserts an empty rule set. An empty id gets a new UUIDv7.
func (r *SQLRuleRepository) CreateRuleSet(ctx context.Context, id types.RuleSetID, name string) (types.RuleSetID, error) {
	if id == "" {
		id = types.NewRuleSetID()
	}
	if _, err := r.q.Exec(ctx, "insert-rule-set", string(id), name, r.now()); err != nil {
		return "", fmt.Errorf("failed to create rule set %s: %w", id, err)
	}
	return id, nil
}

// AddRule appends a rule at the end of its rule set. An empty id gets a new
// UUIDv7. The stored rule is returned.
func (r *SQLRuleRepository) AddRule(ctx context.Context, rule types.Rule) (types.Rule, error) {
	err := r.q.InTx(ctx, func(tx *db.Queries) error {
		var err error
		rule, err = r.insertRule(ctx, tx, rule)
		return err
	})
	return rule, err
}

// ImportRuleSet stores a rule set and its rules in one transaction, keeping
// the document order as insertion order.
func (r *SQLRuleRepository) ImportRuleSet(ctx context.Context, doc RuleSetDoc) (types.RuleSetID, error) {
	if doc.ID == "" {
		doc.ID = types.NewRuleSetID()
	}
	err := r.q.InTx(ctx, func(tx *db.Queries) error {
		if _, err := tx.Exec(ctx, "insert-rule-set", string(doc.ID), doc.Name, r.now()); err != nil {
			return fmt.Errorf("failed to create rule set %s: %w", doc.ID, err)
		}
		for _, rule := range doc.Rules {
			rule.RuleSetID = doc.ID
			if _, err := r.insertRule(ctx, tx, rule); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (r *SQLRuleRepository) insertRule(ctx context.Context, tx *db.Queries, rule types.Rule) (types.Rule, error) {
	if rule.ID == "" {
		rule.ID = types.NewRuleID()
	}

	var set ruleSetRow
	if err := tx.Get(ctx, "get-rule-set", &set, string(rule.RuleSetID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rule, fmt.Errorf("%w: %s", types.ErrRuleSetNotFound, rule.RuleSetID)
		}
		return rule, fmt.Errorf("failed to load rule set %s: %w", rule.RuleSetID, err)
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return rule, fmt.Errorf("failed to encode conditions of rule %s: %w", rule.ID, err)
	}
	action, err := json.Marshal(rule.Action)
	if err != nil {
		return rule, fmt.Errorf("failed to encode action of rule %s: %w", rule.ID, err)
	}
	if rule.Action == nil {
		action = []byte("{}")
	}

	var seq int
	if err := tx.Get(ctx, "next-rule-seq", &seq, string(rule.RuleSetID)); err != nil {
		return rule, fmt.Errorf("failed to allocate rule position: %w", err)
	}

	_, err = tx.Exec(ctx, "insert-rule",
		string(rule.ID), string(rule.RuleSetID), rule.Name, rule.Priority, rule.Active,
		string(conditions), string(action), seq, r.now())
	if err != nil {
		return rule, fmt.Errorf("failed to insert rule %s: %w", rule.ID, err)
	}
	return rule, nil
}

// DeactivateRule soft-deletes a rule.
func (r *SQLRuleRepository) DeactivateRule(ctx context.Context, id types.RuleID) error {
	res, err := r.q.Exec(ctx, "deactivate-rule", false, string(id))
	if err != nil {
		return fmt.Errorf("failed to deactivate rule %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("rule %s not found", id)
	}
	return nil
}

// ListRuleSets returns every rule set without its rules.
func (r *SQLRuleRepository) ListRuleSets(ctx context.Context) ([]RuleSetDoc, error) {
	var rows []ruleSetRow
	if err := r.q.Select(ctx, "list-rule-sets", &rows); err != nil {
		return nil, fmt.Errorf("failed to list rule sets: %w", err)
	}
	out := make([]RuleSetDoc, 0, len(rows))
	for _, row := range rows {
		out = append(out, RuleSetDoc{ID: types.RuleSetID(row.ID), Name: row.Name})
	}
	return out, nil
}

// ListActiveRules returns the active rules ordered by priority then
// insertion order.
func (r *SQLRuleRepository) ListActiveRules(ctx context.Context, ruleSetID types.RuleSetID) ([]types.Rule, error) {
	var set ruleSetRow
	if err := r.q.Get(ctx, "get-rule-set", &set, string(ruleSetID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", types.ErrRuleSetNotFound, ruleSetID)
		}
		return nil, fmt.Errorf("failed to load rule set %s: %w", ruleSetID, err)
	}

	var rows []ruleRow
	if err := r.q.Select(ctx, "list-active-rules", &rows, string(ruleSetID), true); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	rules := make([]types.Rule, 0, len(rows))
	for _, row := range rows {
		rule := types.Rule{
			ID:        types.RuleID(row.ID),
			RuleSetID: types.RuleSetID(row.RuleSetID),
			Name:      row.Name,
			Priority:  row.Priority,
			Active:    row.Active,
		}
		// Undecodable conditions leave the list empty; compilation then
		// excludes the rule instead of failing the whole rule set.
		if err := json.Unmarshal(row.Conditions, &rule.Conditions); err != nil {
			rule.Conditions = nil
		}
		if err := decodeJSON(row.Action, &rule.Action); err != nil {
			rule.Action = nil
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// SQLContextResolver loads records stored as JSON documents.
type SQLContextResolver struct {
	q *db.Queries
}

// NewSQLContextResolver creates a resolver over loaded queries.
func NewSQLContextResolver(q *db.Queries) *SQLContextResolver {
	return &SQLContextResolver{q: q}
}

// PutRecord creates or replaces the field values of one entity.
func (r *SQLContextResolver) PutRecord(ctx context.Context, relation, entityID string, fields map[string]any) error {
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", relation, entityID, err)
	}
	if _, err := r.q.Exec(ctx, "upsert-record", relation, entityID, string(blob)); err != nil {
		return fmt.Errorf("failed to store %s %s: %w", relation, entityID, err)
	}
	return nil
}

// PutRecords stores every record of recs in one transaction.
func (r *SQLContextResolver) PutRecords(ctx context.Context, recs Records) error {
	return r.q.InTx(ctx, func(tx *db.Queries) error {
		txr := &SQLContextResolver{q: tx}
		for relation, byID := range recs {
			for id, fields := range byID {
				if err := txr.PutRecord(ctx, relation, id, fields); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ResolveContext loads one record per relation. Unknown ids are left out.
func (r *SQLContextResolver) ResolveContext(ctx context.Context, ids types.EntityIDs) (types.RecordContext, error) {
	rc := make(types.RecordContext, len(ids))
	for relation, id := range ids {
		var blob []byte
		err := r.q.Get(ctx, "get-record", &blob, relation, id)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load %s %s: %w", relation, id, err)
		}

		var fields map[string]any
		if err := decodeJSON(blob, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode %s %s: %w", relation, id, err)
		}
		rc[relation] = fields
	}
	return rc, nil
}

// decodeJSON keeps numbers as json.Number so decimal values survive intact.
func decodeJSON[T any](blob []byte, dest *T) error {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	return dec.Decode(dest)
}
