// internal/rules/engine.go
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/solatis/ordergate/internal/telemetry"
	"github.com/solatis/ordergate/internal/types"
	"github.com/sourcegraph/conc/pool"
)

/*
 * Engine wires the pure selectors to their collaborators.
 *
 * Evaluation pass:
 *   1. Snapshot: list active rules once, compile, report configuration errors
 *   2. Resolve the record context (all I/O happens here, before evaluation)
 *   3. Select (first-match or collect-all) over the immutable snapshot
 *
 * Only collaborator I/O can fail. Selection itself always returns a
 * well-formed result, so a malformed rule never fails a business operation.
 *
 * Configuration errors are reported once per (snapshot fingerprint, rule):
 * reloading an unchanged rule set does not repeat them, editing the rule set
 * produces a new fingerprint and reports again.
 */

// RuleRepository lists the active rules of a rule set in insertion order.
// Implementations must return a snapshot the caller may keep for the whole
// evaluation pass; later edits must not mutate it.
type RuleRepository interface {
	ListActiveRules(ctx context.Context, ruleSetID types.RuleSetID) ([]types.Rule, error)
}

// RecordContextResolver loads the records under test.
type RecordContextResolver interface {
	ResolveContext(ctx context.Context, ids types.EntityIDs) (types.RecordContext, error)
}

// ConfigurationReporter receives rules excluded at load time.
type ConfigurationReporter interface {
	ReportConfigurationError(ctx context.Context, ruleSetID types.RuleSetID, err *ConfigurationError)
}

// DefaultMaxConcurrency bounds CollectAllBatch when no option is given.
const DefaultMaxConcurrency = 8

// Engine evaluates rule sets loaded from a RuleRepository.
type Engine struct {
	resolver       FieldResolver
	repo           RuleRepository
	contexts       RecordContextResolver
	reporter       ConfigurationReporter
	logger         *slog.Logger
	metrics        *telemetry.Metrics
	maxConcurrency int

	reported sync.Map // fingerprint + rule id -> struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithMetrics sets the prometheus collectors.
func WithMetrics(m *telemetry.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithReporter replaces the default log-based configuration reporter.
func WithReporter(r ConfigurationReporter) Option { return func(e *Engine) { e.reporter = r } }

// WithMaxConcurrency bounds the goroutines used by CollectAllBatch.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// NewEngine creates an engine with its collaborators.
func NewEngine(resolver FieldResolver, repo RuleRepository, contexts RecordContextResolver, opts ...Option) (*Engine, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	if repo == nil {
		return nil, fmt.Errorf("repo cannot be nil")
	}
	if contexts == nil {
		return nil, fmt.Errorf("contexts cannot be nil")
	}

	e := &Engine{
		resolver:       resolver,
		repo:           repo,
		contexts:       contexts,
		logger:         telemetry.Discard(),
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.reporter == nil {
		e.reporter = logReporter{logger: e.logger}
	}
	return e, nil
}

// Snapshot loads and compiles the active rules of a rule set.
func (e *Engine) Snapshot(ctx context.Context, ruleSetID types.RuleSetID) (*RuleSet, error) {
	rules, err := e.repo.ListActiveRules(ctx, ruleSetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules for %s: %w", ruleSetID, err)
	}

	set := NewRuleSet(ruleSetID, e.resolver, rules)
	for _, cfgErr := range set.Excluded {
		key := set.Fingerprint + ":" + string(cfgErr.RuleID)
		if _, seen := e.reported.LoadOrStore(key, struct{}{}); seen {
			continue
		}
		e.metrics.ConfigurationError()
		e.reporter.ReportConfigurationError(ctx, ruleSetID, cfgErr)
	}
	e.metrics.SetSnapshotRules(len(set.Rules))

	e.logger.Debug("rule set loaded",
		"rule_set_id", ruleSetID,
		"rules", len(set.Rules),
		"excluded", len(set.Excluded),
		"fingerprint", set.Fingerprint)
	return set, nil
}

// SelectFirstMatch loads a snapshot and the records for ids, then applies
// first-match selection.
func (e *Engine) SelectFirstMatch(ctx context.Context, ruleSetID types.RuleSetID, ids types.EntityIDs) (FirstMatchResult, error) {
	set, err := e.Snapshot(ctx, ruleSetID)
	if err != nil {
		return FirstMatchResult{MatchedAt: -1}, err
	}
	rc, err := e.contexts.ResolveContext(ctx, ids)
	if err != nil {
		return FirstMatchResult{MatchedAt: -1}, fmt.Errorf("failed to resolve record context: %w", err)
	}
	return e.FirstMatchContext(set, rc), nil
}

// FirstMatchContext applies first-match selection to an already resolved
// record context.
func (e *Engine) FirstMatchContext(set *RuleSet, rc types.RecordContext) FirstMatchResult {
	result := set.FirstMatch(rc)
	matches := 0
	if result.Matched {
		matches = 1
	}
	e.observe(telemetry.StrategyFirstMatch, set.ID, matches, result.Warnings)
	return result
}

// CollectAllMatches loads a snapshot and the records for ids, then applies
// collect-all selection.
func (e *Engine) CollectAllMatches(ctx context.Context, ruleSetID types.RuleSetID, ids types.EntityIDs) (CollectAllResult, error) {
	set, err := e.Snapshot(ctx, ruleSetID)
	if err != nil {
		return CollectAllResult{}, err
	}
	rc, err := e.contexts.ResolveContext(ctx, ids)
	if err != nil {
		return CollectAllResult{}, fmt.Errorf("failed to resolve record context: %w", err)
	}
	return e.CollectAllContext(set, rc), nil
}

// CollectAllContext applies collect-all selection to an already resolved
// record context.
func (e *Engine) CollectAllContext(set *RuleSet, rc types.RecordContext) CollectAllResult {
	result := set.CollectAll(rc)
	e.observe(telemetry.StrategyCollectAll, set.ID, len(result.Matches), result.Warnings)
	return result
}

// BatchItem is the outcome for one entry of CollectAllBatch. Err is set only
// when the entry's record context could not be resolved.
type BatchItem struct {
	IDs    types.EntityIDs
	Result CollectAllResult
	Err    error
}

// CollectAllBatch evaluates one snapshot against many records in parallel.
// Results are returned in input order. A failure to resolve one entry is
// reported on that entry only; the returned error is for the snapshot load.
func (e *Engine) CollectAllBatch(ctx context.Context, ruleSetID types.RuleSetID, batch []types.EntityIDs) ([]BatchItem, error) {
	set, err := e.Snapshot(ctx, ruleSetID)
	if err != nil {
		return nil, err
	}

	items := make([]BatchItem, len(batch))
	p := pool.New().WithMaxGoroutines(e.maxConcurrency)
	for i, ids := range batch {
		i, ids := i, ids
		p.Go(func() {
			items[i].IDs = ids
			if err := ctx.Err(); err != nil {
				items[i].Err = err
				return
			}
			rc, err := e.contexts.ResolveContext(ctx, ids)
			if err != nil {
				items[i].Err = fmt.Errorf("failed to resolve record context: %w", err)
				return
			}
			items[i].Result = e.CollectAllContext(set, rc)
		})
	}
	p.Wait()
	return items, nil
}

func (e *Engine) observe(strategy string, ruleSetID types.RuleSetID, matches int, warnings []EvaluationWarning) {
	e.metrics.ObserveEvaluation(strategy, matches, len(warnings))
	for _, w := range warnings {
		e.logger.Warn("condition failed closed",
			"rule_set_id", ruleSetID,
			"rule_id", w.RuleID,
			"condition_index", w.ConditionIndex,
			"reason", w.Reason)
	}
}

// logReporter is the default ConfigurationReporter.
type logReporter struct {
	logger *slog.Logger
}

func (r logReporter) ReportConfigurationError(_ context.Context, ruleSetID types.RuleSetID, err *ConfigurationError) {
	r.logger.Error("rule excluded from evaluation",
		"rule_set_id", ruleSetID,
		"rule_id", err.RuleID,
		"rule_name", err.RuleName,
		"condition_index", err.ConditionIndex,
		"error", err.Err)
}
