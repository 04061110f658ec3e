package rules

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/solatis/ordergate/internal/schema"
	"github.com/solatis/ordergate/internal/telemetry"
	"github.com/solatis/ordergate/internal/types"
)

type fakeRepo struct {
	mu    sync.Mutex
	rules map[types.RuleSetID][]types.Rule
	err   error
}

func (r *fakeRepo) ListActiveRules(_ context.Context, id types.RuleSetID) ([]types.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	rules, ok := r.rules[id]
	if !ok {
		return nil, types.ErrRuleSetNotFound
	}
	return append([]types.Rule(nil), rules...), nil
}

// fakeContexts serves one Order record per entity id, keyed by the id's
// "Order" entry.
type fakeContexts struct {
	records map[string]map[string]any
}

func (f fakeContexts) ResolveContext(_ context.Context, ids types.EntityIDs) (types.RecordContext, error) {
	id := ids["Order"]
	rec, ok := f.records[id]
	if !ok {
		return nil, fmt.Errorf("order %q not found", id)
	}
	return types.RecordContext{"Order": rec}, nil
}

type recordingReporter struct {
	mu     sync.Mutex
	errors []*ConfigurationError
}

func (r *recordingReporter) ReportConfigurationError(_ context.Context, _ types.RuleSetID, err *ConfigurationError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func newTestEngine(t *testing.T, repo *fakeRepo, opts ...Option) *Engine {
	t.Helper()
	contexts := fakeContexts{records: map[string]map[string]any{
		"light": {"poids_total": 2},
		"heavy": {"poids_total": 25},
		"bad":   {"poids_total": "abc"},
	}}
	e, err := NewEngine(schema.Builtin(), repo, contexts, opts...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

// gathered sums every sample of the named counter or gauge.
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
	}
	return total
}

func carrierRules() []types.Rule {
	return []types.Rule{
		weightRule("lourd", 1, "20"),
		weightRule("standard", 2, "0"),
	}
}

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	reg := schema.Builtin()
	repo := &fakeRepo{}
	contexts := fakeContexts{}

	if _, err := NewEngine(nil, repo, contexts); err == nil {
		t.Error("expected error for nil resolver")
	}
	if _, err := NewEngine(reg, nil, contexts); err == nil {
		t.Error("expected error for nil repo")
	}
	if _, err := NewEngine(reg, repo, nil); err == nil {
		t.Error("expected error for nil contexts")
	}
}

func TestEngine_SelectFirstMatch(t *testing.T) {
	repo := &fakeRepo{rules: map[types.RuleSetID][]types.Rule{"carriers": carrierRules()}}
	e := newTestEngine(t, repo)
	ctx := context.Background()

	tests := []struct {
		order string
		want  types.RuleID
	}{
		{order: "heavy", want: "lourd"},
		{order: "light", want: "standard"},
	}
	for _, tt := range tests {
		t.Run(tt.order, func(t *testing.T) {
			result, err := e.SelectFirstMatch(ctx, "carriers", types.EntityIDs{"Order": tt.order})
			if err != nil {
				t.Fatalf("SelectFirstMatch() error = %v", err)
			}
			if !result.Matched || result.Match.RuleID != tt.want {
				t.Errorf("SelectFirstMatch() = %+v, want %s", result, tt.want)
			}
		})
	}
}

func TestEngine_CollaboratorErrors(t *testing.T) {
	ctx := context.Background()

	repo := &fakeRepo{rules: map[types.RuleSetID][]types.Rule{"carriers": carrierRules()}}
	e := newTestEngine(t, repo)

	if _, err := e.SelectFirstMatch(ctx, "missing", nil); !errors.Is(err, types.ErrRuleSetNotFound) {
		t.Errorf("SelectFirstMatch(missing) error = %v, want ErrRuleSetNotFound", err)
	}
	if _, err := e.CollectAllMatches(ctx, "carriers", types.EntityIDs{"Order": "ghost"}); err == nil {
		t.Error("expected error when record context cannot be resolved")
	}

	repo.err = errors.New("connection refused")
	if _, err := e.CollectAllMatches(ctx, "carriers", types.EntityIDs{"Order": "heavy"}); err == nil {
		t.Error("expected error when repository fails")
	}
}

func TestEngine_CollectAllMatchesRecordsWarnings(t *testing.T) {
	repo := &fakeRepo{rules: map[types.RuleSetID][]types.Rule{"carriers": carrierRules()}}
	reg := prometheus.NewRegistry()
	metrics, err := telemetry.NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	e := newTestEngine(t, repo, WithMetrics(metrics))

	result, err := e.CollectAllMatches(context.Background(), "carriers", types.EntityIDs{"Order": "bad"})
	if err != nil {
		t.Fatalf("CollectAllMatches() error = %v", err)
	}
	if len(result.Matches) != 0 {
		t.Errorf("Matches = %+v, want none for unparseable weight", result.Matches)
	}
	if len(result.Warnings) != 2 {
		t.Errorf("Warnings = %+v, want one per rule", result.Warnings)
	}

	if got := gathered(t, reg, "ordergate_evaluation_warnings_total"); got != 2 {
		t.Errorf("warnings counter = %v, want 2", got)
	}
	if got := gathered(t, reg, "ordergate_evaluations_total"); got != 1 {
		t.Errorf("evaluations counter = %v, want 1", got)
	}
	if got := gathered(t, reg, "ordergate_snapshot_rules"); got != 2 {
		t.Errorf("snapshot rules gauge = %v, want 2", got)
	}
}

func TestEngine_ConfigurationErrorsReportedOnce(t *testing.T) {
	broken := weightRule("broken", 0, "1")
	broken.Conditions[0].Value = "lourd"

	repo := &fakeRepo{rules: map[types.RuleSetID][]types.Rule{
		"carriers": append([]types.Rule{broken}, carrierRules()...),
	}}
	reporter := &recordingReporter{}
	e := newTestEngine(t, repo, WithReporter(reporter))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := e.SelectFirstMatch(ctx, "carriers", types.EntityIDs{"Order": "heavy"})
		if err != nil {
			t.Fatalf("SelectFirstMatch() error = %v", err)
		}
		// The broken rule has the best priority but is excluded.
		if result.Match.RuleID != "lourd" {
			t.Errorf("SelectFirstMatch() = %s, want lourd", result.Match.RuleID)
		}
	}
	if got := reporter.count(); got != 1 {
		t.Fatalf("reported %d times, want once for an unchanged rule set", got)
	}
	if !errors.Is(reporter.errors[0], types.ErrInvalidConditionValue) {
		t.Errorf("reported error = %v, want ErrInvalidConditionValue", reporter.errors[0])
	}

	// Editing the rule set yields a new snapshot, so the error is reported again.
	repo.mu.Lock()
	repo.rules["carriers"] = append(repo.rules["carriers"], weightRule("extra", 5, "1"))
	repo.mu.Unlock()

	if _, err := e.Snapshot(ctx, "carriers"); err != nil {
		t.Fatal(err)
	}
	if got := reporter.count(); got != 2 {
		t.Errorf("reported %d times after edit, want 2", got)
	}
}

func TestEngine_SnapshotIsolatedFromLaterEdits(t *testing.T) {
	repo := &fakeRepo{rules: map[types.RuleSetID][]types.Rule{"carriers": carrierRules()}}
	e := newTestEngine(t, repo)
	ctx := context.Background()

	set, err := e.Snapshot(ctx, "carriers")
	if err != nil {
		t.Fatal(err)
	}

	repo.mu.Lock()
	repo.rules["carriers"][0].Conditions = []types.Condition{cond("Order", "poids_total", types.OpGreaterThan, "1000")}
	repo.mu.Unlock()

	result := e.FirstMatchContext(set, types.RecordContext{"Order": {"poids_total": 25}})
	if result.Match.RuleID != "lourd" {
		t.Errorf("snapshot changed after repository edit: got %s", result.Match.RuleID)
	}
}

func TestEngine_CollectAllBatch(t *testing.T) {
	repo := &fakeRepo{rules: map[types.RuleSetID][]types.Rule{"carriers": carrierRules()}}
	e := newTestEngine(t, repo, WithMaxConcurrency(2))

	batch := []types.EntityIDs{
		{"Order": "heavy"},
		{"Order": "ghost"},
		{"Order": "light"},
		{"Order": "heavy"},
		{"Order": "bad"},
	}
	items, err := e.CollectAllBatch(context.Background(), "carriers", batch)
	if err != nil {
		t.Fatalf("CollectAllBatch() error = %v", err)
	}
	if len(items) != len(batch) {
		t.Fatalf("len(items) = %d, want %d", len(items), len(batch))
	}

	wantMatches := []int{2, 0, 1, 2, 0}
	for i, item := range items {
		if item.IDs["Order"] != batch[i]["Order"] {
			t.Errorf("items[%d].IDs = %v, want %v", i, item.IDs, batch[i])
		}
		if i == 1 {
			if item.Err == nil {
				t.Errorf("items[1].Err = nil, want resolution error")
			}
			continue
		}
		if item.Err != nil {
			t.Errorf("items[%d].Err = %v", i, item.Err)
		}
		if len(item.Result.Matches) != wantMatches[i] {
			t.Errorf("items[%d] matches = %d, want %d", i, len(item.Result.Matches), wantMatches[i])
		}
	}
}

func TestEngine_CollectAllBatchCancelled(t *testing.T) {
	repo := &fakeRepo{rules: map[types.RuleSetID][]types.Rule{"carriers": carrierRules()}}
	e := newTestEngine(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := e.CollectAllBatch(ctx, "carriers", []types.EntityIDs{{"Order": "heavy"}, {"Order": "light"}})
	if err != nil {
		t.Fatalf("CollectAllBatch() error = %v", err)
	}
	for i, item := range items {
		if !errors.Is(item.Err, context.Canceled) {
			t.Errorf("items[%d].Err = %v, want context.Canceled", i, item.Err)
		}
	}
}
