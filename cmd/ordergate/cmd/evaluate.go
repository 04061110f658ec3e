package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/solatis/ordergate/internal/carrier"
	"github.com/solatis/ordergate/internal/rules"
	"github.com/solatis/ordergate/internal/store"
	"github.com/solatis/ordergate/internal/types"
	"github.com/solatis/ordergate/internal/validation"
	"github.com/spf13/cobra"
)

const (
	modeFirstMatch = "first-match"
	modeCollectAll = "collect-all"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a rule set from a file against a record context",
	Long: `Evaluate loads rule sets from a YAML file and a record context from a
YAML or JSON file, then applies first-match (carrier assignment) or
collect-all (order validation) selection. No database is needed.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().String("schema", "", "schema YAML file (default: built-in schema)")
	evaluateCmd.Flags().String("rules", "", "rules YAML file")
	evaluateCmd.Flags().String("rule-set", "", "rule set id to evaluate")
	evaluateCmd.Flags().String("context", "", "record context file (relation -> fields)")
	evaluateCmd.Flags().String("mode", modeFirstMatch, "selection mode (first-match, collect-all)")
	evaluateCmd.Flags().StringP("output", "o", string(FormatJSON), "output format (json, yaml, table)")
	evaluateCmd.MarkFlagRequired("rules")
	evaluateCmd.MarkFlagRequired("rule-set")
	evaluateCmd.MarkFlagRequired("context")
}

// evaluationOutput is what evaluate prints.
type evaluationOutput struct {
	RuleSetID   types.RuleSetID           `json:"ruleSetId" yaml:"ruleSetId"`
	Mode        string                    `json:"mode" yaml:"mode"`
	Fingerprint string                    `json:"fingerprint" yaml:"fingerprint"`
	Matches     []rules.Match             `json:"matches" yaml:"matches"`
	Carrier     *carrier.Assignment       `json:"carrier,omitempty" yaml:"carrier,omitempty"`
	Decision    *validation.Decision      `json:"decision,omitempty" yaml:"decision,omitempty"`
	Warnings    []rules.EvaluationWarning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Excluded    []string                  `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	schemaFile, _ := flags.GetString("schema")
	rulesFile, _ := flags.GetString("rules")
	ruleSetID, _ := flags.GetString("rule-set")
	contextFile, _ := flags.GetString("context")
	mode, _ := flags.GetString("mode")
	output, _ := flags.GetString("output")

	a, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	format, err := parseFormat(output)
	if err != nil {
		return err
	}
	if mode != modeFirstMatch && mode != modeCollectAll {
		return fmt.Errorf("unsupported mode: %s", mode)
	}

	registry, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	docs, err := store.LoadRulesFile(rulesFile)
	if err != nil {
		return err
	}
	rc, err := store.LoadContextFile(contextFile)
	if err != nil {
		return err
	}

	mem := store.NewMemoryStore()
	for _, doc := range docs {
		mem.PutRuleSet(doc)
	}
	engine, err := rules.NewEngine(registry, mem, mem, rules.WithLogger(a.logger))
	if err != nil {
		return err
	}

	set, err := engine.Snapshot(cmd.Context(), types.RuleSetID(ruleSetID))
	if err != nil {
		return err
	}

	out := evaluationOutput{
		RuleSetID:   set.ID,
		Mode:        mode,
		Fingerprint: set.Fingerprint,
		Matches:     []rules.Match{},
	}
	for _, cfgErr := range set.Excluded {
		out.Excluded = append(out.Excluded, cfgErr.Error())
	}

	switch mode {
	case modeFirstMatch:
		result := engine.FirstMatchContext(set, rc)
		if result.Matched {
			out.Matches = append(out.Matches, result.Match)
		}
		if assignment, ok := carrier.Assign(result); ok {
			out.Carrier = &assignment
		}
		out.Warnings = result.Warnings
	case modeCollectAll:
		result := engine.CollectAllContext(set, rc)
		out.Matches = append(out.Matches, result.Matches...)
		decision := validation.Decide(result)
		out.Decision = &decision
		out.Warnings = result.Warnings
	}

	w := cmd.OutOrStdout()
	switch format {
	case FormatJSON:
		return printJSON(w, out)
	case FormatYAML:
		return printYAML(w, out)
	default:
		return printEvaluationTable(w, out)
	}
}

func printEvaluationTable(w io.Writer, out evaluationOutput) error {
	table := tablewriter.NewWriter(w)
	table.Header("Rule", "Name", "Priority", "Action")
	for _, m := range out.Matches {
		table.Append(string(m.RuleID), m.Name, fmt.Sprint(m.Priority), formatAction(m.Action))
	}
	if err := table.Render(); err != nil {
		return err
	}

	switch {
	case out.Carrier != nil:
		fmt.Fprintf(w, "carrier: %s\n", out.Carrier.CarrierID)
	case out.Decision != nil:
		fmt.Fprintf(w, "decision: %s\n", out.Decision.Severity)
	case out.Mode == modeFirstMatch:
		fmt.Fprintln(w, "carrier: none")
	}
	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "warning: rule %s condition %d: %s\n", warn.RuleID, warn.ConditionIndex, warn.Reason)
	}
	for _, excluded := range out.Excluded {
		fmt.Fprintf(w, "excluded: %s\n", excluded)
	}
	return nil
}

func formatAction(a types.Action) string {
	if len(a) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(a))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a[k]))
	}
	return strings.Join(parts, " ")
}
