package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/solatis/ordergate/internal/rules"
	"github.com/solatis/ordergate/internal/store"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the rules in a file against the schema",
	Long: `Check compiles every active rule and lists the ones that would be
excluded from evaluation. It exits non-zero when any rule is invalid.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("schema", "", "schema YAML file (default: built-in schema)")
	checkCmd.Flags().String("rules", "", "rules YAML file")
	checkCmd.MarkFlagRequired("rules")
}

func runCheck(cmd *cobra.Command, args []string) error {
	schemaFile, _ := cmd.Flags().GetString("schema")
	rulesFile, _ := cmd.Flags().GetString("rules")

	registry, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	docs, err := store.LoadRulesFile(rulesFile)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Rule Set", "Rule", "Name", "Condition", "Error")
	total, invalid := 0, 0
	for _, doc := range docs {
		set := rules.NewRuleSet(doc.ID, registry, doc.Rules)
		total += len(set.Rules) + len(set.Excluded)
		for _, cfgErr := range set.Excluded {
			invalid++
			condition := "-"
			if cfgErr.ConditionIndex >= 0 {
				condition = fmt.Sprint(cfgErr.ConditionIndex)
			}
			table.Append(string(doc.ID), string(cfgErr.RuleID), cfgErr.RuleName, condition, cfgErr.Err.Error())
		}
	}

	if invalid == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d active rules in %d rule sets, all valid\n", total, len(docs))
		return nil
	}
	if err := table.Render(); err != nil {
		return err
	}
	return fmt.Errorf("%d of %d active rules are invalid", invalid, total)
}
