package cmd

import (
	"fmt"

	"github.com/solatis/ordergate/internal/store"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import rule sets and records into the database",
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("rules", "", "rules YAML file")
	importCmd.Flags().String("records", "", "records YAML or JSON file")
}

func runImport(cmd *cobra.Command, args []string) error {
	rulesFile, _ := cmd.Flags().GetString("rules")
	recordsFile, _ := cmd.Flags().GetString("records")
	if rulesFile == "" && recordsFile == "" {
		return fmt.Errorf("nothing to import: pass --rules and/or --records")
	}

	a, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	conn, queries, err := openDatabase(ctx, a)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := requireMigrated(ctx, conn); err != nil {
		return err
	}

	if rulesFile != "" {
		docs, err := store.LoadRulesFile(rulesFile)
		if err != nil {
			return err
		}
		repo := store.NewSQLRuleRepository(queries)
		for _, doc := range docs {
			if _, err := repo.ImportRuleSet(ctx, doc); err != nil {
				return fmt.Errorf("failed to import rule set %s: %w", doc.ID, err)
			}
			a.logger.Info("rule set imported", "rule_set_id", doc.ID, "rules", len(doc.Rules))
		}
	}

	if recordsFile != "" {
		recs, err := store.LoadRecordsFile(recordsFile)
		if err != nil {
			return err
		}
		if err := store.NewSQLContextResolver(queries).PutRecords(ctx, recs); err != nil {
			return fmt.Errorf("failed to import records: %w", err)
		}
		count := 0
		for _, byID := range recs {
			count += len(byID)
		}
		a.logger.Info("records imported", "records", count)
	}
	return nil
}
