package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/solatis/ordergate/internal/core/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE:  runMigrateUp,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	a, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	conn, _, err := openDatabase(ctx, a)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.MigrateUp(ctx, conn); err != nil {
		return err
	}
	a.logger.Info("migrations applied", "driver", conn.DriverName())
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	a, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	conn, _, err := openDatabase(ctx, a)
	if err != nil {
		return err
	}
	defer conn.Close()

	statuses, err := db.MigrateStatus(ctx, conn)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Migration", "Applied", "Applied At", "Duration", "Checksum")
	for _, s := range statuses {
		appliedAt, duration := "-", "-"
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.Format("2006-01-02 15:04")
			duration = fmt.Sprintf("%dms", s.ExecutionMs)
		}
		table.Append(s.ID, fmt.Sprint(s.Applied), appliedAt, duration, s.Checksum[:12])
	}
	return table.Render()
}
