package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow-io/caseflow/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the decision table directory",
	Long: `Loads every decision table in the workflows directory and reports
structural problems: unknown actions, duplicate rule ids, route targets and
tool plans. Exits non-zero when any table is invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workflowsDir, _ := cmd.Flags().GetString("workflows")

		tables, err := policy.LoadDir(workflowsDir)
		if err != nil {
			return err
		}
		registry, err := policy.NewRegistry(tables...)
		if err != nil {
			return err
		}

		snapshot := registry.Current()
		for _, wf := range snapshot.Workflows() {
			table, _ := snapshot.Table(wf)
			fmt.Printf("%s: %d rules\n", wf, len(table.Rules))
		}
		fmt.Printf("loaded %d decision tables from %s\n", len(tables), workflowsDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
