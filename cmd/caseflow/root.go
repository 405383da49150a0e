package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "caseflow",
	Short: "Caseflow is a support session orchestration engine",
	Long: `Caseflow runs e-commerce support conversations through versioned
decision tables: it classifies customer messages, evaluates workflow rules,
invokes commerce tools and escalates to humans when policy says so.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("workflows", "workflows", "Directory containing decision table YAML files")
}
