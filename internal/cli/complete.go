package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/headline-lab/headline-lab/internal/engine"
)

var completeCmd = &cobra.Command{
	Use:   "complete <test-id>",
	Short: "End a test now and pick the winner",
	Long: `Complete a running test ahead of its scheduled end. The winner is
selected by composite score. Completing an already-completed test is a
no-op and just reports the existing result.`,
	Args: cobra.ExactArgs(1),
	RunE: runComplete,
}

func init() {
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	id := args[0]

	var summary engine.Summary
	if err := apiPost("/api/tests/"+id+"/complete", struct{}{}, &summary); err != nil {
		return fmt.Errorf("failed to complete test: %w", err)
	}

	fmt.Printf("Test '%s' completed.\n", summary.TestID)
	for _, v := range summary.Variants {
		marker := ""
		if v.ID == summary.Winner {
			marker = " <- WINNER"
		}
		fmt.Printf("  %s  score %.2f%s\n", v.ID, v.CompositeScore, marker)
	}
	return nil
}
