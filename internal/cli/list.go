package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/headline-lab/headline-lab/internal/engine"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tests on the running server",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	var summaries []*engine.Summary
	if err := apiGet("/api/tests", &summaries); err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println("No tests yet. Create one with 'headline-lab create'.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Test", "Article", "Status", "Variants", "Winner", "Duration")

	for _, s := range summaries {
		winner := "-"
		if s.Winner != "" {
			winner = s.Winner
		}
		table.Append(
			s.TestID,
			s.ArticleID,
			string(s.Status),
			fmt.Sprintf("%d", len(s.Variants)),
			winner,
			s.Duration.Truncate(time.Second).String(),
		)
	}

	table.Render()
	return nil
}
