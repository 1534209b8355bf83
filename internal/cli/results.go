package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/headline-lab/headline-lab/internal/engine"
)

var resultsCmd = &cobra.Command{
	Use:   "results <test-id>",
	Short: "Show detailed results for a test",
	Long: `Show per-variant metrics, composite scores, and the significance of
the click data. Falls back to the archive for tests completed in a
previous server run.`,
	Args: cobra.ExactArgs(1),
	RunE: runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

// analysisResponse mirrors the server's results payload.
type analysisResponse struct {
	Summary         *engine.Summary `json:"summary"`
	LeadingVariant  string          `json:"leading_variant"`
	ConfidenceLevel float64         `json:"confidence_level"`
	Confident       bool            `json:"confident"`
}

func runResults(cmd *cobra.Command, args []string) error {
	id := args[0]

	var resp analysisResponse
	if err := apiGet("/api/tests/"+id, &resp); err != nil {
		return err
	}
	s := resp.Summary

	fmt.Printf("TEST: %s\n", s.TestID)
	fmt.Printf("ARTICLE: %s\n", s.ArticleID)
	fmt.Printf("STATUS: %s\n", s.Status)
	fmt.Printf("STARTED: %s\n", s.StartedAt.Format("2006-01-02 15:04"))
	fmt.Printf("DURATION: %s\n", s.Duration.Truncate(time.Second))
	fmt.Println()

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Variant", "Headline", "Impressions", "Clicks", "CTR", "Time", "Scroll", "Score")

	for _, v := range s.Variants {
		name := v.Text
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		marker := ""
		if s.Winner != "" && v.ID == s.Winner {
			marker = " *"
		}
		table.Append(
			v.ID+marker,
			name,
			fmt.Sprintf("%d", v.Impressions),
			fmt.Sprintf("%d", v.Clicks),
			v.ClickRate,
			v.AvgTimeOnPage,
			v.AvgScrollDepth,
			fmt.Sprintf("%.2f", v.CompositeScore),
		)
	}

	table.Render()
	fmt.Println()

	if s.Winner != "" {
		fmt.Printf("Winner: %s (by composite score)\n", s.Winner)
	}
	if len(s.Variants) > 1 && resp.LeadingVariant != "" {
		confPct := resp.ConfidenceLevel * 100
		switch {
		case resp.Confident:
			fmt.Printf("Click significance: %.1f%% confident %s leads on clicks\n", confPct, resp.LeadingVariant)
		case confPct >= 90:
			fmt.Printf("Click significance: %.1f%% confident %s leads on clicks (not yet significant)\n", confPct, resp.LeadingVariant)
		default:
			fmt.Println("Click significance: not enough click data to call a leader")
		}
	}

	return nil
}
