package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/headline-lab/headline-lab/internal/readability"
)

func init() {
	rootCmd.AddCommand(newAnalyzeCmd())
}

func newAnalyzeCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Score an article's readability and predicted engagement",
		Long: `Compute reading statistics, Flesch readability, and the engagement
prediction for article markup read from a file or stdin.

Examples:
  headline-lab analyze draft.html --title "5 Ways to Save Money?"
  cat draft.html | headline-lab analyze`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			var err error
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("failed to read article: %w", err)
			}

			stats := readability.CalculateReadingStats(string(body))

			fmt.Printf("Words: %d  Sentences: %d  Paragraphs: %d  Characters: %d\n",
				stats.WordCount, stats.SentenceCount, stats.ParagraphCount, stats.CharacterCount)
			fmt.Printf("Reading time: %s\n", stats.ReadingTime.Display)
			fmt.Printf("Flesch score: %d (%s)\n", stats.Readability.FleschScore, stats.Readability.ReadingLevel)
			fmt.Printf("Grade level: %.1f\n", stats.Readability.GradeLevel)
			fmt.Println()

			p := readability.PredictEngagement(readability.Article{
				Title: title,
				Body:  string(body),
			})

			fmt.Printf("Shareability: %d  Completion likelihood: %d\n", p.Shareability, p.CompletionLikelihood)
			if len(p.Factors) > 0 {
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Factor", "Impact")
				for _, f := range p.Factors {
					table.Append(f.Factor, f.Impact)
				}
				table.Render()
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "headline to score alongside the body")

	return cmd
}
