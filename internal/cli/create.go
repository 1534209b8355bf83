package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/headline-lab/headline-lab/internal/engine"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var headlines string

	cmd := &cobra.Command{
		Use:   "create <article-id>",
		Short: "Create a new headline test",
		Long: `Create a headline test for an article on the running server.

Candidate headlines come from --headlines, or are entered interactively
when the flag is omitted.

Examples:
  headline-lab create story-42 --headlines "Mayor Resigns,Mayor Steps Down"
  headline-lab create story-42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			articleID := args[0]

			var list []string
			if headlines != "" {
				for _, h := range strings.Split(headlines, ",") {
					if h = strings.TrimSpace(h); h != "" {
						list = append(list, h)
					}
				}
			} else {
				var err error
				list, err = promptHeadlines()
				if err != nil {
					return err
				}
			}

			if len(list) == 0 {
				return fmt.Errorf("need at least one headline. Example: --headlines \"A,B\"")
			}

			var summary engine.Summary
			err := apiPost("/api/tests", map[string]any{
				"article_id": articleID,
				"headlines":  list,
			}, &summary)
			if err != nil {
				return fmt.Errorf("failed to create test: %w", err)
			}

			fmt.Printf("Created test '%s' with %d variants:\n", summary.TestID, len(summary.Variants))
			for _, v := range summary.Variants {
				fmt.Printf("  %s: %s\n", v.ID, v.Text)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&headlines, "headlines", "H", "", "comma-separated candidate headlines")

	return cmd
}

// promptHeadlines collects candidate headlines interactively until an
// empty line is entered.
func promptHeadlines() ([]string, error) {
	var list []string
	for {
		prompt := promptui.Prompt{
			Label: fmt.Sprintf("Headline %d (empty to finish)", len(list)+1),
		}
		text, err := prompt.Run()
		if err != nil {
			if err == promptui.ErrInterrupt {
				os.Exit(0)
			}
			return nil, err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return list, nil
		}
		list = append(list, text)
	}
}
