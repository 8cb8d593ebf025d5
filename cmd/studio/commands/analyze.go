package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"brandstudio/internal/domain"
	"brandstudio/internal/session"
)

var (
	analyzeArticle string
	analyzeFile    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [article]",
	Short: "Decide whether an article calls for a human model",
	Long: `Decide whether an article calls for a human model.

The article can be passed as an argument, with -a, or read from a file.

Examples:
  studio analyze "Khai trương cửa hàng mới"
  studio analyze -f post.txt --locale en --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		article := analyzeArticle
		if len(args) == 1 {
			article = args[0]
		}
		article, err := readText(article, analyzeFile)
		if err != nil {
			return err
		}
		s, cleanup, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		return runAnalyze(cmd, s, article)
	},
}

func runAnalyze(cmd *cobra.Command, s *session.Session, article string) error {
	snap, err := s.Analyze(cmd.Context(), &article)
	if errors.Is(err, domain.ErrEmptyArticle) {
		return errors.New(domain.Message(s.Locale(), domain.MsgEmptyArticle))
	}
	if err != nil {
		return err
	}
	printAdvisory(snap)
	if jsonOutput {
		return printJSON(snap.Strategy)
	}
	printInfo("Needs human model: %t", snap.Strategy.NeedsHuman)
	printInfo("Reason: %s", snap.Strategy.Reason)
	if len(snap.Strategy.SuggestedElements) > 0 {
		printInfo("Suggested elements: %s", strings.Join(snap.Strategy.SuggestedElements, ", "))
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeArticle, "article", "a", "", "article text")
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "file holding the article")
	rootCmd.AddCommand(analyzeCmd)
}
