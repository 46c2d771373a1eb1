package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verdict/internal/news"
	"github.com/ppiankov/verdict/internal/present"
)

var (
	newsCategory string
	newsTopic    string
	newsLimit    int
	newsExcerpts bool
)

// newsCmd represents the news command
var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show current headlines by category or topic",
	Long: `News lists current headlines from the configured provider (NewsAPI or
RSS feeds).

Categories: ` + strings.Join(news.DefaultCategories, ", ") + `
Topics (suggested): ` + strings.Join(news.DefaultTopics, ", ") + `

Example:
  verdict news
  verdict news --category health
  verdict news --topic "climate change" --limit 5`,
	Args: cobra.NoArgs,
	RunE: runNews,
}

func init() {
	rootCmd.AddCommand(newsCmd)

	newsCmd.Flags().StringVar(&newsCategory, "category", "", "headline category (default general)")
	newsCmd.Flags().StringVar(&newsTopic, "topic", "", "free-text topic")
	newsCmd.Flags().IntVar(&newsLimit, "limit", 0, "show at most N articles (0 = all)")
	newsCmd.Flags().BoolVar(&newsExcerpts, "excerpts", true, "show article descriptions")
	newsCmd.MarkFlagsMutuallyExclusive("category", "topic")
}

func runNews(cmd *cobra.Command, args []string) error {
	sel := news.DefaultSelection()
	switch {
	case newsTopic != "":
		sel = news.Topic(newsTopic)
	case newsCategory != "":
		sel = news.Category(newsCategory)
	}
	if err := sel.Validate(); err != nil {
		return err
	}

	source, err := news.NewFromConfig(cfg, newLimiter(), logger)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Loading news (%s, %s)...\n", source.Name(), sel)
	}
	articles, err := source.Headlines(cmd.Context(), sel)
	if err != nil {
		if errors.Is(err, news.ErrNoAPIKey) {
			return fmt.Errorf("%w, or set news.provider to rss", err)
		}
		return fmt.Errorf("load news: %w", err)
	}

	return present.RenderArticles(cmd.OutOrStdout(), news.Limit(articles, newsLimit), present.ArticleOptions{
		Color:    colorEnabled(),
		Excerpts: newsExcerpts,
	})
}
