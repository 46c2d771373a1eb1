package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verdict/internal/archive"
	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/present"
)

var (
	archiveSearch      string
	archiveCategory    string
	archivePages       int
	archiveInteractive bool
	archiveLatest      int
	archiveExcerpts    bool
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse the archive of fact-checked articles",
	Long: `Archive lists fact-checked articles, newest first, with optional search
and category filters.

Categories: ` + strings.Join(model.ArchiveCategories, ", ") + `

In --interactive mode each input line sets the search term. Commands:
  :cat <category>   change the category
  :more             load the next page
  :quit             leave

Example:
  verdict archive --search vaccine --category health
  verdict archive --pages 3
  verdict archive --latest 3`,
	Args: cobra.NoArgs,
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVar(&archiveSearch, "search", "", "search term")
	archiveCmd.Flags().StringVar(&archiveCategory, "category", model.CategoryAll, "category filter")
	archiveCmd.Flags().IntVar(&archivePages, "pages", 1, "number of pages to load")
	archiveCmd.Flags().BoolVarP(&archiveInteractive, "interactive", "i", false, "read search terms and commands from stdin")
	archiveCmd.Flags().IntVar(&archiveLatest, "latest", 0, "show only the N latest articles")
	archiveCmd.Flags().BoolVar(&archiveExcerpts, "excerpts", false, "show article excerpts")
}

func runArchive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	pageSize := cfg.Archive.PageSize
	if archiveLatest > 0 {
		pageSize = archiveLatest
	}
	ctrl := archive.NewController(newAPIClient(newLimiter()), pageSize, cfg.Archive.Debounce, nil, logger)
	defer ctrl.Close()

	opts := present.ArticleOptions{Color: colorEnabled(), Excerpts: archiveExcerpts}

	ctrl.SetSearchTerm(archiveSearch)
	ctrl.SetCategory(archiveCategory)
	ctrl.Mount(ctx)
	if err := ctrl.WaitIdle(ctx); err != nil {
		return err
	}

	if archiveInteractive {
		return interactiveArchive(ctx, ctrl, cmd.InOrStdin(), out, opts)
	}

	for page := 1; page < archivePages && archiveLatest == 0; page++ {
		if !ctrl.LoadMore() {
			break
		}
		if err := ctrl.WaitIdle(ctx); err != nil {
			return err
		}
	}

	snap := ctrl.Snapshot()
	if err := printArchive(out, snap, opts); err != nil {
		return err
	}
	if snap.Error != "" {
		return fmt.Errorf("archive: %s", snap.Error)
	}
	return nil
}

func interactiveArchive(ctx context.Context, ctrl *archive.Controller, in io.Reader, out io.Writer, opts present.ArticleOptions) error {
	first := ctrl.Snapshot()
	if err := printArchive(out, first, opts); err != nil {
		return err
	}

	// Listeners run one at a time, so printed needs no lock
	printed := first.Generation
	ctrl.Subscribe(func(s archive.Snapshot) {
		if s.Loading || s.Generation == printed {
			return
		}
		printed = s.Generation
		_ = printArchive(out, s, opts)
	})

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == ":quit" || line == ":q":
			return ctrl.WaitIdle(ctx)
		case line == ":more":
			if !ctrl.LoadMore() {
				fmt.Fprintln(os.Stderr, "No more articles to load.")
			}
		case strings.HasPrefix(line, ":cat"):
			category := strings.TrimSpace(strings.TrimPrefix(line, ":cat"))
			if !ctrl.SetCategory(category) {
				fmt.Fprintln(os.Stderr, "Category unchanged.")
			}
		default:
			ctrl.SetSearchTerm(line)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	// End of input: run any query still waiting for its debounce
	ctrl.Flush()
	return ctrl.WaitIdle(ctx)
}

func printArchive(out io.Writer, snap archive.Snapshot, opts present.ArticleOptions) error {
	filter := "category: " + snap.Category
	if snap.SearchTerm != "" {
		filter = fmt.Sprintf("search: %q, %s", snap.SearchTerm, filter)
	}
	fmt.Fprintf(out, "%s (%s)\n\n", present.ArchiveStatus(snap.Loading, snap.Error, len(snap.Articles), snap.TotalResults), filter)

	if err := present.RenderArticles(out, snap.Articles, opts); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return present.RenderArchiveFooter(out, snap.Error, snap.HasNextPage, opts)
}
