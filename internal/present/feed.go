package present

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/util"
)

// Feed placeholders
const (
	NoArticles       = "No articles found."
	LoadingArticles  = "Loading articles..."
	UnknownSource    = "Unknown Source"
	NotAvailableDate = "N/A"

	excerptMaxRunes  = 160
	archiveMoreLabel = "More articles available (load more)."
)

// ArticleOptions controls article list rendering
type ArticleOptions struct {
	Color    bool
	Excerpts bool
}

// RenderArticles writes an archive or headline list
func RenderArticles(w io.Writer, articles []model.ArticleSummary, opts ArticleOptions) error {
	p := painter{color: opts.Color}
	var b strings.Builder

	if len(articles) == 0 {
		fmt.Fprintf(&b, "%s\n", p.paint(dimStyle, NoArticles))
	}
	for i, a := range articles {
		title := a.Title
		if a.Verdict != "" {
			title = p.paint(badgeStyles[verdictBadge(a.Verdict)], "["+capitalize(a.Verdict)+"]") + " " + title
		}
		fmt.Fprintf(&b, "%2d. %s\n", i+1, title)

		publisher := a.Publisher
		if publisher == "" {
			publisher = UnknownSource
		}
		date := NotAvailableDate
		if !a.PublishedAt.IsZero() {
			date = a.PublishedAt.Format("Jan 2, 2006")
		}
		fmt.Fprintf(&b, "    %s\n", p.paint(dimStyle, publisher+" · "+date))

		if opts.Excerpts && a.Excerpt != "" {
			fmt.Fprintf(&b, "    %s\n", util.Truncate(a.Excerpt, excerptMaxRunes))
		}
		if a.URL != "" {
			fmt.Fprintf(&b, "    %s\n", p.paint(dimStyle, a.URL))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// ArchiveStatus is the one-line summary above the archive list
func ArchiveStatus(loading bool, errMsg string, shown, total int) string {
	switch {
	case loading:
		return LoadingArticles
	case errMsg != "":
		return "Error loading articles"
	default:
		return fmt.Sprintf("Showing %d of %d articles", shown, total)
	}
}

// RenderArchiveFooter writes the error banner and the load-more hint
func RenderArchiveFooter(w io.Writer, errMsg string, hasNext bool, opts ArticleOptions) error {
	p := painter{color: opts.Color}
	var b strings.Builder
	if errMsg != "" {
		fmt.Fprintf(&b, "%s\n", p.paint(errorStyle, "✗ "+errMsg))
	}
	if hasNext {
		fmt.Fprintf(&b, "%s\n", p.paint(dimStyle, archiveMoreLabel))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

var historyLabels = map[model.Verdict]string{
	model.VerdictReal:      "Real",
	model.VerdictFake:      "Fake",
	model.VerdictUncertain: "Uncertain",
}

// RenderHistory writes the check history with confidence as a percentage
func RenderHistory(w io.Writer, entries []model.HistoryEntry, opts TextOptions) error {
	p := painter{color: opts.Color}
	var b strings.Builder
	for _, e := range entries {
		label, ok := historyLabels[e.Verdict]
		if !ok {
			label = capitalize(string(e.Verdict))
		}
		badge := BadgeNeutral
		switch e.Verdict {
		case model.VerdictReal:
			badge = BadgeAffirmative
		case model.VerdictFake:
			badge = BadgeNegative
		case model.VerdictUncertain:
			badge = BadgeCaution
		}

		fmt.Fprintf(&b, "%s  %s  Confidence: %.1f%%\n",
			p.paint(badgeStyles[badge], label),
			p.paint(dimStyle, e.Timestamp.Format("Jan 2, 2006 at 3:04 PM")),
			e.Confidence*100)
		fmt.Fprintf(&b, "  %s\n\n", e.Content)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// verdictBadge maps an archive verdict (true, false, mixed) to a badge
func verdictBadge(verdict string) Badge {
	switch strings.ToLower(verdict) {
	case "true":
		return BadgeAffirmative
	case "false":
		return BadgeNegative
	case "mixed":
		return BadgeCaution
	default:
		return BadgeNeutral
	}
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
