package present

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/verdict/internal/model"
)

var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#25D366"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#D7263D", Dark: "#FF5F5F"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#B58900", Dark: "#FFD75F"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorTitle  = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTitle)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle = lipgloss.NewStyle().Foreground(colorRed)
	countStyle = lipgloss.NewStyle().Foreground(colorGreen)

	badgeStyles = map[Badge]lipgloss.Style{
		BadgeAffirmative: lipgloss.NewStyle().Bold(true).Foreground(colorGreen),
		BadgeNegative:    lipgloss.NewStyle().Bold(true).Foreground(colorRed),
		BadgeCaution:     lipgloss.NewStyle().Bold(true).Foreground(colorYellow),
		BadgeNeutral:     lipgloss.NewStyle().Foreground(colorDim),
	}
)

// TextOptions controls terminal rendering
type TextOptions struct {
	Color bool
}

type painter struct {
	color bool
}

func (p painter) paint(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

// RenderText writes the view for a terminal
func RenderText(w io.Writer, v *View, opts TextOptions) error {
	p := painter{color: opts.Color}
	var b strings.Builder

	if v.DataFormatError {
		fmt.Fprintf(&b, "%s\n\n", p.paint(errorStyle, "! "+DataFormatNotice))
	}

	for _, s := range v.Sections {
		marker := "▾"
		if !s.Expanded {
			marker = "▸"
		}
		header := marker + " " + p.paint(titleStyle, s.Title)
		if s.CountBadge != "" && s.State.Status == StatusReady {
			header += "  " + p.paint(countStyle, "["+s.CountBadge+"]")
		}
		b.WriteString(header + "\n")

		if !s.Expanded {
			b.WriteString("\n")
			continue
		}

		switch s.State.Status {
		case StatusLoading:
			fmt.Fprintf(&b, "  %s\n\n", p.paint(dimStyle, LoadingText))
			continue
		case StatusFailed:
			fmt.Fprintf(&b, "  %s\n\n", p.paint(errorStyle, "✗ "+s.State.Error))
			continue
		}

		writeTextBody(&b, p, s)
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeTextBody(b *strings.Builder, p painter, s *Section) {
	if s.ID != SectionFactChecks {
		for _, line := range strings.Split(s.Body, "\n") {
			fmt.Fprintf(b, "  %s\n", line)
		}
		if len(s.Labels) > 0 {
			fmt.Fprintf(b, "  %s %s\n", p.paint(dimStyle, "Labels:"), strings.Join(s.Labels, ", "))
		}
		if s.CountLine != "" {
			fmt.Fprintf(b, "  %s\n", p.paint(dimStyle, s.CountLine))
		}
		return
	}

	if len(s.Cards) == 0 {
		fmt.Fprintf(b, "  %s\n", p.paint(dimStyle, s.Empty))
		return
	}
	for _, card := range s.Cards {
		fmt.Fprintf(b, "  %s %s\n", p.paint(badgeStyles[card.Badge], "["+card.RatingLabel+"]"), card.Text)
		if meta := cardMeta(card); meta != "" {
			fmt.Fprintf(b, "      %s\n", p.paint(dimStyle, meta))
		}
		for _, d := range card.Details {
			fmt.Fprintf(b, "      - %s · %s · %s\n", d.Publisher, d.Date, p.paint(badgeStyles[d.Badge], d.Rating))
			if d.URL != "" {
				fmt.Fprintf(b, "        %s\n", p.paint(dimStyle, d.URL))
			}
		}
	}
}

func cardMeta(card ClaimCard) string {
	var parts []string
	if card.Claimant != "" {
		parts = append(parts, "Claimant: "+card.Claimant)
	}
	if card.ClaimDate != "" {
		parts = append(parts, "Claim date: "+card.ClaimDate)
	}
	return strings.Join(parts, " · ")
}

// RenderMarkdown writes the view as Markdown sections
func RenderMarkdown(w io.Writer, v *View) error {
	var b strings.Builder

	if v.DataFormatError {
		fmt.Fprintf(&b, "> **Warning:** %s\n\n", DataFormatNotice)
	}

	for _, s := range v.Sections {
		title := s.Title
		if s.CountBadge != "" && s.State.Status == StatusReady {
			title += " (" + s.CountBadge + ")"
		}
		fmt.Fprintf(&b, "## %s\n\n", title)

		if !s.Expanded {
			continue
		}
		switch s.State.Status {
		case StatusLoading:
			fmt.Fprintf(&b, "_%s_\n\n", LoadingText)
			continue
		case StatusFailed:
			fmt.Fprintf(&b, "**Error:** %s\n\n", s.State.Error)
			continue
		}

		if s.ID != SectionFactChecks {
			fmt.Fprintf(&b, "%s\n\n", s.Body)
			if len(s.Labels) > 0 {
				fmt.Fprintf(&b, "**Labels:** %s\n\n", strings.Join(s.Labels, ", "))
			}
			if s.CountLine != "" {
				fmt.Fprintf(&b, "_%s_\n\n", s.CountLine)
			}
			continue
		}

		if len(s.Cards) == 0 {
			fmt.Fprintf(&b, "%s\n\n", s.Empty)
			continue
		}
		for i, card := range s.Cards {
			fmt.Fprintf(&b, "### %d. %s\n\n", i+1, card.Text)
			fmt.Fprintf(&b, "**Rating:** %s\n\n", card.RatingLabel)
			if meta := cardMeta(card); meta != "" {
				fmt.Fprintf(&b, "%s\n\n", meta)
			}
			for _, d := range card.Details {
				line := fmt.Sprintf("- %s, %s: **%s**", d.Publisher, d.Date, d.Rating)
				if d.URL != "" {
					line += fmt.Sprintf(" ([full fact-check](%s))", d.URL)
				}
				b.WriteString(line + "\n")
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderJSON writes the normalized result as indented JSON
func RenderJSON(w io.Writer, res *model.NormalizedResult) error {
	if res == nil {
		empty := model.EmptyResult()
		res = &empty
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// ViewForReport builds the view a finished report is shown with
func ViewForReport(r *model.Report) *View {
	return Build(r.Result, r.DataFormatError, Uniform(false, r.Error))
}

// Renderer writes report files
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a report renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the complete report to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	})
}

// RenderMarkdown writes a human-readable report to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return r.WriteMarkdown(w, report)
	})
}

// WriteMarkdown writes the Markdown report to w
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) error {
	var b strings.Builder

	b.WriteString("# Fact-check report\n\n")
	subject := "Claim"
	if report.Kind == model.SubmissionImage {
		subject = "Image"
	}
	fmt.Fprintf(&b, "**%s:** %s\n\n", subject, report.Claim)
	if !report.CheckedAt.IsZero() {
		fmt.Fprintf(&b, "**Checked:** %s\n\n", report.CheckedAt.UTC().Format(time.RFC3339))
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if err := RenderMarkdown(w, ViewForReport(report)); err != nil {
		return err
	}

	if report.Digest != nil {
		if _, err := io.WriteString(w, DigestMarkdown(report.Digest)); err != nil {
			return err
		}
	}

	if r.includeFooter {
		footer := "---\n\n_Generated by verdict. Ratings come from the fact-checking service and its publishers._\n"
		if _, err := io.WriteString(w, footer); err != nil {
			return err
		}
	}
	return nil
}

// DigestMarkdown renders an LLM digest as a clearly marked, separate section
func DigestMarkdown(d *model.Digest) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Digest\n\n")
	b.WriteString("> GENERATED CONTENT: ratings and badges above were determined independently of this digest.\n\n")
	if d.Provider != "" {
		fmt.Fprintf(&b, "**Provider:** %s", d.Provider)
		if d.Model != "" {
			fmt.Fprintf(&b, " (%s)", d.Model)
		}
		b.WriteString("\n\n")
	}
	if strings.TrimSpace(d.Text) == "" {
		b.WriteString("_No digest generated._\n\n")
	} else {
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(d.Text))
	}
	if len(d.Warnings) > 0 {
		b.WriteString("### Notes\n\n")
		for _, warn := range d.Warnings {
			fmt.Fprintf(&b, "- %s\n", warn)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
