package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verdict/internal/dashboard"
	"github.com/ppiankov/verdict/internal/handoff"
	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/present"
)

var (
	imagePath    string
	outJSON      string
	outMD        string
	collapse     []string
	digestOn     bool
	llmProvider  string
	llmModel     string
	noFooter     bool
	checkTimeout time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [claim]",
	Short: "Fact-check a text claim or an image",
	Long: `Check submits a claim (or an image with --image) to the fact-checking
service and shows four sections: Summary, AI Analysis, Categories and
Fact Checks.

Example:
  verdict check "the moon landing was staged"
  verdict check --image meme.png
  verdict check "5G spreads viruses" --json report.json --md report.md
  verdict check "vaccines cause autism" --collapse "ai analysis" --digest`,
	Args: func(cmd *cobra.Command, args []string) error {
		if imagePath == "" && len(args) == 0 {
			return errors.New("provide a claim or --image")
		}
		if imagePath != "" && len(args) > 0 {
			return errors.New("provide either a claim or --image, not both")
		}
		return nil
	},
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&imagePath, "image", "", "image to check (jpeg, png or gif, max 5 MiB)")
	checkCmd.Flags().StringVar(&outJSON, "json", "", "write the report as JSON to this path")
	checkCmd.Flags().StringVar(&outMD, "md", "", "write the report as Markdown to this path")
	checkCmd.Flags().StringSliceVar(&collapse, "collapse", nil, "sections to show collapsed (summary, ai-analysis, categories, fact-checks)")
	checkCmd.Flags().BoolVar(&digestOn, "digest", false, "add an LLM digest of the result")
	checkCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider for --digest (openai, ollama)")
	checkCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model for --digest")
	checkCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 0, "request timeout (default from config, 60s)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	collapsed, err := parseSections(collapse)
	if err != nil {
		return err
	}
	digester, err := newDigester(digestOn, llmProvider, llmModel)
	if err != nil {
		return fmt.Errorf("configure digest: %w", err)
	}

	store := handoff.NewStore()
	entry := dashboard.NewEntry(store)

	var address string
	if imagePath != "" {
		img, err := dashboard.LoadImage(imagePath)
		if err != nil {
			return err
		}
		address, err = entry.SubmitImage(img)
		if err != nil {
			return err
		}
	} else {
		address, err = entry.SubmitText(strings.Join(args, " "))
		if err != nil {
			return err
		}
	}

	timeout := cfg.API.RequestTimeout
	if checkTimeout > 0 {
		timeout = checkTimeout
	}
	orch := dashboard.NewOrchestrator(newAPIClient(newLimiter()), store, timeout, logger)

	act := orch.Activate(ctx, address)
	if !act.Dispatched {
		return errors.New("nothing to check")
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "%s\n", present.LoadingText)
	}
	if err := act.Wait(ctx); err != nil {
		return fmt.Errorf("check interrupted: %w", err)
	}

	report := orch.State().Report(time.Now())
	if report == nil {
		return errors.New("check did not settle")
	}

	if digester != nil {
		digestCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.LLM.Timeout+5)*time.Second)
		digester.Attach(digestCtx, report)
		cancel()
	}

	if err := printReport(out, report, collapsed); err != nil {
		return err
	}

	renderer := present.NewRenderer(cfg.Output.IncludeFooter && !noFooter)
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return fmt.Errorf("write JSON report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", outJSON)
	}
	if outMD != "" {
		if err := renderer.RenderMarkdown(report, outMD); err != nil {
			return fmt.Errorf("write Markdown report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", outMD)
	}

	if report.Failed() {
		return fmt.Errorf("check failed: %s", report.Error)
	}
	return nil
}

func printReport(w io.Writer, report *model.Report, collapsed []present.SectionID) error {
	label := "Claim"
	if report.Kind == model.SubmissionImage {
		label = "Image"
	}
	fmt.Fprintf(w, "%s: %s\n\n", label, report.Claim)

	view := present.ViewForReport(report)
	for _, id := range collapsed {
		if s := view.Section(id); s != nil && s.Expanded {
			view.Toggle(id)
		}
	}
	if err := present.RenderText(w, view, present.TextOptions{Color: colorEnabled()}); err != nil {
		return fmt.Errorf("render result: %w", err)
	}

	if report.Digest != nil {
		fmt.Fprint(w, present.DigestMarkdown(report.Digest))
	}
	return nil
}

func parseSections(names []string) ([]present.SectionID, error) {
	ids := make([]present.SectionID, 0, len(names))
	for _, name := range names {
		id, ok := present.ParseSectionID(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown section %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
