package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/verdict/internal/dashboard"
	"github.com/ppiankov/verdict/internal/present"
)

var (
	concurrency       int
	outputDir         string
	batchTimeout      time.Duration
	batchCheckTimeout time.Duration
	// digestOn, llmProvider, llmModel and noFooter are shared with check
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Check many claims from a file in parallel",
	Long: `Batch checks every claim in a file concurrently:
- Read claims from the input file (one per line, # starts a comment)
- Check claims in parallel with a configurable worker count
- Write a JSON and a Markdown report per claim

Example:
  verdict batch claims.txt
  verdict batch claims.txt --concurrency 8 --output-dir ./reports
  verdict batch claims.txt --digest --llm-provider ollama --llm-model llama3.1`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./verdict-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch")
	batchCmd.Flags().DurationVar(&batchCheckTimeout, "check-timeout", 0, "timeout per claim (default from config, 60s)")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	batchCmd.Flags().BoolVar(&digestOn, "digest", false, "add an LLM digest to every successful report")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider for --digest (openai, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model for --digest")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	workers := cfg.Concurrency.Workers
	if concurrency > 0 {
		workers = concurrency
	}
	perCheck := cfg.API.RequestTimeout
	if batchCheckTimeout > 0 {
		perCheck = batchCheckTimeout
	}

	digester, err := newDigester(digestOn, llmProvider, llmModel)
	if err != nil {
		return fmt.Errorf("configure digest: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if digester.Enabled() {
		fmt.Fprintf(os.Stderr, "  Digest:       on\n")
	}
	fmt.Fprintf(os.Stderr, "\n")

	processor := dashboard.NewBatchProcessor(newAPIClient(newLimiter()), workers, perCheck, logger)
	reports, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return err
	}

	failures := 0
	for _, r := range reports {
		if r.Failed() {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", r.Claim, r.Error)
			continue
		}
		if digester.Enabled() {
			digestCtx, cancelDigest := context.WithTimeout(ctx, time.Duration(cfg.LLM.Timeout+5)*time.Second)
			digester.Attach(digestCtx, r)
			cancelDigest()
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%d fact-checks)\n", r.Claim, len(r.Result.Claims))
	}

	renderer := present.NewRenderer(cfg.Output.IncludeFooter && !noFooter)
	if err := processor.WriteReports(ctx, renderer, outputDir, reports); err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(reports))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", len(reports)-failures)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
