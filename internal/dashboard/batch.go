package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/normalize"
	"github.com/ppiankov/verdict/internal/present"
	"github.com/ppiankov/verdict/internal/worker"
)

// CheckText runs a single text check outside the results view and
// returns its report. Failures are recorded in the report.
func CheckText(ctx context.Context, checker Checker, claim string, timeout time.Duration) *model.Report {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := &model.Report{
		Kind:      model.SubmissionText,
		Claim:     claim,
		CheckedAt: time.Now(),
	}

	raw, err := checker.SubmitTextClaim(ctx, claim)
	if err != nil {
		report.Error = FailureMessage(model.SubmissionText, err)
		return report
	}
	res, badFormat := normalize.Normalize(raw)
	report.Result = &res
	report.DataFormatError = badFormat
	return report
}

// BatchProcessor checks many claims concurrently on a worker pool
type BatchProcessor struct {
	checker     Checker
	concurrency int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(checker Checker, concurrency int, timeout time.Duration, logger *zap.Logger) *BatchProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger,
	}
}

// ProcessClaims checks every claim and returns reports in input order.
// Claims not started before ctx ends are missing from the result.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*model.Report {
	if len(claims) == 0 {
		return []*model.Report{}
	}

	pool := worker.NewPool[*model.Report](ctx, b.concurrency)
	for i, claim := range claims {
		submitted := pool.Submit(func(ctx context.Context) *model.Report {
			return CheckText(ctx, b.checker, claim, b.timeout)
		})
		if !submitted {
			b.logger.Warn("batch cancelled", zap.Int("submitted", i), zap.Int("total", len(claims)))
			break
		}
	}

	reports := pool.Wait()
	for _, r := range reports {
		if r.Failed() {
			b.logger.Debug("claim failed", zap.String("claim", r.Claim), zap.String("error", r.Error))
		}
	}
	return reports
}

// ProcessFile reads claims from a file and checks them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*model.Report, error) {
	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	return b.ProcessClaims(ctx, claims), nil
}

// WriteReports writes a JSON and a Markdown file per report into dir.
// It returns the first write error.
func (b *BatchProcessor) WriteReports(ctx context.Context, renderer *present.Renderer, dir string, reports []*model.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.concurrency, 1))

	for i, report := range reports {
		base := filepath.Join(dir, ReportName(i+1, report.Claim))
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := renderer.RenderJSON(report, base+".json"); err != nil {
				return err
			}
			return renderer.RenderMarkdown(report, base+".md")
		})
	}
	return g.Wait()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ReportName builds a file-system safe base name such as "003-moon-landing-hoax"
func ReportName(n int, claim string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(claim), "-"), "-")
	if len(slug) > 48 {
		slug = strings.TrimRight(slug[:48], "-")
	}
	if slug == "" {
		slug = "claim"
	}
	return fmt.Sprintf("%03d-%s", n, slug)
}

// ReadClaimsFromFile reads claims from a file (one per line).
// Blank lines and lines starting with # are skipped; duplicates are dropped.
func ReadClaimsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return claims, nil
}
