package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/verdict/internal/model"
)

// Digester attaches digests to reports. A digest failure never fails the check.
type Digester struct {
	provider Provider
	config   Config
	logger   *zap.Logger
}

// NewDigester creates a digester for config. A disabled config yields a
// digester whose Digest is a no-op.
func NewDigester(config Config, logger *zap.Logger) (*Digester, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return newDigester(provider, config, logger), nil
}

func newDigester(provider Provider, config Config, logger *zap.Logger) *Digester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Digester{provider: provider, config: config, logger: logger}
}

// Enabled reports whether a provider is configured
func (d *Digester) Enabled() bool {
	return d != nil && d.provider != nil
}

// Digest builds a digest for a successful report. It returns nil when
// digests are disabled or the report has no result. Provider failures are
// recorded as warnings on the returned digest.
func (d *Digester) Digest(ctx context.Context, report *model.Report) *model.Digest {
	if !d.Enabled() || report == nil || report.Failed() || report.Result == nil {
		return nil
	}

	allowed := ReviewURLs(*report.Result)
	digest := &model.Digest{
		Provider: d.provider.Name(),
		Model:    d.config.Model,
	}

	resp, err := d.provider.Digest(ctx, DigestRequest{
		Subject:     report.Claim,
		Result:      *report.Result,
		AllowedURLs: allowed,
		Model:       d.config.Model,
		MaxTokens:   d.config.MaxTokens,
	})
	if err != nil {
		d.logger.Warn("digest failed",
			zap.String("provider", digest.Provider),
			zap.Bool("citation_leak", errors.Is(err, ErrCitationLeak)),
			zap.Error(err))
		digest.Warnings = append(digest.Warnings, fmt.Sprintf("Digest generation failed: %v", err))
		return digest
	}

	digest.Text = resp.Text
	digest.Model = resp.Model
	digest.CitedURLs = resp.CitedURLs
	if resp.TokensUsed > 0 {
		digest.Warnings = append(digest.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	digest.Warnings = append(digest.Warnings, fmt.Sprintf("Verified %d of %d allowed citations", len(resp.CitedURLs), len(allowed)))
	return digest
}

// Attach sets report.Digest when a digest could be built
func (d *Digester) Attach(ctx context.Context, report *model.Report) {
	if digest := d.Digest(ctx, report); digest != nil {
		report.Digest = digest
	}
}
