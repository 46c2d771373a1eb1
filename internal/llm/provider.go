// Package llm produces an optional plain-language digest of a fact-check result.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/verdict/internal/model"
)

// ErrCitationLeak is returned when a digest cites a URL outside the allowlist
var ErrCitationLeak = errors.New("digest cited a URL that is not a review of this claim")

// Provider generates digests
type Provider interface {
	Name() string
	Digest(ctx context.Context, req DigestRequest) (*DigestResponse, error)
}

// DigestRequest is the input for one digest
type DigestRequest struct {
	Subject string // claim text or image name
	Result  model.NormalizedResult

	// AllowedURLs is the strict allowlist of URLs the digest may cite
	AllowedURLs []string

	Prompt    string // overrides BuildPrompt when set
	Model     string
	MaxTokens int
}

// DigestResponse is the provider's output
type DigestResponse struct {
	Text       string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	Provider  string // "openai", "ollama" or "" (disabled)
	Model     string
	APIKey    string
	BaseURL   string
	Timeout   int // seconds
	MaxTokens int
}

// DefaultConfig returns a disabled configuration
func DefaultConfig() Config {
	return Config{
		Timeout:   30,
		MaxTokens: 600,
	}
}

const maxPromptURLs = 20

// ReviewURLs returns the distinct review URLs of a result, in order
func ReviewURLs(res model.NormalizedResult) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, c := range res.Claims {
		for _, r := range c.Reviews {
			if !model.Available(r.URL) || r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			urls = append(urls, r.URL)
		}
	}
	return urls
}

// BuildPrompt constructs the default digest prompt
func BuildPrompt(subject string, res model.NormalizedResult, allowed []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are writing a short recap of a fact-check result for a general reader.

RULES:
1. You may ONLY cite URLs from this list:
%s

2. Do not cite or mention any other source.
3. Do not add a verdict of your own. Report what the fact-checkers concluded.
4. If the result has no fact-checks, say so plainly.

Checked content: %s
Summary: %s
Labels: %s
Fact-checks found: %d

`, joinURLs(allowed), subject, orNone(res.SummaryText), orNone(strings.Join(res.Labels, ", ")), res.ClaimReviewCount)

	for i, c := range res.Claims {
		if i >= 5 {
			fmt.Fprintf(&b, "... and %d more claims\n", len(res.Claims)-5)
			break
		}
		fmt.Fprintf(&b, "- Claim: %s\n", orNone(c.Text))
		for _, r := range c.Reviews {
			fmt.Fprintf(&b, "  - %s rated it %q\n", orNone(r.PublisherName), orNone(r.TextualRating))
		}
	}

	b.WriteString("\nWrite 3-4 sentences.")
	return b.String()
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "(no URLs; do not cite any)"
	}
	var b strings.Builder
	for i, u := range urls {
		if i >= maxPromptURLs {
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-maxPromptURLs)
			break
		}
		b.WriteString("\n- " + u)
	}
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" || s == model.NotAvailable {
		return "(none)"
	}
	return s
}
