// Manual check against a live fact-checking service.
// Submits a few known claims and one archive query and prints what comes back.
//
//	go run ./cmd/smoke-check [base-url]
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/verdict/internal/api"
	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/normalize"
	"github.com/ppiankov/verdict/internal/worker"
)

func main() {
	cfg := model.DefaultConfig()
	if len(os.Args) > 1 {
		cfg.API.BaseURL = os.Args[1]
	}
	client := api.NewClient(cfg.API, worker.NewLimiter(1, 1), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Printf("=== Fact-check smoke test (%s) ===\n\n", cfg.API.BaseURL)

	claims := []string{
		"The moon landing was faked",
		"5G towers spread COVID-19",
	}
	failed := false
	for _, claim := range claims {
		fmt.Printf("Claim: %s\n", claim)
		fmt.Println(strings.Repeat("-", 60))

		raw, err := client.SubmitTextClaim(ctx, claim)
		if err != nil {
			failed = true
			fmt.Printf("  %s error: %v\n\n", api.ErrorKind(err), err)
			continue
		}
		res, badFormat := normalize.Normalize(raw)
		if badFormat {
			fmt.Printf("  unexpected response shape\n")
		}
		fmt.Printf("  summary:     %s\n", res.SummaryText)
		fmt.Printf("  fact-checks: %d\n", len(res.Claims))
		for _, c := range res.Claims {
			for _, r := range c.Reviews {
				fmt.Printf("    - %s: %s\n", r.PublisherName, r.TextualRating)
			}
		}
		fmt.Println()
	}

	page, err := client.ListArchiveArticles(ctx, model.ArchiveQuery{Page: 1, Limit: 5, Category: model.CategoryAll})
	if err != nil {
		failed = true
		fmt.Printf("Archive %s error: %v\n", api.ErrorKind(err), err)
	} else {
		fmt.Printf("Archive: %d of %d articles, %d pages\n", len(page.Articles), page.TotalResults, page.TotalPages)
	}

	if failed {
		os.Exit(1)
	}
}
