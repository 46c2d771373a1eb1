// Package normalize turns the loosely structured fact-check response into a
// stable result the presentation layer can rely on.
//
// Nothing here returns an error or panics: a response that does not have the
// expected shape yields an empty result plus a data-format flag.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/verdict/internal/model"
)

// Decode parses a response body into a raw result.
// Bodies that are not a JSON object decode to nil.
func Decode(body []byte) model.RawResult {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return model.RawResult(m)
}

// Normalize maps raw into the canonical result shape.
// The boolean is true when the claim-review data was not an array.
func Normalize(raw model.RawResult) (model.NormalizedResult, bool) {
	res := model.EmptyResult()
	if raw == nil {
		return res, true
	}

	data, _ := asObject(raw["data"])

	switch summary := raw["summary"].(type) {
	case string:
		res.SummaryText = summary
	case map[string]any:
		res.SummaryText = stringField(summary, "text")
		res.Labels = stringSlice(summary["labels"])
	}

	res.AIAnalysis = stringField(data, "aiAnalysis")
	res.AICategorization = stringField(data, "aiCategorization")

	items, ok := claimItems(data)
	for _, item := range items {
		obj, isObj := asObject(item)
		if !isObj {
			continue
		}
		res.Claims = append(res.Claims, claimEntry(obj))
	}

	res.ClaimReviewCount = len(res.Claims)
	if summary, isObj := asObject(raw["summary"]); isObj {
		if n, found := count(summary["claimReviewCount"]); found {
			res.ClaimReviewCount = n
		}
	}

	return res, !ok
}

// claimItems locates the claim-review array: data.factCheckResults.claims
// first, then data.factCheckResults itself.
func claimItems(data map[string]any) ([]any, bool) {
	switch fc := data["factCheckResults"].(type) {
	case map[string]any:
		items, ok := fc["claims"].([]any)
		return items, ok
	case []any:
		return fc, true
	default:
		return nil, false
	}
}

func claimEntry(m map[string]any) model.ClaimEntry {
	entry := model.ClaimEntry{
		Text:      stringField(m, "text"),
		Claimant:  stringField(m, "claimant"),
		ClaimDate: stringField(m, "claimDate"),
		Reviews:   []model.ClaimReview{},
	}

	reviews, ok := m["claimReview"].([]any)
	if !ok {
		reviews, _ = m["reviews"].([]any)
	}
	for _, r := range reviews {
		obj, isObj := asObject(r)
		if !isObj {
			continue
		}
		entry.Reviews = append(entry.Reviews, claimReview(obj))
	}

	return entry
}

func claimReview(m map[string]any) model.ClaimReview {
	review := model.ClaimReview{
		PublisherName: model.NotAvailable,
		PublisherSite: model.NotAvailable,
		TextualRating: stringField(m, "textualRating"),
		URL:           stringField(m, "url"),
		ReviewDate:    stringField(m, "reviewDate"),
		Title:         stringField(m, "title"),
	}

	if publisher, ok := asObject(m["publisher"]); ok {
		review.PublisherName = stringField(publisher, "name")
		review.PublisherSite = stringField(publisher, "site")
	}
	if !model.Available(review.PublisherName) {
		review.PublisherName = stringField(m, "publisherName")
	}

	return review
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// stringField returns m[key] when it is a string, NotAvailable otherwise
func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return model.NotAvailable
}

func stringSlice(v any) []string {
	out := []string{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// count accepts a non-negative JSON number or numeric string
func count(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || n > math.MaxInt32 || math.IsNaN(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil || i < 0 {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
