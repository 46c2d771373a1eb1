package model

import "time"

// CategoryAll is the archive category sentinel meaning "no filter"
const CategoryAll = "all"

// ArticleSummary is a single article shown in the archive or the headline feed
type ArticleSummary struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	Publisher   string    `json:"publisher,omitempty"`
	Verdict     string    `json:"verdict,omitempty"` // true, false, mixed (archive only)
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// ArchiveQuery selects a page of fact-checked archive articles
type ArchiveQuery struct {
	Page       int    `json:"page" validate:"gte=1"`
	Limit      int    `json:"limit" validate:"gte=1,lte=100"`
	SearchTerm string `json:"query"`
	Category   string `json:"category" validate:"required"`
}

// DefaultArchiveQuery returns the query issued when the archive is first shown
func DefaultArchiveQuery(limit int) ArchiveQuery {
	return ArchiveQuery{
		Page:       1,
		Limit:      limit,
		SearchTerm: "",
		Category:   CategoryAll,
	}
}

// Filtered reports whether the query narrows the archive by category
func (q ArchiveQuery) Filtered() bool {
	return q.Category != "" && q.Category != CategoryAll
}

// ArchivePage is one page of archive results
type ArchivePage struct {
	Articles     []ArticleSummary `json:"articles"`
	CurrentPage  int              `json:"current_page"`
	TotalPages   int              `json:"total_pages"`
	HasNextPage  bool             `json:"has_next_page"`
	TotalResults int              `json:"total_results"`
}

// ArchiveCategories are the filters offered by the archive
var ArchiveCategories = []string{CategoryAll, "politics", "health", "technology", "science", "general"}
