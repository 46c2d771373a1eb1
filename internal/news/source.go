// Package news fetches current headlines by category or topic.
package news

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/verdict/internal/model"
)

// Mode selects how headlines are chosen
type Mode string

const (
	ModeCategory Mode = "category"
	ModeTopic    Mode = "topic"
)

// DefaultCategories are the headline categories offered
var DefaultCategories = []string{"general", "business", "entertainment", "health", "science", "sports", "technology"}

// DefaultTopics are the suggested topic searches
var DefaultTopics = []string{"politics", "AI", "cryptocurrency", "education", "climate change", "startups", "space"}

// Selection is one headline request
type Selection struct {
	Mode  Mode
	Value string
}

// Category selects the top headlines of a category
func Category(name string) Selection {
	return Selection{Mode: ModeCategory, Value: name}
}

// Topic selects recent articles matching a free-text topic
func Topic(query string) Selection {
	return Selection{Mode: ModeTopic, Value: query}
}

// DefaultSelection is the first category
func DefaultSelection() Selection {
	return Category(DefaultCategories[0])
}

// Validate rejects an unknown mode, an empty value or an unknown category
func (s Selection) Validate() error {
	value := strings.TrimSpace(s.Value)
	switch s.Mode {
	case ModeCategory:
		if !slices.Contains(DefaultCategories, strings.ToLower(value)) {
			return fmt.Errorf("unknown category %q (want one of %s)", s.Value, strings.Join(DefaultCategories, ", "))
		}
	case ModeTopic:
		if value == "" {
			return fmt.Errorf("topic must not be empty")
		}
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}
	return nil
}

func (s Selection) String() string {
	return string(s.Mode) + ":" + s.Value
}

// Source provides headlines
type Source interface {
	Headlines(ctx context.Context, sel Selection) ([]model.ArticleSummary, error)
	Name() string
}

// Limit returns at most n articles; n <= 0 means all
func Limit(articles []model.ArticleSummary, n int) []model.ArticleSummary {
	if n <= 0 || len(articles) <= n {
		return articles
	}
	return articles[:n]
}
