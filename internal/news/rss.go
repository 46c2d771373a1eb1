package news

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/util"
	"github.com/ppiankov/verdict/internal/worker"
)

const excerptRunes = 300

// ErrDisallowed is returned when robots.txt forbids polling a feed
var ErrDisallowed = errors.New("feed disallowed by robots.txt")

// RSSSource reads headlines from per-category RSS or Atom feeds
type RSSSource struct {
	feeds      map[string]string
	userAgent  string
	httpClient *http.Client
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	logger     *zap.Logger
}

// NewRSSSource creates a source over feeds (category to URL).
// A nil robots checker skips robots.txt checks.
func NewRSSSource(feeds map[string]string, userAgent string, client *http.Client, robots *util.RobotsChecker, limiter *worker.Limiter, logger *zap.Logger) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := make(map[string]string, len(feeds))
	for category, u := range feeds {
		normalized[strings.ToLower(category)] = u
	}
	return &RSSSource{
		feeds:      normalized,
		userAgent:  userAgent,
		httpClient: client,
		robots:     robots,
		limiter:    limiter,
		logger:     logger,
	}
}

func (s *RSSSource) Name() string { return "rss" }

// Headlines returns the items of the category's feed, or for a topic the
// items of every feed mentioning it, newest first.
func (s *RSSSource) Headlines(ctx context.Context, sel Selection) ([]model.ArticleSummary, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	if sel.Mode == ModeCategory {
		category := strings.ToLower(strings.TrimSpace(sel.Value))
		feedURL, ok := s.feeds[category]
		if !ok {
			return nil, fmt.Errorf("no feed configured for category %q", category)
		}
		articles, err := s.fetch(ctx, feedURL)
		if err != nil {
			return nil, err
		}
		return sortNewest(articles), nil
	}

	return s.searchAll(ctx, strings.TrimSpace(sel.Value))
}

// searchAll fetches every feed concurrently and keeps the items matching topic.
// Feeds that fail are skipped unless all of them fail.
func (s *RSSSource) searchAll(ctx context.Context, topic string) ([]model.ArticleSummary, error) {
	urls := make([]string, 0, len(s.feeds))
	for _, u := range s.feeds {
		if !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, errors.New("no feeds configured")
	}

	var (
		mu       sync.Mutex
		articles []model.ArticleSummary
		errs     []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, u := range urls {
		g.Go(func() error {
			items, err := s.fetch(gctx, u)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			articles = append(articles, items...)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(errs) == len(urls) {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		s.logger.Warn("feed skipped", zap.Error(err))
	}

	needle := strings.ToLower(topic)
	matched := make([]model.ArticleSummary, 0, len(articles))
	seen := make(map[string]bool)
	for _, a := range articles {
		if seen[a.URL] {
			continue
		}
		if !strings.Contains(strings.ToLower(a.Title), needle) && !strings.Contains(strings.ToLower(a.Excerpt), needle) {
			continue
		}
		seen[a.URL] = true
		matched = append(matched, a)
	}
	return sortNewest(matched), nil
}

func (s *RSSSource) fetch(ctx context.Context, feedURL string) ([]model.ArticleSummary, error) {
	var delay time.Duration
	if s.robots != nil {
		decision, err := s.robots.Check(ctx, feedURL)
		if err != nil {
			return nil, fmt.Errorf("check robots for %s: %w", feedURL, err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("%s: %w", feedURL, ErrDisallowed)
		}
		delay = decision.CrawlDelay
	}
	if s.limiter != nil {
		if err := s.limiter.WaitWithDelay(ctx, feedURL, delay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", feedURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", feedURL, resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", feedURL, err)
	}

	s.logger.Debug("feed fetched", zap.String("url", feedURL), zap.Int("items", len(feed.Items)))

	publisher := strings.TrimSpace(feed.Title)
	if publisher == "" {
		publisher, _ = util.RegistrableDomain(feedURL)
	}

	articles := make([]model.ArticleSummary, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		a := model.ArticleSummary{
			ID:        item.GUID,
			Title:     util.PlainText(item.Title),
			Excerpt:   util.Truncate(util.PlainText(desc), excerptRunes),
			URL:       item.Link,
			Publisher: publisher,
		}
		if item.Image != nil {
			a.ImageURL = item.Image.URL
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			a.PublishedAt = *item.UpdatedParsed
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// sortNewest orders articles by publication time, newest first.
// Undated items keep their feed order at the end.
func sortNewest(articles []model.ArticleSummary) []model.ArticleSummary {
	sort.SliceStable(articles, func(i, j int) bool {
		a, b := articles[i].PublishedAt, articles[j].PublishedAt
		if a.IsZero() || b.IsZero() {
			return !a.IsZero() && b.IsZero()
		}
		return a.After(b)
	})
	return articles
}
