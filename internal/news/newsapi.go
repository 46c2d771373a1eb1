package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/util"
	"github.com/ppiankov/verdict/internal/worker"
)

// ErrNoAPIKey is returned when the NewsAPI source has no key configured
var ErrNoAPIKey = errors.New("news api key not configured (set VERDICT_NEWS_API_KEY)")

// NewsAPISource reads headlines from a NewsAPI-compatible service
type NewsAPISource struct {
	baseURL    string
	apiKey     string
	country    string
	pageSize   int
	userAgent  string
	httpClient *http.Client
	limiter    *worker.Limiter
	logger     *zap.Logger
}

// NewNewsAPISource creates a source from cfg. A nil client gets a default one.
func NewNewsAPISource(cfg model.NewsConfig, userAgent string, client *http.Client, limiter *worker.Limiter, logger *zap.Logger) *NewsAPISource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	country := cfg.Country
	if country == "" {
		country = "us"
	}
	return &NewsAPISource{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		country:    country,
		pageSize:   pageSize,
		userAgent:  userAgent,
		httpClient: client,
		limiter:    limiter,
		logger:     logger,
	}
}

func (s *NewsAPISource) Name() string { return "newsapi" }

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

// Headlines fetches one page of headlines for sel
func (s *NewsAPISource) Headlines(ctx context.Context, sel Selection) ([]model.ArticleSummary, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if s.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	target := s.endpoint(sel)
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, target); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.apiKey)
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}
	defer resp.Body.Close()

	var payload newsAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode headlines (status %d): %w", resp.StatusCode, err)
	}
	if payload.Status != "ok" {
		msg := payload.Message
		if msg == "" {
			msg = "status " + strconv.Itoa(resp.StatusCode)
		}
		return nil, fmt.Errorf("news api: %s", msg)
	}

	s.logger.Debug("headlines fetched",
		zap.String("selection", sel.String()),
		zap.Int("articles", len(payload.Articles)))

	articles := make([]model.ArticleSummary, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		if a.Title == "" || a.Title == "[Removed]" {
			continue
		}
		articles = append(articles, model.ArticleSummary{
			Title:       a.Title,
			Excerpt:     util.PlainText(a.Description),
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			Publisher:   publisherName(a.Source.Name, a.URL),
			PublishedAt: parsePublished(a.PublishedAt),
		})
	}
	return articles, nil
}

func (s *NewsAPISource) endpoint(sel Selection) string {
	params := url.Values{}
	var path string
	if sel.Mode == ModeCategory {
		path = "/top-headlines"
		params.Set("country", s.country)
		params.Set("category", strings.ToLower(strings.TrimSpace(sel.Value)))
	} else {
		path = "/everything"
		params.Set("q", strings.TrimSpace(sel.Value))
		params.Set("language", "en")
		params.Set("sortBy", "publishedAt")
	}
	params.Set("pageSize", strconv.Itoa(s.pageSize))
	return s.baseURL + path + "?" + params.Encode()
}

// publisherName prefers the source name and falls back to the link's domain
func publisherName(name, link string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if domain, ok := util.RegistrableDomain(link); ok {
		return domain
	}
	return ""
}

func parsePublished(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
