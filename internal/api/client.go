// Package api talks to the fact-checking backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/normalize"
	"github.com/ppiankov/verdict/internal/util"
	"github.com/ppiankov/verdict/internal/worker"
)

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
)

// retrySleepFunc is the sleep used between retries; tests replace it
var retrySleepFunc = time.Sleep

// Client is the backend client. All methods are safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	logger     *zap.Logger
}

// NewClient creates a client for the backend described by cfg.
// A nil limiter disables throttling and a nil logger discards logs.
func NewClient(cfg model.APIConfig, limiter *worker.Limiter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 4 << 20
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy)

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + "/api",
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		limiter:   limiter,
		logger:    logger,
	}
}

// SubmitTextClaim asks the backend to fact-check a text claim.
// A reply that is not a JSON object yields a nil RawResult and no error.
func (c *Client) SubmitTextClaim(ctx context.Context, claim string) (model.RawResult, error) {
	body, err := json.Marshal(map[string]string{"content": claim})
	if err != nil {
		return nil, fmt.Errorf("encode claim: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/fact-check", "application/json", body)
	if err != nil {
		return nil, err
	}
	return normalize.Decode(resp), nil
}

// SubmitImageClaim uploads an image as multipart field "image"
func (c *Client) SubmitImageClaim(ctx context.Context, img *model.ImagePayload) (model.RawResult, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, errors.New("submit image: empty payload")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, img.Name))
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/fact-check-image", mw.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}
	return normalize.Decode(resp), nil
}

type wireArticle struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	URL       string `json:"url"`
	ImageURL  string `json:"imageUrl"`
	Publisher string `json:"publisher"`
	Verdict   string `json:"verdict"`
	Date      string `json:"date"`
}

type wirePagination struct {
	CurrentPage  *int  `json:"currentPage"`
	TotalPages   *int  `json:"totalPages"`
	HasNextPage  *bool `json:"hasNextPage"`
	TotalResults *int  `json:"totalResults"`
}

type wireArchive struct {
	Articles   []wireArticle   `json:"articles"`
	Pagination *wirePagination `json:"pagination"`
}

// ListArchiveArticles fetches one page of the fact-checked article archive.
// Transient failures are retried; missing pagination fields get defaults
// derived from the query.
func (c *Client) ListArchiveArticles(ctx context.Context, q model.ArchiveQuery) (*model.ArchivePage, error) {
	if err := model.ValidateQuery(q); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("query", q.SearchTerm)
	params.Set("category", q.Category)

	body, err := c.getWithRetry(ctx, "/fact-check/articles?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var wire wireArchive
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, &FormatError{Op: "decode archive", Err: err}
	}
	return archivePage(wire, q), nil
}

func archivePage(wire wireArchive, q model.ArchiveQuery) *model.ArchivePage {
	page := &model.ArchivePage{
		Articles:     make([]model.ArticleSummary, 0, len(wire.Articles)),
		CurrentPage:  q.Page,
		TotalPages:   1,
		TotalResults: len(wire.Articles),
	}
	for _, a := range wire.Articles {
		page.Articles = append(page.Articles, model.ArticleSummary{
			ID:          a.ID,
			Title:       a.Title,
			Excerpt:     util.PlainText(a.Excerpt),
			URL:         a.URL,
			ImageURL:    a.ImageURL,
			Publisher:   a.Publisher,
			Verdict:     strings.ToLower(strings.TrimSpace(a.Verdict)),
			PublishedAt: parseDate(a.Date),
		})
	}

	if p := wire.Pagination; p != nil {
		if p.CurrentPage != nil {
			page.CurrentPage = *p.CurrentPage
		}
		if p.TotalPages != nil {
			page.TotalPages = *p.TotalPages
		}
		if p.HasNextPage != nil {
			page.HasNextPage = *p.HasNextPage
		}
		if p.TotalResults != nil {
			page.TotalResults = *p.TotalResults
		}
	}
	return page
}

func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// getWithRetry retries a GET on connection errors, 5xx and 429
func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying request",
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			retrySleepFunc(backoff)
		}

		body, err := c.do(ctx, http.MethodGet, path, "", nil)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func isRetryable(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Retryable()
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// do performs one request and returns the body of a 2xx reply
func (c *Client) do(ctx context.Context, method, path, contentType string, payload []byte) ([]byte, error) {
	target := c.baseURL + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, target); err != nil {
			return nil, &NetworkError{Op: "rate limit", Err: err}
		}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log := c.logger.With(zap.String("request_id", requestID), zap.String("method", method), zap.String("path", path))
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, &NetworkError{Op: "read body", Err: err}
	}

	log.Debug("request completed",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: serverMessage(data)}
	}
	return data, nil
}

// serverMessage extracts "error" or "message" from a JSON error body
func serverMessage(body []byte) string {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if s, ok := payload.Error.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(payload.Message)
}
