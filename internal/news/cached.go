package news

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/verdict/internal/cache"
	"github.com/ppiankov/verdict/internal/model"
)

// CachedSource serves repeated selections from a cache and coalesces
// concurrent identical requests into one upstream call.
type CachedSource struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewCachedSource wraps source. ttl 0 uses the cache's default expiry.
func NewCachedSource(source Source, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{source: source, cache: c, ttl: ttl, logger: logger}
}

func (s *CachedSource) Name() string { return s.source.Name() }

// Headlines returns cached headlines for sel or fetches them. Errors are
// returned as is and never cached.
func (s *CachedSource) Headlines(ctx context.Context, sel Selection) ([]model.ArticleSummary, error) {
	key := cache.Key(s.source.Name(), string(sel.Mode), strings.ToLower(strings.TrimSpace(sel.Value)))

	if articles, ok := cache.GetJSON[[]model.ArticleSummary](s.cache, key); ok {
		s.logger.Debug("headlines cache hit", zap.String("selection", sel.String()))
		return articles, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		articles, err := s.source.Headlines(ctx, sel)
		if err != nil {
			return nil, err
		}
		if err := cache.SetJSON(s.cache, key, articles, s.ttl); err != nil {
			s.logger.Warn("headlines cache write failed", zap.Error(err))
		}
		return articles, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("headlines request coalesced", zap.String("selection", sel.String()))
	}
	articles := v.([]model.ArticleSummary)
	return append([]model.ArticleSummary(nil), articles...), nil
}
