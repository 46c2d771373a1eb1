package news

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ppiankov/verdict/internal/cache"
	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/util"
	"github.com/ppiankov/verdict/internal/worker"
)

// NewFromConfig builds the configured headline source, wrapped in a cache
// when caching is enabled.
func NewFromConfig(cfg *model.Config, limiter *worker.Limiter, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.API.HTTPProxy, cfg.API.HTTPSProxy)
	client := &http.Client{Timeout: cfg.API.RequestTimeout, Transport: transport}
	userAgent := cfg.API.UserAgent

	var source Source
	switch cfg.News.Provider {
	case "", "newsapi":
		source = NewNewsAPISource(cfg.News, userAgent, client, limiter, logger)
	case "rss":
		robots := util.NewRobotsChecker(userAgent, client, cfg.API.RequestTimeout, logger)
		source = NewRSSSource(cfg.News.Feeds, userAgent, client, robots, limiter, logger)
	default:
		return nil, fmt.Errorf("unknown news provider: %s", cfg.News.Provider)
	}

	if !cfg.Cache.Enabled {
		return source, nil
	}
	return NewCachedSource(source, cache.FromConfig(cfg.Cache, logger), 0, logger), nil
}
