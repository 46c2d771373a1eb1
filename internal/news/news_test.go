package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/verdict/internal/cache"
	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/util"
	"github.com/ppiankov/verdict/internal/worker"
)

func newsConfig(baseURL, key string) model.NewsConfig {
	return model.NewsConfig{Provider: "newsapi", APIKey: key, BaseURL: baseURL, Country: "us", PageSize: 20}
}

func TestSelection_Validate(t *testing.T) {
	assert.NoError(t, Category("health").Validate())
	assert.NoError(t, Category("Health").Validate())
	assert.NoError(t, Topic("climate change").Validate())
	assert.Error(t, Category("weather").Validate())
	assert.Error(t, Topic("  ").Validate())
	assert.Error(t, Selection{Mode: "keyword", Value: "AI"}.Validate())
	assert.Equal(t, Category("general"), DefaultSelection())
}

func TestLimit(t *testing.T) {
	articles := make([]model.ArticleSummary, 5)
	assert.Len(t, Limit(articles, 3), 3)
	assert.Len(t, Limit(articles, 0), 5)
	assert.Len(t, Limit(articles, 10), 5)
}

func TestNewsAPI_Category(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/top-headlines", r.URL.Path)
		assert.Equal(t, "us", r.URL.Query().Get("country"))
		assert.Equal(t, "health", r.URL.Query().Get("category"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Empty(t, r.URL.Query().Get("apiKey"), "key never in the URL")

		fmt.Fprint(w, `{"status":"ok","totalResults":3,"articles":[
			{"source":{"name":"Reuters"},"title":"Measles cases rise","description":"<p>Officials &amp; doctors warn</p>","url":"https://www.reuters.com/a","urlToImage":"https://img/x.jpg","publishedAt":"2024-03-15T10:30:00Z"},
			{"source":{"name":""},"title":"Unnamed source","url":"https://news.bbc.co.uk/b"},
			{"source":{"name":null},"title":"[Removed]","url":"https://removed.com"}
		]}`)
	}))
	defer srv.Close()

	src := NewNewsAPISource(newsConfig(srv.URL, "secret"), "verdict/test", srv.Client(), worker.NewLimiter(0, 1), nil)
	articles, err := src.Headlines(context.Background(), Category("Health"))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "Measles cases rise", articles[0].Title)
	assert.Equal(t, "Officials & doctors warn", articles[0].Excerpt)
	assert.Equal(t, "Reuters", articles[0].Publisher)
	assert.Equal(t, "https://img/x.jpg", articles[0].ImageURL)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), articles[0].PublishedAt)

	assert.Equal(t, "bbc.co.uk", articles[1].Publisher)
	assert.True(t, articles[1].PublishedAt.IsZero())
}

func TestNewsAPI_Topic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "climate change", q.Get("q"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "20", q.Get("pageSize"))
		fmt.Fprint(w, `{"status":"ok","articles":[]}`)
	}))
	defer srv.Close()

	src := NewNewsAPISource(newsConfig(srv.URL+"/", "k"), "", srv.Client(), nil, nil)
	articles, err := src.Headlines(context.Background(), Topic(" climate change "))
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestNewsAPI_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid or incorrect."}`)
	}))
	defer srv.Close()

	src := NewNewsAPISource(newsConfig(srv.URL, "bad"), "", srv.Client(), nil, nil)
	_, err := src.Headlines(context.Background(), Category("general"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Your API key is invalid or incorrect.")
}

func TestNewsAPI_Errors(t *testing.T) {
	src := NewNewsAPISource(newsConfig("http://127.0.0.1:1", ""), "", nil, nil, nil)
	_, err := src.Headlines(context.Background(), Category("general"))
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = src.Headlines(context.Background(), Category("weather"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoAPIKey, "selection validated first")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer srv.Close()
	_, err = NewNewsAPISource(newsConfig(srv.URL, "k"), "", srv.Client(), nil, nil).Headlines(context.Background(), Category("general"))
	assert.Error(t, err)
}

const healthFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Health News</title>
  <link>https://example.org/health</link>
  <item>
    <title>Older vaccine study</title>
    <link>https://example.org/a</link>
    <guid>a</guid>
    <description>&lt;p&gt;A look at &lt;b&gt;vaccine&lt;/b&gt; data&lt;/p&gt;</description>
    <pubDate>Mon, 11 Mar 2024 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Newer sleep research</title>
    <link>https://example.org/b</link>
    <guid>b</guid>
    <description>Sleep matters</description>
    <pubDate>Wed, 13 Mar 2024 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Undated note</title>
    <link>https://example.org/c</link>
  </item>
</channel>
</rss>`

const scienceFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Science News</title>
  <item>
    <title>Vaccine platform for malaria</title>
    <link>https://example.org/d</link>
    <pubDate>Tue, 12 Mar 2024 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Older vaccine study</title>
    <link>https://example.org/a</link>
    <pubDate>Mon, 11 Mar 2024 09:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		case "/health.xml":
			fmt.Fprint(w, healthFeed)
		case "/science.xml":
			fmt.Fprint(w, scienceFeed)
		case "/private/feed.xml":
			t.Error("disallowed feed fetched")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newRSS(srv *httptest.Server, feeds map[string]string) *RSSSource {
	robots := util.NewRobotsChecker("verdict/test", srv.Client(), time.Second, nil)
	return NewRSSSource(feeds, "verdict/test", srv.Client(), robots, worker.NewLimiter(0, 1), nil)
}

func TestRSS_Category(t *testing.T) {
	srv := feedServer(t)
	src := newRSS(srv, map[string]string{"Health": srv.URL + "/health.xml"})

	articles, err := src.Headlines(context.Background(), Category("health"))
	require.NoError(t, err)
	require.Len(t, articles, 3)

	assert.Equal(t, "Newer sleep research", articles[0].Title)
	assert.Equal(t, "Older vaccine study", articles[1].Title)
	assert.Equal(t, "Undated note", articles[2].Title, "undated items last")

	assert.Equal(t, "A look at vaccine data", articles[1].Excerpt)
	assert.Equal(t, "Health News", articles[1].Publisher)
	assert.Equal(t, "https://example.org/a", articles[1].URL)
}

func TestRSS_Topic(t *testing.T) {
	srv := feedServer(t)
	src := newRSS(srv, map[string]string{
		"health":  srv.URL + "/health.xml",
		"science": srv.URL + "/science.xml",
	})

	articles, err := src.Headlines(context.Background(), Topic("Vaccine"))
	require.NoError(t, err)

	var urls []string
	for _, a := range articles {
		urls = append(urls, a.URL)
	}
	assert.Equal(t, []string{"https://example.org/d", "https://example.org/a"}, urls, "matching, deduplicated, newest first")
}

func TestRSS_Errors(t *testing.T) {
	srv := feedServer(t)

	src := newRSS(srv, map[string]string{"health": srv.URL + "/private/feed.xml"})
	_, err := src.Headlines(context.Background(), Category("health"))
	assert.ErrorIs(t, err, ErrDisallowed)

	_, err = src.Headlines(context.Background(), Category("science"))
	assert.ErrorContains(t, err, "no feed configured")

	_, err = newRSS(srv, map[string]string{"health": srv.URL + "/missing.xml"}).Headlines(context.Background(), Category("health"))
	assert.ErrorContains(t, err, "status 404")

	_, err = newRSS(srv, nil).Headlines(context.Background(), Topic("vaccine"))
	assert.Error(t, err)
}

func TestRSS_TopicSkipsFailedFeeds(t *testing.T) {
	srv := feedServer(t)
	src := newRSS(srv, map[string]string{
		"health":  srv.URL + "/health.xml",
		"science": srv.URL + "/missing.xml",
	})

	articles, err := src.Headlines(context.Background(), Topic("sleep"))
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Newer sleep research", articles[0].Title)

	src = newRSS(srv, map[string]string{"health": srv.URL + "/missing.xml"})
	_, err = src.Headlines(context.Background(), Topic("sleep"))
	assert.Error(t, err, "all feeds failed")
}

type countingSource struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Headlines(ctx context.Context, sel Selection) ([]model.ArticleSummary, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return []model.ArticleSummary{{Title: sel.Value, URL: "https://example.org/" + sel.Value}}, nil
}

func TestCachedSource_Hit(t *testing.T) {
	inner := &countingSource{}
	src := NewCachedSource(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0, nil)

	for range 3 {
		articles, err := src.Headlines(context.Background(), Category("health"))
		require.NoError(t, err)
		require.Len(t, articles, 1)
		assert.Equal(t, "health", articles[0].Title)
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err := src.Headlines(context.Background(), Topic("health"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load(), "mode is part of the key")
	assert.Equal(t, "counting", src.Name())
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	inner := &countingSource{err: errors.New("upstream down")}
	src := NewCachedSource(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0, nil)

	for range 2 {
		_, err := src.Headlines(context.Background(), Category("health"))
		assert.EqualError(t, err, "upstream down")
	}
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedSource_Coalesces(t *testing.T) {
	inner := &countingSource{release: make(chan struct{})}
	src := NewCachedSource(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0, nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			articles, err := src.Headlines(context.Background(), Topic("space"))
			assert.NoError(t, err)
			assert.Len(t, articles, 1)
		}()
	}

	require.Eventually(t, func() bool { return inner.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.LessOrEqual(t, inner.calls.Load(), int32(2))
}

func TestCachedSource_StoresJSON(t *testing.T) {
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	src := NewCachedSource(&countingSource{}, mem, 0, nil)

	_, err := src.Headlines(context.Background(), Category("science"))
	require.NoError(t, err)

	raw, ok := mem.Get(cache.Key("counting", "category", "science"))
	require.True(t, ok)
	var stored []model.ArticleSummary
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "science", stored[0].Title)
}

func TestNewFromConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Cache.Enabled = false

	src, err := NewFromConfig(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &NewsAPISource{}, src)

	cfg.News.Provider = "rss"
	src, err = NewFromConfig(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &RSSSource{}, src)

	cfg.Cache.Enabled = true
	cfg.Cache.Dir = ""
	src, err = NewFromConfig(cfg, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &CachedSource{}, src)
	assert.Equal(t, "rss", src.Name())

	cfg.News.Provider = "carrier-pigeon"
	_, err = NewFromConfig(cfg, nil, nil)
	assert.Error(t, err)
}
