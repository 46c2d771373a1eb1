// Package archive drives the paginated, searchable feed of fact-checked articles.
package archive

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/verdict/internal/model"
	"github.com/ppiankov/verdict/internal/worker"
)

// DefaultDebounce is how long search and category input must be quiet before a query
const DefaultDebounce = 500 * time.Millisecond

// ErrorBanner is shown while the last query failed
const ErrorBanner = "Failed to load articles. Please try again later."

var errEmptyPage = errors.New("archive lister returned no page")

// Lister fetches archive pages. *api.Client implements it.
type Lister interface {
	ListArchiveArticles(ctx context.Context, q model.ArchiveQuery) (*model.ArchivePage, error)
}

// Snapshot is a copy of the controller state
type Snapshot struct {
	SearchTerm   string
	Category     string
	CurrentPage  int
	Articles     []model.ArticleSummary
	TotalPages   int
	HasNextPage  bool
	TotalResults int
	Loading      bool
	Error        string
	Generation   uint64
}

// Controller owns the archive state. Queries run in the background; only the
// latest generation may write its result.
type Controller struct {
	lister    Lister
	pageSize  int
	debouncer *worker.Debouncer
	logger    *zap.Logger

	notifyMu   sync.Mutex
	mu         sync.Mutex
	ctx        context.Context
	state      Snapshot
	generation uint64
	inflight   int
	idle       chan struct{}
	closed     bool
	listeners  []func(Snapshot)
}

// NewController creates a controller. A nil clock uses wall time and a
// negative debounce means DefaultDebounce.
func NewController(lister Lister, pageSize int, debounce time.Duration, clock worker.Clock, logger *zap.Logger) *Controller {
	if debounce < 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	idle := make(chan struct{})
	close(idle)

	return &Controller{
		lister:    lister,
		pageSize:  pageSize,
		debouncer: worker.NewDebouncerWithClock(debounce, clock),
		logger:    logger,
		ctx:       context.Background(),
		idle:      idle,
		state: Snapshot{
			Category:    model.CategoryAll,
			CurrentPage: 1,
			Articles:    []model.ArticleSummary{},
		},
	}
}

// Mount issues the initial query for page 1 with the current filters (no
// search and all categories unless set before). A pending debounced query is
// dropped since Mount covers it. ctx bounds every query issued afterwards.
func (c *Controller) Mount(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.debouncer.Cancel()
	c.dispatch(1, false)
}

// Flush runs a pending debounced query now. It reports whether one was pending.
func (c *Controller) Flush() bool {
	if !c.debouncer.Cancel() {
		return false
	}
	return c.dispatch(1, false)
}

// SetSearchTerm changes the search text and schedules a debounced reload.
// It reports whether the term changed.
func (c *Controller) SetSearchTerm(term string) bool {
	return c.update(func(s *Snapshot) bool {
		if s.SearchTerm == term {
			return false
		}
		s.SearchTerm = term
		return true
	})
}

// SetCategory changes the category filter; "" means all categories
func (c *Controller) SetCategory(category string) bool {
	if category == "" {
		category = model.CategoryAll
	}
	return c.update(func(s *Snapshot) bool {
		if s.Category == category {
			return false
		}
		s.Category = category
		return true
	})
}

func (c *Controller) update(apply func(*Snapshot) bool) bool {
	c.notifyMu.Lock()
	c.mu.Lock()
	if !apply(&c.state) {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		return false
	}
	c.publishLocked()

	c.debouncer.Schedule(func() { c.dispatch(1, false) })
	return true
}

// LoadMore fetches the next page and appends it. It does nothing and returns
// false when there is no next page or a query is already running.
func (c *Controller) LoadMore() bool {
	return c.dispatch(0, true)
}

// dispatch starts a query under a new generation. Appending always asks for
// the page after the current one.
func (c *Controller) dispatch(page int, appendPage bool) bool {
	c.notifyMu.Lock()
	c.mu.Lock()

	if c.closed || (appendPage && (!c.state.HasNextPage || c.state.Loading)) {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		return false
	}
	if appendPage {
		page = c.state.CurrentPage + 1
	}

	q := model.ArchiveQuery{
		Page:       page,
		Limit:      c.pageSize,
		SearchTerm: c.state.SearchTerm,
		Category:   c.state.Category,
	}
	c.generation++
	gen := c.generation
	c.state.Generation = gen

	if err := model.ValidateQuery(q); err != nil {
		c.state.Loading = false
		c.state.Error = ErrorBanner
		c.logger.Warn("archive query rejected", zap.Uint64("generation", gen), zap.Error(err))
		c.publishLocked()
		return false
	}

	c.state.Loading = true
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	ctx := c.ctx
	c.publishLocked()

	c.logger.Debug("archive query",
		zap.Uint64("generation", gen),
		zap.Int("page", q.Page),
		zap.String("category", q.Category),
		zap.String("search", q.SearchTerm))

	go func() {
		result, err := c.lister.ListArchiveArticles(ctx, q)
		c.settle(gen, appendPage, result, err)
	}()
	return true
}

func (c *Controller) settle(gen uint64, appendPage bool, page *model.ArchivePage, err error) {
	c.notifyMu.Lock()
	c.mu.Lock()
	defer c.finishQuery()

	if gen != c.generation {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		c.logger.Debug("discarding stale archive page", zap.Uint64("generation", gen))
		return
	}

	c.state.Loading = false
	if err == nil && page == nil {
		err = errEmptyPage
	}
	if err != nil {
		c.state.Error = ErrorBanner
		c.logger.Warn("archive query failed", zap.Uint64("generation", gen), zap.Error(err))
		c.publishLocked()
		return
	}

	c.state.Error = ""
	if appendPage {
		c.state.Articles = append(c.state.Articles, page.Articles...)
	} else {
		c.state.Articles = append([]model.ArticleSummary{}, page.Articles...)
	}
	c.state.CurrentPage = page.CurrentPage
	c.state.TotalPages = page.TotalPages
	c.state.HasNextPage = page.HasNextPage
	c.state.TotalResults = page.TotalResults
	c.publishLocked()
}

// finishQuery marks one query finished
func (c *Controller) finishQuery() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
}

// publishLocked notifies listeners. Called with both locks held; releases them.
func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := c.state
	snap.Articles = append([]model.ArticleSummary{}, c.state.Articles...)
	return snap
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to be called after every state change.
// fn must not call back into the controller's setters.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// WaitIdle blocks until no query is in flight or ctx ends.
// A debounced query that has not fired yet is not waited for.
func (c *Controller) WaitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		n, idle := c.inflight, c.idle
		c.mu.Unlock()
		if n == 0 {
			return nil
		}
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close drops any pending debounced query and waits for running ones
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.debouncer.Cancel()
	_ = c.WaitIdle(context.Background())
}
