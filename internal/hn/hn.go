package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/matheuskafuri/hntop/internal/story"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"
	// MaxStories caps how many items are fetched per call.
	MaxStories = 100
)

// ErrEmptyItem is returned when the item endpoint answers with JSON null,
// which the API does for deleted or unknown ids.
var ErrEmptyItem = errors.New("empty item")

// Client fetches stories from the Hacker News Firebase API.
type Client struct {
	baseURL     string
	http        *http.Client
	limit       int
	concurrency int
	timeout     time.Duration
	partial     bool
	log         *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLimit sets how many top ids are kept. Values outside 1..MaxStories
// fall back to MaxStories.
func WithLimit(n int) Option {
	return func(c *Client) { c.limit = n }
}

// WithConcurrency bounds in-flight item requests. Zero means no bound.
func WithConcurrency(n int) Option {
	return func(c *Client) { c.concurrency = n }
}

// WithTimeout puts a deadline on a whole TopStories call. Zero means none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithPartial makes FetchStories drop failed items instead of failing the
// batch.
func WithPartial(on bool) Option {
	return func(c *Client) { c.partial = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    http.DefaultClient,
		limit:   MaxStories,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limit <= 0 || c.limit > MaxStories {
		c.limit = MaxStories
	}
	if c.concurrency < 0 {
		c.concurrency = 0
	}
	return c
}

// TopStories fetches the ranked id list and then every retained item.
func (c *Client) TopStories(ctx context.Context) ([]story.Story, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	ids, err := c.TopStoryIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > c.limit {
		ids = ids[:c.limit]
	}

	stories, err := c.FetchStories(ctx, ids)
	if err != nil {
		c.log.Error("fetching top stories failed", "err", err, "elapsed", time.Since(start))
		return nil, err
	}
	c.log.Info("fetched top stories", "count", len(stories), "elapsed", time.Since(start))
	return stories, nil
}

// TopStoryIDs returns the upstream ranking, best first.
func (c *Client) TopStoryIDs(ctx context.Context) ([]int, error) {
	var ids []int
	if err := c.getJSON(ctx, c.baseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("topstories: %w", err)
	}
	return ids, nil
}

// Item fetches a single story.
func (c *Client) Item(ctx context.Context, id int) (story.Story, error) {
	var s *story.Story
	if err := c.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", c.baseURL, id), &s); err != nil {
		return story.Story{}, fmt.Errorf("item %d: %w", id, err)
	}
	if s == nil {
		return story.Story{}, fmt.Errorf("item %d: %w", id, ErrEmptyItem)
	}
	return *s, nil
}

// FetchStories requests every id concurrently and returns the stories in the
// order of ids. Unless partial mode is on, one failure fails the batch and
// cancels the requests still in flight.
func (c *Client) FetchStories(ctx context.Context, ids []int) ([]story.Story, error) {
	if c.partial {
		return c.fetchPartial(ctx, ids)
	}

	stories := make([]story.Story, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			s, err := c.Item(gctx, id)
			if err != nil {
				return err
			}
			stories[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stories, nil
}

// fetchPartial keeps whatever items loaded. A deadline or cancellation still
// fails the whole call.
func (c *Client) fetchPartial(ctx context.Context, ids []int) ([]story.Story, error) {
	var (
		results = make([]story.Story, len(ids))
		ok      = make([]bool, len(ids))
		g       errgroup.Group
	)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			s, err := c.Item(ctx, id)
			if err != nil {
				c.log.Warn("dropping story", "id", id, "err", err)
				return nil
			}
			results[i] = s
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stories := make([]story.Story, 0, len(ids))
	for i, s := range results {
		if ok[i] {
			stories = append(stories, s)
		}
	}
	if dropped := len(ids) - len(stories); dropped > 0 {
		c.log.Warn("partial fetch", "requested", len(ids), "dropped", dropped)
	}
	return stories, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
