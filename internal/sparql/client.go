// Package sparql queries a remote SPARQL endpoint for the facts of one
// entity at a time.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ppiankov/footgraph/internal/cache"
	"github.com/ppiankov/footgraph/internal/model"
	"github.com/ppiankov/footgraph/internal/util"
)

const resultsMediaType = "application/sparql-results+json"

// RateLimiter paces outgoing requests per host
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Client executes entity lookups. It holds no per-request state and is
// safe for concurrent use by every enrichment task.
type Client struct {
	httpClient *http.Client
	endpoint   string
	namespace  string
	userAgent  string
	maxBytes   int64
	limiter    RateLimiter
	cache      cache.Cache
	logger     *zap.Logger
}

// NewClient creates a client for the configured endpoint. limiter, c and
// logger may be nil.
func NewClient(cfg model.EndpointConfig, limiter RateLimiter, c cache.Cache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 4_000_000
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		endpoint:  cfg.URL,
		namespace: cfg.ResourceNamespace,
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		limiter:   limiter,
		cache:     c,
		logger:    logger,
	}
}

// Endpoint returns the endpoint URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query runs the lookup for one entity name and returns every result row
// in service order. Cached answers are served without touching the network.
func (c *Client) Query(ctx context.Context, name string) ([]model.Binding, bool, error) {
	resource, err := ResourceIRI(c.namespace, name)
	if err != nil {
		return nil, false, err
	}

	key := cache.CacheKey(c.endpoint, resource.String())
	if rows, ok := c.cached(key); ok {
		c.logger.Debug("lookup served from cache", zap.String("entity", name))
		return rows, true, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.endpoint); err != nil {
			return nil, false, fmt.Errorf("rate limit: %w", err)
		}
	}

	rows, err := c.do(ctx, BuildQuery(resource))
	if err != nil {
		return nil, false, err
	}

	c.store(key, rows)
	return rows, false, nil
}

func (c *Client) do(ctx context.Context, query string) ([]model.Binding, error) {
	params := url.Values{
		"query":  {query},
		"format": {resultsMediaType},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", resultsMediaType)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxBytes))
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	rows, err := DecodeBindings(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) cached(key string) ([]model.Binding, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	var rows []model.Binding
	if err := json.Unmarshal(data, &rows); err != nil {
		_ = c.cache.Delete(key)
		return nil, false
	}
	return rows, true
}

func (c *Client) store(key string, rows []model.Binding) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := c.cache.Set(key, data, 0); err != nil {
		c.logger.Warn("cache write failed", zap.Error(err))
	}
}
