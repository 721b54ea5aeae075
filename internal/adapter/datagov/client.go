// Package datagov retrieves paginated records from data.gov.in style
// open-data resources.
package datagov

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/water-quality-etl/internal/config"
	"github.com/couchcryptid/water-quality-etl/internal/domain"
	"github.com/couchcryptid/water-quality-etl/internal/observability"
	"golang.org/x/time/rate"
)

// PageArchiver stores raw page bodies as they are fetched.
type PageArchiver interface {
	ArchivePage(ctx context.Context, runID, source string, page int, body []byte) error
}

// Client pages through upstream resources. Pages are requested one at a
// time and a failed page is not retried.
type Client struct {
	httpClient *http.Client
	pageSize   int
	maxPages   int
	archiver   PageArchiver
	metrics    *observability.Metrics
	logger     *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewClient creates a Client. maxPages bounds the pages fetched per source
// even when the upstream never reports a total.
func NewClient(timeout time.Duration, pageSize, maxPages int, archiver PageArchiver, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		pageSize:   pageSize,
		maxPages:   maxPages,
		archiver:   archiver,
		metrics:    metrics,
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
	}
}

// response is one page of a data.gov.in resource. Numeric envelope fields
// arrive as numbers or strings depending on the resource.
type response struct {
	Title   string           `json:"title"`
	Records []map[string]any `json:"records"`
	Total   *flexInt         `json:"total"`
	Count   *flexInt         `json:"count"`
	Limit   *flexInt         `json:"limit"`
	Offset  *flexInt         `json:"offset"`
}

// FetchAll retrieves every page of src. Paging stops when a page reports no
// count or a zero count, when the offset reaches the reported total, or after
// maxPages pages. Any failed page aborts the fetch with a *domain.FetchError.
func (c *Client) FetchAll(ctx context.Context, rc domain.RunContext, src config.Source) ([]domain.RawRecord, error) {
	key, ok := rc.Credential(src.Name)
	if !ok {
		return nil, fmt.Errorf("%w: no credential for source %s", domain.ErrConfiguration, src.Name)
	}

	var records []domain.RawRecord
	offset := 0
	for page := 0; page < c.maxPages; page++ {
		if err := c.limiter(src).Wait(ctx); err != nil {
			return nil, &domain.FetchError{Source: src.Name, Page: page, Err: err}
		}

		resp, err := c.fetchPage(ctx, rc, src, key, page, offset)
		if err != nil {
			c.metrics.FetchErrors.WithLabelValues(src.Name).Inc()
			return nil, err
		}
		c.metrics.PagesFetched.WithLabelValues(src.Name).Inc()

		for _, fields := range resp.Records {
			records = append(records, domain.RawRecord{
				Source:       src.Name,
				SourceType:   domain.SourceType(src.Type),
				DatasetTitle: resp.Title,
				Fields:       fields,
			})
		}

		c.logger.Debug("page fetched",
			"run_id", rc.RunID(),
			"source", src.Name,
			"page", page,
			"offset", offset,
			"records", len(resp.Records),
		)

		if resp.Count == nil || *resp.Count <= 0 {
			break
		}
		offset += int(*resp.Count)
		if resp.Total != nil && offset >= int(*resp.Total) {
			break
		}
		if page == c.maxPages-1 {
			c.logger.Warn("page ceiling reached",
				"run_id", rc.RunID(),
				"source", src.Name,
				"max_pages", c.maxPages,
				"offset", offset,
			)
		}
	}
	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, rc domain.RunContext, src config.Source, key string, page, offset int) (response, error) {
	fail := func(status int, err error) (response, error) {
		return response{}, &domain.FetchError{Source: src.Name, Page: page, StatusCode: status, Err: err}
	}

	u, err := pageURL(src.APIURL, key, offset, c.pageSize)
	if err != nil {
		return fail(0, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fail(0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, redact(err, key))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fail(resp.StatusCode, fmt.Errorf("upstream error: %s", bytes.TrimSpace(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(0, fmt.Errorf("read body: %w", err))
	}
	if c.archiver != nil {
		if err := c.archiver.ArchivePage(ctx, rc.RunID(), src.Name, page, body); err != nil {
			c.metrics.ArchiveErrors.Inc()
			c.logger.Warn("archive page failed", "source", src.Name, "page", page, "error", err)
		}
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return fail(0, fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}

// limiter returns the per-source request limiter. A non-positive rate
// disables limiting.
func (c *Client) limiter(src config.Source) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[src.Name]
	if !ok {
		limit := rate.Inf
		if src.RateLimit > 0 {
			limit = rate.Limit(float64(src.RateLimit) / 60)
		}
		l = rate.NewLimiter(limit, 1)
		c.limiters[src.Name] = l
	}
	return l
}

func pageURL(base, key string, offset, limit int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	q := u.Query()
	q.Set("api-key", key)
	q.Set("format", "json")
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redact strips the API key from transport errors, which embed the URL.
func redact(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

// flexInt decodes an integer sent either as a JSON number or a string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s", b)
	}
	*f = flexInt(v)
	return nil
}
