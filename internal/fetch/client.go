// Package fetch pulls documents from the CMS content source.
//
// The source is a WordPress-style REST API: one paginated listing endpoint
// per content type. The fetcher walks all configured types concurrently,
// retries transient failures with capped backoff, and emits documents into
// a bounded channel so chunking and embedding can pipeline behind it.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	sqerrors "github.com/sitequery/sitequery/internal/errors"
	"github.com/sitequery/sitequery/internal/model"
)

// Fetch bounds.
const (
	// DefaultPageSize is the per_page value sent to the listing endpoint.
	DefaultPageSize = 50

	// DefaultMaxPages caps pagination per content type.
	DefaultMaxPages = 100

	// MaxDocumentsPerType is the hard upper bound per type.
	MaxDocumentsPerType = 5000

	// DefaultMaxInFlight bounds concurrent type fetches.
	DefaultMaxInFlight = 8
)

// Config configures the content fetcher.
type Config struct {
	BaseURL     string
	PageSize    int
	MaxPages    int
	MaxInFlight int
	Timeout     time.Duration
}

// Report summarizes one fetch run.
type Report struct {
	Fetched int
	Skipped int
	Errors  []error
}

// Client fetches documents from the CMS.
type Client struct {
	http  *http.Client
	cfg   Config
	retry sqerrors.RetryConfig
}

// New creates a content fetcher.
func New(cfg Config) *Client {
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = DefaultMaxInFlight
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		http:  &http.Client{Timeout: cfg.Timeout},
		cfg:   cfg,
		retry: sqerrors.DefaultRetryConfig(),
	}
}

// Stream enumerates all documents of the given types. Documents arrive on
// the returned channel; the Report arrives on the second channel after the
// document channel closes. A permanent failure on one type does not abort
// the others.
func (c *Client) Stream(ctx context.Context, types []string) (<-chan *model.Document, <-chan Report) {
	docs := make(chan *model.Document, 64)
	done := make(chan Report, 1)

	go func() {
		defer close(docs)

		var mu sync.Mutex
		var report Report

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.MaxInFlight)

		for _, contentType := range types {
			g.Go(func() error {
				fetched, err := c.fetchType(gctx, contentType, docs)
				mu.Lock()
				defer mu.Unlock()
				report.Fetched += fetched
				if err != nil {
					if sqerrors.IsKind(err, sqerrors.KindNotFound) {
						slog.Warn("unknown content type, skipping",
							slog.String("type", contentType))
						report.Skipped++
					} else {
						report.Errors = append(report.Errors, fmt.Errorf("type %s: %w", contentType, err))
					}
				}
				return nil // siblings continue
			})
		}
		_ = g.Wait()

		done <- report
	}()

	return docs, done
}

// fetchType walks the paginated listing endpoint for one content type.
func (c *Client) fetchType(ctx context.Context, contentType string, out chan<- *model.Document) (int, error) {
	fetched := 0
	for page := 1; page <= c.cfg.MaxPages; page++ {
		batch, err := c.fetchPage(ctx, contentType, page)
		if err != nil {
			return fetched, err
		}
		for _, wd := range batch {
			doc := wd.toDocument(contentType)
			select {
			case out <- doc:
				fetched++
			case <-ctx.Done():
				return fetched, ctx.Err()
			}
			if fetched >= MaxDocumentsPerType {
				slog.Warn("per-type document cap reached",
					slog.String("type", contentType),
					slog.Int("cap", MaxDocumentsPerType))
				return fetched, nil
			}
		}
		if len(batch) < c.cfg.PageSize {
			return fetched, nil // last page
		}
	}
	return fetched, nil
}

// fetchPage requests one page, retrying transient failures.
func (c *Client) fetchPage(ctx context.Context, contentType string, page int) ([]wireDocument, error) {
	endpoint := c.listURL(contentType, page)

	var batch []wireDocument
	err := sqerrors.Retry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return sqerrors.Internal("build request", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return sqerrors.Timeout("content source request", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return sqerrors.Timeout("read content response", err)
			}
			batch = nil
			if err := json.Unmarshal(body, &batch); err != nil {
				return sqerrors.Internal("decode content response", err)
			}
			return nil
		case resp.StatusCode == http.StatusBadRequest:
			// WordPress answers 400 for a page past the end.
			batch = nil
			return nil
		case resp.StatusCode == http.StatusNotFound:
			return sqerrors.NotFound("content type", contentType)
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			e := sqerrors.New(sqerrors.KindDependencyFatal,
				fmt.Sprintf("content source rejected request: %d", resp.StatusCode), nil)
			e.Retryable = false // auth failures are permanent
			return e
		case resp.StatusCode >= 500:
			return sqerrors.Degraded("content-source",
				fmt.Errorf("status %d", resp.StatusCode))
		default:
			return sqerrors.Internal(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
		}
	})
	return batch, err
}

// listURL builds the listing endpoint URL for a type and page.
func (c *Client) listURL(contentType string, page int) string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	route := restRoute(contentType)
	q := url.Values{}
	q.Set("per_page", fmt.Sprintf("%d", c.cfg.PageSize))
	q.Set("page", fmt.Sprintf("%d", page))
	q.Set("_embed", "1")
	return fmt.Sprintf("%s/wp-json/wp/v2/%s?%s", base, route, q.Encode())
}

// restRoute maps a content type to its REST collection route. Built-in
// types pluralize; custom types are registered under their own slug.
func restRoute(contentType string) string {
	switch contentType {
	case "post":
		return "posts"
	case "page":
		return "pages"
	default:
		return contentType
	}
}
