// Package wiki talks to a MediaWiki installation: article content over
// the REST and Action APIs, and redirect resolution over the query API.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/okriker/wikibingo/internal/bingo"
)

const (
	defaultBaseURL   = "https://en.wikipedia.org"
	defaultUserAgent = "wikibingo/1.0"
	defaultTimeout   = 15 * time.Second
)

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Client implements bingo.ContentSource and bingo.RedirectLookup using the
// Colly collector. One Client is shared by all sessions; collectors are
// cloned per request.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Client.
func New(cfg Config, logger *zap.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Client{cfg: cfg, baseCollector: c, logger: logger}
}

// Lightweight fetches the mobile-friendly HTML rendering of title from the
// REST v1 endpoint.
func (c *Client) Lightweight(ctx context.Context, title string) ([]byte, error) {
	target := fmt.Sprintf("%s/api/rest_v1/page/html/%s", c.cfg.BaseURL, url.PathEscape(title))
	return c.get(ctx, target, title)
}

// parseResponse is the Action API envelope for action=parse.
type parseResponse struct {
	Parse *struct {
		Title string `json:"title"`
		Text  struct {
			HTML string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Full fetches the parsed article HTML from the Action API. It is the
// fallback when the REST endpoint is unavailable.
func (c *Client) Full(ctx context.Context, title string) ([]byte, error) {
	q := url.Values{}
	q.Set("action", "parse")
	q.Set("page", title)
	q.Set("format", "json")
	q.Set("prop", "text")
	target := fmt.Sprintf("%s/w/api.php?%s", c.cfg.BaseURL, q.Encode())

	body, err := c.get(ctx, target, title)
	if err != nil {
		return nil, err
	}

	var parsed parseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &bingo.FetchError{Kind: bingo.ErrParse, Title: title, Err: err}
	}
	if parsed.Error != nil {
		kind := bingo.ErrHTTPClient
		if parsed.Error.Code == "missingtitle" {
			kind = bingo.ErrNotFound
		}
		return nil, &bingo.FetchError{
			Kind:  kind,
			Title: title,
			Err:   fmt.Errorf("api error %s: %s", parsed.Error.Code, parsed.Error.Info),
		}
	}
	if parsed.Parse == nil || parsed.Parse.Text.HTML == "" {
		return nil, &bingo.FetchError{
			Kind:  bingo.ErrParse,
			Title: title,
			Err:   errors.New("response carries no parse text"),
		}
	}
	return []byte(parsed.Parse.Text.HTML), nil
}

// queryResponse is the Action API envelope for action=query with redirect
// following enabled.
type queryResponse struct {
	Query struct {
		Redirects []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"redirects"`
		Normalized []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"normalized"`
		Pages map[string]struct {
			Title   string `json:"title"`
			Missing *any   `json:"missing,omitempty"`
		} `json:"pages"`
	} `json:"query"`
}

// RedirectTarget resolves title through MediaWiki's redirect chain and
// returns the canonical destination title.
func (c *Client) RedirectTarget(ctx context.Context, title string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("titles", title)
	q.Set("redirects", "1")
	q.Set("format", "json")
	target := fmt.Sprintf("%s/w/api.php?%s", c.cfg.BaseURL, q.Encode())

	body, err := c.get(ctx, target, title)
	if err != nil {
		return "", err
	}

	var parsed queryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &bingo.FetchError{Kind: bingo.ErrParse, Title: title, Err: err}
	}
	if n := len(parsed.Query.Redirects); n > 0 {
		return parsed.Query.Redirects[n-1].To, nil
	}
	for _, page := range parsed.Query.Pages {
		if page.Missing != nil {
			return "", &bingo.FetchError{
				Kind:  bingo.ErrNotFound,
				Title: title,
				Err:   fmt.Errorf("no page named %q", title),
			}
		}
		if page.Title != "" {
			return page.Title, nil
		}
	}
	return "", &bingo.FetchError{
		Kind:  bingo.ErrParse,
		Title: title,
		Err:   errors.New("query response carries no pages"),
	}
}

// get executes a single GET through a cloned collector. The visit runs in
// its own goroutine so a stalled transport cannot outlive ctx.
func (c *Client) get(ctx context.Context, target, title string) ([]byte, error) {
	collector := c.baseCollector.Clone()
	collector.UserAgent = c.cfg.UserAgent
	collector.IgnoreRobotsTxt = true
	// Retries and repeat navigations hit the same URL.
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(c.cfg.Timeout)

	var (
		body       []byte
		statusCode int
	)
	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return nil, &bingo.FetchError{Kind: bingo.ErrTimeout, Title: title, Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return nil, c.classify(title, statusCode, err)
		}
		return body, nil
	}
}

// classify maps a failed visit onto the error taxonomy.
func (c *Client) classify(title string, statusCode int, err error) error {
	if statusCode != 0 {
		return &bingo.FetchError{
			Kind:       bingo.ClassifyStatus(statusCode),
			StatusCode: statusCode,
			Title:      title,
			Err:        err,
		}
	}
	kind := bingo.ErrNetwork
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = bingo.ErrTimeout
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = bingo.ErrTimeout
	}
	return &bingo.FetchError{Kind: kind, Title: title, Err: err}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
