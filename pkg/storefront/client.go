// Package storefront is a small HTTP client for the various app-store
// backends. All of them speak JSON over REST or GraphQL and differ only
// in endpoints, query shapes, and the static headers they expect.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/peterhellberg/link"

	"github.com/basti564/LauncherIcons/pkg/log"
	"github.com/basti564/LauncherIcons/pkg/retry"
)

const (
	DefaultUserAgent   = "LauncherIcons/1.0.0"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultRetryCount  = 3
	DefaultRetryDelay  = time.Second
	DefaultRetryJitter = 250 * time.Millisecond

	mApplicationJSON = "application/json"

	hAccept      = "Accept"
	hContentType = "Content-Type"
	hRetryAfter  = "Retry-After"
	hUserAgent   = "User-Agent"
)

func New(options ...Option) *Client {
	c := &Client{
		Client: http.Client{Timeout: DefaultHTTPTimeout},
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

type Client struct {
	http.Client

	headers map[string]string

	userAgent   *string
	retryCount  *int
	retryDelay  *time.Duration
	retryJitter *time.Duration
	logger      log.Logger
}

func (c *Client) UserAgent() string {
	s := c.userAgent
	if s == nil {
		return DefaultUserAgent
	}
	return *s
}

func (c *Client) RetryCount() int {
	i := c.retryCount
	if i == nil {
		return DefaultRetryCount
	}
	return *i
}

func (c *Client) RetryDelay() time.Duration {
	d := c.retryDelay
	if d == nil {
		return DefaultRetryDelay
	}
	return *d
}

func (c *Client) RetryJitter() time.Duration {
	d := c.retryJitter
	if d == nil {
		return DefaultRetryJitter
	}
	return *d
}

func (c *Client) Get(ctx context.Context, rawurl string, options interface{}) (*http.Response, error) {
	return c.CreateAndDo(ctx, http.MethodGet, rawurl, nil, options)
}

func (c *Client) Post(ctx context.Context, rawurl string, body, options interface{}) (*http.Response, error) {
	return c.CreateAndDo(ctx, http.MethodPost, rawurl, body, options)
}

// GraphQL posts a {query, variables} document and returns the raw
// response body. Result navigation is left to the caller; the upstream
// shapes are too unstable to type out.
func (c *Client) GraphQL(ctx context.Context, rawurl, gql string, variables interface{}) ([]byte, error) {
	body := struct {
		Query     string      `json:"query"`
		Variables interface{} `json:"variables,omitempty"`
	}{Query: gql, Variables: variables}

	res, err := c.Post(ctx, rawurl, body, nil)
	if err != nil {
		return nil, err
	}
	return Bytes(res)
}

func (c *Client) CreateAndDo(ctx context.Context, method, rawurl string, body, options interface{}) (*http.Response, error) {
	req, err := c.NewRequest(ctx, method, rawurl, body, options)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

func (c *Client) NewRequest(ctx context.Context, method, rawurl string, body, options interface{}) (*http.Request, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}

	u, err = appendQuery(u, options)
	if err != nil {
		return nil, err
	}

	b, err := marshalBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), b)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Add(hContentType, mApplicationJSON)
	}
	req.Header.Add(hAccept, mApplicationJSON)
	req.Header.Add(hUserAgent, c.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (c *Client) Do(req *http.Request) (res *http.Response, err error) {
	retryCount := c.RetryCount()
	c.logRequest(req)

	err = retry.Go(
		req.Context(),
		func() (err error) {
			if err := rewindBody(req); err != nil {
				return err
			}
			res, err = c.Client.Do(req)
			c.logResponse(res)
			if err == nil {
				err = CheckResponseError(res)
			}
			return
		},
		retry.WithMaxAttempts(retryCount),
		retry.WithBackoff(c.RetryDelay(), c.RetryJitter()),
		retry.WithOnRetry(func(attempt int, wait time.Duration, err error) {
			c.Warnf("attempt %d/%d: %v; sleeping %s", attempt, retryCount, err, wait)
		}),
		retry.WithDoRetryWithDelay(func(attempt int, err error) (time.Duration, bool) {
			if rateLimitErr, ok := err.(RateLimitError); ok {
				return rateLimitErr.RetryAfter, true
			}
			if resErr, ok := err.(ResponseError); ok {
				return 0, !(http.StatusBadRequest <= resErr.Status && resErr.Status < http.StatusInternalServerError)
			}
			return 0, true
		}),
	)

	return
}

// Bytes drains and closes a response body.
func Bytes(res *http.Response) ([]byte, error) {
	data, err := io.ReadAll(res.Body)
	if cErr := res.Body.Close(); err == nil {
		err = cErr
	}
	return data, err
}

// NextPageURL extracts the rel="next" target from a Link response
// header, or "" when the listing is exhausted.
func NextPageURL(h http.Header) string {
	g := link.ParseHeader(h)
	if g == nil {
		return ""
	}
	l := g["next"]
	if l == nil {
		return ""
	}
	return l.URI
}

func (c *Client) logRequest(req *http.Request) {
	if req == nil || req.URL == nil {
		return
	}
	c.Logf(log.LevelInfo, "%s: %s", req.Method, req.URL)
}

func (c *Client) logResponse(res *http.Response) {
	if res == nil {
		return
	}
	c.Logf(log.LevelDebug, "RECV %03d: %s", res.StatusCode, res.Status)
}

func (c *Client) Logf(level log.Level, format string, v ...interface{}) {
	l := c.logger
	if l == nil {
		return
	}

	l.Logf(level, format, v...)
}

func (c *Client) Errorf(format string, v ...interface{}) { c.Logf(log.LevelError, format, v...) }
func (c *Client) Warnf(format string, v ...interface{})  { c.Logf(log.LevelWarn, format, v...) }
func (c *Client) Infof(format string, v ...interface{})  { c.Logf(log.LevelInfo, format, v...) }
func (c *Client) Debugf(format string, v ...interface{}) { c.Logf(log.LevelDebug, format, v...) }

func appendQuery(u *url.URL, v interface{}) (*url.URL, error) {
	if v == nil {
		return u, nil
	}

	q, err := query.Values(v)
	if err != nil {
		var ok bool
		q, ok = v.(url.Values)
		if !ok {
			return nil, err
		}
	}

	for k, values := range u.Query() {
		for _, v := range values {
			q.Add(k, v)
		}
	}

	c := cloneURL(u)
	c.RawQuery = q.Encode()
	return c, nil
}

func marshalBody(v interface{}) (io.Reader, error) {
	if v == nil {
		return nil, nil
	}

	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(buf), nil
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		u := *u.User
		c.User = &u
	}
	return &c
}

// rewindBody restores the request body before a repeat attempt.
func rewindBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return err
	}
	req.Body = body
	return nil
}
