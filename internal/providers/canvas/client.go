package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"forum-sync/internal/httpx"
)

const (
	contentTypeJSON = "application/json"
	acceptJSON      = contentTypeJSON
)

var errMissingToken = errors.New("canvas: missing bearer token")

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Retry   httpx.RetryConfig
}

type options struct {
	timeout time.Duration
	retry   httpx.RetryConfig
	verbose bool
	base    http.RoundTripper
}

type Option func(*options)

// WithTimeout sets the per-request timeout (default 2m).
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry sets the retry policy. The default is one attempt per call.
func WithRetry(cfg httpx.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// WithVerbose logs every API call and its latency at debug level.
func WithVerbose(enabled bool) Option {
	return func(o *options) { o.verbose = enabled }
}

// WithTransport replaces the network transport under auth and decoding.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// New builds a Canvas REST client. baseURL includes the version path,
// e.g. https://canvas.example.edu/api/v1.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errMissingToken
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("canvas: invalid base url: %w", err)
	}

	o := &options{timeout: 2 * time.Minute, retry: httpx.NoRetry()}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}

	var transport http.RoundTripper = &httpx.DecodingTransport{Base: o.base}
	if o.verbose {
		transport = &loggingRoundTripper{base: transport}
	}
	transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   transport,
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: o.timeout, Transport: transport},
		Retry:   o.retry,
	}, nil
}

func (c *Client) topicsURL(courseID string) string {
	return fmt.Sprintf("%s/courses/%s/discussion_topics", c.BaseURL, url.PathEscape(courseID))
}

func (c *Client) topicURL(courseID string, topicID ID) string {
	return c.topicsURL(courseID) + "/" + url.PathEscape(topicID.String())
}

func (c *Client) newRequest(ctx context.Context, method, u string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	r, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", contentTypeJSON)
	r.Header.Set("Accept", acceptJSON)
	return r, nil
}

// ListDiscussionTopics returns the forums of a course. Any status other than 200
// yields an error; a *httpx.HTTPError carries status and body.
func (c *Client) ListDiscussionTopics(ctx context.Context, courseID string) ([]DiscussionTopic, error) {
	u := c.topicsURL(courseID)
	resp, body, err := httpx.DoWithRetry(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, u, nil)
	}, c.Retry)
	if err != nil {
		return nil, fmt.Errorf("canvas: list discussion topics of course %s: %w", courseID, err)
	}
	if err := expectOK(resp, body, http.MethodGet, u); err != nil {
		return nil, fmt.Errorf("canvas: list discussion topics of course %s: %w", courseID, err)
	}

	topics := []DiscussionTopic{}
	if err := json.Unmarshal(body, &topics); err != nil {
		return nil, fmt.Errorf("canvas: decode discussion topics of course %s: %w", courseID, err)
	}
	return topics, nil
}

// UpdateDiscussionTopic PUTs upd as the topic's new configuration. Only 200 is success.
func (c *Client) UpdateDiscussionTopic(ctx context.Context, courseID string, topicID ID, upd TopicUpdate) error {
	b, err := json.Marshal(upd)
	if err != nil {
		return fmt.Errorf("canvas: encode topic update: %w", err)
	}

	u := c.topicURL(courseID, topicID)
	resp, body, err := httpx.DoWithRetry(ctx, c.HTTP, func(ctx context.Context) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPut, u, b)
	}, c.Retry)
	if err != nil {
		return fmt.Errorf("canvas: update topic %s of course %s: %w", topicID, courseID, err)
	}
	if err := expectOK(resp, body, http.MethodPut, u); err != nil {
		return fmt.Errorf("canvas: update topic %s of course %s: %w", topicID, courseID, err)
	}
	return nil
}

// expectOK narrows httpx's 2xx success to the 200 Canvas answers with.
func expectOK(resp *http.Response, body []byte, method, u string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return &httpx.HTTPError{Method: method, URL: u, StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: body}
}

// loggingRoundTripper emits one debug line per request and response.
type loggingRoundTripper struct {
	base http.RoundTripper
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log.Printf("[DEBUG] canvas api: %s %s", req.Method, req.URL.String())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		log.Printf("[DEBUG] canvas api: error after %s: %v", dur, err)
		return nil, err
	}
	log.Printf("[DEBUG] canvas api: %d %s (%s)", resp.StatusCode, http.StatusText(resp.StatusCode), dur)
	return resp, err
}
