package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// HTTPError carries status/body for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 900))
}

// Status renders "<code> - <body>", the form shown in operator messages.
func (e *HTTPError) Status() string {
	return fmt.Sprintf("%d - %s", e.StatusCode, snippet(e.Body, 900))
}

// StatusText describes err for an operator: the status line of an HTTPError,
// or the plain error text for transport failures.
func StatusText(err error) string {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status()
	}
	return err.Error()
}

// snippet cuts s to at most max bytes on a rune boundary.
func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

// RetryConfig controls retry behavior. MaxAttempts of 1 disables retries.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retry5xx retries any 5xx on top of RetryStatuses.
	Retry5xx      bool
	RetryStatuses map[int]bool
}

// DefaultRetryConfig is the backoff profile used when retries are enabled.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 8,
		BaseDelay:   700 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Retry5xx:    true,
		RetryStatuses: map[int]bool{
			http.StatusTooManyRequests:    true,
			http.StatusRequestTimeout:     true,
			http.StatusTooEarly:           true,
			http.StatusServiceUnavailable: true,
			http.StatusBadGateway:         true,
			http.StatusGatewayTimeout:     true,
		},
	}
}

// NoRetry makes exactly one attempt per call.
func NoRetry() RetryConfig {
	return WithAttempts(1)
}

// WithAttempts returns DefaultRetryConfig capped at n attempts; n<=1 means one attempt.
func WithAttempts(n int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = max(n, 1)
	return cfg
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.RetryStatuses == nil {
		c.RetryStatuses = def.RetryStatuses
	}
	return c
}

// attemptResult is one round trip; wait<0 means the result is final.
type attemptResult struct {
	resp *http.Response
	body []byte
	err  error
	wait time.Duration
}

// DoWithRetry executes a request built by buildReq, retrying per cfg.
// The body is always drained so the connection can be reused.
// Non-2xx responses return the response, the body and an *HTTPError.
func DoWithRetry(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	cfg RetryConfig,
) (*http.Response, []byte, error) {
	cfg = cfg.withDefaults()

	for attempt := 1; ; attempt++ {
		req, err := buildReq(ctx)
		if err != nil {
			return nil, nil, err
		}

		res := roundTrip(client, req, cfg)
		if res.wait < 0 || attempt >= cfg.MaxAttempts {
			return res.resp, res.body, res.err
		}
		if err := sleepBackoff(ctx, attempt, cfg.BaseDelay, cfg.MaxDelay, res.wait); err != nil {
			return nil, nil, err
		}
	}
}

func roundTrip(client *http.Client, req *http.Request, cfg RetryConfig) attemptResult {
	resp, err := client.Do(req)
	if err != nil {
		return attemptResult{err: err, wait: retryWait(isRetryableNetErr(err), 0)}
	}

	body, err := readAndClose(resp.Body)
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if err != nil && ok {
		return attemptResult{resp: resp, body: body, err: err, wait: retryWait(isRetryableNetErr(err), 0)}
	}
	if ok {
		return attemptResult{resp: resp, body: body, wait: -1}
	}
	// an unreadable error body still yields an HTTPError with what was read
	herr := &HTTPError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
	return attemptResult{
		resp: resp,
		body: body,
		err:  herr,
		wait: retryWait(isRetryableStatus(resp.StatusCode, cfg), ParseRetryAfter(resp)),
	}
}

func retryWait(retryable bool, retryAfter time.Duration) time.Duration {
	if !retryable {
		return -1
	}
	return retryAfter
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

func isRetryableStatus(code int, cfg RetryConfig) bool {
	if cfg.RetryStatuses[code] {
		return true
	}
	return cfg.Retry5xx && code >= 500 && code <= 599
}

func sleepBackoff(ctx context.Context, attempt int, base, maxDelay, retryAfter time.Duration) error {
	sleep := retryAfter
	if sleep <= 0 {
		sleep = min(base*time.Duration(1<<(attempt-1)), maxDelay)
		sleep += time.Duration(rand.IntN(400)) * time.Millisecond
	}

	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryableNetErr(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection reset", "broken pipe", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// ParseRetryAfter parses Retry-After header (seconds or HTTP date).
// Returns 0 when header is missing/invalid.
func ParseRetryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(time.Until(t), 0)
	}
	return 0
}
