package httpx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleURL = "https://example.com"

// scriptedTransport replays responses/errors in order.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []*http.Response
	errs      []error
	calls     int
}

func (s *scriptedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.responses) {
		return nil, errors.New("no more responses")
	}
	resp, err := s.responses[s.calls], s.errs[s.calls]
	s.calls++
	return resp, err
}

func scripted(responses []*http.Response, errs []error) (*http.Client, *scriptedTransport) {
	for len(errs) < len(responses) {
		errs = append(errs, nil)
	}
	tr := &scriptedTransport{responses: responses, errs: errs}
	return &http.Client{Transport: tr}, tr
}

func response(code int, body string, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{StatusCode: code, Body: io.NopCloser(bytes.NewBufferString(body)), Header: h}
}

func getReq(ctx context.Context) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, exampleURL, nil)
}

func fastRetry(n int) RetryConfig {
	cfg := WithAttempts(n)
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func TestSnippet(t *testing.T) {
	tbl := []struct {
		in   string
		max  int
		want string
	}{
		{"short text", 100, "short text"},
		{"", 100, ""},
		{"  trimmed  ", 100, "trimmed"},
		{"long text that should be truncated", 10, "long text …"},
		{"acción", 4, "acc…"},
	}
	for _, tt := range tbl {
		assert.Equal(t, tt.want, snippet([]byte(tt.in), tt.max))
	}
}

func TestSnippetKeepsValidUTF8(t *testing.T) {
	got := snippet([]byte(strings.Repeat("é", 500)), 901)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 450)+"…", got)
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{Method: "GET", URL: exampleURL, StatusCode: 404, Body: []byte("Not Found\n")}
	assert.Equal(t, "http error: GET https://example.com status=404 body=Not Found", err.Error())
	assert.Equal(t, "404 - Not Found", err.Status())
	assert.Equal(t, "404 - Not Found", StatusText(err))
	assert.Equal(t, "boom", StatusText(errors.New("boom")))
}

func TestRetryConfigs(t *testing.T) {
	def := DefaultRetryConfig()
	assert.Equal(t, 8, def.MaxAttempts)
	assert.Equal(t, 700*time.Millisecond, def.BaseDelay)
	assert.True(t, def.Retry5xx)
	for _, code := range []int{429, 408, 425, 503, 502, 504} {
		assert.True(t, def.RetryStatuses[code], "status %d", code)
	}

	assert.Equal(t, 1, NoRetry().MaxAttempts)
	assert.Equal(t, 1, WithAttempts(0).MaxAttempts)
	assert.Equal(t, 3, WithAttempts(3).MaxAttempts)
}

func TestIsRetryableStatus(t *testing.T) {
	cfg := DefaultRetryConfig()
	for i := 500; i <= 599; i++ {
		assert.True(t, isRetryableStatus(i, cfg), "status %d", i)
	}
	for _, code := range []int{400, 401, 403, 404, 422} {
		assert.False(t, isRetryableStatus(code, cfg), "status %d", code)
	}

	cfg.Retry5xx = false
	assert.False(t, isRetryableStatus(500, cfg))
	assert.True(t, isRetryableStatus(429, cfg))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsRetryableNetErr(t *testing.T) {
	assert.False(t, isRetryableNetErr(context.Canceled))
	assert.True(t, isRetryableNetErr(context.DeadlineExceeded))
	assert.True(t, isRetryableNetErr(timeoutError{}))
	assert.True(t, isRetryableNetErr(errors.New("connection reset by peer")))
	assert.True(t, isRetryableNetErr(errors.New("write: broken pipe")))
	assert.True(t, isRetryableNetErr(errors.New("unexpected EOF")))
	assert.False(t, isRetryableNetErr(errors.New("some other error")))
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), ParseRetryAfter(response(429, "", nil)))
	assert.Equal(t, 3*time.Second, ParseRetryAfter(response(429, "", map[string]string{"Retry-After": "3"})))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(response(429, "", map[string]string{"Retry-After": "soon"})))

	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	assert.Equal(t, time.Duration(0), ParseRetryAfter(response(429, "", map[string]string{"Retry-After": past})))
}

func TestDoWithRetry_Success(t *testing.T) {
	client, tr := scripted([]*http.Response{response(200, `{"success": true}`, nil)}, nil)

	resp, body, err := DoWithRetry(context.Background(), client, getReq, NoRetry())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.JSONEq(t, `{"success": true}`, string(body))
	assert.Equal(t, 1, tr.calls)
}

func TestDoWithRetry_NoRetryReturnsHTTPError(t *testing.T) {
	client, tr := scripted([]*http.Response{
		response(500, "server exploded", nil),
		response(200, "ok", nil),
	}, nil)

	resp, body, err := DoWithRetry(context.Background(), client, getReq, NoRetry())
	require.Error(t, err)
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, 500, herr.StatusCode)
	assert.Equal(t, "server exploded", string(body))
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, 1, tr.calls)
}

func TestDoWithRetry_RetriesRetryableStatus(t *testing.T) {
	client, tr := scripted([]*http.Response{
		response(503, "busy", nil),
		response(200, "ok", nil),
	}, nil)

	_, body, err := DoWithRetry(context.Background(), client, getReq, fastRetry(3))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 2, tr.calls)
}

func TestDoWithRetry_DoesNotRetryClientErrors(t *testing.T) {
	client, tr := scripted([]*http.Response{
		response(403, "forbidden", nil),
		response(200, "ok", nil),
	}, nil)

	_, _, err := DoWithRetry(context.Background(), client, getReq, fastRetry(3))
	require.Error(t, err)
	assert.Equal(t, "403 - forbidden", StatusText(err))
	assert.Equal(t, 1, tr.calls)
}

func TestDoWithRetry_RetriesNetworkErrors(t *testing.T) {
	client, tr := scripted(
		[]*http.Response{nil, response(200, "ok", nil)},
		[]error{errors.New("connection reset by peer"), nil},
	)

	_, body, err := DoWithRetry(context.Background(), client, getReq, fastRetry(2))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 2, tr.calls)
}

func TestDoWithRetry_BuildReqError(t *testing.T) {
	client, tr := scripted(nil, nil)
	build := func(context.Context) (*http.Request, error) { return nil, errors.New("request build error") }

	_, _, err := DoWithRetry(context.Background(), client, build, NoRetry())
	require.EqualError(t, err, "request build error")
	assert.Equal(t, 0, tr.calls)
}

func TestDoWithRetry_ContextCanceledDuringBackoff(t *testing.T) {
	client, _ := scripted([]*http.Response{response(503, "busy", nil), response(200, "ok", nil)}, nil)
	cfg := WithAttempts(2)
	cfg.BaseDelay = time.Hour
	cfg.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := DoWithRetry(ctx, client, func(context.Context) (*http.Request, error) {
		return http.NewRequest(http.MethodGet, exampleURL, nil) //nolint:noctx // ctx is checked by backoff
	}, cfg)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDoWithRetry_UnreadableErrorBodyKeepsStatus(t *testing.T) {
	resp := &http.Response{
		StatusCode: 403,
		Header:     http.Header{},
		Body:       io.NopCloser(io.MultiReader(strings.NewReader("denied"), iotest.ErrReader(errors.New("broken stream")))),
	}
	client, _ := scripted([]*http.Response{resp}, nil)

	_, _, err := DoWithRetry(context.Background(), client, getReq, NoRetry())
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "403 - denied", StatusText(err))
}

func TestDoWithRetry_UnreadableSuccessBodyFails(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       io.NopCloser(iotest.ErrReader(errors.New("broken stream"))),
	}
	client, _ := scripted([]*http.Response{resp}, nil)

	_, _, err := DoWithRetry(context.Background(), client, getReq, NoRetry())
	require.EqualError(t, err, "broken stream")
}
