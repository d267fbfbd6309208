package httpx

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// DecodingTransport asks for brotli or gzip bodies and hands callers the decoded stream.
// Setting Accept-Encoding ourselves turns off net/http's transparent gzip, so both
// encodings are handled here.
type DecodingTransport struct {
	Base http.RoundTripper
}

func (t *DecodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", "br, gzip")
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch enc {
	case "br":
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), raw: resp.Body}
	case "gzip":
		resp.Body = &decodedBody{Reader: &lazyGzip{src: resp.Body}, raw: resp.Body}
	default:
		return resp, nil
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// lazyGzip reads the gzip header on the first Read; an empty body decodes to nothing.
type lazyGzip struct {
	src io.Reader
	zr  *gzip.Reader
	err error
}

func (g *lazyGzip) Read(p []byte) (int, error) {
	if g.zr == nil && g.err == nil {
		g.zr, g.err = gzip.NewReader(g.src)
		if g.err != nil && !errors.Is(g.err, io.EOF) {
			g.err = fmt.Errorf("httpx: gzip body: %w", g.err)
		}
	}
	if g.err != nil {
		return 0, g.err
	}
	return g.zr.Read(p)
}

func (g *lazyGzip) Close() error {
	if g.zr != nil {
		return g.zr.Close()
	}
	return nil
}

type decodedBody struct {
	io.Reader
	raw io.Closer
}

func (b *decodedBody) Close() error {
	if c, ok := b.Reader.(io.Closer); ok {
		_ = c.Close()
	}
	return b.raw.Close()
}
