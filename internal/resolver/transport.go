package resolver

import (
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	kflate "github.com/klauspost/compress/flate"
	kgzip "github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const acceptEncoding = "gzip, deflate, br, zstd"

// feedTransport sets the User-Agent every feed host sees and decodes
// compressed bodies itself, so feeds served as br or zstd parse the same as
// plain ones.
type feedTransport struct {
	base      http.RoundTripper
	userAgent string
}

func newFeedTransport(base *http.Transport, userAgent string) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	base.DisableCompression = true
	return &feedTransport{base: base, userAgent: userAgent}
}

func (t *feedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, ok := decodeBody(strings.ToLower(resp.Header.Get("Content-Encoding")), resp.Body)
	if !ok {
		return resp, nil
	}
	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	return resp, nil
}

// decodeBody wraps body in a decoder for encoding. ok is false when the body
// should be passed through untouched.
func decodeBody(encoding string, body io.ReadCloser) (io.ReadCloser, bool) {
	switch encoding {
	case "gzip":
		r, err := kgzip.NewReader(body)
		if err != nil {
			return nil, false
		}
		return &decodedBody{Reader: r, closers: []io.Closer{r, body}}, true
	case "deflate":
		r := kflate.NewReader(body)
		return &decodedBody{Reader: r, closers: []io.Closer{r, body}}, true
	case "br":
		return &decodedBody{Reader: brotli.NewReader(body), closers: []io.Closer{body}}, true
	case "zstd":
		d, err := zstd.NewReader(body)
		if err != nil {
			return nil, false
		}
		return &decodedBody{Reader: d, closers: []io.Closer{zstdCloser{d}, body}}, true
	}
	return nil, false
}

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (d *decodedBody) Close() error {
	var err error
	for _, c := range d.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}
