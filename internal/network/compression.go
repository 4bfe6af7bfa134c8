// File: internal/network/compression.go
package network

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is advertised on every document request.
const AcceptEncoding = "br, gzip, deflate"

var (
	gzipPool = sync.Pool{
		New: func() interface{} { return new(gzip.Reader) },
	}
	brotliPool = sync.Pool{
		New: func() interface{} { return brotli.NewReader(nil) },
	}
	drained = strings.NewReader("")
)

func acquireGzip(r io.Reader) (*gzip.Reader, error) {
	zr := gzipPool.Get().(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		gzipPool.Put(zr)
		return nil, err
	}
	return zr, nil
}

func releaseGzip(zr *gzip.Reader) {
	// Reset against an empty reader drops the reference to the old body; io.EOF is expected.
	_ = zr.Reset(drained)
	gzipPool.Put(zr)
}

func acquireBrotli(r io.Reader) *brotli.Reader {
	br := brotliPool.Get().(*brotli.Reader)
	_ = br.Reset(r)
	return br
}

func releaseBrotli(br *brotli.Reader) {
	_ = br.Reset(drained)
	brotliPool.Put(br)
}

// decompressingTransport asks for compressed documents and unwraps them before
// the loaders see the body.
type decompressingTransport struct {
	next http.RoundTripper
}

func (t *decompressingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", AcceptEncoding)
	}
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if err := DecompressResponse(resp); err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("decoding response from %s: %w", req.URL.Redacted(), err)
	}
	return resp, nil
}

// layeredBody closes a decoder, then the body it reads from, then hands the
// decoder back to its pool.
type layeredBody struct {
	io.ReadCloser
	under   io.ReadCloser
	release func()
}

func (b *layeredBody) Close() error {
	err := errors.Join(b.ReadCloser.Close(), b.under.Close())
	if b.release != nil {
		b.release()
		b.release = nil
	}
	return err
}

// DecompressResponse replaces resp.Body with a reader that undoes every
// Content-Encoding layer, last applied first. On error the body may be
// partially consumed and must be discarded.
func DecompressResponse(resp *http.Response) error {
	if resp == nil || resp.Body == nil {
		return nil
	}
	layers := resp.Header.Values("Content-Encoding")
	if len(layers) == 0 {
		return nil
	}

	for i := len(layers) - 1; i >= 0; i-- {
		// A single header may also carry a comma separated list.
		codings := strings.Split(layers[i], ",")
		for j := len(codings) - 1; j >= 0; j-- {
			if err := unwrapLayer(resp, strings.ToLower(strings.TrimSpace(codings[j]))); err != nil {
				return err
			}
		}
	}

	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return nil
}

func unwrapLayer(resp *http.Response, coding string) error {
	var (
		decoded io.ReadCloser
		release func()
	)
	switch coding {
	case "", "identity":
		return nil
	case "gzip", "x-gzip":
		zr, err := acquireGzip(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		decoded, release = zr, func() { releaseGzip(zr) }
	case "br":
		br := acquireBrotli(resp.Body)
		decoded, release = io.NopCloser(br), func() { releaseBrotli(br) }
	case "deflate":
		decoded = openDeflate(resp.Body)
	default:
		return fmt.Errorf("unsupported content encoding %q", coding)
	}
	resp.Body = &layeredBody{ReadCloser: decoded, under: resp.Body, release: release}
	return nil
}

// openDeflate accepts both zlib wrapped (RFC 1950) and raw (RFC 1951) deflate,
// since servers disagree about what "deflate" means.
func openDeflate(r io.Reader) io.ReadCloser {
	var head bytes.Buffer
	zr, err := zlib.NewReader(io.TeeReader(r, &head))
	if err == nil {
		return zr
	}
	return flate.NewReader(io.MultiReader(&head, r))
}
