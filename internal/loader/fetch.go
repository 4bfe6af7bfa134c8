// File: internal/loader/fetch.go
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/network"
)

// maxDocumentBytes caps how much of a response body is read.
const maxDocumentBytes = 32 << 20

// HTTPOptions tunes how the HTTP based loaders talk to remote hosts.
type HTTPOptions struct {
	// Limiter throttles outgoing requests. Nil means unlimited.
	Limiter *rate.Limiter
	// MaxRetries bounds retries of transient failures (transport errors, 429 and 5xx).
	MaxRetries uint64
	// InitialBackoff is the first retry delay. Zero uses the library default.
	InitialBackoff time.Duration
	// MaxElapsed bounds the whole retry loop. Zero means one minute.
	MaxElapsed time.Duration
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned status %d", e.URL, e.StatusCode)
}

// Transient reports whether retrying the request could succeed.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type httpFetcher struct {
	client *network.Client
	opts   HTTPOptions
	log    *zap.Logger
}

func newHTTPFetcher(client *network.Client, opts HTTPOptions, logger *zap.Logger) *httpFetcher {
	if client == nil {
		client = network.NewClient(nil)
	}
	return &httpFetcher{client: client, opts: opts, log: logger}
}

func (f *httpFetcher) backoff(ctx context.Context) backoff.BackOff {
	if f.opts.MaxRetries == 0 {
		// WithMaxRetries treats zero as unlimited.
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	if f.opts.InitialBackoff > 0 {
		b.InitialInterval = f.opts.InitialBackoff
	}
	b.MaxElapsedTime = time.Minute
	if f.opts.MaxElapsed > 0 {
		b.MaxElapsedTime = f.opts.MaxElapsed
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, f.opts.MaxRetries), ctx)
}

// fetch GETs rawURL and decodes the body as JSON or YAML.
func (f *httpFetcher) fetch(ctx context.Context, rawURL string) (*jsonvalue.Value, error) {
	var doc *jsonvalue.Value

	operation := func() error {
		if f.opts.Limiter != nil {
			if err := f.opts.Limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("waiting for rate limiter: %w", err))
			}
		}

		resp, err := f.client.Fetch(ctx, rawURL)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			f.log.Warn("Network error fetching document, retrying", zap.String("url", rawURL), zap.Error(err))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			// Drain so the connection can be reused.
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			statusErr := &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
			if statusErr.Transient() {
				f.log.Warn("Transient HTTP status fetching document", zap.String("url", rawURL), zap.Int("status", resp.StatusCode))
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}
		parsed, err := jsonvalue.Parse(body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("decoding document from %s: %w", rawURL, err))
		}
		doc = parsed
		return nil
	}

	if err := backoff.Retry(operation, f.backoff(ctx)); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return nil, perm.Err
		}
		return nil, err
	}
	return doc, nil
}
