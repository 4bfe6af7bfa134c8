// File: internal/loader/url.go
package loader

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/network"
)

// URLLoader fetches http and https documents from an explicit allow-list of hosts.
type URLLoader struct {
	fetcher *httpFetcher
	allowed map[string]struct{}
	log     *zap.Logger
}

// NewURLLoader creates a direct URL loader. Hosts are compared case-insensitively
// and may carry a port ("example.com:8443"). An empty list allows nothing.
func NewURLLoader(logger *zap.Logger, client *network.Client, allowedHosts []string, opts HTTPOptions) *URLLoader {
	log := logger.Named("loader.url")
	allowed := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			allowed[h] = struct{}{}
		}
	}
	return &URLLoader{
		fetcher: newHTTPFetcher(client, opts, log),
		allowed: allowed,
		log:     log,
	}
}

// Initialise is a no-op.
func (l *URLLoader) Initialise(context.Context, document.Store) error { return nil }

func (l *URLLoader) hostAllowed(u *url.URL) bool {
	if _, ok := l.allowed[strings.ToLower(u.Host)]; ok {
		return true
	}
	_, ok := l.allowed[strings.ToLower(u.Hostname())]
	return ok
}

// LoadMissingDocument GETs id when it is an http(s) URL on an allowed host.
func (l *URLLoader) LoadMissingDocument(ctx context.Context, id string, docType document.Type) (*document.Document, error) {
	u, err := url.Parse(id)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, document.NewLoadError(document.CodeInvalidDocumentURL, err, "%s is not an http(s) URL", id)
	}
	if !l.hostAllowed(u) {
		l.log.Warn("Refusing to fetch from host outside the allow-list", zap.String("host", u.Host), zap.String("id", id))
		return nil, document.NewLoadError(document.CodeInvalidDocumentURL, nil, "host %s is not in the allowed hosts list", u.Host)
	}

	body, err := l.fetcher.fetch(ctx, id)
	if err != nil {
		return nil, document.NewLoadError(document.CodeUnknown, err, "fetching %s", id)
	}
	l.log.Debug("Loaded document over HTTP", zap.String("id", id))
	return &document.Document{ID: id, Type: docType, Body: body}, nil
}
