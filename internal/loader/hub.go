// File: internal/loader/hub.go
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/network"
)

// HubScheme is the pseudo-scheme of documents hosted on a CALM hub.
const HubScheme = "calm"

// DefaultWrapperTimeout bounds a wrapper executable invocation.
const DefaultWrapperTimeout = 30 * time.Second

// hubURL maps a calm: identifier onto the hub's HTTP API. Only the path of the
// identifier is used; query and fragment are dropped.
func hubURL(baseURL, id string) (string, error) {
	u, err := url.Parse(id)
	if err != nil {
		return "", document.NewLoadError(document.CodeInvalidDocumentURL, err, "cannot parse %s", id)
	}
	if u.Scheme != HubScheme {
		return "", document.NewLoadError(document.CodeInvalidDocumentURL, nil,
			"%s does not use the %s: scheme", id, HubScheme)
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(baseURL, "/") + path, nil
}

// rewriteID makes the body's `$id` match the identifier it was requested under.
// Hub responses are not guaranteed to carry the calm: identifier themselves.
func rewriteID(body *jsonvalue.Value, id string) {
	if body.IsObject() {
		body.Set("$id", jsonvalue.String(id))
	}
}

// HubLoader resolves calm: identifiers against a CALM hub over HTTP.
type HubLoader struct {
	baseURL string
	fetcher *httpFetcher
	log     *zap.Logger
}

// NewHubLoader creates a hub loader for baseURL (for example "https://hub.example.com/calm").
func NewHubLoader(logger *zap.Logger, client *network.Client, baseURL string, opts HTTPOptions) *HubLoader {
	log := logger.Named("loader.hub")
	return &HubLoader{baseURL: baseURL, fetcher: newHTTPFetcher(client, opts, log), log: log}
}

// Initialise is a no-op.
func (l *HubLoader) Initialise(context.Context, document.Store) error { return nil }

// LoadMissingDocument fetches a calm: document from the hub. Other schemes fail
// without any network traffic.
func (l *HubLoader) LoadMissingDocument(ctx context.Context, id string, docType document.Type) (*document.Document, error) {
	target, err := hubURL(l.baseURL, id)
	if err != nil {
		return nil, err
	}
	l.log.Debug("Fetching document from hub", zap.String("id", id), zap.String("url", target))

	body, err := l.fetcher.fetch(ctx, target)
	if err != nil {
		return nil, document.NewLoadError(document.CodeUnknown, err, "fetching %s from hub", id)
	}
	rewriteID(body, id)
	return &document.Document{ID: id, Type: docType, Body: body}, nil
}

// HubExecLoader resolves calm: identifiers by running an external executable,
// typically a credential-aware wrapper, that prints the document on stdout.
// It is invoked as `<wrapper> <args...> <url>`.
type HubExecLoader struct {
	baseURL string
	wrapper string
	args    []string
	timeout time.Duration
	log     *zap.Logger
}

// NewHubExecLoader creates a wrapper based hub loader. A non-positive timeout
// selects DefaultWrapperTimeout.
func NewHubExecLoader(logger *zap.Logger, wrapper string, args []string, baseURL string, timeout time.Duration) *HubExecLoader {
	if timeout <= 0 {
		timeout = DefaultWrapperTimeout
	}
	return &HubExecLoader{
		baseURL: baseURL,
		wrapper: wrapper,
		args:    args,
		timeout: timeout,
		log:     logger.Named("loader.hubexec"),
	}
}

// Initialise is a no-op.
func (l *HubExecLoader) Initialise(context.Context, document.Store) error { return nil }

// LoadMissingDocument runs the wrapper for a calm: identifier.
func (l *HubExecLoader) LoadMissingDocument(ctx context.Context, id string, docType document.Type) (*document.Document, error) {
	target, err := hubURL(l.baseURL, id)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	args := append(append([]string{}, l.args...), target)
	cmd := exec.CommandContext(runCtx, l.wrapper, args...)
	// Do not wait forever on pipes held open by grandchildren after a kill.
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.log.Debug("Running hub wrapper", zap.String("wrapper", l.wrapper), zap.String("url", target))
	runErr := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, document.NewLoadError(document.CodeUnknown, runCtx.Err(),
			"wrapper %s timed out after %s fetching %s", l.wrapper, l.timeout, id)
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		return nil, document.NewLoadError(document.CodeUnknown, runErr,
			"wrapper %s failed fetching %s%s", l.wrapper, id, stderrSuffix(msg))
	}

	body, err := jsonvalue.Parse(stdout.Bytes())
	if err != nil {
		return nil, document.NewLoadError(document.CodeUnknown, err, "wrapper output for %s is not a document", id)
	}
	rewriteID(body, id)
	return &document.Document{ID: id, Type: docType, Body: body}, nil
}

func stderrSuffix(msg string) string {
	if msg == "" {
		return ""
	}
	const limit = 512
	if len(msg) > limit {
		msg = msg[:limit] + "..."
	}
	return fmt.Sprintf(" (stderr: %s)", msg)
}
