// File: cmd/loaders.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/calm-cli/internal/config"
	"github.com/xkilldash9x/calm-cli/internal/document"
	"github.com/xkilldash9x/calm-cli/internal/jsonvalue"
	"github.com/xkilldash9x/calm-cli/internal/loader"
	"github.com/xkilldash9x/calm-cli/internal/network"
	"github.com/xkilldash9x/calm-cli/internal/schemadir"
	"github.com/xkilldash9x/calm-cli/internal/store"
)

// buildLoader assembles the loader chain in precedence order: local mappings,
// bundles, schema directories, the database, the hub and finally plain URLs.
// The returned cleanup releases the database pool, if one was opened.
func buildLoader(ctx context.Context, cfg config.Interface, logger *zap.Logger) (document.Loader, func(), error) {
	cleanup := func() {}
	loaderCfg := cfg.Loader()
	var chain []document.Loader

	if loaderCfg.URLMappingFile != "" || loaderCfg.BaseDir != "" {
		var mapping loader.URLMapping
		if loaderCfg.URLMappingFile != "" {
			m, err := loader.LoadURLMapping(loaderCfg.URLMappingFile)
			if err != nil {
				return nil, cleanup, err
			}
			mapping = m
		}
		chain = append(chain, loader.NewMappedLoader(logger, mapping, loaderCfg.BaseDir))
	}
	if loaderCfg.BundleManifest != "" {
		chain = append(chain, loader.NewBundleLoader(logger, loaderCfg.BundleManifest))
	}
	if len(loaderCfg.SchemaDirs) > 0 {
		chain = append(chain, loader.NewFilesystemLoader(logger, loaderCfg.SchemaDirs...))
	}

	if dbURL := cfg.Database().URL; dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create database pool: %w", err)
		}
		st, err := store.New(ctx, pool, cfg.Database().Table, logger)
		if err != nil {
			pool.Close()
			return nil, cleanup, err
		}
		cleanup = pool.Close
		chain = append(chain, loader.NewDatabaseLoader(logger, st))
	}

	netCfg := cfg.Network()
	clientCfg := network.NewDefaultClientConfig()
	clientCfg.RequestTimeout = netCfg.Timeout
	clientCfg.IgnoreTLSErrors = netCfg.IgnoreTLSErrors
	clientCfg.Logger = logger
	client := network.NewClient(clientCfg)
	opts := loader.HTTPOptions{
		MaxRetries:     netCfg.MaxRetries,
		InitialBackoff: netCfg.InitialBackoff,
	}
	if netCfg.RequestsPerSecond > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(netCfg.RequestsPerSecond), netCfg.Burst)
	}

	hub := loaderCfg.Hub
	switch {
	case hub.Wrapper != "":
		chain = append(chain, loader.NewHubExecLoader(logger, hub.Wrapper, hub.WrapperArgs, hub.URL, hub.Timeout))
	case hub.URL != "":
		chain = append(chain, loader.NewHubLoader(logger, client, hub.URL, opts))
	}
	chain = append(chain, loader.NewURLLoader(logger, client, loaderCfg.AllowedHosts, opts))

	multi, err := loader.NewMultiStrategyLoader(logger, chain...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	logger.Debug("Loader chain assembled", zap.Int("loaders", len(chain)))
	return multi, cleanup, nil
}

// newDirectory builds and initialises a schema directory from configuration.
func newDirectory(ctx context.Context, a *app) (*schemadir.Directory, func(), error) {
	l, cleanup, err := buildLoader(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, cleanup, err
	}
	dir := schemadir.New(l, a.logger)
	if err := dir.Initialise(ctx); err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return dir, cleanup, nil
}

// readDocument reads arg as a local file when one exists and otherwise
// resolves it through the directory.
func readDocument(ctx context.Context, dir *schemadir.Directory, arg string) (*jsonvalue.Value, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		doc, err := jsonvalue.ParseFile(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		return doc, nil
	}
	if !schemadir.HasScheme(arg) {
		return nil, fmt.Errorf("%s is neither a readable file nor a document URL", arg)
	}
	return dir.GetSchema(ctx, arg)
}
