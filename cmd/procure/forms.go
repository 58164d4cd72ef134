package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-procure/internal/registry"
	"github.com/goliatone/go-procure/internal/source"
	"github.com/goliatone/go-procure/pkg/api"
	"github.com/goliatone/go-procure/pkg/model"
)

func loadRegistry(ctx context.Context) (*registry.Registry, error) {
	reader := source.Reader{HTTP: &http.Client{Timeout: cfg.API.Timeout}, Timeout: cfg.API.Timeout}
	return registry.Load(ctx, reader, cfg.Forms)
}

// loadCatalog fetches every lookup collection schema references.
func loadCatalog(ctx context.Context, client *api.Client, schema model.FormModel) (api.Catalog, error) {
	refs := api.References(schema)
	if len(refs) == 0 {
		return api.Catalog{}, nil
	}
	logger.Debug("loading lookups", zap.Strings("collections", refs))
	return client.LoadLookups(ctx, refs...)
}
