package catalog

import (
	"context"

	"go.uber.org/fx"

	"github.com/aalemi-dev/schema-evolution-lab/schema_registry"
)

// FXModule resolves the catalog while the graph is built, so a registry
// failure aborts fx.New.
var FXModule = fx.Module("catalog",
	fx.Provide(NewCatalogWithDI),
)

// Logger is the logging surface the catalog needs.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// CatalogParams groups the catalog's dependencies.
type CatalogParams struct {
	fx.In

	Config   Config
	Registry schema_registry.Registry
	Logger   Logger `optional:"true"`
}

// NewCatalogWithDI parses the configured entries and resolves them.
func NewCatalogWithDI(params CatalogParams) (*Catalog, error) {
	ctx := context.Background()

	entries := params.Config.Entries
	if entries == "" {
		entries = DefaultEntries
	}
	specs, err := ParseSpecs(entries)
	if err != nil {
		return nil, err
	}

	timeout := params.Config.ResolveTimeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c, err := New(ctx, params.Registry, specs)
	if err != nil {
		if params.Logger != nil {
			params.Logger.ErrorWithContext(ctx, "Catalog resolution failed", err)
		}
		return nil, err
	}

	if params.Logger != nil {
		for _, e := range c.Entries() {
			params.Logger.InfoWithContext(ctx, "Catalog entry resolved", nil, map[string]interface{}{
				"label":     e.Label,
				"subject":   e.Definition.Subject,
				"version":   e.Definition.Version,
				"schema_id": e.Definition.ID,
			})
		}
	}
	return c, nil
}
