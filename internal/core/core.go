// Package core is the facade exposing the narrow set of
// operations the MCP host consumes. Every operation except GetSyncStatus
// calls Gate.EnsureFresh before delegating to the appropriate engine;
// SearchServers and BrowseCategory check their limit (and category)
// before that call. The MCP tool handlers in internal/mcptools call into
// this package.
package core

import (
	"context"
	"sync/atomic"

	"github.com/mcpfinder/mcpfinder/internal/category"
	"github.com/mcpfinder/mcpfinder/internal/gate"
	"github.com/mcpfinder/mcpfinder/internal/install"
	"github.com/mcpfinder/mcpfinder/internal/mcferrors"
	"github.com/mcpfinder/mcpfinder/internal/search"
	"github.com/mcpfinder/mcpfinder/internal/store"
)

// Core wires the store and every query-layer engine behind ensureFresh.
type Core struct {
	store *store.Store
	gate  *gate.Gate

	defaultSearchLimit atomic.Int64
	defaultBrowseLimit atomic.Int64
}

// New builds a Core over st, gated by g, with the configured defaults for
// unspecified search/browse limits.
func New(st *store.Store, g *gate.Gate, defaultSearchLimit, defaultBrowseLimit int) *Core {
	c := &Core{store: st, gate: g}
	c.SetDefaultLimits(defaultSearchLimit, defaultBrowseLimit)
	return c
}

// SetDefaultLimits updates the unspecified-limit defaults, letting a
// config hot-reload (internal/config.Watch) adjust them without
// rebuilding the Core.
func (c *Core) SetDefaultLimits(defaultSearchLimit, defaultBrowseLimit int) {
	c.defaultSearchLimit.Store(int64(defaultSearchLimit))
	c.defaultBrowseLimit.Store(int64(defaultBrowseLimit))
}

// SearchFilters mirrors store.Filters at the facade boundary so callers
// don't need to import internal/store directly; "" means "any" for every
// field.
type SearchFilters struct {
	TransportType  string
	RegistryType   string
	RegistrySource string
}

func (f SearchFilters) toStoreFilters() store.Filters {
	return store.Filters{
		TransportType: store.TransportType(f.TransportType),
		RegistryType:  store.RegistryType(f.RegistryType),
		Source:        store.Source(f.RegistrySource),
	}
}

// SearchServers runs a ranked keyword search with optional filters. limit
// == 0 uses the configured default (10 unless overridden).
func (c *Core) SearchServers(ctx context.Context, query string, limit int, filters SearchFilters) ([]search.Result, error) {
	if limit == 0 {
		limit = int(c.defaultSearchLimit.Load())
	}
	if _, err := search.ClampLimit(limit); err != nil {
		return nil, err
	}
	if err := c.gate.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	return search.Search(c.store, query, limit, filters.toStoreFilters())
}

// GetServerDetails resolves key by id, slug, or name suffix and returns
// the full record.
func (c *Core) GetServerDetails(ctx context.Context, key string) (*store.Server, error) {
	if err := c.gate.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	return search.GetServerDetails(c.store, key)
}

// GetInstallCommand resolves key and produces the install snippet for
// client.
func (c *Core) GetInstallCommand(ctx context.Context, key string, client install.Client) (*install.Payload, error) {
	if err := c.gate.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	server, err := search.GetServerDetails(c.store, key)
	if err != nil {
		return nil, err
	}
	return install.Generate(server, client)
}

// ListCategories returns the taxonomy with per-category server counts,
// sorted by count descending.
func (c *Core) ListCategories(ctx context.Context) ([]category.Count, error) {
	if err := c.gate.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	return category.ListCategoryCounts(c.store)
}

// BrowseCategory lists servers inside one category, most recently updated
// first. limit == 0 uses the configured default (20 unless overridden).
func (c *Core) BrowseCategory(ctx context.Context, categoryName string, limit int) ([]store.Server, error) {
	if categoryName == "" {
		return nil, &mcferrors.ErrInvalidInput{Field: "category", Reason: "must not be empty"}
	}
	if limit == 0 {
		limit = int(c.defaultBrowseLimit.Load())
	}
	if limit < 1 || limit > search.MaxLimit {
		return nil, &mcferrors.ErrInvalidInput{Field: "limit", Reason: "must be in [1, 50]"}
	}
	if err := c.gate.EnsureFresh(ctx); err != nil {
		return nil, err
	}
	return category.ListByCategory(c.store, categoryName, limit)
}

// GetSyncStatus is a read-only diagnostic: every known source's last sync
// outcome. It deliberately skips EnsureFresh so a stuck sync can still be
// inspected.
func (c *Core) GetSyncStatus() ([]store.SyncLog, error) {
	return c.store.ListSyncLogs()
}
