package core

import (
	"context"
	"testing"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/gate"
	"github.com/mcpfinder/mcpfinder/internal/install"
	"github.com/mcpfinder/mcpfinder/internal/store"
	syncengine "github.com/mcpfinder/mcpfinder/internal/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCore(t *testing.T) (*Core, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	// No pullers: EnsureFresh's sync-on-empty-store branch runs against an
	// engine with nothing to pull, so it completes instantly without
	// network access; the store stays empty and no sync log row is written.
	engine := syncengine.NewEngineForTest(nil, st, zap.NewNop().Sugar())
	g := gate.New(st, engine, 15*time.Minute, zap.NewNop().Sugar())
	return New(st, g, 10, 20), st
}

func TestSearchServers_EmptyStoreReturnsNoResultsNoError(t *testing.T) {
	c, _ := newTestCore(t)
	results, err := c.SearchServers(context.Background(), "anything", 0, SearchFilters{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetServerDetails_NotFoundIsAnError(t *testing.T) {
	c, _ := newTestCore(t)
	_, err := c.GetServerDetails(context.Background(), "missing")
	assert.Error(t, err)
}

func TestGetInstallCommand_FullFlow(t *testing.T) {
	c, st := newTestCore(t)
	now := time.Now().UTC()
	require.NoError(t, st.UpsertServers(context.Background(), []store.Server{
		{
			ID: "org/github", Slug: "github", Name: "org/github",
			RegistryType: store.RegistryNPM, PackageIdentifier: "@modelcontextprotocol/server-github",
			UpdatedAt: &now, Sources: []store.Source{store.SourceOfficial},
		},
	}))

	payload, err := c.GetInstallCommand(context.Background(), "github", install.Cursor)
	require.NoError(t, err)
	assert.Equal(t, install.StrategyNPM, payload.Strategy)
}

func TestBrowseCategory_InvalidLimit(t *testing.T) {
	c, _ := newTestCore(t)
	_, err := c.BrowseCategory(context.Background(), "database", 999)
	assert.Error(t, err)
}

func TestBrowseCategory_EmptyCategoryIsInvalidInput(t *testing.T) {
	c, _ := newTestCore(t)
	_, err := c.BrowseCategory(context.Background(), "", 10)
	assert.Error(t, err)
}

func TestSetDefaultLimits_ChangesUnspecifiedLimitBehavior(t *testing.T) {
	c, st := newTestCore(t)
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		require.NoError(t, st.UpsertServers(context.Background(), []store.Server{
			{ID: string(rune('a' + i)), Slug: string(rune('a' + i)), UpdatedAt: &now, Sources: []store.Source{store.SourceOfficial}},
		}))
	}

	c.SetDefaultLimits(2, 20)
	results, err := c.SearchServers(context.Background(), "", 0, SearchFilters{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestGetSyncStatus_ReflectsCompletedSync(t *testing.T) {
	c, st := newTestCore(t)
	require.NoError(t, st.UpdateSyncLog(store.SourceOfficial, 3, "ok", ""))

	logs, err := c.GetSyncStatus()
	require.NoError(t, err)
	assert.NotEmpty(t, logs)
}
