package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/mcpfinder/mcpfinder/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

type stubPuller struct {
	source store.Source
	fn     func(ctx context.Context, st *store.Store) (int, error)
}

func (p *stubPuller) Source() store.Source { return p.source }
func (p *stubPuller) Pull(ctx context.Context, st *store.Store) (int, error) {
	return p.fn(ctx, st)
}

func TestSyncAll_CrossSourceMerge(t *testing.T) {
	st := newTestStore(t)

	official := &stubPuller{source: store.SourceOfficial, fn: func(ctx context.Context, st *store.Store) (int, error) {
		row := store.Server{ID: "foo", Slug: "foo", Name: "foo", Sources: []store.Source{store.SourceOfficial}}
		return 1, st.UpsertServers(ctx, []store.Server{row})
	}}
	smithery := &stubPuller{source: store.SourceSmithery, fn: func(ctx context.Context, st *store.Store) (int, error) {
		row := store.Server{ID: "foo", Slug: "foo", Name: "foo", UseCount: 1234, Verified: true, Sources: []store.Source{store.SourceSmithery}}
		return 1, st.UpsertServers(ctx, []store.Server{row})
	}}

	engine := NewEngineForTest([]Puller{official}, st, zap.NewNop().Sugar())
	_, err := engine.SyncAll(context.Background())
	require.NoError(t, err)

	engine2 := NewEngineForTest([]Puller{smithery}, st, zap.NewNop().Sugar())
	_, err = engine2.SyncAll(context.Background())
	require.NoError(t, err)

	got, err := st.GetServerByIdOrSlug("foo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []store.Source{store.SourceOfficial, store.SourceSmithery}, got.Sources)
	assert.Equal(t, 1234, got.UseCount)
	assert.True(t, got.Verified)
}

func TestSyncAll_IndependentFailureDoesNotAbortOthers(t *testing.T) {
	st := newTestStore(t)

	failing := &stubPuller{source: store.SourceGlama, fn: func(ctx context.Context, st *store.Store) (int, error) {
		return 0, errors.New("upstream down")
	}}
	succeeding := &stubPuller{source: store.SourceOfficial, fn: func(ctx context.Context, st *store.Store) (int, error) {
		row := store.Server{ID: "ok", Slug: "ok", Name: "ok", Sources: []store.Source{store.SourceOfficial}}
		return 1, st.UpsertServers(ctx, []store.Server{row})
	}}

	engine := NewEngineForTest([]Puller{failing, succeeding}, st, zap.NewNop().Sugar())
	results, err := engine.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Error(t, results[store.SourceGlama].Err)
	assert.NoError(t, results[store.SourceOfficial].Err)

	glamaLog, err := st.GetSyncLog(store.SourceGlama)
	require.NoError(t, err)
	assert.Equal(t, "error", glamaLog.Status)

	officialLog, err := st.GetSyncLog(store.SourceOfficial)
	require.NoError(t, err)
	assert.Equal(t, "ok", officialLog.Status)

	_, err = st.GetServerByIdOrSlug("ok")
	assert.NoError(t, err)
}

func TestSyncAll_IdempotentRerunLeavesStoreUnchanged(t *testing.T) {
	st := newTestStore(t)

	puller := &stubPuller{source: store.SourceOfficial, fn: func(ctx context.Context, st *store.Store) (int, error) {
		row := store.Server{
			ID: "stable", Slug: "stable", Name: "stable",
			Keywords: []string{"stable"}, Categories: []string{"other"},
			Sources: []store.Source{store.SourceOfficial},
		}
		return 1, st.UpsertServers(ctx, []store.Server{row})
	}}
	engine := NewEngineForTest([]Puller{puller}, st, zap.NewNop().Sugar())

	_, err := engine.SyncAll(context.Background())
	require.NoError(t, err)
	first, err := st.GetServerByIdOrSlug("stable")
	require.NoError(t, err)

	_, err = engine.SyncAll(context.Background())
	require.NoError(t, err)
	second, err := st.GetServerByIdOrSlug("stable")
	require.NoError(t, err)

	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, first.Keywords, second.Keywords)
	assert.Equal(t, first.Categories, second.Categories)

	count, err := st.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
