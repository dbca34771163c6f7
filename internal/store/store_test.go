package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir(), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mkServer(id string, updatedAt time.Time, sources ...Source) Server {
	u := updatedAt
	return Server{
		ID:          id,
		Slug:        id,
		Name:        id,
		Description: "a test server about filesystem access",
		Keywords:    []string{"filesystem", "access"},
		Sources:     sources,
		UpdatedAt:   &u,
		Status:      "active",
	}
}

func TestUpsertServers_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()
	row := mkServer("io.modelcontextprotocol/filesystem", now, SourceOfficial)

	require.NoError(t, st.UpsertServers(context.Background(), []Server{row}))

	got, err := st.GetServerByIdOrSlug(row.ID)
	require.NoError(t, err)
	assert.Equal(t, row.ID, got.ID)
	assert.Equal(t, row.Description, got.Description)
	assert.ElementsMatch(t, row.Sources, got.Sources)
}

func TestUpsertServers_MonotonicSources(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, st.UpsertServers(context.Background(), []Server{mkServer("foo", now, SourceOfficial)}))
	require.NoError(t, st.UpsertServers(context.Background(), []Server{mkServer("foo", now, SourceSmithery)}))

	got, err := st.GetServerByIdOrSlug("foo")
	require.NoError(t, err)
	assert.ElementsMatch(t, []Source{SourceOfficial, SourceSmithery}, got.Sources)
}

func TestUpsertServers_ConflictWithinBatch(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()
	err := st.UpsertServers(context.Background(), []Server{
		mkServer("dup", now, SourceOfficial),
		mkServer("dup", now, SourceGlama),
	})
	require.Error(t, err)
}

func TestListRecent_OrderingDeterministic(t *testing.T) {
	st := newTestStore(t)
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.UpsertServers(context.Background(), []Server{
		mkServer("a", older, SourceOfficial),
		mkServer("b", newer, SourceOfficial),
	}))

	recent, err := st.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, "a", recent[1].ID)
}

func TestSearchFullText_FindsIndexedServer(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()
	row := mkServer("io.modelcontextprotocol/filesystem", now, SourceOfficial)

	require.NoError(t, st.UpsertServers(context.Background(), []Server{row}))

	hits, err := st.SearchFullText(`"filesystem"`, 10, Filters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, row.ID, hits[0].Server.ID)
	assert.GreaterOrEqual(t, hits[0].Rank, float64(0))
}

func TestSearchFullText_FiltersAreConjunctive(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()
	a := mkServer("a", now, SourceOfficial)
	a.TransportType = TransportStdio
	b := mkServer("b", now, SourceOfficial)
	b.TransportType = TransportSSE

	require.NoError(t, st.UpsertServers(context.Background(), []Server{a, b}))

	hits, err := st.SearchFullText(`"filesystem"`, 10, Filters{TransportType: TransportStdio})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].Server.ID)
}

func TestGetServerByIdOrSlug_NotFound(t *testing.T) {
	st := newTestStore(t)
	_, err := st.GetServerByIdOrSlug("nope")
	require.Error(t, err)
}

func TestSyncLog_CreateAndUpdate(t *testing.T) {
	st := newTestStore(t)

	log, err := st.GetSyncLog(SourceOfficial)
	require.NoError(t, err)
	assert.Nil(t, log)

	require.NoError(t, st.UpdateSyncLog(SourceOfficial, 5, "ok", ""))
	log, err = st.GetSyncLog(SourceOfficial)
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.Equal(t, 5, log.ServerCount)
	assert.Equal(t, "ok", log.Status)

	require.NoError(t, st.UpdateSyncLog(SourceOfficial, 0, "error", "boom"))
	log, err = st.GetSyncLog(SourceOfficial)
	require.NoError(t, err)
	assert.Equal(t, "error", log.Status)
	assert.Equal(t, "boom", log.Error)
}

func TestFTIndexStaysConsistentWithServerCount(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		require.NoError(t, st.UpsertServers(context.Background(), []Server{mkServer(id, now, SourceOfficial)}))
	}

	count, err := st.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	hits, err := st.SearchFullText(`"filesystem"`, 50, Filters{})
	require.NoError(t, err)
	assert.Len(t, hits, 5)
}
