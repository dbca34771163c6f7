package category

import (
	"context"
	"testing"
	"time"

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

func TestMatch_MultipleCategories(t *testing.T) {
	matched := Match("Postgres SQL query helper")
	assert.Contains(t, matched, "database")
}

func TestMatch_FallsBackToOther(t *testing.T) {
	matched := Match("Completely unrelated widget doohickey")
	assert.Equal(t, []string{Other}, matched)
}

func TestListCategoryCounts_CountsAndBrowse(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()

	rows := []store.Server{
		{ID: "a", Slug: "a", Name: "Postgres query tool", Description: "Postgres query tool", UpdatedAt: &now, Sources: []store.Source{store.SourceOfficial}},
		{ID: "b", Slug: "b", Name: "SQLite helper", Description: "SQLite helper", UpdatedAt: &now, Sources: []store.Source{store.SourceOfficial}},
		{ID: "c", Slug: "c", Name: "Image converter", Description: "Image converter", UpdatedAt: &now, Sources: []store.Source{store.SourceOfficial}},
	}
	require.NoError(t, st.UpsertServers(context.Background(), rows))

	counts, err := ListCategoryCounts(st)
	require.NoError(t, err)

	byName := map[string]int{}
	for _, c := range counts {
		byName[c.Category] = c.Count
	}
	assert.Equal(t, 2, byName["database"])
	assert.Equal(t, 1, byName["media"])

	dbServers, err := ListByCategory(st, "database", 10)
	require.NoError(t, err)
	assert.Len(t, dbServers, 2)
}

func TestListCategoryCounts_OmitsZero(t *testing.T) {
	st := newTestStore(t)
	counts, err := ListCategoryCounts(st)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestListCategoryCounts_ExcludesInactiveServers(t *testing.T) {
	st := newTestStore(t)
	now := time.Now().UTC()

	rows := []store.Server{
		{ID: "a", Slug: "a", Name: "Postgres query tool", Description: "Postgres query tool", UpdatedAt: &now, Status: "active", Sources: []store.Source{store.SourceOfficial}},
		{ID: "b", Slug: "b", Name: "Postgres helper", Description: "Postgres helper", UpdatedAt: &now, Status: "deprecated", Sources: []store.Source{store.SourceOfficial}},
	}
	require.NoError(t, st.UpsertServers(context.Background(), rows))

	counts, err := ListCategoryCounts(st)
	require.NoError(t, err)

	byName := map[string]int{}
	for _, c := range counts {
		byName[c.Category] = c.Count
	}
	assert.Equal(t, 1, byName["database"])

	dbServers, err := ListByCategory(st, "database", 10)
	require.NoError(t, err)
	require.Len(t, dbServers, 1)
	assert.Equal(t, "a", dbServers[0].ID)
}
