package normalize

import (
	"testing"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug_DeterministicAndIdempotent(t *testing.T) {
	id := "io.modelcontextprotocol/Filesystem Server!!"
	slug := Slug(id)
	require.NotEmpty(t, slug)
	assert.Equal(t, slug, Slug(id), "slug must be a deterministic function of id")
	assert.Equal(t, slug, Slug(slug), "slug must be idempotent")
	assert.NotContains(t, slug, " ")
}

func TestKeywords_StopWordsAndShortTokensDropped(t *testing.T) {
	kw := Keywords("Secure Filesystem Server", "Secure filesystem access and tool for the MCP protocol")
	assert.Contains(t, kw, "secure")
	assert.Contains(t, kw, "filesystem")
	assert.Contains(t, kw, "access")
	assert.NotContains(t, kw, "for")
	assert.NotContains(t, kw, "the")
	assert.NotContains(t, kw, "and")
	assert.NotContains(t, kw, "mcp")
	assert.NotContains(t, kw, "server")
	assert.NotContains(t, kw, "protocol")
}

func TestKeywords_NoDuplicatesPreservesFirstSeenOrder(t *testing.T) {
	kw := Keywords("search search search", "search engine")
	count := 0
	for _, k := range kw {
		if k == "search" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, "search", kw[0])
}

func TestNormalize_SelectsFirstPackageAndRemote(t *testing.T) {
	raw := RawEntry{
		ID:          "io.modelcontextprotocol/filesystem",
		Name:        "io.modelcontextprotocol/filesystem",
		Description: "Secure filesystem access",
		Packages: []RawPackage{
			{RegistryType: store.RegistryNPM, Identifier: "@modelcontextprotocol/server-filesystem", TransportType: store.TransportStdio},
			{RegistryType: store.RegistryPyPI, Identifier: "ignored"},
		},
		Remotes: []RawRemote{
			{URL: "https://example.com/mcp"},
			{URL: "https://example.com/ignored"},
		},
	}

	s, err := Normalize(store.SourceOfficial, raw, []byte(`{}`), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, store.RegistryNPM, s.RegistryType)
	assert.Equal(t, "@modelcontextprotocol/server-filesystem", s.PackageIdentifier)
	assert.Equal(t, store.TransportStdio, s.TransportType)
	assert.True(t, s.HasRemote)
	assert.Equal(t, "https://example.com/mcp", s.RemoteURL)
	assert.Equal(t, []store.Source{store.SourceOfficial}, s.Sources)
}

func TestNormalize_DefaultsStatusToActive(t *testing.T) {
	s, err := Normalize(store.SourceGlama, RawEntry{ID: "x", Name: "x"}, []byte(`{}`), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "active", s.Status)
}

func TestNormalize_CategoriesFallBackToOther(t *testing.T) {
	s, err := Normalize(store.SourceGlama, RawEntry{ID: "x", Name: "Totally Unrelated Thing", Description: "xyz abc"}, []byte(`{}`), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, s.Categories)
}

func TestNormalize_CategoriesMatchKeywords(t *testing.T) {
	s, err := Normalize(store.SourceGlama, RawEntry{ID: "x", Name: "Postgres query tool", Description: "run SQL against a database"}, []byte(`{}`), time.Now().UTC())
	require.NoError(t, err)
	assert.Contains(t, s.Categories, "database")
}

func TestNormalize_ErrorsOnMissingID(t *testing.T) {
	_, err := Normalize(store.SourceGlama, RawEntry{Name: "no id"}, []byte(`{}`), time.Now().UTC())
	assert.Error(t, err)
}
