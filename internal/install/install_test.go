package install

import (
	"encoding/json"
	"testing"

	"github.com/mcpfinder/mcpfinder/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func githubServer() *store.Server {
	return &store.Server{
		ID:                "org/github",
		Slug:              "github",
		Name:              "org/github",
		RegistryType:      store.RegistryNPM,
		PackageIdentifier: "@modelcontextprotocol/server-github",
		EnvironmentVariables: []store.EnvVar{
			{Name: "GITHUB_TOKEN", IsSecret: true},
		},
	}
}

func TestGenerate_CursorNPMSecretEnv(t *testing.T) {
	payload, err := Generate(githubServer(), Cursor)
	require.NoError(t, err)

	assert.Equal(t, StrategyNPM, payload.Strategy)
	assert.Equal(t, "~/.cursor/mcp.json", payload.ConfigPaths.Mac)
	require.Len(t, payload.EnvVarsNeeded, 1)
	assert.Equal(t, "GITHUB_TOKEN", payload.EnvVarsNeeded[0].Name)

	var decoded map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(payload.Snippet, &decoded))
	serverCfg := decoded["mcpServers"]["github"]
	assert.Equal(t, "npx", serverCfg["command"])
	assert.Equal(t, []interface{}{"-y", "@modelcontextprotocol/server-github"}, serverCfg["args"])
	env := serverCfg["env"].(map[string]interface{})
	assert.Equal(t, "<YOUR_VALUE>", env["GITHUB_TOKEN"])
}

func TestGenerate_ClineUsesServersKey(t *testing.T) {
	payload, err := Generate(githubServer(), ClineVSCode)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload.Snippet, &decoded))
	_, hasServers := decoded["servers"]
	_, hasMcpServers := decoded["mcpServers"]
	assert.True(t, hasServers)
	assert.False(t, hasMcpServers)
}

func TestGenerate_RemoteStrategyWins(t *testing.T) {
	server := githubServer()
	server.HasRemote = true
	server.RemoteURL = "https://example.com/mcp"

	payload, err := Generate(server, ClaudeDesktop)
	require.NoError(t, err)
	assert.Equal(t, StrategyRemote, payload.Strategy)

	var decoded map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(payload.Snippet, &decoded))
	assert.Equal(t, "https://example.com/mcp", decoded["mcpServers"]["github"]["url"])
}

func TestGenerate_PyPIStrategy(t *testing.T) {
	server := &store.Server{ID: "x", Slug: "x", RegistryType: store.RegistryPyPI, PackageIdentifier: "some-pkg"}
	payload, err := Generate(server, Generic)
	require.NoError(t, err)
	assert.Equal(t, StrategyPyPI, payload.Strategy)

	var decoded map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(payload.Snippet, &decoded))
	assert.Equal(t, "uvx", decoded["mcpServers"]["x"]["command"])
}

func TestGenerate_DockerStrategyWithEnvPlaceholders(t *testing.T) {
	server := &store.Server{
		ID: "x", Slug: "x", RegistryType: store.RegistryOCI, PackageIdentifier: "ghcr.io/org/image",
		EnvironmentVariables: []store.EnvVar{{Name: "API_KEY", IsSecret: true}},
	}
	payload, err := Generate(server, Generic)
	require.NoError(t, err)
	assert.Equal(t, StrategyDocker, payload.Strategy)

	var decoded map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(payload.Snippet, &decoded))
	args := decoded["mcpServers"]["x"]["args"].([]interface{})
	assert.Contains(t, args, "API_KEY=<YOUR_VALUE>")
}

func TestGenerate_FallbackWhenNoPackageOrRemote(t *testing.T) {
	server := &store.Server{ID: "x", Slug: "x", RepositoryURL: "https://github.com/org/x"}
	payload, err := Generate(server, Generic)
	require.NoError(t, err)
	assert.Equal(t, StrategyFallback, payload.Strategy)
	assert.Nil(t, payload.Snippet)
	assert.Equal(t, "https://github.com/org/x", payload.RepositoryURL)
}

func TestGenerate_EnvPlaceholderRule(t *testing.T) {
	server := &store.Server{
		ID: "x", Slug: "x", RegistryType: store.RegistryNPM, PackageIdentifier: "pkg",
		EnvironmentVariables: []store.EnvVar{
			{Name: "SECRET_KEY", IsSecret: true},
			{Name: "REGION", Description: "AWS region"},
			{Name: "PLAIN"},
		},
	}
	payload, err := Generate(server, Generic)
	require.NoError(t, err)

	var decoded map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(payload.Snippet, &decoded))
	env := decoded["mcpServers"]["x"]["env"].(map[string]interface{})
	assert.Equal(t, "<YOUR_VALUE>", env["SECRET_KEY"])
	assert.Equal(t, "AWS region", env["REGION"])
	assert.Equal(t, "<VALUE>", env["PLAIN"])
}

func TestGenerate_ServerKeyFromIdLastSegment(t *testing.T) {
	server := &store.Server{ID: "io.modelcontextprotocol/filesystem", Slug: "fallback-slug", RegistryType: store.RegistryNPM, PackageIdentifier: "pkg"}
	payload, err := Generate(server, Generic)
	require.NoError(t, err)
	assert.Equal(t, "filesystem", payload.ServerKey)
}

func TestGenerate_UnknownClientIsInvalidInput(t *testing.T) {
	_, err := Generate(githubServer(), Client("not-a-client"))
	assert.Error(t, err)
}
