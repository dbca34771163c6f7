// Package install assembles the copy-paste-ready installation snippet
// for a client: given a stored Server and a target client, it
// picks an install strategy (remote, npm, pypi, docker, or a no-snippet
// fallback), wraps it in the client's expected top-level JSON shape, and
// attaches the client's per-OS config-file paths and post-install hint.
package install

import (
	"encoding/json"
	"strings"

	"github.com/mcpfinder/mcpfinder/internal/mcferrors"
	"github.com/mcpfinder/mcpfinder/internal/store"
)

// Client identifies a target MCP client application.
type Client string

const (
	ClaudeDesktop Client = "claude-desktop"
	Cursor        Client = "cursor"
	ClaudeCode    Client = "claude-code"
	ClineVSCode   Client = "cline-vscode"
	Windsurf      Client = "windsurf"
	Generic       Client = "generic"
)

// Strategy identifies which shape of install snippet was generated.
type Strategy string

const (
	StrategyRemote   Strategy = "remote"
	StrategyNPM      Strategy = "npm"
	StrategyPyPI     Strategy = "pypi"
	StrategyDocker   Strategy = "docker"
	StrategyFallback Strategy = "fallback"
)

// ConfigPaths is the informational, per-OS config file location for a
// client.
type ConfigPaths struct {
	Mac     string `json:"mac"`
	Windows string `json:"windows"`
	Linux   string `json:"linux"`
}

// Payload is the complete install response: the generated snippet (nil
// for the fallback strategy), where it goes, and what the user still
// needs to supply.
type Payload struct {
	Client          Client          `json:"client"`
	ServerKey       string          `json:"serverKey"`
	Strategy        Strategy        `json:"strategy"`
	Snippet         json.RawMessage `json:"snippet,omitempty"`
	ConfigPaths     ConfigPaths     `json:"configPaths"`
	EnvVarsNeeded   []store.EnvVar  `json:"envVarsNeeded,omitempty"`
	PostInstallNote string          `json:"postInstallNote"`
	RepositoryURL   string          `json:"repositoryUrl,omitempty"`
}

// clientProfile is the small data-driven table every client's install
// wrapping and config path facts come from.
type clientProfile struct {
	topLevelKey     string
	configPaths     ConfigPaths
	postInstallNote string
}

var profiles = map[Client]clientProfile{
	ClaudeDesktop: {
		topLevelKey: "mcpServers",
		configPaths: ConfigPaths{
			Mac:     "~/Library/Application Support/Claude/claude_desktop_config.json",
			Windows: `%APPDATA%\Claude\claude_desktop_config.json`,
			Linux:   "~/.config/Claude/claude_desktop_config.json",
		},
		postInstallNote: "Restart Claude Desktop to activate.",
	},
	Cursor: {
		topLevelKey: "mcpServers",
		configPaths: ConfigPaths{
			Mac:     "~/.cursor/mcp.json",
			Windows: `%USERPROFILE%\.cursor\mcp.json`,
			Linux:   "~/.cursor/mcp.json",
		},
		postInstallNote: "Restart Cursor to pick up the new MCP server.",
	},
	ClaudeCode: {
		topLevelKey: "mcpServers",
		configPaths: ConfigPaths{
			Mac:     ".mcp.json (project) or ~/.claude.json (global)",
			Windows: `.mcp.json (project) or %USERPROFILE%\.claude.json (global)`,
			Linux:   ".mcp.json (project) or ~/.claude.json (global)",
		},
		postInstallNote: "Run `claude mcp list` to confirm the server is registered.",
	},
	ClineVSCode: {
		topLevelKey: "servers",
		configPaths: ConfigPaths{
			Mac:     ".vscode/mcp.json",
			Windows: `.vscode\mcp.json`,
			Linux:   ".vscode/mcp.json",
		},
		postInstallNote: "Reload the VS Code window to activate the server.",
	},
	Windsurf: {
		topLevelKey: "mcpServers",
		configPaths: ConfigPaths{
			Mac:     "~/.codeium/windsurf/mcp_config.json",
			Windows: `%USERPROFILE%\.codeium\windsurf\mcp_config.json`,
			Linux:   "~/.codeium/windsurf/mcp_config.json",
		},
		postInstallNote: "Restart Windsurf to activate the server.",
	},
	Generic: {
		topLevelKey: "mcpServers",
		configPaths: ConfigPaths{
			Mac:     "(client-specific)",
			Windows: "(client-specific)",
			Linux:   "(client-specific)",
		},
		postInstallNote: "Add this snippet to your MCP client's configuration file and restart it.",
	},
}

// Generate builds the Payload for server targeting client. Returns
// InvalidInput if client is not one of the known clients.
func Generate(server *store.Server, client Client) (*Payload, error) {
	profile, ok := profiles[client]
	if !ok {
		return nil, &mcferrors.ErrInvalidInput{Field: "client", Reason: "unknown client " + string(client)}
	}

	serverKey := deriveServerKey(server)
	strategy, serverConfig := selectStrategy(server)

	payload := &Payload{
		Client:          client,
		ServerKey:       serverKey,
		Strategy:        strategy,
		ConfigPaths:     profile.configPaths,
		PostInstallNote: profile.postInstallNote,
		RepositoryURL:   server.RepositoryURL,
	}

	if strategy == StrategyFallback {
		payload.EnvVarsNeeded = server.EnvironmentVariables
		return payload, nil
	}

	wrapped := map[string]interface{}{
		profile.topLevelKey: map[string]interface{}{
			serverKey: serverConfig,
		},
	}
	snippet, err := json.Marshal(wrapped)
	if err != nil {
		return nil, err
	}
	payload.Snippet = snippet
	payload.EnvVarsNeeded = server.EnvironmentVariables
	return payload, nil
}

// deriveServerKey is the last path segment of ID, or Slug if ID has no
// "/".
func deriveServerKey(server *store.Server) string {
	if idx := strings.LastIndex(server.ID, "/"); idx >= 0 && idx+1 < len(server.ID) {
		return server.ID[idx+1:]
	}
	return server.Slug
}

// selectStrategy picks the install strategy in priority order (remote,
// npm, pypi, docker, fallback), returning the strategy and the
// serverConfig object to wrap (nil for the fallback strategy).
func selectStrategy(server *store.Server) (Strategy, map[string]interface{}) {
	if server.HasRemote && server.RemoteURL != "" {
		cfg := map[string]interface{}{"url": server.RemoteURL}
		if env := envMap(server.EnvironmentVariables); env != nil {
			cfg["env"] = env
		}
		return StrategyRemote, cfg
	}

	if server.RegistryType == store.RegistryNPM && server.PackageIdentifier != "" {
		cfg := map[string]interface{}{
			"command": "npx",
			"args":    []string{"-y", server.PackageIdentifier},
		}
		if env := envMap(server.EnvironmentVariables); env != nil {
			cfg["env"] = env
		}
		return StrategyNPM, cfg
	}

	if server.RegistryType == store.RegistryPyPI && server.PackageIdentifier != "" {
		cfg := map[string]interface{}{
			"command": "uvx",
			"args":    []string{server.PackageIdentifier},
		}
		if env := envMap(server.EnvironmentVariables); env != nil {
			cfg["env"] = env
		}
		return StrategyPyPI, cfg
	}

	if server.RegistryType == store.RegistryOCI && server.PackageIdentifier != "" {
		args := []string{"run", "-i"}
		for _, ev := range server.EnvironmentVariables {
			args = append(args, "-e", ev.Name+"=<YOUR_VALUE>")
		}
		args = append(args, server.PackageIdentifier)
		cfg := map[string]interface{}{
			"command": "docker",
			"args":    args,
		}
		return StrategyDocker, cfg
	}

	return StrategyFallback, nil
}

// envMap builds the env map per the placeholder rule: secret vars get the
// literal "<YOUR_VALUE>"; non-secret vars get their description if
// present, else "<VALUE>". Returns nil if envVars is empty, so callers
// can skip adding an "env" key entirely.
func envMap(envVars []store.EnvVar) map[string]string {
	if len(envVars) == 0 {
		return nil
	}
	out := make(map[string]string, len(envVars))
	for _, ev := range envVars {
		if ev.IsSecret {
			out[ev.Name] = "<YOUR_VALUE>"
			continue
		}
		if ev.Description != "" {
			out[ev.Name] = ev.Description
		} else {
			out[ev.Name] = "<VALUE>"
		}
	}
	return out
}
