// Package mcptools adapts the core facade to MCP tool calls, a thin
// layer over internal/core: one mcp.NewTool plus a closure handler per
// operation, added to a *server.MCPServer with s.AddTool.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mcpfinder/mcpfinder/internal/core"
	"github.com/mcpfinder/mcpfinder/internal/install"
	"github.com/mcpfinder/mcpfinder/internal/mcferrors"
)

// Register adds every MCPfinder operation as an MCP tool on s.
func Register(s *mcpserver.MCPServer, c *core.Core) {
	s.AddTool(searchServersTool(), searchServersHandler(c))
	s.AddTool(getServerDetailsTool(), getServerDetailsHandler(c))
	s.AddTool(getInstallCommandTool(), getInstallCommandHandler(c))
	s.AddTool(listCategoriesTool(), listCategoriesHandler(c))
	s.AddTool(browseCategoryTool(), browseCategoryHandler(c))
	s.AddTool(syncStatusTool(), syncStatusHandler(c))
}

func errResult(err error) (*mcp.CallToolResult, error) {
	if isNotFound(err) {
		return mcp.NewToolResultText("null"), nil
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func isNotFound(err error) bool {
	_, ok := err.(*mcferrors.ErrNotFound)
	return ok
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func searchServersTool() mcp.Tool {
	return mcp.NewTool("mcpfinder_search_servers",
		mcp.WithDescription(`Search the MCP server catalog by keyword.

Usage: mcpfinder_search_servers query="filesystem access" limit=10

Parameters:
  query (string): free-text keywords. Empty returns the most recently updated servers.
  limit (number, optional): 1-50, default 10.
  transportType (string, optional): stdio | streamable-http | sse.
  registryType (string, optional): npm | pypi | oci | nuget | mcpb.
  registrySource (string, optional): official | glama | smithery.

Returns: JSON array of ranked servers with install-relevant fields.`),
		mcp.WithString("query", mcp.Description("Free-text search query; empty for recents.")),
		mcp.WithNumber("limit", mcp.Description("Max results, 1-50, default 10.")),
		mcp.WithString("transportType", mcp.Description("Filter: stdio | streamable-http | sse.")),
		mcp.WithString("registryType", mcp.Description("Filter: npm | pypi | oci | nuget | mcpb.")),
		mcp.WithString("registrySource", mcp.Description("Filter: official | glama | smithery.")),
	)
}

func searchServersHandler(c *core.Core) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := req.GetString("query", "")
		limit := req.GetInt("limit", 0)
		filters := core.SearchFilters{
			TransportType:  req.GetString("transportType", ""),
			RegistryType:   req.GetString("registryType", ""),
			RegistrySource: req.GetString("registrySource", ""),
		}

		results, err := c.SearchServers(ctx, query, limit, filters)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(results)
	}
}

func getServerDetailsTool() mcp.Tool {
	return mcp.NewTool("mcpfinder_get_server_details",
		mcp.WithDescription(`Fetch full details for one MCP server by id, slug, or name suffix.

Usage: mcpfinder_get_server_details key="io.modelcontextprotocol/filesystem"

Returns: JSON object with the server's full record, or null if not found.`),
		mcp.WithString("key", mcp.Required(), mcp.Description("Server id, slug, or name suffix.")),
	)
}

func getServerDetailsHandler(c *core.Core) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		server, err := c.GetServerDetails(ctx, key)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(server)
	}
}

func getInstallCommandTool() mcp.Tool {
	return mcp.NewTool("mcpfinder_get_install_command",
		mcp.WithDescription(`Generate a copy-paste install snippet for a server and a target MCP client.

Usage: mcpfinder_get_install_command key="github" client="cursor"

Parameters:
  key (string, required): server id, slug, or name suffix.
  client (string, required): claude-desktop | cursor | claude-code | cline-vscode | windsurf | generic.

Returns: JSON object with the install snippet, config file paths, and required env vars.`),
		mcp.WithString("key", mcp.Required(), mcp.Description("Server id, slug, or name suffix.")),
		mcp.WithString("client", mcp.Required(),
			mcp.Enum("claude-desktop", "cursor", "claude-code", "cline-vscode", "windsurf", "generic"),
			mcp.Description("Target MCP client application.")),
	)
}

func getInstallCommandHandler(c *core.Core) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		clientStr, err := req.RequireString("client")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		payload, err := c.GetInstallCommand(ctx, key, install.Client(clientStr))
		if err != nil {
			return errResult(err)
		}
		return jsonResult(payload)
	}
}

func listCategoriesTool() mcp.Tool {
	return mcp.NewTool("mcpfinder_list_categories",
		mcp.WithDescription(`List every non-empty server category with its count, sorted by count descending.

Usage: mcpfinder_list_categories

Returns: JSON array of {category, count}.`),
	)
}

func listCategoriesHandler(c *core.Core) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		counts, err := c.ListCategories(ctx)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(counts)
	}
}

func browseCategoryTool() mcp.Tool {
	return mcp.NewTool("mcpfinder_browse_category",
		mcp.WithDescription(`List servers belonging to one category.

Usage: mcpfinder_browse_category category="database" limit=20

Parameters:
  category (string, required): one of the taxonomy names from mcpfinder_list_categories.
  limit (number, optional): 1-50, default 20.

Returns: JSON array of servers, most recently updated first.`),
		mcp.WithString("category", mcp.Required(), mcp.Description("Taxonomy category name.")),
		mcp.WithNumber("limit", mcp.Description("Max results, 1-50, default 20.")),
	)
}

func browseCategoryHandler(c *core.Core) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		categoryName, err := req.RequireString("category")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit := req.GetInt("limit", 0)

		servers, err := c.BrowseCategory(ctx, categoryName, limit)
		if err != nil {
			return errResult(err)
		}
		return jsonResult(servers)
	}
}

func syncStatusTool() mcp.Tool {
	return mcp.NewTool("mcpfinder_sync_status",
		mcp.WithDescription(`Diagnostic: show the last sync outcome for every upstream registry.

Usage: mcpfinder_sync_status

Returns: JSON array of {source, lastSyncedAt, serverCount, status, error}.`),
	)
}

func syncStatusHandler(c *core.Core) mcpserver.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logs, err := c.GetSyncStatus()
		if err != nil {
			return errResult(err)
		}
		return jsonResult(logs)
	}
}
