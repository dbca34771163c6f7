package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/normalize"
	"github.com/mcpfinder/mcpfinder/internal/store"

	"go.uber.org/zap"
)

const officialBaseURL = "https://registry.modelcontextprotocol.io/v0.1/servers"

const pageSize = 100

// officialServersPage decodes Servers as raw JSON first so one malformed
// entry can be skipped without failing the whole page decode.
type officialServersPage struct {
	Servers  []json.RawMessage `json:"servers"`
	Metadata struct {
		NextCursor string `json:"nextCursor"`
	} `json:"metadata"`
}

type officialServerEntry struct {
	Server struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Version     string `json:"version"`
		Repository  struct {
			URL    string `json:"url"`
			Source string `json:"source"`
		} `json:"repository"`
		Packages []struct {
			RegistryType string `json:"registryType"`
			Identifier   string `json:"identifier"`
			Transport    struct {
				Type string `json:"type"`
			} `json:"transport"`
			EnvironmentVariables []struct {
				Name        string `json:"name"`
				Description string `json:"description"`
				Format      string `json:"format"`
				IsSecret    bool   `json:"isSecret"`
			} `json:"environmentVariables"`
		} `json:"packages"`
		Remotes []struct {
			URL string `json:"url"`
		} `json:"remotes"`
	} `json:"server"`
	Meta map[string]json.RawMessage `json:"_meta"`
}

type officialMeta struct {
	Status      string     `json:"status"`
	PublishedAt *time.Time `json:"publishedAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// OfficialPuller pulls the Official MCP Registry, the only upstream that
// supports an incremental updated_since pull.
type OfficialPuller struct {
	client *rateLimitedClient
	logger *zap.SugaredLogger
}

func NewOfficialPuller(logger *zap.SugaredLogger) *OfficialPuller {
	return &OfficialPuller{client: newRateLimitedClient(), logger: logger}
}

func (p *OfficialPuller) Source() store.Source { return store.SourceOfficial }

func (p *OfficialPuller) Pull(ctx context.Context, st *store.Store) (int, error) {
	lastSync, err := st.GetSyncLog(store.SourceOfficial)
	if err != nil {
		return 0, err
	}

	total := 0
	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return total, nil
		}

		q := url.Values{}
		q.Set("version", "latest")
		q.Set("limit", fmt.Sprintf("%d", pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		if lastSync != nil && !lastSync.LastSyncedAt.IsZero() {
			q.Set("updated_since", lastSync.LastSyncedAt.UTC().Format(time.RFC3339))
		}

		var page officialServersPage
		if err := p.client.getJSON(ctx, string(store.SourceOfficial), officialBaseURL+"?"+q.Encode(), &page); err != nil {
			return total, err
		}
		if len(page.Servers) == 0 {
			break
		}

		now := time.Now().UTC()
		rows := make([]store.Server, 0, len(page.Servers))
		for _, rawMsg := range page.Servers {
			var entry officialServerEntry
			if err := json.Unmarshal(rawMsg, &entry); err != nil {
				p.logger.Warnw("skipping malformed official registry entry", "error", err)
				continue
			}
			raw := normalizeOfficialEntry(entry)
			row, err := normalize.Normalize(store.SourceOfficial, raw, []byte(rawMsg), now)
			if err != nil {
				p.logger.Warnw("skipping unnormalizable official registry entry", "error", err)
				continue
			}
			rows = append(rows, row)
		}

		if err := st.UpsertServers(ctx, rows); err != nil {
			return total, err
		}
		total += len(rows)

		if page.Metadata.NextCursor == "" {
			break
		}
		cursor = page.Metadata.NextCursor
	}

	return total, nil
}

func normalizeOfficialEntry(entry officialServerEntry) normalize.RawEntry {
	raw := normalize.RawEntry{
		ID:               entry.Server.Name,
		Name:             entry.Server.Name,
		Description:      entry.Server.Description,
		Version:          entry.Server.Version,
		RepositoryURL:    entry.Server.Repository.URL,
		RepositorySource: entry.Server.Repository.Source,
	}

	for _, pkg := range entry.Server.Packages {
		envVars := make([]store.EnvVar, 0, len(pkg.EnvironmentVariables))
		for _, ev := range pkg.EnvironmentVariables {
			envVars = append(envVars, store.EnvVar{
				Name:        ev.Name,
				Description: ev.Description,
				Format:      ev.Format,
				IsSecret:    ev.IsSecret,
			})
		}
		raw.Packages = append(raw.Packages, normalize.RawPackage{
			RegistryType:         store.RegistryType(pkg.RegistryType),
			Identifier:           pkg.Identifier,
			TransportType:        store.TransportType(pkg.Transport.Type),
			EnvironmentVariables: envVars,
		})
	}

	for _, remote := range entry.Server.Remotes {
		raw.Remotes = append(raw.Remotes, normalize.RawRemote{URL: remote.URL})
	}

	if meta := extractOfficialMeta(entry.Meta); meta != nil {
		raw.Status = meta.Status
		raw.PublishedAt = meta.PublishedAt
		raw.UpdatedAt = meta.UpdatedAt
	}

	return raw
}

// extractOfficialMeta finds the first _meta key containing
// "modelcontextprotocol" (lexicographically smallest if more than one
// matches, for determinism) and decodes it.
func extractOfficialMeta(meta map[string]json.RawMessage) *officialMeta {
	var keys []string
	for k := range meta {
		if strings.Contains(k, "modelcontextprotocol") {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)

	var parsed officialMeta
	if err := json.Unmarshal(meta[keys[0]], &parsed); err != nil {
		return nil
	}
	return &parsed
}
