package sync

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/normalize"
	"github.com/mcpfinder/mcpfinder/internal/store"

	"go.uber.org/zap"
)

const glamaBaseURL = "https://glama.ai/api/mcp/v1/servers"

// glamaServersPage decodes Servers as raw JSON first so one malformed
// entry can be skipped without failing the whole page decode.
type glamaServersPage struct {
	Servers  []json.RawMessage `json:"servers"`
	PageInfo struct {
		EndCursor   string `json:"endCursor"`
		HasNextPage bool   `json:"hasNextPage"`
	} `json:"pageInfo"`
}

type glamaServerEntry struct {
	QualifiedName string `json:"qualifiedName"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Version       string `json:"version"`
	Repository    struct {
		URL    string `json:"url"`
		Source string `json:"source"`
	} `json:"repository"`
	Spec struct {
		RegistryType string `json:"registryType"`
		Identifier   string `json:"identifier"`
		Transport    string `json:"transport"`
		EnvVars      []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			IsSecret    bool   `json:"isSecret"`
		} `json:"envVars"`
		RemoteURL string `json:"remoteUrl"`
	} `json:"spec"`
	PublishedAt *time.Time `json:"publishedAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// GlamaPuller pulls Glama's MCP server directory, cursor-paginated via
// PageInfo.EndCursor. Glama's API has no incremental filter, so every run
// is a full pull.
type GlamaPuller struct {
	client *rateLimitedClient
	logger *zap.SugaredLogger
}

func NewGlamaPuller(logger *zap.SugaredLogger) *GlamaPuller {
	return &GlamaPuller{client: newRateLimitedClient(), logger: logger}
}

func (p *GlamaPuller) Source() store.Source { return store.SourceGlama }

func (p *GlamaPuller) Pull(ctx context.Context, st *store.Store) (int, error) {
	total := 0
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return total, nil
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			q.Set("after", cursor)
		}

		var page glamaServersPage
		if err := p.client.getJSON(ctx, string(store.SourceGlama), glamaBaseURL+"?"+q.Encode(), &page); err != nil {
			return total, err
		}
		if len(page.Servers) == 0 {
			break
		}

		now := time.Now().UTC()
		rows := make([]store.Server, 0, len(page.Servers))
		for _, rawMsg := range page.Servers {
			var entry glamaServerEntry
			if err := json.Unmarshal(rawMsg, &entry); err != nil {
				p.logger.Warnw("skipping malformed glama entry", "error", err)
				continue
			}
			raw := normalizeGlamaEntry(entry)
			row, err := normalize.Normalize(store.SourceGlama, raw, []byte(rawMsg), now)
			if err != nil {
				p.logger.Warnw("skipping unnormalizable glama entry", "error", err)
				continue
			}
			rows = append(rows, row)
		}

		if err := st.UpsertServers(ctx, rows); err != nil {
			return total, err
		}
		total += len(rows)

		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" {
			break
		}
		cursor = page.PageInfo.EndCursor
	}

	return total, nil
}

func normalizeGlamaEntry(entry glamaServerEntry) normalize.RawEntry {
	id := entry.QualifiedName
	if id == "" {
		id = entry.Name
	}

	raw := normalize.RawEntry{
		ID:               id,
		Name:             entry.Name,
		Description:      entry.Description,
		Version:          entry.Version,
		RepositoryURL:    entry.Repository.URL,
		RepositorySource: entry.Repository.Source,
		PublishedAt:      entry.PublishedAt,
		UpdatedAt:        entry.UpdatedAt,
	}

	if entry.Spec.Identifier != "" {
		envVars := make([]store.EnvVar, 0, len(entry.Spec.EnvVars))
		for _, ev := range entry.Spec.EnvVars {
			envVars = append(envVars, store.EnvVar{
				Name:        ev.Name,
				Description: ev.Description,
				IsSecret:    ev.IsSecret,
			})
		}
		raw.Packages = append(raw.Packages, normalize.RawPackage{
			RegistryType:         store.RegistryType(entry.Spec.RegistryType),
			Identifier:           entry.Spec.Identifier,
			TransportType:        store.TransportType(entry.Spec.Transport),
			EnvironmentVariables: envVars,
		})
	}

	if entry.Spec.RemoteURL != "" {
		raw.Remotes = append(raw.Remotes, normalize.RawRemote{URL: entry.Spec.RemoteURL})
	}

	return raw
}
