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

const smitheryBaseURL = "https://registry.smithery.ai/servers"

// smitheryServersPage decodes Servers as raw JSON first so one malformed
// entry can be skipped without failing the whole page decode.
type smitheryServersPage struct {
	Servers    []json.RawMessage `json:"servers"`
	Pagination struct {
		CurrentPage int `json:"currentPage"`
		TotalPages  int `json:"totalPages"`
	} `json:"pagination"`
}

type smitheryServerEntry struct {
	QualifiedName string `json:"qualifiedName"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Version       string `json:"version"`
	Homepage      string `json:"homepage"`
	UseCount      int    `json:"useCount"`
	Verified      bool   `json:"verified"`
	IconURL       string `json:"iconUrl"`
	Remote        bool   `json:"remote"`
	RemoteURL     string `json:"remoteUrl"`
	Package       struct {
		RegistryType string `json:"registryType"`
		Identifier   string `json:"identifier"`
		Transport    string `json:"transport"`
		EnvVars      []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			IsSecret    bool   `json:"isSecret"`
		} `json:"envVars"`
	} `json:"package"`
	PublishedAt *time.Time `json:"publishedAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// SmitheryPuller pulls Smithery's server directory, page-number paginated
// via Pagination.CurrentPage/TotalPages. Smithery is the only source that
// carries UseCount/Verified/IconURL.
type SmitheryPuller struct {
	client *rateLimitedClient
	logger *zap.SugaredLogger
}

func NewSmitheryPuller(logger *zap.SugaredLogger) *SmitheryPuller {
	return &SmitheryPuller{client: newRateLimitedClient(), logger: logger}
}

func (p *SmitheryPuller) Source() store.Source { return store.SourceSmithery }

func (p *SmitheryPuller) Pull(ctx context.Context, st *store.Store) (int, error) {
	total := 0
	page := 1

	for {
		if err := ctx.Err(); err != nil {
			return total, nil
		}

		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(pageSize))
		q.Set("page", strconv.Itoa(page))

		var resp smitheryServersPage
		if err := p.client.getJSON(ctx, string(store.SourceSmithery), smitheryBaseURL+"?"+q.Encode(), &resp); err != nil {
			return total, err
		}
		if len(resp.Servers) == 0 {
			break
		}

		now := time.Now().UTC()
		rows := make([]store.Server, 0, len(resp.Servers))
		for _, rawMsg := range resp.Servers {
			var entry smitheryServerEntry
			if err := json.Unmarshal(rawMsg, &entry); err != nil {
				p.logger.Warnw("skipping malformed smithery entry", "error", err)
				continue
			}
			raw := normalizeSmitheryEntry(entry)
			row, err := normalize.Normalize(store.SourceSmithery, raw, []byte(rawMsg), now)
			if err != nil {
				p.logger.Warnw("skipping unnormalizable smithery entry", "error", err)
				continue
			}
			rows = append(rows, row)
		}

		if err := st.UpsertServers(ctx, rows); err != nil {
			return total, err
		}
		total += len(rows)

		if resp.Pagination.TotalPages == 0 || resp.Pagination.CurrentPage >= resp.Pagination.TotalPages {
			break
		}
		page = resp.Pagination.CurrentPage + 1
	}

	return total, nil
}

func normalizeSmitheryEntry(entry smitheryServerEntry) normalize.RawEntry {
	id := entry.QualifiedName
	if id == "" {
		id = entry.Name
	}

	raw := normalize.RawEntry{
		ID:          id,
		Name:        entry.Name,
		Description: entry.Description,
		Version:     entry.Version,
		UseCount:    entry.UseCount,
		Verified:    entry.Verified,
		IconURL:     entry.IconURL,
		PublishedAt: entry.PublishedAt,
		UpdatedAt:   entry.UpdatedAt,
	}

	if entry.Package.Identifier != "" {
		envVars := make([]store.EnvVar, 0, len(entry.Package.EnvVars))
		for _, ev := range entry.Package.EnvVars {
			envVars = append(envVars, store.EnvVar{
				Name:        ev.Name,
				Description: ev.Description,
				IsSecret:    ev.IsSecret,
			})
		}
		raw.Packages = append(raw.Packages, normalize.RawPackage{
			RegistryType:         store.RegistryType(entry.Package.RegistryType),
			Identifier:           entry.Package.Identifier,
			TransportType:        store.TransportType(entry.Package.Transport),
			EnvironmentVariables: envVars,
		})
	}

	if entry.Remote && entry.RemoteURL != "" {
		raw.Remotes = append(raw.Remotes, normalize.RawRemote{URL: entry.RemoteURL})
	}
	if entry.Homepage != "" && raw.RepositoryURL == "" {
		raw.RepositoryURL = entry.Homepage
	}

	return raw
}
