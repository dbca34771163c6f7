package store

import (
	"encoding/json"
	"time"
)

// Bucket names for the bbolt database.
const (
	ServersBucket = "servers"
	SyncLogBucket = "synclog"
	MetaBucket    = "meta"
)

// Meta keys.
const (
	SchemaVersionKey = "schema_version"
)

// CurrentSchemaVersion is bumped whenever the on-disk Server/SyncLog shape
// changes in a way that requires migration. See DESIGN.md for the
// superset-schema decision.
const CurrentSchemaVersion = 1

// Source identifies an upstream registry that contributed to a Server row.
type Source string

const (
	SourceOfficial  Source = "official"
	SourceGlama     Source = "glama"
	SourceSmithery  Source = "smithery"
)

// KnownSources is the closed set a Server.Sources must be a subset of.
var KnownSources = map[Source]bool{
	SourceOfficial: true,
	SourceGlama:    true,
	SourceSmithery: true,
}

// RegistryType enumerates the package ecosystems a Server may ship through.
type RegistryType string

const (
	RegistryNPM   RegistryType = "npm"
	RegistryPyPI  RegistryType = "pypi"
	RegistryOCI   RegistryType = "oci"
	RegistryNuGet RegistryType = "nuget"
	RegistryMCPB  RegistryType = "mcpb"
	RegistryNone  RegistryType = ""
)

// TransportType enumerates how a server speaks MCP.
type TransportType string

const (
	TransportStdio          TransportType = "stdio"
	TransportStreamableHTTP TransportType = "streamable-http"
	TransportSSE            TransportType = "sse"
	TransportNone           TransportType = ""
)

// EnvVar describes one environment variable a server needs at install time.
type EnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Format      string `json:"format,omitempty"`
	IsSecret    bool   `json:"is_secret,omitempty"`
}

// Server is the unified record for one MCP server version, aggregated
// across upstream registries. Field invariants (unique ID, derived Slug,
// non-empty Sources) are enforced at construction by the normalizer and
// at persistence by the Store, not by this type itself.
type Server struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`

	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`

	RegistryType      RegistryType  `json:"registry_type,omitempty"`
	PackageIdentifier string        `json:"package_identifier,omitempty"`
	TransportType     TransportType `json:"transport_type,omitempty"`

	HasRemote bool   `json:"has_remote"`
	RemoteURL string `json:"remote_url,omitempty"`

	Sources     []Source        `json:"sources"`
	RawData     json.RawMessage `json:"raw_data,omitempty"`
	LastSyncedAt time.Time      `json:"last_synced_at"`

	RepositoryURL    string `json:"repository_url,omitempty"`
	RepositorySource string `json:"repository_source,omitempty"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Status      string     `json:"status,omitempty"`

	UseCount int    `json:"use_count"`
	Verified bool   `json:"verified"`
	IconURL  string `json:"icon_url,omitempty"`

	EnvironmentVariables []EnvVar `json:"environment_variables,omitempty"`
}

// HasSource reports whether s has already been attributed to src.
func (s *Server) HasSource(src Source) bool {
	for _, existing := range s.Sources {
		if existing == src {
			return true
		}
	}
	return false
}

// SyncLog is one row per source recording the outcome of its most recent
// sync run.
type SyncLog struct {
	Source       Source    `json:"source"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	ServerCount  int       `json:"server_count"`
	Status       string    `json:"status"` // ok | error
	Error        string    `json:"error,omitempty"`
}

// MarshalBinary implements encoding.BinaryMarshaler for bbolt storage.
func (s *Server) MarshalBinary() ([]byte, error) { return json.Marshal(s) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler for bbolt storage.
func (s *Server) UnmarshalBinary(data []byte) error { return json.Unmarshal(data, s) }

// MarshalBinary implements encoding.BinaryMarshaler for bbolt storage.
func (l *SyncLog) MarshalBinary() ([]byte, error) { return json.Marshal(l) }

// UnmarshalBinary implements encoding.BinaryUnmarshaler for bbolt storage.
func (l *SyncLog) UnmarshalBinary(data []byte) error { return json.Unmarshal(data, l) }

// Filters constrains SearchFullText queries. Any field with zero value
// means "any".
type Filters struct {
	TransportType TransportType
	RegistryType  RegistryType
	Source        Source
}

// SearchHit pairs a Server with its full-text rank (larger is better).
type SearchHit struct {
	Server Server
	Rank   float64
}
