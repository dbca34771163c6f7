// Package normalize turns a per-source raw server entry into the unified
// store.Server row. It performs no I/O and has no clock except the
// LastSyncedAt timestamp, which callers stamp via the now parameter so the
// function stays pure and testable.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/category"
	"github.com/mcpfinder/mcpfinder/internal/store"
)

// RawPackage is the subset of an upstream package entry the normalizer
// needs, already decoded from whatever source-specific JSON shape
// produced it.
type RawPackage struct {
	RegistryType         store.RegistryType
	Identifier           string
	TransportType        store.TransportType
	EnvironmentVariables []store.EnvVar
}

// RawRemote is the subset of an upstream remote entry the normalizer
// needs.
type RawRemote struct {
	URL string
}

// RawEntry is the common shape every per-source puller (internal/sync)
// decodes its wire format into before calling Normalize. Keeping this
// boundary typed, rather than interface{}, is the "permissive decoder,
// typed record" pattern: unknown upstream fields are dropped by the
// source-specific JSON decode, not carried through here.
type RawEntry struct {
	ID               string
	Name             string
	Description      string
	Version          string
	RepositoryURL    string
	RepositorySource string
	Packages         []RawPackage
	Remotes          []RawRemote
	PublishedAt      *time.Time
	UpdatedAt        *time.Time
	Status           string
	UseCount         int
	Verified         bool
	IconURL          string
}

var (
	nonAlphanumericRun = regexp.MustCompile(`[^a-z0-9]+`)
	nonWordChars       = regexp.MustCompile(`[^\w\s-]`)
	splitChars         = regexp.MustCompile(`[\s._/-]+`)
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "from": {}, "is": {},
	"it": {}, "that": {}, "this": {}, "as": {}, "are": {}, "was": {}, "be": {}, "has": {},
	"had": {}, "have": {}, "do": {}, "does": {}, "did": {}, "will": {}, "can": {}, "could": {},
	"would": {}, "should": {}, "may": {}, "might": {}, "shall": {}, "not": {}, "no": {}, "mcp": {},
	"server": {}, "tool": {}, "model": {}, "context": {}, "protocol": {},
}

// Slug lowercases id and replaces any run of non-alphanumeric characters
// with a single "-", trimming leading/trailing "-". Deterministic and
// idempotent.
func Slug(id string) string {
	lowered := strings.ToLower(id)
	collapsed := nonAlphanumericRun.ReplaceAllString(lowered, "-")
	return strings.Trim(collapsed, "-")
}

// Keywords computes the lowercased, stop-worded, deduplicated token set
// from name+description, preserving first-seen order. Tokens of length
// <= 2 are dropped.
func Keywords(name, description string) []string {
	text := strings.ToLower(name + " " + description)
	stripped := nonWordChars.ReplaceAllString(text, "")
	tokens := splitChars.Split(stripped, -1)

	seen := make(map[string]struct{}, len(tokens))
	var keywords []string
	for _, tok := range tokens {
		if len(tok) <= 2 {
			continue
		}
		if _, isStop := stopWords[tok]; isStop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// Normalize maps one raw per-source entry into a unified Server row. The
// returned row carries Sources = {source} only; Store.UpsertServers is
// responsible for unioning it into any pre-existing row's Sources at
// write time. Returns an error for a structurally unusable entry (no
// identity to key the row on); callers (internal/sync's pullers) must log
// and skip that one entry rather than fail the whole page.
func Normalize(source store.Source, raw RawEntry, rawPayload []byte, now time.Time) (store.Server, error) {
	if raw.ID == "" {
		return store.Server{}, fmt.Errorf("normalize %s entry: missing id/name", source)
	}

	s := store.Server{
		ID:               raw.ID,
		Slug:             Slug(raw.ID),
		Name:             raw.Name,
		Description:      raw.Description,
		Version:          raw.Version,
		RepositoryURL:    raw.RepositoryURL,
		RepositorySource: raw.RepositorySource,
		Sources:          []store.Source{source},
		RawData:          rawPayload,
		LastSyncedAt:     now,
		PublishedAt:      raw.PublishedAt,
		UpdatedAt:        raw.UpdatedAt,
		Status:           raw.Status,
		UseCount:         raw.UseCount,
		Verified:         raw.Verified,
		IconURL:          raw.IconURL,
	}
	if s.Status == "" {
		s.Status = "active"
	}

	if len(raw.Packages) > 0 {
		pkg := raw.Packages[0]
		s.RegistryType = pkg.RegistryType
		s.PackageIdentifier = pkg.Identifier
		s.TransportType = pkg.TransportType
		s.EnvironmentVariables = pkg.EnvironmentVariables
	}

	if len(raw.Remotes) > 0 {
		s.HasRemote = true
		s.RemoteURL = raw.Remotes[0].URL
	}

	s.Keywords = Keywords(s.Name, s.Description)
	s.Categories = category.Match(s.Name + " " + s.Description)

	return s, nil
}
