// Package search implements the ranked keyword search and detail-lookup
// query layer over internal/store: sanitizing free-text queries into
// Bleve query strings, falling back to a recency list for an empty
// query, and resolving a detail key through the id -> slug -> name-suffix
// chain.
package search

import (
	"regexp"
	"strings"

	"github.com/mcpfinder/mcpfinder/internal/mcferrors"
	"github.com/mcpfinder/mcpfinder/internal/store"
)

// MinLimit and MaxLimit bound the limit parameter accepted by Search.
const (
	MinLimit = 1
	MaxLimit = 50
)

var (
	nonWordChars = regexp.MustCompile(`[^\w\s-]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Result is one ranked search hit: the stored record plus the assigned
// Rank (1-based, ascending, 1 is best).
type Result struct {
	Server store.Server
	Rank   int
}

// Sanitize lowercases query, strips everything but word characters,
// whitespace, and hyphens, splits on whitespace, and wraps each surviving
// token in double quotes before rejoining, producing a conjunction of
// phrase tokens for the full-text index. An all-punctuation query
// sanitizes to the empty string, which callers (and Search) treat
// identically to an empty query.
func Sanitize(query string) string {
	lowered := strings.ToLower(query)
	stripped := nonWordChars.ReplaceAllString(lowered, "")
	tokens := whitespace.Split(strings.TrimSpace(stripped), -1)

	var quoted []string
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		quoted = append(quoted, `"`+tok+`"`)
	}
	return strings.Join(quoted, " ")
}

// Search sanitizes the query, falls back to the recency list when the
// sanitized query is empty, and otherwise runs a ranked full-text lookup,
// assigning ranks 1..N in the store's already-tie-broken order.
func Search(st *store.Store, query string, limit int, filters store.Filters) ([]Result, error) {
	limit, err := ClampLimit(limit)
	if err != nil {
		return nil, err
	}

	sanitized := Sanitize(query)
	if sanitized == "" {
		recent, err := st.ListRecent(limit)
		if err != nil {
			return nil, err
		}
		results := make([]Result, len(recent))
		for i := range recent {
			results[i] = Result{Server: recent[i], Rank: i + 1}
		}
		return results, nil
	}

	hits, err := st.SearchFullText(sanitized, limit, filters)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(hits))
	for i := range hits {
		results[i] = Result{Server: hits[i].Server, Rank: i + 1}
	}
	return results, nil
}

// ClampLimit validates limit: in-range values pass through unchanged; a
// caller that supplies 0 gets the default of 10; anything negative or
// above MaxLimit is InvalidInput rather than silently clamped.
func ClampLimit(limit int) (int, error) {
	if limit == 0 {
		return 10, nil
	}
	if limit < MinLimit || limit > MaxLimit {
		return 0, &mcferrors.ErrInvalidInput{Field: "limit", Reason: "must be in [1, 50]"}
	}
	return limit, nil
}

// GetServerDetails resolves key by id, then slug, then name suffix, in
// that order, returning mcferrors.ErrNotFound if none match.
func GetServerDetails(st *store.Store, key string) (*store.Server, error) {
	if strings.TrimSpace(key) == "" {
		return nil, &mcferrors.ErrInvalidInput{Field: "key", Reason: "must not be empty"}
	}

	if server, err := st.GetServerByIdOrSlug(key); err == nil {
		return server, nil
	} else if !isNotFound(err) {
		return nil, err
	}

	server, err := st.GetServerByNameSuffix(key)
	if err != nil {
		if isNotFound(err) {
			return nil, &mcferrors.ErrNotFound{Key: key}
		}
		return nil, err
	}
	return server, nil
}

func isNotFound(err error) bool {
	_, ok := err.(*mcferrors.ErrNotFound)
	return ok
}
