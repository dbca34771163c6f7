// Package category derives a fixed taxonomy from server name/description
// keyword matching and answers category-count and category-browse queries
// over the store.
package category

import (
	"sort"
	"strings"

	"github.com/mcpfinder/mcpfinder/internal/store"
)

// Other is emitted when a server matches none of the closed taxonomy
// categories.
const Other = "other"

// taxonomy is the closed category -> keyword-list set. Order within a
// slice does not matter; matching is substring-based, not tokenized.
var taxonomy = map[string][]string{
	"filesystem":    {"file", "filesystem", "directory", "folder", "path", "disk", "storage", "fs"},
	"database":      {"database", "sql", "sqlite", "postgres", "mysql", "mongo", "redis", "dynamodb", "supabase", "prisma", "db", "query"},
	"api":           {"api", "rest", "graphql", "endpoint", "webhook", "http", "request"},
	"ai":            {"ai", "llm", "embedding", "openai", "anthropic", "gemini", "machine-learning", "ml", "neural", "gpt", "claude"},
	"web":           {"web", "browser", "scrape", "crawl", "html", "url", "fetch", "puppeteer", "playwright", "selenium"},
	"git":           {"git", "github", "gitlab", "bitbucket", "repo", "commit", "branch", "version-control"},
	"cloud":         {"cloud", "aws", "azure", "gcp", "docker", "kubernetes", "k8s", "terraform", "deploy", "serverless", "lambda"},
	"search":        {"search", "brave", "bing", "elasticsearch", "algolia", "index"},
	"monitoring":    {"monitor", "log", "metric", "alert", "observability", "trace", "datadog", "grafana", "prometheus", "sentry"},
	"security":      {"security", "auth", "encrypt", "vault", "secret", "token", "oauth", "permission", "ssl", "tls"},
	"communication": {"email", "slack", "discord", "telegram", "notification", "message", "chat", "sms", "twilio"},
	"productivity":  {"notion", "todoist", "calendar", "task", "project", "jira", "trello", "asana", "linear", "schedule"},
	"dev-tools":     {"lint", "format", "test", "debug", "compile", "build", "ci", "npm", "package", "cli", "terminal"},
	"data":          {"csv", "json", "xml", "yaml", "parse", "transform", "etl", "spreadsheet", "excel", "pandas"},
	"media":         {"image", "video", "audio", "media", "photo", "pdf", "document", "convert", "ffmpeg"},
}

// Names lists every taxonomy category, sorted for stable iteration in
// tests and docs.
func Names() []string {
	names := make([]string, 0, len(taxonomy))
	for name := range taxonomy {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match returns every taxonomy category that has at least one keyword
// occurring as a substring of the lowercased nameAndDescription, or
// {"other"} if none match.
func Match(nameAndDescription string) []string {
	haystack := strings.ToLower(nameAndDescription)

	var matched []string
	for _, name := range Names() {
		for _, kw := range taxonomy[name] {
			if strings.Contains(haystack, kw) {
				matched = append(matched, name)
				break
			}
		}
	}
	if len(matched) == 0 {
		return []string{Other}
	}
	return matched
}

// Count pairs a category name with the number of active servers matching
// it.
type Count struct {
	Category string
	Count    int
}

func searchableText(s *store.Server) string {
	return strings.ToLower(s.Name + " " + s.Description)
}

// isActive reports whether s counts toward category counts and category
// browse results. Status defaults to "active" at normalize
// time, so only an explicit non-empty, non-"active" status (e.g.
// "deprecated", "deleted") excludes a server.
func isActive(s *store.Server) bool {
	return s.Status == "" || s.Status == "active"
}

// ListCategoryCounts scans every active server and returns the taxonomy
// sorted by count descending, omitting zero-count categories.
func ListCategoryCounts(st *store.Store) ([]Count, error) {
	servers, err := st.ListAll()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(taxonomy))
	for i := range servers {
		if !isActive(&servers[i]) {
			continue
		}
		text := searchableText(&servers[i])
		for _, name := range Names() {
			for _, kw := range taxonomy[name] {
				if strings.Contains(text, kw) {
					counts[name]++
					break
				}
			}
		}
	}

	result := make([]Count, 0, len(counts))
	for name, n := range counts {
		if n == 0 {
			continue
		}
		result = append(result, Count{Category: name, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Category < result[j].Category
	})
	return result, nil
}

// ListByCategory returns up to limit active servers matching category,
// ordered by UpdatedAt descending. limit <= 0 means unbounded.
func ListByCategory(st *store.Store, categoryName string, limit int) ([]store.Server, error) {
	servers, err := st.ListRecent(0)
	if err != nil {
		return nil, err
	}

	keywords, ok := taxonomy[categoryName]
	if !ok && categoryName != Other {
		return nil, nil
	}

	var matched []store.Server
	for _, s := range servers {
		if !isActive(&s) {
			continue
		}
		if categoryName == Other {
			if len(Match(searchableText(&s))) == 1 && Match(searchableText(&s))[0] == Other {
				matched = append(matched, s)
			}
			continue
		}
		text := searchableText(&s)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, s)
				break
			}
		}
	}

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
