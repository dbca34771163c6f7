package store

import (
	"path/filepath"
	"strings"

	"github.com/mcpfinder/mcpfinder/internal/mcferrors"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

const ftIndexDirName = "ftindex.bleve"

// ftDocument is the slice of a Server that actually gets analyzed and
// indexed by Bleve. The full record lives in bbolt; a search hit only
// carries the ID back to the caller so it can be re-fetched.
type ftDocument struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Keywords      []string `json:"keywords"`
	TransportType string   `json:"transport_type"`
	RegistryType  string   `json:"registry_type"`
	Sources       []string `json:"sources"`
	Status        string   `json:"status"`
}

// bleveIndex wraps the Bleve full-text index with the fixed field mapping
// required by the search contract: analyzed (stemmed, tokenized) text
// fields for ranked phrase search, plus un-analyzed keyword fields for the
// AND filters in searchFullText.
type bleveIndex struct {
	index  bleve.Index
	logger *zap.SugaredLogger
}

func openBleve(dataDir string, logger *zap.SugaredLogger) (*bleveIndex, error) {
	path := filepath.Join(dataDir, ftIndexDirName)

	idx, err := bleve.Open(path)
	if err == nil {
		return &bleveIndex{index: idx, logger: logger}, nil
	}

	idx, err = bleve.New(path, buildIndexMapping())
	if err != nil {
		return nil, &mcferrors.ErrStoreUnavailable{Op: "bleve-open", Err: err}
	}
	return &bleveIndex{index: idx, logger: logger}, nil
}

// buildIndexMapping wires the English analyzer (Unicode tokenizer + porter
// stemmer) onto the searchable text fields, and plain keyword fields onto
// everything used only for equality filtering.
func buildIndexMapping() *mapping.IndexMappingImpl {
	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = "keyword"

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", textField)
	doc.AddFieldMappingsAt("description", textField)
	doc.AddFieldMappingsAt("keywords", textField)
	doc.AddFieldMappingsAt("transport_type", keywordField)
	doc.AddFieldMappingsAt("registry_type", keywordField)
	doc.AddFieldMappingsAt("sources", keywordField)
	doc.AddFieldMappingsAt("status", keywordField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = doc
	indexMapping.DefaultAnalyzer = "en"
	return indexMapping
}

func (bi *bleveIndex) Close() error {
	if bi.index == nil {
		return nil
	}
	return bi.index.Close()
}

func toFTDocument(s *Server) ftDocument {
	sources := make([]string, len(s.Sources))
	for i, src := range s.Sources {
		sources[i] = string(src)
	}
	return ftDocument{
		Name:          s.Name,
		Description:   s.Description,
		Keywords:      s.Keywords,
		TransportType: string(s.TransportType),
		RegistryType:  string(s.RegistryType),
		Sources:       sources,
		Status:        s.Status,
	}
}

// indexServers re-indexes every row in a single Bleve batch, invoked
// right after the primary store commits a write.
func (bi *bleveIndex) indexServers(rows []Server) error {
	batch := bi.index.NewBatch()
	for i := range rows {
		if err := batch.Index(rows[i].ID, toFTDocument(&rows[i])); err != nil {
			return err
		}
	}
	return bi.index.Batch(batch)
}

func (bi *bleveIndex) deleteServer(id string) error {
	return bi.index.Delete(id)
}

func (bi *bleveIndex) documentCount() (uint64, error) {
	return bi.index.DocCount()
}

// ftHit pairs a document ID with its Bleve relevance score.
type ftHit struct {
	ID    string
	Score float64
}

// search runs the sanitized query string conjoined with any active equality
// filters and returns (id, score) pairs in Bleve's score-descending order.
// Tie-breaking by updatedAt/id happens one layer up, once the full Server
// rows have been re-fetched from bbolt.
func (bi *bleveIndex) search(sanitizedQuery string, limit int, filters Filters) ([]ftHit, error) {
	// Each quoted token becomes a required clause, so a document has to
	// match every token (a plain query string would match any of them).
	required := strings.Fields(sanitizedQuery)
	for i, tok := range required {
		required[i] = "+" + tok
	}
	must := []query.Query{bleve.NewQueryStringQuery(strings.Join(required, " "))}

	if filters.TransportType != "" {
		must = append(must, newKeywordTermQuery("transport_type", string(filters.TransportType)))
	}
	if filters.RegistryType != "" {
		must = append(must, newKeywordTermQuery("registry_type", string(filters.RegistryType)))
	}
	if filters.Source != "" {
		must = append(must, newKeywordTermQuery("sources", string(filters.Source)))
	}

	var finalQuery query.Query = must[0]
	if len(must) > 1 {
		finalQuery = bleve.NewConjunctionQuery(must...)
	}

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = limit
	if req.Size <= 0 {
		req.Size = 50
	}

	result, err := bi.index.Search(req)
	if err != nil {
		return nil, err
	}

	hits := make([]ftHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, ftHit{ID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// newKeywordTermQuery lowercases the caller's filter value to match the
// stored enum strings, since TermQuery itself does no analysis.
func newKeywordTermQuery(field, value string) *query.TermQuery {
	tq := bleve.NewTermQuery(strings.ToLower(value))
	tq.SetField(field)
	return tq
}
