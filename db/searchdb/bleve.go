package searchdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/meghashyamc/ragconsole/config"
	"github.com/meghashyamc/ragconsole/logger"
)

const IndexingBatchSize = 100

const (
	indexFieldFilename     = "filename"
	indexFieldParentID     = "parent_id"
	indexFieldContent      = "content"
	indexFieldChildContent = "child_content"
	indexFieldChunkID      = "chunk_id"
	indexFieldImageData    = "image_data"
	indexFieldAnchor       = "anchor"
	indexFieldSourceType   = "source_type"
	indexFieldMetadata     = "metadata"
)

const (
	boostForContent      = 1.0
	boostForChildContent = 1.0
	boostForFilename     = 5.0
)

type BleveDB struct {
	indexPath string
	logger    logger.Logger
	mu        sync.RWMutex
	index     bleve.Index
}

func New(logger logger.Logger, cfg *config.Config) (*BleveDB, error) {
	indexPath := filepath.Join(cfg.GetStoragePath(), cfg.GetIndexPath())
	index, err := openOrCreate(indexPath)
	if err != nil {
		logger.Error("could not open index", "path", indexPath, "err", err.Error())
		return nil, err
	}
	return &BleveDB{indexPath: indexPath, logger: logger, index: index}, nil
}

func openOrCreate(indexPath string) (bleve.Index, error) {
	index, err := bleve.New(indexPath, createIndexMapping())
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, err
		}
	}
	return index, nil
}

func (b *BleveDB) IndexDocuments(documents []Document) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	batch := b.index.NewBatch()

	for i, doc := range documents {

		if err := batch.Index(doc.ID, doc); err != nil {
			b.logger.Error("could not index document", "id", doc.ID, "err", err.Error())
			return err
		}

		// Execute batch when it reaches the batch size
		if (i+1)%IndexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not index document", "err", err.Error())
			return err
		}
	}

	return nil
}

func createIndexMapping() mapping.IndexMapping {

	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	// Filename - analyzed so that wildcard terms match inside names
	filenameFieldMapping := bleve.NewTextFieldMapping()
	filenameFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldFilename, filenameFieldMapping)

	parentIDFieldMapping := bleve.NewTextFieldMapping()
	parentIDFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldParentID, parentIDFieldMapping)

	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldContent, contentFieldMapping)

	childContentFieldMapping := bleve.NewTextFieldMapping()
	childContentFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(indexFieldChildContent, childContentFieldMapping)

	chunkIDFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt(indexFieldChunkID, chunkIDFieldMapping)

	// Image payloads are returned with hits but never searched
	imageFieldMapping := bleve.NewTextFieldMapping()
	imageFieldMapping.Index = false
	imageFieldMapping.IncludeInAll = false
	imageFieldMapping.IncludeTermVectors = false
	imageFieldMapping.DocValues = false
	docMapping.AddFieldMappingsAt(indexFieldImageData, imageFieldMapping)

	anchorFieldMapping := bleve.NewTextFieldMapping()
	anchorFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldAnchor, anchorFieldMapping)

	sourceTypeFieldMapping := bleve.NewTextFieldMapping()
	sourceTypeFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt(indexFieldSourceType, sourceTypeFieldMapping)

	metadataMapping := bleve.NewDocumentMapping()
	metadataMapping.DefaultAnalyzer = keyword.Name
	docMapping.AddSubDocumentMapping(indexFieldMetadata, metadataMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// SearchKeywords runs the lexical half of a hybrid search over content,
// child content and filename.
func (b *BleveDB) SearchKeywords(queryString string, limit int) (*Response, error) {
	start := time.Now()

	searchQuery := buildKeywordQuery(queryString)
	if searchQuery == nil {
		return &Response{Results: []Result{}}, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(searchQuery, limit, 0, false)
	searchRequest.Fields = []string{"*"}

	b.mu.RLock()
	searchResult, err := b.index.Search(searchRequest)
	b.mu.RUnlock()
	if err != nil {
		b.logger.Error("search failed", "err", err.Error())
		return nil, fmt.Errorf("search failed: %w", err)
	}

	response := &Response{
		Results:    hitsToResults(searchResult.Hits),
		Total:      searchResult.Total,
		MaxScore:   searchResult.MaxScore,
		SearchTime: time.Since(start).String(),
	}
	b.logger.Debug("keyword search finished", "query", queryString, "total", response.Total, "took", response.SearchTime)

	return response, nil
}

// GetDocuments loads stored fields for the given IDs. Unknown IDs are skipped.
func (b *BleveDB) GetDocuments(documentIDs []string) ([]Result, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	searchRequest := bleve.NewSearchRequestOptions(bleve.NewDocIDQuery(documentIDs), len(documentIDs), 0, false)
	searchRequest.Fields = []string{"*"}

	b.mu.RLock()
	searchResult, err := b.index.Search(searchRequest)
	b.mu.RUnlock()
	if err != nil {
		b.logger.Error("document lookup failed", "err", err.Error())
		return nil, fmt.Errorf("document lookup failed: %w", err)
	}

	return hitsToResults(searchResult.Hits), nil
}

func buildKeywordQuery(queryString string) query.Query {

	queryString = strings.TrimSpace(queryString)
	if queryString == "" {
		return nil
	}

	fieldBoosts := []struct {
		field string
		boost float64
	}{
		{indexFieldContent, boostForContent},
		{indexFieldChildContent, boostForChildContent},
		{indexFieldFilename, boostForFilename},
	}

	disjunctQuery := bleve.NewDisjunctionQuery()

	// A bare single term also matches inside longer terms, e.g. "cat" finds "cat.jpg"
	if isSingleTerm(queryString) {
		term := strings.ToLower(queryString)
		for _, fb := range fieldBoosts {
			wildcardQuery := bleve.NewWildcardQuery("*" + term + "*")
			wildcardQuery.SetField(fb.field)
			wildcardQuery.SetBoost(fb.boost)
			disjunctQuery.AddQuery(wildcardQuery)
		}
	}

	for _, fb := range fieldBoosts {
		matchQuery := bleve.NewMatchQuery(queryString)
		matchQuery.SetField(fb.field)
		matchQuery.SetBoost(fb.boost)
		matchQuery.SetOperator(query.MatchQueryOperatorOr)
		disjunctQuery.AddQuery(matchQuery)
	}

	return disjunctQuery
}

func isSingleTerm(queryString string) bool {
	return !strings.ContainsAny(queryString, " \t\n*?")
}

func hitsToResults(hits search.DocumentMatchCollection) []Result {
	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		result := Result{
			Document: Document{ID: hit.ID},
			Score:    hit.Score,
		}

		for name, value := range hit.Fields {
			switch name {
			case indexFieldFilename:
				result.Filename = fieldString(value)
			case indexFieldParentID:
				result.ParentID = fieldString(value)
			case indexFieldContent:
				result.Content = fieldString(value)
			case indexFieldChildContent:
				result.ChildContent = fieldString(value)
			case indexFieldChunkID:
				if chunkID, ok := value.(float64); ok {
					result.ChunkID = int(chunkID)
				}
			case indexFieldImageData:
				result.ImageData = fieldString(value)
			case indexFieldAnchor:
				result.Anchor = fieldString(value)
			case indexFieldSourceType:
				result.SourceType = fieldString(value)
			default:
				key, ok := strings.CutPrefix(name, indexFieldMetadata+".")
				if !ok {
					continue
				}
				if result.Metadata == nil {
					result.Metadata = make(map[string]string)
				}
				result.Metadata[key] = fieldString(value)
			}
		}

		results = append(results, result)
	}

	return results
}

func fieldString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			return fieldString(v[0])
		}
	case float64:
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func (b *BleveDB) DeleteDocuments(documentIDs []string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	batch := b.index.NewBatch()

	for i, docID := range documentIDs {
		batch.Delete(docID)

		// Execute batch when it reaches the batch size
		if (i+1)%IndexingBatchSize == 0 {
			if err := b.index.Batch(batch); err != nil {
				return err
			}
			batch = b.index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := b.index.Batch(batch); err != nil {
			b.logger.Error("could not delete documents", "err", err.Error())
			return err
		}
	}

	return nil
}

// Reset drops the on-disk index and replaces it with an empty one.
func (b *BleveDB) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Close(); err != nil {
		b.logger.Error("could not close search index before reset", "err", err.Error())
		return err
	}
	if err := os.RemoveAll(b.indexPath); err != nil {
		b.logger.Error("could not remove search index", "path", b.indexPath, "err", err.Error())
		return fmt.Errorf("could not remove search index: %w", err)
	}

	index, err := bleve.New(b.indexPath, createIndexMapping())
	if err != nil {
		b.logger.Error("could not recreate search index", "path", b.indexPath, "err", err.Error())
		return fmt.Errorf("could not recreate search index: %w", err)
	}
	b.index = index

	return nil
}

func (b *BleveDB) GetDocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.index.DocCount()
}

func (b *BleveDB) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.index != nil {
		if err := b.index.Close(); err != nil {
			b.logger.Error("could not close search index", "err", err.Error())
			return err
		}
	}
	return nil
}
