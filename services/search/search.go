package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/meghashyamc/ragconsole/db/searchdb"
	"github.com/meghashyamc/ragconsole/db/vectordb"
	"github.com/meghashyamc/ragconsole/logger"
	"github.com/meghashyamc/ragconsole/services/model"
)

// Keyword scores are doubled so exact term hits outrank loose semantic ones.
const keywordWeight = 2.0

type KeywordSearcher interface {
	SearchKeywords(queryString string, limit int) (*searchdb.Response, error)
	GetDocuments(documentIDs []string) ([]searchdb.Result, error)
}

type VectorSearcher interface {
	Search(query []float32, k int) []vectordb.Match
}

type Embedder interface {
	IsLoaded() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is one search hit as returned to clients. Content is the parent
// chunk the matching child belongs to.
type Result struct {
	Content      string            `json:"content"`
	Filename     string            `json:"filename"`
	Score        float64           `json:"score"`
	Anchor       string            `json:"anchor,omitempty"`
	ImageData    string            `json:"image_data,omitempty"`
	ParentID     string            `json:"parent_id"`
	ChildContent string            `json:"child_content"`
	ChunkID      int               `json:"chunk_id"`
	SourceType   string            `json:"source_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type Options struct {
	Limit            int
	VectorCandidates int
}

type Service struct {
	logger   logger.Logger
	keywords KeywordSearcher
	vectors  VectorSearcher
	embedder Embedder
	options  Options
}

func New(logger logger.Logger, keywords KeywordSearcher, vectors VectorSearcher, embedder Embedder, options Options) *Service {
	if options.Limit <= 0 {
		options.Limit = 20
	}
	if options.VectorCandidates <= 0 {
		options.VectorCandidates = options.Limit
	}
	return &Service{
		logger:   logger,
		keywords: keywords,
		vectors:  vectors,
		embedder: embedder,
		options:  options,
	}
}

// Search combines keyword and vector scores per chunk, keeps the best
// Limit chunks and returns at most one hit per parent chunk.
func (s *Service) Search(ctx context.Context, queryString string) ([]Result, error) {
	queryString = strings.TrimSpace(queryString)
	results := make([]Result, 0)
	if queryString == "" {
		return results, nil
	}

	scores := make(map[string]float64)
	documents := make(map[string]searchdb.Document)

	keywordResponse, err := s.keywords.SearchKeywords(queryString, s.options.Limit)
	if err != nil {
		return nil, err
	}
	for _, hit := range keywordResponse.Results {
		scores[hit.ID] += keywordWeight * hit.Score
		documents[hit.ID] = hit.Document
	}

	if err := s.addVectorScores(ctx, queryString, scores, documents); err != nil {
		return nil, err
	}

	ranked := make([]string, 0, len(scores))
	for id := range scores {
		ranked = append(ranked, id)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] == scores[ranked[j]] {
			return ranked[i] < ranked[j]
		}
		return scores[ranked[i]] > scores[ranked[j]]
	})
	if len(ranked) > s.options.Limit {
		ranked = ranked[:s.options.Limit]
	}

	seenParents := make(map[string]struct{})
	for _, id := range ranked {
		document := documents[id]
		parentKey := document.ParentID
		if parentKey == "" {
			parentKey = id
		}
		if _, seen := seenParents[parentKey]; seen {
			continue
		}
		seenParents[parentKey] = struct{}{}

		results = append(results, Result{
			Content:      document.Content,
			Filename:     document.Filename,
			Score:        scores[id],
			Anchor:       document.Anchor,
			ImageData:    document.ImageData,
			ParentID:     document.ParentID,
			ChildContent: document.ChildContent,
			ChunkID:      document.ChunkID,
			SourceType:   document.SourceType,
			Metadata:     document.Metadata,
		})
	}

	s.logger.Debug("hybrid search finished", "query", queryString, "keyword_hits", len(keywordResponse.Results), "results", len(results))
	return results, nil
}

// addVectorScores adds (1+cosine)/2 for the nearest chunks. With no model
// loaded it does nothing, leaving the search purely lexical.
func (s *Service) addVectorScores(ctx context.Context, queryString string, scores map[string]float64, documents map[string]searchdb.Document) error {
	if !s.embedder.IsLoaded() {
		return nil
	}

	queryVector, err := s.embedder.Embed(ctx, queryString)
	if err != nil {
		if errors.Is(err, model.ErrModelNotLoaded) {
			return nil
		}
		s.logger.Warn("could not embed query, falling back to keyword search", "err", err.Error())
		return nil
	}

	matches := s.vectors.Search(queryVector, s.options.VectorCandidates)

	var missing []string
	for _, match := range matches {
		if _, ok := documents[match.ID]; !ok {
			missing = append(missing, match.ID)
		}
	}
	if len(missing) > 0 {
		fetched, err := s.keywords.GetDocuments(missing)
		if err != nil {
			return err
		}
		for _, result := range fetched {
			documents[result.ID] = result.Document
		}
	}

	for _, match := range matches {
		// vectors whose chunk is no longer in the keyword index are ignored
		if _, ok := documents[match.ID]; !ok {
			continue
		}
		scores[match.ID] += (1 + match.Similarity) / 2
	}

	return nil
}
