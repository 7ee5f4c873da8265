package index

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/ragconsole/db/searchdb"
	"github.com/meghashyamc/ragconsole/logger"
	"github.com/meghashyamc/ragconsole/services/model"
	"github.com/meghashyamc/ragconsole/services/parse"
)

// Indexer represents the search database operations needed for indexing
type Indexer interface {
	IndexDocuments(documents []searchdb.Document) error
	DeleteDocuments(documentIDs []string) error
	Reset() error
}

type VectorStore interface {
	Upsert(vectors map[string][]float32) error
	Delete(ids []string) error
	Clear() error
}

type Embedder interface {
	IsLoaded() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Parser interface {
	Parse(filename string, data []byte) ([]parse.Segment, error)
}

type Options struct {
	Workers     int
	MaxFileSize int64
}

type Service struct {
	logger        logger.Logger
	parser        Parser
	indexer       Indexer
	vectors       VectorStore
	metadataStore MetadataStore
	embedder      Embedder
	options       Options

	// serialises writes to the index, vectors and registry
	mu sync.Mutex
}

// UploadResult aggregates the outcome of a multi-file upload.
type UploadResult struct {
	Success      bool   `json:"success"`
	SuccessCount int    `json:"successCount"`
	FailCount    int    `json:"failCount"`
	Error        string `json:"error,omitempty"`
}

// AddFailure records a file that could not be indexed.
func (r *UploadResult) AddFailure(filename string, err error) {
	r.FailCount++
	r.Error += fmt.Sprintf("%s: %s; ", filename, err.Error())
	r.Success = false
}

func New(logger logger.Logger, parser Parser, indexer Indexer, vectors VectorStore, metadataStore MetadataStore, embedder Embedder, options Options) *Service {
	if options.Workers <= 0 {
		options.Workers = 1
	}
	return &Service{
		logger:        logger,
		parser:        parser,
		indexer:       indexer,
		vectors:       vectors,
		metadataStore: metadataStore,
		embedder:      embedder,
		options:       options,
	}
}

// Upload parses and indexes files in parallel. A failing file never stops
// the others; the result counts both outcomes.
func (s *Service) Upload(ctx context.Context, files []File) UploadResult {
	if len(files) == 0 {
		return UploadResult{Success: true}
	}

	numGoroutines := min(s.options.Workers, len(files))
	filesPerGoroutine := len(files) / numGoroutines

	errs := make([]error, len(files))
	var wg sync.WaitGroup

	s.logger.Info("starting parallel indexing", "files", len(files), "goroutines", numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		start := i * filesPerGoroutine
		end := start + filesPerGoroutine

		// For the last goroutine, include any remaining files
		if i == numGoroutines-1 {
			end = len(files)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for j := start; j < end; j++ {
				if err := ctx.Err(); err != nil {
					errs[j] = err
					continue
				}
				_, errs[j] = s.indexFile(ctx, files[j])
			}
		}(start, end)
	}
	wg.Wait()

	result := UploadResult{Success: true}
	for i, err := range errs {
		if err != nil {
			s.logger.Warn("could not index file", "filename", files[i].Name, "err", err.Error())
			result.AddFailure(files[i].Name, err)
			continue
		}
		result.SuccessCount++
	}

	s.logger.Info("finished indexing upload", "succeeded", result.SuccessCount, "failed", result.FailCount)
	return result
}

func (s *Service) indexFile(ctx context.Context, file File) (*IndexedDocument, error) {
	content, err := readUpload(file, s.options.MaxFileSize)
	if err != nil {
		return nil, err
	}

	segments, err := s.parser.Parse(file.Name, content)
	if err != nil {
		return nil, err
	}

	return s.IndexSegments(ctx, file.Name, segments)
}

// IndexSegments chunks the segments of one file and writes them to the
// keyword index, and to the vector store when a model is loaded. Chunks
// from an earlier upload of the same filename are replaced.
func (s *Service) IndexSegments(ctx context.Context, filename string, segments []parse.Segment) (*IndexedDocument, error) {
	documents, parents := buildDocuments(filename, segments)
	vectors := s.embedChildren(ctx, documents)

	record := &IndexedDocument{
		ID:        uuid.New().String(),
		Filename:  filename,
		Segments:  len(segments),
		Parents:   parents,
		Chunks:    len(documents),
		Vectors:   len(vectors),
		ChunkIDs:  make([]string, 0, len(documents)),
		IndexedAt: time.Now().UTC(),
	}
	if len(segments) > 0 {
		record.SourceType = segments[0].Metadata[parse.MetaSourceType]
	}
	for _, document := range documents {
		record.ChunkIDs = append(record.ChunkIDs, document.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.getDocumentRecord(filename)
	switch {
	case errors.Is(err, ErrDocumentNotFound):
	case err != nil:
		return nil, err
	default:
		if err := s.removeChunks(staleIDs(previous.ChunkIDs, record.ChunkIDs), previous.ChunkIDs); err != nil {
			return nil, err
		}
	}

	if err := s.indexer.IndexDocuments(documents); err != nil {
		s.logger.Error("failed to index chunks", "filename", filename, "err", err.Error())
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}

	if err := s.vectors.Upsert(vectors); err != nil {
		s.logger.Error("failed to store vectors", "filename", filename, "err", err.Error())
		return nil, err
	}

	if err := s.setDocumentRecord(record); err != nil {
		return nil, err
	}

	s.logger.Info("indexed document", "filename", filename, "segments", record.Segments, "chunks", record.Chunks, "vectors", record.Vectors)
	return record, nil
}

// embedChildren returns nothing when no model is loaded. A chunk whose
// embedding fails is left keyword-only.
func (s *Service) embedChildren(ctx context.Context, documents []searchdb.Document) map[string][]float32 {
	vectors := make(map[string][]float32)
	if !s.embedder.IsLoaded() {
		return vectors
	}

	for _, document := range documents {
		if strings.TrimSpace(document.ChildContent) == "" {
			continue
		}

		vector, err := s.embedder.Embed(ctx, document.ChildContent)
		if err != nil {
			if errors.Is(err, model.ErrModelNotLoaded) {
				s.logger.Warn("model unloaded while embedding, remaining chunks are keyword-only", "id", document.ID)
				break
			}
			s.logger.Warn("could not embed chunk", "id", document.ID, "err", err.Error())
			continue
		}
		vectors[document.ID] = vector
	}

	return vectors
}

// removeChunks drops keywordIDs from the search index and vectorIDs from the
// vector store. Callers hold s.mu.
func (s *Service) removeChunks(keywordIDs []string, vectorIDs []string) error {
	if len(keywordIDs) > 0 {
		if err := s.indexer.DeleteDocuments(keywordIDs); err != nil {
			s.logger.Error("failed to delete chunks from search index", "err", err.Error())
			return fmt.Errorf("failed to delete chunks from search index: %w", err)
		}
	}

	if len(vectorIDs) > 0 {
		if err := s.vectors.Delete(vectorIDs); err != nil {
			s.logger.Error("failed to delete vectors", "err", err.Error())
			return err
		}
	}

	return nil
}

// staleIDs returns the IDs in previous that current no longer contains.
func staleIDs(previous []string, current []string) []string {
	keep := make(map[string]struct{}, len(current))
	for _, id := range current {
		keep[id] = struct{}{}
	}

	var stale []string
	for _, id := range previous {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}
