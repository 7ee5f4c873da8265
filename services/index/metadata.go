package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/meghashyamc/ragconsole/db/kvdb"
)

var ErrDocumentNotFound = errors.New("document not found")

// MetadataStore is the key-value storage used for the document registry.
type MetadataStore interface {
	Set(bucket string, key string, value string) error
	Get(bucket string, key string) (string, error)
	Delete(bucket string, key string) error
	ForEach(bucket string, fn func(key string, value string) error) error
	Clear(bucket string) error
}

// IndexedDocument records what an upload of one file put into the index.
type IndexedDocument struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SourceType string    `json:"source_type"`
	Segments   int       `json:"segments"`
	Parents    int       `json:"parents"`
	Chunks     int       `json:"chunks"`
	Vectors    int       `json:"vectors"`
	ChunkIDs   []string  `json:"chunk_ids"`
	IndexedAt  time.Time `json:"indexed_at"`
}

func (s *Service) setDocumentRecord(record *IndexedDocument) error {
	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Error("failed to marshal document record", "filename", record.Filename, "err", err.Error())
		return fmt.Errorf("failed to marshal document record for %s: %w", record.Filename, err)
	}

	if err := s.metadataStore.Set(kvdb.DocumentsBucket, record.Filename, string(data)); err != nil {
		s.logger.Error("failed to set document record", "filename", record.Filename, "err", err.Error())
		return err
	}

	return nil
}

// getDocumentRecord returns ErrDocumentNotFound for filenames never indexed.
func (s *Service) getDocumentRecord(filename string) (*IndexedDocument, error) {
	value, err := s.metadataStore.Get(kvdb.DocumentsBucket, filename)
	if err != nil {
		if errors.Is(err, kvdb.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	var record IndexedDocument
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		s.logger.Error("failed to unmarshal document record", "filename", filename, "err", err.Error())
		return nil, fmt.Errorf("failed to unmarshal document record for %s: %w", filename, err)
	}

	return &record, nil
}

// List returns every indexed document, most recently indexed first.
func (s *Service) List() ([]IndexedDocument, error) {
	records := make([]IndexedDocument, 0)

	err := s.metadataStore.ForEach(kvdb.DocumentsBucket, func(key string, value string) error {
		var record IndexedDocument
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			s.logger.Warn("skipping unreadable document record", "filename", key, "err", err.Error())
			return nil
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		s.logger.Error("failed to list documents", "err", err.Error())
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].IndexedAt.Equal(records[j].IndexedAt) {
			return records[i].Filename < records[j].Filename
		}
		return records[i].IndexedAt.After(records[j].IndexedAt)
	})

	return records, nil
}

// Delete removes one file's chunks, vectors and registry entry.
func (s *Service) Delete(filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getDocumentRecord(filename)
	if err != nil {
		return err
	}

	if err := s.removeChunks(record.ChunkIDs, record.ChunkIDs); err != nil {
		return err
	}

	if err := s.metadataStore.Delete(kvdb.DocumentsBucket, filename); err != nil {
		s.logger.Error("failed to delete document record", "filename", filename, "err", err.Error())
		return err
	}

	s.logger.Info("deleted document", "filename", filename, "chunks", len(record.ChunkIDs))
	return nil
}

// Clear empties the keyword index, the vector store and the registry.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.indexer.Reset(); err != nil {
		s.logger.Error("failed to reset search index", "err", err.Error())
		return fmt.Errorf("failed to reset search index: %w", err)
	}

	if err := s.vectors.Clear(); err != nil {
		s.logger.Error("failed to clear vectors", "err", err.Error())
		return err
	}

	if err := s.metadataStore.Clear(kvdb.DocumentsBucket); err != nil {
		s.logger.Error("failed to clear document records", "err", err.Error())
		return fmt.Errorf("failed to clear document records: %w", err)
	}

	s.logger.Info("cleared index")
	return nil
}
