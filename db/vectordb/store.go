package vectordb

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/meghashyamc/ragconsole/db/kvdb"
	"github.com/meghashyamc/ragconsole/logger"
)

// Match is a stored vector ranked against a query vector.
type Match struct {
	ID         string
	Similarity float64
}

// Store keeps chunk embeddings in the key-value database and serves
// similarity search from an in-memory copy.
type Store struct {
	logger  logger.Logger
	kv      kvdb.DB
	mu      sync.RWMutex
	vectors map[string][]float32
}

func New(logger logger.Logger, kv kvdb.DB) (*Store, error) {
	store := &Store{
		logger:  logger,
		kv:      kv,
		vectors: make(map[string][]float32),
	}

	err := kv.ForEach(kvdb.VectorsBucket, func(key string, value string) error {
		vector, err := decode([]byte(value))
		if err != nil {
			logger.Warn("skipping undecodable vector", "id", key, "err", err.Error())
			return nil
		}
		store.vectors[key] = vector
		return nil
	})
	if err != nil {
		logger.Error("failed to load vectors", "err", err.Error())
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	logger.Info("loaded vectors", "count", len(store.vectors))

	return store, nil
}

func (s *Store) Upsert(vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	entries := make(map[string]string, len(vectors))
	for id, vector := range vectors {
		entries[id] = string(encode(vector))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.SetMany(kvdb.VectorsBucket, entries); err != nil {
		return fmt.Errorf("failed to persist vectors: %w", err)
	}
	for id, vector := range vectors {
		s.vectors[id] = vector
	}

	return nil
}

func (s *Store) Delete(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.DeleteMany(kvdb.VectorsBucket, ids); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	for _, id := range ids {
		delete(s.vectors, id)
	}

	return nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Clear(kvdb.VectorsBucket); err != nil {
		return fmt.Errorf("failed to clear vectors: %w", err)
	}
	s.vectors = make(map[string][]float32)

	return nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.vectors)
}

// Search returns up to k stored vectors ordered by descending cosine
// similarity. Vectors whose dimension differs from the query are skipped.
func (s *Store) Search(query []float32, k int) []Match {
	if len(query) == 0 || k <= 0 {
		return nil
	}

	s.mu.RLock()
	matches := make([]Match, 0, len(s.vectors))
	for id, vector := range s.vectors {
		if len(vector) != len(query) {
			continue
		}
		matches = append(matches, Match{ID: id, Similarity: cosine(query, vector)})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity == matches[j].Similarity {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Similarity > matches[j].Similarity
	})

	if k < len(matches) {
		matches = matches[:k]
	}

	return matches
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func encode(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decode(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector payload length %d is not a multiple of 4", len(buf))
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vector, nil
}
