package model

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"sync"
)

const (
	localHandshake   = "local embedding runtime ready"
	defaultDimension = 128
)

// LocalRuntime produces hashed bag-of-words embeddings. Loading only checks
// that the configured model file exists, so the runtime has the same
// lifecycle as a real on-disk model without needing one.
type LocalRuntime struct {
	dimension int

	mu        sync.RWMutex
	modelPath string
	loaded    bool
}

func NewLocalRuntime(dimension int) *LocalRuntime {
	if dimension <= 0 {
		dimension = defaultDimension
	}
	return &LocalRuntime{dimension: dimension}
}

func (r *LocalRuntime) Handshake() string {
	return localHandshake
}

func (r *LocalRuntime) Load(ctx context.Context, location string) error {
	if location == "" {
		return errors.New("model path is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(location)
	if err != nil {
		return fmt.Errorf("could not stat model file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("model path is a directory: %s", location)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelPath = location
	r.loaded = true

	return nil
}

func (r *LocalRuntime) Free() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelPath = ""
	r.loaded = false
}

// Embed hashes each token into one of dimension buckets with a sign taken
// from the hash, then L2-normalises the result.
func (r *LocalRuntime) Embed(ctx context.Context, text string) ([]float32, error) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		return nil, ErrModelNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vector := make([]float64, r.dimension)
	tokens := tokenize(text)
	if len(tokens) == 0 && text != "" {
		tokens = []string{text}
	}

	for _, token := range tokens {
		hasher := fnv.New64a()
		hasher.Write([]byte(token))
		sum := hasher.Sum64()

		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		vector[sum%uint64(r.dimension)] += sign
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	embedding := make([]float32, r.dimension)
	for i, v := range vector {
		if norm > 0 {
			embedding[i] = float32(v / norm)
		}
	}

	return embedding, nil
}
