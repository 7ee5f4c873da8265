package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"
)

const probeText = "handshake"

// OpenAIRuntime embeds through any OpenAI-compatible embeddings endpoint.
type OpenAIRuntime struct {
	baseURL string
	apiKey  string

	mu     sync.RWMutex
	client *openai.Client
	model  string
}

func NewOpenAIRuntime(baseURL string, apiKey string) *OpenAIRuntime {
	return &OpenAIRuntime{baseURL: baseURL, apiKey: apiKey}
}

func (r *OpenAIRuntime) Handshake() string {
	endpoint := r.baseURL
	if endpoint == "" {
		endpoint = "api.openai.com"
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.client == nil {
		return fmt.Sprintf("embedding endpoint %s configured", endpoint)
	}
	return fmt.Sprintf("embedding endpoint %s connected, model %s", endpoint, r.model)
}

// Load connects to the endpoint and requests one embedding to prove the
// model is served.
func (r *OpenAIRuntime) Load(ctx context.Context, location string) error {
	if location == "" {
		return errors.New("model name is not configured")
	}

	clientConfig := openai.DefaultConfig(r.apiKey)
	if r.baseURL != "" {
		clientConfig.BaseURL = r.baseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	if _, err := embed(ctx, client, location, probeText); err != nil {
		return fmt.Errorf("embedding endpoint probe failed: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = client
	r.model = location

	return nil
}

func (r *OpenAIRuntime) Free() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = nil
	r.model = ""
}

func (r *OpenAIRuntime) Embed(ctx context.Context, text string) ([]float32, error) {
	r.mu.RLock()
	client, model := r.client, r.model
	r.mu.RUnlock()
	if client == nil {
		return nil, ErrModelNotLoaded
	}

	return embed(ctx, client, model, text)
}

func embed(ctx context.Context, client *openai.Client, model string, text string) ([]float32, error) {
	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response has no data")
	}

	return resp.Data[0].Embedding, nil
}
