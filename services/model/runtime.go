package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/meghashyamc/ragconsole/config"
)

const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
)

var ErrModelNotLoaded = errors.New("model not loaded")

// Runtime is an embedding engine that can be brought up and torn down while
// the server keeps running. Implementations are safe for concurrent use and
// return ErrModelNotLoaded from Embed once freed.
type Runtime interface {
	Handshake() string
	Load(ctx context.Context, location string) error
	Free()
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewRuntime builds the runtime named by the configured provider and returns
// it together with the location Load should be called with.
func NewRuntime(cfg *config.Config) (Runtime, string, error) {
	switch provider := cfg.GetModelProvider(); provider {
	case ProviderLocal:
		return NewLocalRuntime(cfg.GetModelDimension()), cfg.GetModelPath(), nil
	case ProviderOpenAI:
		return NewOpenAIRuntime(cfg.GetModelBaseURL(), cfg.GetModelAPIKey()), cfg.GetModelName(), nil
	default:
		return nil, "", fmt.Errorf("unknown model provider: %s", provider)
	}
}
