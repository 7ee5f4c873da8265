package model

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/meghashyamc/ragconsole/config"
	"github.com/meghashyamc/ragconsole/logger"
)

const (
	messageAlreadyLoaded = "model is already loaded, skipping reload"
	messageLoaded        = "model loaded successfully: %s"
	messageLoadFailed    = "failed to load model, check the path: %s"
	messageNothingLoaded = "no model is loaded, nothing to unload"
	messageUnloaded      = "model unloaded, runtime resources released"
)

// Status is the model state reported to clients.
type Status struct {
	IsLoaded  bool   `json:"isLoaded"`
	Handshake string `json:"handshake"`
}

// Service owns the process-wide embedding model lifecycle.
type Service struct {
	logger   logger.Logger
	runtime  Runtime
	location string

	// serialises Load and Unload; Status and Embed never take it
	lifecycle sync.Mutex
	loaded    atomic.Bool
}

func New(logger logger.Logger, runtime Runtime, location string) *Service {
	return &Service{
		logger:   logger,
		runtime:  runtime,
		location: location,
	}
}

func NewFromConfig(logger logger.Logger, cfg *config.Config) (*Service, error) {
	runtime, location, err := NewRuntime(cfg)
	if err != nil {
		logger.Error("could not create model runtime", "err", err.Error())
		return nil, err
	}
	return New(logger, runtime, location), nil
}

// Load brings the model up. It never fails outright: the outcome is
// described by the returned message.
func (s *Service) Load(ctx context.Context) string {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.loaded.Load() {
		return messageAlreadyLoaded
	}

	if err := s.runtime.Load(ctx, s.location); err != nil {
		s.logger.Error("could not load model", "location", s.location, "err", err.Error())
		return fmt.Sprintf(messageLoadFailed, s.location)
	}

	s.loaded.Store(true)
	s.logger.Info("model loaded", "location", s.location)
	return fmt.Sprintf(messageLoaded, s.location)
}

func (s *Service) Unload() string {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if !s.loaded.Load() {
		return messageNothingLoaded
	}

	s.loaded.Store(false)
	s.runtime.Free()
	s.logger.Info("model unloaded", "location", s.location)
	return messageUnloaded
}

func (s *Service) Status() Status {
	return Status{IsLoaded: s.loaded.Load(), Handshake: s.runtime.Handshake()}
}

func (s *Service) IsLoaded() bool {
	return s.loaded.Load()
}

// Embed returns ErrModelNotLoaded when no model is loaded. A call racing
// with Unload gets the same error from the freed runtime.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if !s.loaded.Load() {
		return nil, ErrModelNotLoaded
	}

	return s.runtime.Embed(ctx, text)
}

// Close releases the runtime if a model is still loaded.
func (s *Service) Close() {
	s.Unload()
}
