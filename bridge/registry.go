package bridge

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Registry owns live instances and resolves handles to them.
type Registry struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]*Instance
	logger    zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		instances: make(map[uuid.UUID]*Instance),
		logger:    logger.With().Str("component", "registry").Logger(),
	}
}

// Create builds an instance from cfg and registers it.
func (r *Registry) Create(cfg InstanceConfig) (*Instance, error) {
	in, err := NewInstance(cfg)
	if err != nil {
		r.logger.Error().Err(err).Msg("create instance")
		return nil, err
	}

	r.mu.Lock()
	r.instances[in.handle] = in
	r.mu.Unlock()

	r.logger.Info().Str("handle", in.handle.String()).Float64("sampleRate", cfg.SampleRate).Msg("instance created")
	return in, nil
}

// Get returns the instance for h.
func (r *Registry) Get(h uuid.UUID) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	in, ok := r.instances[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	return in, nil
}

// Lookup parses a textual handle and returns its instance.
func (r *Registry) Lookup(handle string) (*Instance, error) {
	h, err := uuid.Parse(handle)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return r.Get(h)
}

// Release removes the instance for h.
func (r *Registry) Release(h uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.instances[h]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	delete(r.instances, h)

	r.logger.Info().Str("handle", h.String()).Msg("instance released")
	return nil
}

// Handles returns the live handles in lexical order.
func (r *Registry) Handles() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]uuid.UUID, 0, len(r.instances))
	for h := range r.instances {
		out = append(out, h)
	}
	slices.SortFunc(out, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	return out
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.instances)
}
