// Package registry tracks the currently served model and its reference
// distribution, and performs the atomic swap when a retrained candidate is
// promoted.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/churnwatch/churnwatch/internal/logger"
	"github.com/churnwatch/churnwatch/pkg/models"
)

var (
	ErrNoActiveModel   = errors.New("no active model")
	ErrPromotionFailed = errors.New("model promotion failed")
)

// Repository persists the active model and its reference together. Save must
// be atomic: either both land or neither does.
type Repository interface {
	Load(ctx context.Context) (*models.ModelHandle, error)
	Save(ctx context.Context, handle *models.ModelHandle) error
}

type Registry struct {
	mu     sync.RWMutex
	active *models.ModelHandle
	repo   Repository
}

func New(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// Load restores the active model from the repository, typically at startup.
// A missing model is not an error; the registry just stays empty.
func (r *Registry) Load(ctx context.Context) error {
	handle, err := r.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load active model: %w", err)
	}

	r.mu.Lock()
	r.active = handle
	r.mu.Unlock()

	if handle != nil {
		logger.WithModel(handle.Version).Info("Active model restored")
	}
	return nil
}

// Active returns the current model handle, or nil when nothing has been
// promoted yet. The handle is immutable; callers may hold it across the
// next promotion and keep a consistent model/reference pair.
func (r *Registry) Active() *models.ModelHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Reference returns the reference distribution of the active model.
func (r *Registry) Reference() *models.ReferenceDistribution {
	if h := r.Active(); h != nil {
		return h.Reference
	}
	return nil
}

// Promote persists the new handle and then swaps the in-memory pointer.
// If persistence fails the previous model stays active and serving is
// unaffected.
func (r *Registry) Promote(ctx context.Context, handle *models.ModelHandle) error {
	if handle == nil || handle.Version == "" {
		return fmt.Errorf("%w: empty handle", ErrPromotionFailed)
	}
	if handle.Reference == nil {
		return fmt.Errorf("%w: model %s has no reference distribution", ErrPromotionFailed, handle.Version)
	}

	if err := r.repo.Save(ctx, handle); err != nil {
		return fmt.Errorf("%w: %v", ErrPromotionFailed, err)
	}

	r.mu.Lock()
	previous := r.active
	r.active = handle
	r.mu.Unlock()

	entry := logger.WithModel(handle.Version)
	if previous != nil {
		entry = entry.WithField("previous_version", previous.Version)
	}
	entry.Info("Model promoted")
	return nil
}
