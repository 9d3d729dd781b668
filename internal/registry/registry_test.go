package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/pkg/models"
)

func handle(version string, accuracy float64) *models.ModelHandle {
	return &models.ModelHandle{
		Version:  version,
		Metrics:  map[string]float64{"accuracy": accuracy},
		BaseRate: 0.27,
		Reference: &models.ReferenceDistribution{
			ModelVersion: version,
			CapturedAt:   time.Now().UTC(),
			Numeric:      map[string]models.NumericDistribution{},
			Categorical:  map[string]models.CategoricalDistribution{},
		},
		PromotedAt: time.Now().UTC(),
	}
}

func TestRegistry_PromoteSwapsHandle(t *testing.T) {
	repo := registry.NewMemoryRepository()
	reg := registry.New(repo)
	ctx := context.Background()

	require.Nil(t, reg.Active())

	first := handle("v1", 0.81)
	require.NoError(t, reg.Promote(ctx, first))
	assert.Same(t, first, reg.Active())

	second := handle("v2", 0.83)
	require.NoError(t, reg.Promote(ctx, second))

	active := reg.Active()
	assert.Equal(t, "v2", active.Version)
	assert.Equal(t, "v2", active.Reference.ModelVersion)

	// The old handle is untouched, so in-flight readers stay consistent.
	assert.Equal(t, "v1", first.Reference.ModelVersion)
}

func TestRegistry_PromoteFailureKeepsCurrent(t *testing.T) {
	repo := registry.NewMemoryRepository()
	reg := registry.New(repo)
	ctx := context.Background()

	current := handle("v1", 0.81)
	require.NoError(t, reg.Promote(ctx, current))

	repo.SaveErr = errors.New("disk full")
	err := reg.Promote(ctx, handle("v2", 0.83))
	assert.ErrorIs(t, err, registry.ErrPromotionFailed)
	assert.Same(t, current, reg.Active())
}

func TestRegistry_PromoteRejectsHandleWithoutReference(t *testing.T) {
	reg := registry.New(registry.NewMemoryRepository())

	bad := handle("v2", 0.83)
	bad.Reference = nil
	err := reg.Promote(context.Background(), bad)
	assert.ErrorIs(t, err, registry.ErrPromotionFailed)
	assert.Nil(t, reg.Active())
}

func TestRegistry_LoadRestoresPersistedModel(t *testing.T) {
	repo := registry.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, handle("v3", 0.85)))

	reg := registry.New(repo)
	require.NoError(t, reg.Load(ctx))

	active := reg.Active()
	require.NotNil(t, active)
	assert.Equal(t, "v3", active.Version)
	assert.NotNil(t, reg.Reference())
}
