package registry

import (
	"context"
	"database/sql"
	"sync"

	"github.com/churnwatch/churnwatch/pkg/database"
	"github.com/churnwatch/churnwatch/pkg/database/queries"
	"github.com/churnwatch/churnwatch/pkg/models"
)

// PostgresRepository stores the active model in the active_model and
// reference_distributions tables.
type PostgresRepository struct {
	db     *database.DB
	models *queries.ModelRepository
}

func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		models: queries.NewModelRepository(db.DB),
	}
}

func (r *PostgresRepository) Load(ctx context.Context) (*models.ModelHandle, error) {
	return r.models.GetActive(ctx)
}

func (r *PostgresRepository) Save(ctx context.Context, handle *models.ModelHandle) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return r.models.Promote(ctx, tx, handle)
	})
}

// MemoryRepository keeps the active model in process memory. Used by tests
// and the simulator.
type MemoryRepository struct {
	mu     sync.Mutex
	active *models.ModelHandle

	// SaveErr, when set, makes every Save fail with it.
	SaveErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Load(ctx context.Context) (*models.ModelHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, nil
}

func (r *MemoryRepository) Save(ctx context.Context, handle *models.ModelHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.active = handle
	return nil
}
