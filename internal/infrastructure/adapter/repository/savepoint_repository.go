package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/model"
)

// SavepointRepository implements persistence.SavepointRepository using GORM
type SavepointRepository struct {
	db           *gorm.DB
	logger       coreport.Logger
	timeProvider coreport.TimeProvider
}

// NewSavepointRepository creates a new SavepointRepository instance
func NewSavepointRepository(db *gorm.DB, logger coreport.Logger, timeProvider coreport.TimeProvider) *SavepointRepository {
	return &SavepointRepository{
		db:           db,
		logger:       logger,
		timeProvider: timeProvider,
	}
}

// GetOrCreate returns the savepoint for the chain, creating it at
// initialBlock on first use. The conflict-ignore insert makes concurrent
// first runs converge on one row.
func (r *SavepointRepository) GetOrCreate(ctx context.Context, chain entity.Chain, initialBlock uint64) (*entity.Savepoint, error) {
	savepointModel := model.Savepoint{
		Chain:              string(chain),
		LastProcessedBlock: initialBlock,
		UpdatedAt:          r.timeProvider.Now(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&savepointModel).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}

	var stored model.Savepoint
	if err := r.db.WithContext(ctx).Where("chain = ?", string(chain)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}

	return &entity.Savepoint{
		Chain:              entity.Chain(stored.Chain),
		LastProcessedBlock: stored.LastProcessedBlock,
		UpdatedAt:          stored.UpdatedAt,
	}, nil
}

// Advance moves the cursor forward. The conditional WHERE refuses regression
// so a stale or concurrent synchronizer cannot rewind the cursor.
func (r *SavepointRepository) Advance(ctx context.Context, chain entity.Chain, block uint64) error {
	result := r.db.WithContext(ctx).Model(&model.Savepoint{}).
		Where("chain = ? AND last_processed_block <= ?", string(chain), block).
		Updates(map[string]any{
			"last_processed_block": block,
			"updated_at":           r.timeProvider.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		r.logger.Error("Savepoint regression refused", map[string]any{
			"chain":           string(chain),
			"attempted_block": block,
		})
		return errs.ErrSavepointRegression
	}
	return nil
}
