package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/model"
)

// BadgeRepository implements persistence.BadgeRepository using GORM
type BadgeRepository struct {
	db     *gorm.DB
	logger coreport.Logger
}

// NewBadgeRepository creates a new BadgeRepository instance
func NewBadgeRepository(db *gorm.DB, logger coreport.Logger) *BadgeRepository {
	return &BadgeRepository{db: db, logger: logger}
}

// ListUserIDs returns the ids of users already holding the badge type
func (r *BadgeRepository) ListUserIDs(ctx context.Context, badgeType entity.BadgeType) ([]uint64, error) {
	var userIDs []uint64
	err := r.db.WithContext(ctx).Model(&model.Badge{}).
		Where("type = ?", string(badgeType)).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}
	return userIDs, nil
}

// UpsertIgnore bulk-inserts badges, ignoring conflicts on (userId, type).
// Re-running the aggregator over the same tallies is a no-op.
func (r *BadgeRepository) UpsertIgnore(ctx context.Context, badges []entity.Badge) error {
	if len(badges) == 0 {
		return nil
	}

	badgeModels := make([]model.Badge, 0, len(badges))
	for _, badge := range badges {
		badgeModels = append(badgeModels, model.Badge{
			UserID:    badge.UserID,
			Type:      string(badge.Type),
			Level:     badge.Level,
			Enabled:   badge.Enabled,
			CreatedAt: badge.CreatedAt,
		})
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(&badgeModels).Error
	if err != nil {
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}
	return nil
}
