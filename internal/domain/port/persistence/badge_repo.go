package persistence

import (
	"context"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
)

// BadgeRepository is the upsert target of the threshold aggregator
type BadgeRepository interface {
	// ListUserIDs returns the ids of users already holding the badge type
	ListUserIDs(ctx context.Context, badgeType entity.BadgeType) ([]uint64, error)

	// UpsertIgnore bulk-inserts badges with a conflict-ignore policy on
	// (userId, type); existing grants are left untouched
	UpsertIgnore(ctx context.Context, badges []entity.Badge) error
}
