package badge

import (
	"context"
	"fmt"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/persistence"
)

// Aggregator grants non-monetary badges to users whose succeeded donation
// count passes a threshold. Read-mostly and purely additive: it never revokes
// a grant, and the conflict-ignore upsert makes re-runs harmless.
type Aggregator struct {
	txRepo       persistence.TransactionRepository
	badges       persistence.BadgeRepository
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewAggregator creates the badge threshold aggregator
func NewAggregator(
	txRepo persistence.TransactionRepository,
	badges persistence.BadgeRepository,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Aggregator {
	return &Aggregator{
		txRepo:       txRepo,
		badges:       badges,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// CheckThresholdBadge grants the badge to every sender with at least
// threshold succeeded donations who does not already hold it
func (a *Aggregator) CheckThresholdBadge(ctx context.Context, badgeType entity.BadgeType, threshold int64) error {
	tallies, err := a.txRepo.TallySucceededBySender(ctx, entity.PurposeDonation, threshold)
	if err != nil {
		return fmt.Errorf("failed to tally donations: %w", err)
	}
	if len(tallies) == 0 {
		return nil
	}

	holders, err := a.badges.ListUserIDs(ctx, badgeType)
	if err != nil {
		return fmt.Errorf("failed to list badge holders: %w", err)
	}
	held := make(map[uint64]struct{}, len(holders))
	for _, id := range holders {
		held[id] = struct{}{}
	}

	now := a.timeProvider.Now()
	var grants []entity.Badge
	for _, tally := range tallies {
		if _, ok := held[tally.SenderID]; ok {
			continue
		}
		grants = append(grants, entity.Badge{
			UserID:    tally.SenderID,
			Type:      badgeType,
			Level:     1,
			Enabled:   true,
			CreatedAt: now,
		})
	}
	if len(grants) == 0 {
		return nil
	}

	if err := a.badges.UpsertIgnore(ctx, grants); err != nil {
		return fmt.Errorf("failed to grant badges: %w", err)
	}

	a.logger.Info("Threshold badges granted", map[string]any{
		"badge_type": string(badgeType),
		"threshold":  threshold,
		"granted":    len(grants),
	})
	return nil
}
