package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/model"
)

// PayoutAccountRepository implements persistence.PayoutAccountRepository using GORM
type PayoutAccountRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
	timeProvider    coreport.TimeProvider
}

// NewPayoutAccountRepository creates a new PayoutAccountRepository instance
func NewPayoutAccountRepository(db *gorm.DB, logger coreport.Logger, timeProvider coreport.TimeProvider) *PayoutAccountRepository {
	return &PayoutAccountRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
		timeProvider:    timeProvider,
	}
}

func payoutAccountToModel(account *entity.PayoutAccount) model.PayoutAccount {
	return model.PayoutAccount{
		ID:                    account.ID,
		UserID:                account.UserID,
		AccountID:             account.AccountID,
		Provider:              string(account.Provider),
		Country:               account.Country,
		Currency:              string(account.Currency),
		Type:                  string(account.Type),
		CapabilitiesTransfers: account.CapabilitiesTransfers,
		Archived:              account.Archived,
		CreatedAt:             account.CreatedAt,
		UpdatedAt:             account.UpdatedAt,
	}
}

func payoutAccountToEntity(m *model.PayoutAccount) *entity.PayoutAccount {
	return &entity.PayoutAccount{
		ID:                    m.ID,
		UserID:                m.UserID,
		AccountID:             m.AccountID,
		Provider:              entity.TransactionProvider(m.Provider),
		Country:               m.Country,
		Currency:              entity.Currency(m.Currency),
		Type:                  entity.PayoutAccountType(m.Type),
		CapabilitiesTransfers: m.CapabilitiesTransfers,
		Archived:              m.Archived,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

// Create inserts a new payout account row
func (r *PayoutAccountRepository) Create(ctx context.Context, account *entity.PayoutAccount) error {
	accountModel := payoutAccountToModel(account)

	result := r.db.WithContext(ctx).Create(&accountModel)
	if result.Error != nil {
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			r.logger.Warn("Payout account already exists", map[string]any{
				"user_id":    account.UserID,
				"account_id": account.AccountID,
			})
			return errs.ErrConstraintViolation
		}
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	account.ID = accountModel.ID
	return nil
}

// GetActiveByUser returns the single non-archived account for the user/provider pair
func (r *PayoutAccountRepository) GetActiveByUser(ctx context.Context, userID uint64, provider entity.TransactionProvider) (*entity.PayoutAccount, error) {
	var accountModel model.PayoutAccount
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND archived = ?", userID, string(provider), false).
		First(&accountModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrPayoutAccountNotFound
		}
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return payoutAccountToEntity(&accountModel), nil
}

// GetByAccountID returns the account with the provider-assigned id
func (r *PayoutAccountRepository) GetByAccountID(ctx context.Context, accountID string) (*entity.PayoutAccount, error) {
	var accountModel model.PayoutAccount
	result := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&accountModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrPayoutAccountNotFound
		}
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return payoutAccountToEntity(&accountModel), nil
}

// MarkCapable flips capabilitiesTransfers on. Idempotent for repeated
// webhook deliveries.
func (r *PayoutAccountRepository) MarkCapable(ctx context.Context, accountID string) error {
	result := r.db.WithContext(ctx).Model(&model.PayoutAccount{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"capabilities_transfers": true,
			"updated_at":             r.timeProvider.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errs.ErrPayoutAccountNotFound
	}
	return nil
}

// ArchiveAllForUser archives every non-archived account for the user/provider
// pair. Archiving zero rows is not an error.
func (r *PayoutAccountRepository) ArchiveAllForUser(ctx context.Context, userID uint64, provider entity.TransactionProvider) error {
	result := r.db.WithContext(ctx).Model(&model.PayoutAccount{}).
		Where("user_id = ? AND provider = ? AND archived = ?", userID, string(provider), false).
		Updates(map[string]any{
			"archived":   true,
			"updated_at": r.timeProvider.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return nil
}
