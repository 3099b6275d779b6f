package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/persistence"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/model"
)

// TransactionRepository implements persistence.TransactionRepository using GORM
type TransactionRepository struct {
	db              *gorm.DB
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewTransactionRepository creates a new TransactionRepository instance
func NewTransactionRepository(db *gorm.DB, logger coreport.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:              db,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// entityToModel converts a transaction entity to a database model
func entityToModel(transaction *entity.Transaction) model.Transaction {
	var targetType *string
	if transaction.TargetType != nil {
		t := string(*transaction.TargetType)
		targetType = &t
	}
	return model.Transaction{
		ID:           transaction.ID,
		ProviderTxID: transaction.ProviderTxID,
		Provider:     string(transaction.Provider),
		SenderID:     transaction.SenderID,
		RecipientID:  transaction.RecipientID,
		Purpose:      string(transaction.Purpose),
		Currency:     string(transaction.Currency),
		Amount:       transaction.Amount,
		Fee:          transaction.Fee,
		TargetID:     transaction.TargetID,
		TargetType:   targetType,
		State:        string(transaction.State),
		Remark:       transaction.Remark,
		CreatedAt:    transaction.CreatedAt,
		UpdatedAt:    transaction.UpdatedAt,
	}
}

// modelToEntity converts a transaction model to an entity
func modelToEntity(m *model.Transaction) *entity.Transaction {
	var targetType *entity.TargetType
	if m.TargetType != nil {
		t := entity.TargetType(*m.TargetType)
		targetType = &t
	}
	return &entity.Transaction{
		ID:           m.ID,
		ProviderTxID: m.ProviderTxID,
		Provider:     entity.TransactionProvider(m.Provider),
		SenderID:     m.SenderID,
		RecipientID:  m.RecipientID,
		Purpose:      entity.TransactionPurpose(m.Purpose),
		Currency:     entity.Currency(m.Currency),
		Amount:       m.Amount,
		Fee:          m.Fee,
		TargetID:     m.TargetID,
		TargetType:   targetType,
		State:        entity.TransactionState(m.State),
		Remark:       m.Remark,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Create saves a new transaction. The partial unique index on
// (provider, provider_tx_id) backs the idempotency invariant; violations are
// surfaced as ErrDuplicateProviderTx for the caller to resolve as a no-op.
func (r *TransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	transactionModel := entityToModel(transaction)

	result := r.db.WithContext(ctx).Create(&transactionModel)
	if result.Error != nil {
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			providerTxID := ""
			if transaction.ProviderTxID != nil {
				providerTxID = *transaction.ProviderTxID
			}
			r.logger.Warn("Duplicate provider transaction detected", map[string]any{
				"provider":       string(transaction.Provider),
				"provider_tx_id": providerTxID,
			})
			return errs.NewDuplicateProviderTxError(string(transaction.Provider), providerTxID)
		}
		r.logger.Error("Failed to create transaction", map[string]any{
			"transaction_id": transaction.ID.String(),
			"error":          result.Error.Error(),
		})
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}

	return nil
}

// GetByID retrieves a transaction by its ledger id
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	var transactionModel model.Transaction
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&transactionModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return modelToEntity(&transactionModel), nil
}

// GetByProviderTxID retrieves a transaction by its external reference
func (r *TransactionRepository) GetByProviderTxID(ctx context.Context, provider entity.TransactionProvider, providerTxID string) (*entity.Transaction, error) {
	var transactionModel model.Transaction
	result := r.db.WithContext(ctx).
		Where("provider = ? AND provider_tx_id = ?", string(provider), providerTxID).
		First(&transactionModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	return modelToEntity(&transactionModel), nil
}

// SetProviderTxID attaches the external reference returned by a rail
func (r *TransactionRepository) SetProviderTxID(ctx context.Context, id uuid.UUID, providerTxID string) error {
	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ?", id).
		Update("provider_tx_id", providerTxID)
	if result.Error != nil {
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			return errs.NewDuplicateProviderTxError("", providerTxID)
		}
		return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return errs.ErrTransactionNotFound
	}
	return nil
}

// MarkState applies a terminal state with a conditional update. The WHERE
// state = 'pending' clause makes concurrent duplicate reconciliation attempts
// race harmlessly: at most one mutates, the rest observe zero rows affected.
func (r *TransactionRepository) MarkState(ctx context.Context, id uuid.UUID, newState entity.TransactionState, remark string, updatedAt time.Time) (bool, error) {
	updates := map[string]any{
		"state":      string(newState),
		"updated_at": updatedAt,
	}
	if remark != "" {
		updates["remark"] = remark
	}

	result := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ? AND state = ?", id, string(entity.StatePending)).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, result.Error.Error())
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// No pending row matched: either the id is unknown or the row is already
	// terminal. Distinguish for the caller.
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}
	if count == 0 {
		return false, errs.ErrTransactionNotFound
	}
	return false, nil
}

// SumBalance aggregates the user's succeeded rows in one query so a single
// row can never be partially or doubly counted: the recipient side adds the
// net amount, the sender side subtracts the gross amount.
func (r *TransactionRepository) SumBalance(ctx context.Context, userID uint64, currency entity.Currency) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(
			CASE WHEN recipient_id = @user THEN amount - fee ELSE 0 END -
			CASE WHEN sender_id = @user THEN amount ELSE 0 END
		), 0) AS total
		FROM transactions
		WHERE state = 'succeeded'
		  AND currency = @currency
		  AND (recipient_id = @user OR sender_id = @user)`,
		map[string]any{"user": userID, "currency": string(currency)},
	).Scan(&row).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}
	return row.Total, nil
}

// CountPendingPayouts counts in-flight payout transactions for a user
func (r *TransactionRepository) CountPendingPayouts(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Where("sender_id = ? AND purpose = ? AND state = ?",
			userID, string(entity.PurposePayout), string(entity.StatePending)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}
	return count, nil
}

// ListPendingOlderThan returns stale pending transactions for the sweep
func (r *TransactionRepository) ListPendingOlderThan(ctx context.Context, provider entity.TransactionProvider, cutoff time.Time, limit int) ([]*entity.Transaction, error) {
	var transactionModels []model.Transaction
	err := r.db.WithContext(ctx).
		Where("provider = ? AND state = ? AND created_at < ?",
			string(provider), string(entity.StatePending), cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&transactionModels).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}

	transactions := make([]*entity.Transaction, 0, len(transactionModels))
	for i := range transactionModels {
		transactions = append(transactions, modelToEntity(&transactionModels[i]))
	}
	return transactions, nil
}

// TallySucceededBySender groups succeeded rows of a purpose by sender,
// keeping senders at or above minCount
func (r *TransactionRepository) TallySucceededBySender(ctx context.Context, purpose entity.TransactionPurpose, minCount int64) ([]persistence.SenderTally, error) {
	var rows []struct {
		SenderID uint64
		Count    int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT sender_id, COUNT(*) AS count
		FROM transactions
		WHERE state = 'succeeded' AND purpose = ? AND sender_id IS NOT NULL
		GROUP BY sender_id
		HAVING COUNT(*) >= ?`,
		string(purpose), minCount,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
	}

	tallies := make([]persistence.SenderTally, 0, len(rows))
	for _, row := range rows {
		tallies = append(tallies, persistence.SenderTally{SenderID: row.SenderID, Count: row.Count})
	}
	return tallies, nil
}
