package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	domainerr "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/dto"
)

// respondError maps a domain error onto an HTTP response
func respondError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case domainerr.IsNotFoundError(err):
		statusCode = http.StatusNotFound
		message = err.Error()
	case domainerr.IsInsufficientBalanceError(err):
		statusCode = http.StatusUnprocessableEntity
		message = err.Error()
	case domainerr.IsUserLockedError(err),
		errors.Is(err, domainerr.ErrPendingPayoutExists),
		errors.Is(err, domainerr.ErrPayoutAccountExists):
		statusCode = http.StatusConflict
		message = err.Error()
	case errors.Is(err, domainerr.ErrUserArchived):
		statusCode = http.StatusForbidden
		message = err.Error()
	case domainerr.IsValidationError(err):
		statusCode = http.StatusBadRequest
		message = err.Error()
	}

	c.JSON(statusCode, dto.ErrorResponse{
		Code:    domainerr.ErrorCode(err),
		Message: message,
	})
}

// transactionToDTO converts a ledger transaction to its API shape
func transactionToDTO(transaction *entity.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:           transaction.ID.String(),
		ProviderTxID: transaction.ProviderTxID,
		Provider:     string(transaction.Provider),
		Purpose:      string(transaction.Purpose),
		Currency:     string(transaction.Currency),
		Amount:       transaction.Amount.String(),
		Fee:          transaction.Fee.String(),
		State:        string(transaction.State),
		CreatedAt:    transaction.CreatedAt.UTC().Format(time.RFC3339),
	}
}
