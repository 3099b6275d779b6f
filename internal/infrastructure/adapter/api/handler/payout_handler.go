package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	domainerr "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/payout"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/dto"
)

// PayoutHandler handles payout account onboarding and payout initiation
type PayoutHandler struct {
	payouts  *payout.Service
	currency entity.Currency
	logger   coreport.Logger
}

// NewPayoutHandler creates a new payout handler instance
func NewPayoutHandler(payouts *payout.Service, currency entity.Currency, logger coreport.Logger) *PayoutHandler {
	return &PayoutHandler{
		payouts:  payouts,
		currency: currency,
		logger:   logger,
	}
}

// ConnectAccount handles the POST /users/:userId/payout-accounts endpoint
func (h *PayoutHandler) ConnectAccount(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req dto.PayoutAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidParticipants),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	result, err := h.payouts.ConnectAccount(c.Request.Context(), userID, req.Country)
	if err != nil {
		h.logger.Error("Error connecting payout account", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.PayoutAccountResponse{
		AccountID:     result.Account.AccountID,
		OnboardingURL: result.OnboardingURL,
	})
}

// InitiatePayout handles the POST /users/:userId/payouts endpoint
func (h *PayoutHandler) InitiatePayout(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req dto.PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidAmount),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	amount, err := entity.ParseAmount(req.Amount, h.currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Message: err.Error(),
		})
		return
	}

	transaction, err := h.payouts.InitiatePayout(c.Request.Context(), userID, amount)
	if err != nil {
		h.logger.Error("Error initiating payout", map[string]any{
			"user_id": userID,
			"amount":  req.Amount,
			"error":   err.Error(),
		})
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, transactionToDTO(transaction))
}

// CancelPayout handles the DELETE /users/:userId/payouts/:transactionId endpoint
func (h *PayoutHandler) CancelPayout(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	transactionID, err := uuid.Parse(c.Param("transactionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrTransactionNotFound),
			Message: "Invalid transaction id",
		})
		return
	}

	if err := h.payouts.CancelPayout(c.Request.Context(), userID, transactionID); err != nil {
		h.logger.Error("Error canceling payout", map[string]any{
			"user_id":        userID,
			"transaction_id": transactionID.String(),
			"error":          err.Error(),
		})
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
