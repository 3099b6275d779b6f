package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	domainerr "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/ledger"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/dto"
)

// LedgerHandler handles balance queries
type LedgerHandler struct {
	ledger          *ledger.Service
	defaultCurrency entity.Currency
	logger          coreport.Logger
}

// NewLedgerHandler creates a new ledger handler instance
func NewLedgerHandler(ledgerSvc *ledger.Service, defaultCurrency entity.Currency, logger coreport.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:          ledgerSvc,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// GetBalance handles the GET /users/:userId/balance endpoint. An optional
// currency query parameter selects the denomination.
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	currency := h.defaultCurrency
	if raw := c.Query("currency"); raw != "" {
		if !entity.IsValidCurrency(raw) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Code:    domainerr.ErrorCode(domainerr.ErrInvalidCurrency),
				Message: "Invalid currency",
			})
			return
		}
		currency = entity.Currency(raw)
	}

	balance, err := h.ledger.CalculateBalance(c.Request.Context(), userID, currency)
	if err != nil {
		h.logger.Error("Error getting user balance", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		UserID:   userID,
		Currency: string(currency),
		Balance:  entity.FormatAmount(balance, currency),
	})
}

// parseUserID extracts and validates the userId path parameter, writing the
// error response itself when the value is malformed
func parseUserID(c *gin.Context) (uint64, bool) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil || userID == 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrUserNotFound),
			Message: "Invalid user ID format",
		})
		return 0, false
	}
	return userID, true
}
