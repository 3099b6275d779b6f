package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	domainerr "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/vault"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/dto"
)

// VaultHandler handles curation vault withdrawals
type VaultHandler struct {
	vault  *vault.Service
	logger coreport.Logger
}

// NewVaultHandler creates a new vault handler instance
func NewVaultHandler(vaultSvc *vault.Service, logger coreport.Logger) *VaultHandler {
	return &VaultHandler{vault: vaultSvc, logger: logger}
}

// Withdraw handles the POST /users/:userId/vault-withdrawals endpoint
func (h *VaultHandler) Withdraw(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req dto.VaultWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidAmount),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	amount, err := entity.ParseAmount(req.Amount, entity.CurrencyUSDT)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Message: err.Error(),
		})
		return
	}

	transaction, err := h.vault.WithdrawFromVault(c.Request.Context(), userID, amount)
	if err != nil {
		h.logger.Error("Error withdrawing from vault", map[string]any{
			"user_id": userID,
			"amount":  req.Amount,
			"error":   err.Error(),
		})
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, transactionToDTO(transaction))
}
