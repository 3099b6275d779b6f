package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerr "github.com/thematters/settlement-ledger/internal/domain/error"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/payout"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/reconcile"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/api/dto"
	"github.com/thematters/settlement-ledger/internal/infrastructure/adapter/provider/processor"
)

// signatureHeader carries the processor's HMAC over the raw body
const signatureHeader = "X-Webhook-Signature"

// WebhookHandler receives processor webhook deliveries and routes them to
// the reconciler or the payout account manager
type WebhookHandler struct {
	verifier   *processor.WebhookVerifier
	reconciler *reconcile.Reconciler
	payouts    *payout.Service
	logger     coreport.Logger
}

// NewWebhookHandler creates a new webhook handler instance
func NewWebhookHandler(
	verifier *processor.WebhookVerifier,
	reconciler *reconcile.Reconciler,
	payouts *payout.Service,
	logger coreport.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		reconciler: reconciler,
		payouts:    payouts,
		logger:     logger,
	}
}

// HandleProcessorWebhook handles the POST /webhooks/processor endpoint.
// Returns 200 once the event is durably applied; the processor retries
// anything else, and redelivery is safe because every path is idempotent.
func (h *WebhookHandler) HandleProcessorWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrMalformedPayload),
			Message: "Failed to read request body",
		})
		return
	}

	if err := h.verifier.Verify(body, c.GetHeader(signatureHeader)); err != nil {
		h.logger.Warn("Webhook signature verification failed", map[string]any{
			"ip": c.ClientIP(),
		})
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidSignature),
			Message: "Invalid signature",
		})
		return
	}

	event, accountID, err := processor.ParseEvent(body)
	if err != nil {
		h.logger.Warn("Unparseable webhook payload", map[string]any{"error": err.Error()})
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrMalformedPayload),
			Message: err.Error(),
		})
		return
	}

	if accountID != "" {
		if err := h.payouts.MarkCapable(c.Request.Context(), accountID); err != nil {
			h.logger.Error("Failed to mark payout account capable", map[string]any{
				"account_id": accountID,
				"error":      err.Error(),
			})
			respondError(c, err)
			return
		}
		c.Status(http.StatusOK)
		return
	}

	if err := h.reconciler.HandleEvent(c.Request.Context(), *event); err != nil {
		h.logger.Error("Failed to apply webhook event", map[string]any{
			"provider_tx_id": event.ProviderTxID,
			"type":           string(event.Type),
			"error":          err.Error(),
		})
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Message: "Failed to apply event",
		})
		return
	}

	c.Status(http.StatusOK)
}
