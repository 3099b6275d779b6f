package processor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/domain/usecase/reconcile"
)

// ErrInvalidSignature is returned when a webhook payload fails verification
var ErrInvalidSignature = errs.ErrInvalidSignature

// WebhookVerifier authenticates processor webhook deliveries with an
// HMAC-SHA256 signature over the raw body
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier with the shared webhook secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify checks the hex-encoded signature against the raw request body.
// Comparison is constant time.
func (v *WebhookVerifier) Verify(body []byte, signature string) error {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// webhookPayload is the processor's event envelope
type webhookPayload struct {
	Type       string `json:"type"`
	TransferID string `json:"transferId"`
	AccountID  string `json:"accountId"`
	RefundID   string `json:"refundId"`
	Amount     string `json:"amount"`
	Reason     string `json:"reason"`
}

// ParseEvent decodes a verified webhook body into a reconciliation event.
// Account capability events return a nil event and the account id instead.
func ParseEvent(body []byte) (*reconcile.Event, string, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", fmt.Errorf("%w: %s", errs.ErrMalformedPayload, err.Error())
	}

	switch payload.Type {
	case "account.capable":
		return nil, payload.AccountID, nil
	case "transfer.paid":
		return eventOf(reconcile.EventSucceeded, &payload), "", nil
	case "transfer.failed":
		return eventOf(reconcile.EventFailed, &payload), "", nil
	case "transfer.canceled":
		return eventOf(reconcile.EventCanceled, &payload), "", nil
	case "transfer.processing":
		return eventOf(reconcile.EventProcessing, &payload), "", nil
	case "charge.refunded":
		event := eventOf(reconcile.EventRefunded, &payload)
		event.RefundID = payload.RefundID
		if payload.Amount != "" {
			amount, err := decimal.NewFromString(payload.Amount)
			if err != nil {
				return nil, "", fmt.Errorf("malformed refund amount %q: %w", payload.Amount, err)
			}
			event.Amount = &amount
		}
		return event, "", nil
	default:
		return nil, "", fmt.Errorf("unrecognized webhook type %q", payload.Type)
	}
}

func eventOf(eventType reconcile.EventType, payload *webhookPayload) *reconcile.Event {
	return &reconcile.Event{
		Provider:     entity.ProviderProcessor,
		Type:         eventType,
		ProviderTxID: payload.TransferID,
		Reason:       payload.Reason,
	}
}
