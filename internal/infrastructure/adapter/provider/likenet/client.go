package likenet

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/thematters/settlement-ledger/internal/domain/entity"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
	"github.com/thematters/settlement-ledger/internal/domain/port/provider"
)

// Config holds the LIKE token network API settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the LIKE token network. It implements PaymentRail and
// StatusChecker for LIKE-denominated transactions.
type Client struct {
	http   *resty.Client
	logger coreport.Logger
}

// NewClient creates a LIKE network API client
func NewClient(config Config, logger coreport.Logger) *Client {
	// Sends carry the ledger transaction id as the reference, so the network
	// dedupes retried submissions.
	httpClient := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetAuthToken(config.APIKey).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
		})

	return &Client{http: httpClient, logger: logger}
}

type sendRequest struct {
	Amount      string `json:"amount"`
	Destination string `json:"destination"`
	Reference   string `json:"reference"`
}

type sendResponse struct {
	TxID   string `json:"txId"`
	Status string `json:"status"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Initiate submits a LIKE transfer to the destination liker id
func (c *Client) Initiate(ctx context.Context, transaction *entity.Transaction, destination string) (string, error) {
	req := sendRequest{
		Amount:      transaction.NetAmount().String(),
		Destination: destination,
		Reference:   transaction.ID.String(),
	}

	var resp sendResponse
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post("/v1/transfers")
	if err != nil {
		return "", provider.NewTransient(entity.ProviderLikeNet, "transfer request failed", err)
	}
	if err := c.classify(httpResp, &resp); err != nil {
		return "", err
	}

	c.logger.Info("LIKE transfer initiated", map[string]any{
		"transaction_id": transaction.ID.String(),
		"provider_ref":   resp.TxID,
	})
	return resp.TxID, nil
}

// Cancel always rejects; LIKE network transfers are final once submitted
func (c *Client) Cancel(ctx context.Context, providerRef string) error {
	return provider.NewRejected(entity.ProviderLikeNet, "not_cancelable", "LIKE transfers cannot be canceled")
}

// CheckStatus queries the network's view of a submitted transfer
func (c *Client) CheckStatus(ctx context.Context, providerRef string) (entity.TransactionState, error) {
	var resp sendResponse
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetResult(&resp).
		SetError(&resp).
		Get(fmt.Sprintf("/v1/transfers/%s", providerRef))
	if err != nil {
		return "", provider.NewTransient(entity.ProviderLikeNet, "status request failed", err)
	}
	if err := c.classify(httpResp, &resp); err != nil {
		return "", err
	}

	switch resp.Status {
	case "completed":
		return entity.StateSucceeded, nil
	case "failed":
		return entity.StateFailed, nil
	default:
		return entity.StatePending, nil
	}
}

func (c *Client) classify(httpResp *resty.Response, resp *sendResponse) error {
	if !httpResp.IsError() {
		return nil
	}
	message := resp.Error.Message
	if message == "" {
		message = http.StatusText(httpResp.StatusCode())
	}
	switch {
	case httpResp.StatusCode() == http.StatusTooManyRequests || httpResp.StatusCode() >= http.StatusInternalServerError:
		return provider.NewTransient(entity.ProviderLikeNet, message, nil)
	case httpResp.StatusCode() >= http.StatusBadRequest:
		return provider.NewRejected(entity.ProviderLikeNet, resp.Error.Code, message)
	default:
		return provider.NewUnknown(entity.ProviderLikeNet, message, nil)
	}
}
