package processor

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

// Config holds the fiat payment processor API settings
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RefreshURL string
	ReturnURL  string
}

// Client talks to the fiat payment processor. It implements PaymentRail,
// PayoutOnboarder and StatusChecker.
type Client struct {
	http   *resty.Client
	config Config
	logger coreport.Logger
}

// NewClient creates a processor API client
func NewClient(config Config, logger coreport.Logger) *Client {
	// Retried submissions are safe: every transfer carries the ledger
	// transaction id as its reference, and the processor dedupes on it.
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

	return &Client{
		http:   httpClient,
		config: config,
		logger: logger,
	}
}

type transferRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
	Reference   string `json:"reference"`
}

type transferResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Initiate dispatches a payout transfer to the processor account given as
// destination. The ledger transaction id travels as the reference so the
// processor-side record can always be traced back.
func (c *Client) Initiate(ctx context.Context, transaction *entity.Transaction, destination string) (string, error) {
	req := transferRequest{
		Amount:      transaction.NetAmount().String(),
		Currency:    string(transaction.Currency),
		Destination: destination,
		Reference:   transaction.ID.String(),
	}

	var resp transferResponse
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post("/v1/transfers")
	if err != nil {
		return "", provider.NewTransient(entity.ProviderProcessor, "transfer request failed", err)
	}
	if err := c.classifyResponse(httpResp, &resp); err != nil {
		return "", err
	}

	c.logger.Info("Processor transfer initiated", map[string]any{
		"transaction_id": transaction.ID.String(),
		"provider_ref":   resp.ID,
	})
	return resp.ID, nil
}

// Cancel attempts to cancel an in-flight transfer
func (c *Client) Cancel(ctx context.Context, providerRef string) error {
	var resp transferResponse
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetResult(&resp).
		SetError(&resp).
		Post(fmt.Sprintf("/v1/transfers/%s/cancel", providerRef))
	if err != nil {
		return provider.NewTransient(entity.ProviderProcessor, "cancel request failed", err)
	}
	return c.classifyResponse(httpResp, &resp)
}

// CheckStatus queries the authoritative state of a dispatched transfer
func (c *Client) CheckStatus(ctx context.Context, providerRef string) (entity.TransactionState, error) {
	var resp transferResponse
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetResult(&resp).
		SetError(&resp).
		Get(fmt.Sprintf("/v1/transfers/%s", providerRef))
	if err != nil {
		return "", provider.NewTransient(entity.ProviderProcessor, "status request failed", err)
	}
	if err := c.classifyResponse(httpResp, &resp); err != nil {
		return "", err
	}

	switch resp.Status {
	case "paid", "succeeded":
		return entity.StateSucceeded, nil
	case "failed":
		return entity.StateFailed, nil
	case "canceled":
		return entity.StateCanceled, nil
	default:
		return entity.StatePending, nil
	}
}

type accountRequest struct {
	UserID     uint64 `json:"userId"`
	Country    string `json:"country"`
	Type       string `json:"type"`
	RefreshURL string `json:"refreshUrl"`
	ReturnURL  string `json:"returnUrl"`
}

type accountResponse struct {
	AccountID     string `json:"accountId"`
	OnboardingURL string `json:"onboardingUrl"`
	Error         struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePayoutDestination onboards a user onto the processor's express flow
// and returns the new account with its onboarding link
func (c *Client) CreatePayoutDestination(ctx context.Context, userID uint64, country string) (*provider.PayoutDestination, error) {
	req := accountRequest{
		UserID:     userID,
		Country:    country,
		Type:       string(entity.PayoutAccountExpress),
		RefreshURL: c.config.RefreshURL,
		ReturnURL:  c.config.ReturnURL,
	}

	var resp accountResponse
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post("/v1/accounts")
	if err != nil {
		return nil, provider.NewTransient(entity.ProviderProcessor, "account request failed", err)
	}
	if httpResp.IsError() {
		return nil, c.classifyStatus(httpResp.StatusCode(), resp.Error.Code, resp.Error.Message)
	}

	return &provider.PayoutDestination{
		AccountID:     resp.AccountID,
		OnboardingURL: resp.OnboardingURL,
	}, nil
}

// classifyResponse normalizes an HTTP response into a provider error
func (c *Client) classifyResponse(httpResp *resty.Response, resp *transferResponse) error {
	if !httpResp.IsError() {
		return nil
	}
	return c.classifyStatus(httpResp.StatusCode(), resp.Error.Code, resp.Error.Message)
}

// classifyStatus maps HTTP status codes onto error kinds: rate limits and
// server errors may have applied, client errors never did
func (c *Client) classifyStatus(status int, code, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return provider.NewTransient(entity.ProviderProcessor, message, nil)
	case status >= http.StatusBadRequest:
		return provider.NewRejected(entity.ProviderProcessor, code, message)
	default:
		return provider.NewUnknown(entity.ProviderProcessor, message, nil)
	}
}
