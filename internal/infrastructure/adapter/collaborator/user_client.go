package collaborator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	errs "github.com/thematters/settlement-ledger/internal/domain/error"
	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
)

// Config holds the sibling service endpoints
type Config struct {
	UserServiceURL string
	NotifierURL    string
	AlerterURL     string
	Timeout        time.Duration
}

// retryTransient retries rate-limited and 5xx responses from sibling services
func retryTransient(r *resty.Response, err error) bool {
	return err == nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
}

// UserClient implements collaborator.UserService against the identity
// service's internal HTTP API
type UserClient struct {
	http   *resty.Client
	logger coreport.Logger
}

// NewUserClient creates an identity service client
func NewUserClient(config Config, logger coreport.Logger) *UserClient {
	httpClient := resty.New().
		SetBaseURL(config.UserServiceURL).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(retryTransient)

	return &UserClient{http: httpClient, logger: logger}
}

type userResponse struct {
	ID            uint64  `json:"id"`
	State         string  `json:"state"`
	LikerID       *string `json:"likerId"`
	WalletAddress *string `json:"walletAddress"`
}

// GetUser fetches a user by internal id
func (c *UserClient) GetUser(ctx context.Context, id uint64) (*collaborator.User, error) {
	var resp userResponse
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetResult(&resp).
		Get(fmt.Sprintf("/internal/users/%d", id))
	if err != nil {
		return nil, fmt.Errorf("user service request failed: %w", err)
	}
	return c.toUser(httpResp, &resp)
}

// GetUserByWalletAddress resolves a blockchain address to a user
func (c *UserClient) GetUserByWalletAddress(ctx context.Context, address string) (*collaborator.User, error) {
	var resp userResponse
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("walletAddress", address).
		SetResult(&resp).
		Get("/internal/users/lookup")
	if err != nil {
		return nil, fmt.Errorf("user service request failed: %w", err)
	}
	return c.toUser(httpResp, &resp)
}

func (c *UserClient) toUser(httpResp *resty.Response, resp *userResponse) (*collaborator.User, error) {
	if httpResp.StatusCode() == http.StatusNotFound {
		return nil, errs.ErrUserNotFound
	}
	if httpResp.IsError() {
		return nil, fmt.Errorf("user service returned %d", httpResp.StatusCode())
	}
	return &collaborator.User{
		ID:            resp.ID,
		State:         resp.State,
		LikerID:       resp.LikerID,
		WalletAddress: resp.WalletAddress,
	}, nil
}
