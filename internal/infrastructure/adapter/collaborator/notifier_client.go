package collaborator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/thematters/settlement-ledger/internal/domain/port/collaborator"
	coreport "github.com/thematters/settlement-ledger/internal/domain/port/core"
)

// NotifierClient implements collaborator.Notifier against the notification
// service. Deliveries are fire-and-forget for callers; failures surface as
// errors they log and swallow.
type NotifierClient struct {
	http   *resty.Client
	logger coreport.Logger
}

// NewNotifierClient creates a notification service client
func NewNotifierClient(config Config, logger coreport.Logger) *NotifierClient {
	httpClient := resty.New().
		SetBaseURL(config.NotifierURL).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(retryTransient)

	return &NotifierClient{http: httpClient, logger: logger}
}

type notifyRequest struct {
	Event       string         `json:"event"`
	RecipientID uint64         `json:"recipientId"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// Notify delivers a user-facing notification
func (c *NotifierClient) Notify(ctx context.Context, event collaborator.NotificationEvent, recipientID uint64, payload map[string]any) error {
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetBody(notifyRequest{
			Event:       string(event),
			RecipientID: recipientID,
			Payload:     payload,
		}).
		Post("/internal/notifications")
	if err != nil {
		return fmt.Errorf("notifier request failed: %w", err)
	}
	if httpResp.IsError() {
		return fmt.Errorf("notifier returned %d", httpResp.StatusCode())
	}
	return nil
}

// AlerterClient implements collaborator.Alerter against the operations
// alerting endpoint
type AlerterClient struct {
	http   *resty.Client
	logger coreport.Logger
}

// NewAlerterClient creates an operations alerting client
func NewAlerterClient(config Config, logger coreport.Logger) *AlerterClient {
	httpClient := resty.New().
		SetBaseURL(config.AlerterURL).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(retryTransient)

	return &AlerterClient{http: httpClient, logger: logger}
}

type alertRequest struct {
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// SendAlert raises an operator-facing alert
func (c *AlerterClient) SendAlert(ctx context.Context, title, message string, severity collaborator.AlertSeverity) error {
	httpResp, err := c.http.R().
		SetContext(ctx).
		SetBody(alertRequest{
			Title:    title,
			Message:  message,
			Severity: string(severity),
		}).
		Post("/internal/alerts")
	if err != nil {
		return fmt.Errorf("alerter request failed: %w", err)
	}
	if httpResp.IsError() {
		return fmt.Errorf("alerter returned %d", httpResp.StatusCode())
	}
	return nil
}
