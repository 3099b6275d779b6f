package collaborator

import "context"

// NotificationEvent names a user-facing notification trigger
type NotificationEvent string

// Notification events fired after ledger state transitions
const (
	EventDonationReceived NotificationEvent = "donation_received"
	EventPayoutSucceeded  NotificationEvent = "payout_succeeded"
	EventPayoutFailed     NotificationEvent = "payout_failed"
	EventCreditAdded      NotificationEvent = "credit_added"
	EventVaultWithdrawn   NotificationEvent = "vault_withdrawn"
)

// Notifier delivers fire-and-forget notifications. A failure here must never
// roll back a ledger write; callers log and move on.
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent, recipientID uint64, payload map[string]any) error
}

// AlertSeverity grades an operational alert
type AlertSeverity string

// Alert severities
const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alerter raises operator-facing alerts, e.g. when a blockchain sync or a
// payout fails after retries
type Alerter interface {
	SendAlert(ctx context.Context, title, message string, severity AlertSeverity) error
}
