package dto

// BalanceResponse represents the API response for a user's balance
type BalanceResponse struct {
	UserID   uint64 `json:"userId"`
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

// TransactionResponse is the API shape of a ledger transaction
type TransactionResponse struct {
	ID           string  `json:"id"`
	ProviderTxID *string `json:"providerTxId,omitempty"`
	Provider     string  `json:"provider"`
	Purpose      string  `json:"purpose"`
	Currency     string  `json:"currency"`
	Amount       string  `json:"amount"`
	Fee          string  `json:"fee"`
	State        string  `json:"state"`
	CreatedAt    string  `json:"createdAt"`
}

// PayoutRequest is the body of POST /users/:userId/payouts
type PayoutRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// PayoutAccountRequest is the body of POST /users/:userId/payout-accounts
type PayoutAccountRequest struct {
	Country string `json:"country" binding:"required"`
}

// PayoutAccountResponse returns the onboarding result
type PayoutAccountResponse struct {
	AccountID     string `json:"accountId"`
	OnboardingURL string `json:"onboardingUrl"`
}

// VaultWithdrawalRequest is the body of POST /users/:userId/vault-withdrawals
type VaultWithdrawalRequest struct {
	Amount string `json:"amount" binding:"required"`
}
