package collaborator

import "context"

// User is the slice of the identity service's user the ledger needs:
// enough to validate parties and resolve blockchain addresses
type User struct {
	ID            uint64
	State         string
	LikerID       *string
	WalletAddress *string
}

// User states the ledger cares about
const (
	UserStateActive   = "active"
	UserStateArchived = "archived"
)

// IsArchived reports whether the account may no longer send or receive value
func (u *User) IsArchived() bool {
	return u.State == UserStateArchived
}

// UserService is the identity collaborator the ledger validates parties
// against
type UserService interface {
	// GetUser fetches a user by internal id
	//
	// Possible errors:
	// - ErrUserNotFound: if no user with the id exists
	GetUser(ctx context.Context, id uint64) (*User, error)

	// GetUserByWalletAddress resolves a blockchain address to a user. Absent
	// mappings return ErrUserNotFound; the address may belong to a wallet
	// outside the platform.
	GetUserByWalletAddress(ctx context.Context, address string) (*User, error)
}
