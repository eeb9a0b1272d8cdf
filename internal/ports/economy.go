package ports

import "context"

// WalletUpdate represents a single credits change for a user.
type WalletUpdate struct {
	UserID   string
	Amount   int64
	Metadata map[string]interface{}
}

// EconomyPort defines the interface to the persistent credits wallet.
type EconomyPort interface {
	// GetBalance retrieves the current credits balance for a user.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// UpdateBalances applies wallet changes. Used at game over to settle
	// each seat's net session result.
	UpdateBalances(ctx context.Context, updates []WalletUpdate) error
}
