package ports

import "context"

// WelcomeBonusPort grants the welcome credits at most once per user.
type WelcomeBonusPort interface {
	// GrantWelcomeBonusOnce attempts a one-time credits grant. Returns
	// granted=false when the bonus was already granted.
	GrantWelcomeBonusOnce(ctx context.Context, userID string, amount int64, metadata map[string]interface{}) (bool, error)
}
