package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"heroescards/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchResponse is the payload returned to clients when requesting a
// seat-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// SessionTokenRequest asks for a signed seat token for reconnecting to an
// ongoing match.
type SessionTokenRequest struct {
	MatchID string `json:"match_id"`
	Seat    int    `json:"seat"`
}

// SessionTokenResponse carries the signed seat token.
type SessionTokenResponse struct {
	SeatToken string `json:"seat_token"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcSessionToken, rpcSessionToken)
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	// Find any match that is our game and still has an open seat.
	query := "+label.game:heroescards +label.open:>0"

	limit := 10
	authoritative := true

	minSize := 0
	maxSize := 1 // at most one player already seated

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Create new match; seat assignment happens in MatchJoin (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchNameHeroesCards, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

func rpcSessionToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", errors.New("missing user id")
	}

	var req SessionTokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", errors.New("invalid payload")
	}
	if req.MatchID == "" || req.Seat < 1 || req.Seat > 2 {
		return "", errors.New("match_id and seat are required")
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	secret := env["heroescards_token_secret"]
	if secret == "" {
		return "", errors.New("seat tokens are not configured")
	}

	tokens := app.NewTokenService(secret, "heroescards", 0)
	token, err := tokens.GenerateSeatToken(userID, req.MatchID, req.Seat)
	if err != nil {
		logger.Error("rpcSessionToken: Failed to sign token for %s: %v", userID, err)
		return "", errors.New("failed to sign token")
	}

	resp := SessionTokenResponse{SeatToken: token}
	b, _ := json.Marshal(resp)
	return string(b), nil
}
