package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create an
	// open match.
	RpcQuickMatch = "quick_match"

	// RpcSessionToken is the Nakama RPC id clients call to obtain a signed
	// seat token for reconnecting.
	RpcSessionToken = "session_token"

	// MatchNameHeroesCards is the authoritative match handler name
	// registered with Nakama.
	MatchNameHeroesCards = "heroescards_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpPlaceBet     int64 = 1
	OpPlayCard     int64 = 2
	OpPowerChoice  int64 = 3
	OpContinueGame int64 = 4

	// Server -> Client events
	OpCardSelected          int64 = 101
	OpInitialTurnDetermined int64 = 102
	OpDrManhattanReveal     int64 = 103 // sent privately to the acting seat
	OpBattleResult          int64 = 104
	OpPhaseChange           int64 = 105
	OpRoundEnd              int64 = 106
	OpGameOver              int64 = 107
	OpSyncGameState         int64 = 108 // sent privately per seat
)
