package app

import "heroescards/internal/domain"

// EventKind identifies emitted engine events for Nakama dispatch. The kinds
// and payload field names are the wire contract with clients.
type EventKind string

const (
	EventCardSelected          EventKind = "card_selected"
	EventInitialTurnDetermined EventKind = "initial_turn_determined"
	EventDrManhattanReveal     EventKind = "dr_manhattan_reveal"
	EventBattleResult          EventKind = "battle_result"
	EventPhaseChange           EventKind = "phase_change"
	EventRoundEnd              EventKind = "round_end"
	EventGameOver              EventKind = "game_over"
	EventSyncGameState         EventKind = "sync_game_state"
)

// Event is an engine event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []int // seat numbers; empty means broadcast
}

// CardSelectedPayload announces a card moving from a hand to the table.
// TargetPlayer is the seat whose hand the card left; it differs from
// SelectingPlayer on rival selections.
type CardSelectedPayload struct {
	SelectingPlayer int  `json:"selecting_player"`
	TargetPlayer    int  `json:"target_player"`
	SlotIndex       int  `json:"slot_index"`
	CardID          int  `json:"card_id"`
	CardPower       int  `json:"card_power"`
	IsOwnSelection  bool `json:"is_own_selection"`
}

// InitialTurnDeterminedPayload announces the resolved initial battle.
type InitialTurnDeterminedPayload struct {
	P1Card         int `json:"p1_card"`
	P1Power        int `json:"p1_power"`
	P2Card         int `json:"p2_card"`
	P2Power        int `json:"p2_power"`
	StartingPlayer int `json:"starting_player"`
}

// DrManhattanRevealPayload carries the rival's remaining hand to the acting
// seat only. Duration is a suggested display time in milliseconds.
type DrManhattanRevealPayload struct {
	RivalHand map[int]int `json:"rival_hand"`
	Duration  int         `json:"duration"`
}

// BattleResultPayload announces a resolved standard battle. Winner 0 is a
// push.
type BattleResultPayload struct {
	Winner          int `json:"winner"`
	PowerDifference int `json:"power_difference"`
	P1Card          int `json:"p1_card"`
	P1Power         int `json:"p1_power"`
	P2Card          int `json:"p2_card"`
	P2Power         int `json:"p2_power"`
	TurnNumber      int `json:"turn_number"`
}

// PhaseChangePayload announces a phase transition. PowerDifference is only
// populated when entering the power choice phase.
type PhaseChangePayload struct {
	Phase           domain.Phase `json:"phase"`
	CurrentPlayer   int          `json:"current_player"`
	Message         string       `json:"message"`
	TurnNumber      int          `json:"turn_number"`
	RoundNumber     int          `json:"round_number"`
	PowerDifference int          `json:"power_difference,omitempty"`
}

// CreditChanges reports the per-seat credit deltas of a settlement.
type CreditChanges struct {
	P1Change int64 `json:"p1_change"`
	P2Change int64 `json:"p2_change"`
}

// NewCredits reports both seats' balances after a settlement.
type NewCredits struct {
	P1Credits int64 `json:"p1_credits"`
	P2Credits int64 `json:"p2_credits"`
}

// RoundEndPayload announces a round settlement. RoundWinner 0 is a push
// where both seats forfeit their bets.
type RoundEndPayload struct {
	RoundWinner      int           `json:"round_winner"`
	P1FinalPoints    int           `json:"p1_final_points"`
	P2FinalPoints    int           `json:"p2_final_points"`
	P1DistanceFrom34 int           `json:"p1_distance_from_34"`
	P2DistanceFrom34 int           `json:"p2_distance_from_34"`
	CreditChanges    CreditChanges `json:"credit_changes"`
	NewCredits       NewCredits    `json:"new_credits"`
}

// Game over result kinds.
const (
	GameOverResultThreshold = "real_winner"
	GameOverResultBusted    = "busted"
)

// GameOverPayload announces the terminal state of the game.
type GameOverPayload struct {
	Result             string   `json:"result"`
	Winner             int      `json:"winner"`
	FinalCredits       [2]int64 `json:"final_credits"`
	WaitingForContinue bool     `json:"waiting_for_continue"`
}

// TurnFlags mirrors the selection-completion flags of the in-flight turn.
type TurnFlags struct {
	OwnCardSelected   bool `json:"own_card_selected"`
	RivalCardSelected bool `json:"rival_card_selected"`
}

// SyncGameStatePayload is the per-seat state resynchronization. It carries
// both seats' revealed cards but never the opponent's hand.
type SyncGameStatePayload struct {
	PlayerID              int          `json:"player_id"`
	Phase                 domain.Phase `json:"phase"`
	CurrentPlayer         int          `json:"current_player"`
	RoundNumber           int          `json:"round_number"`
	TurnNumber            int          `json:"turn_number"`
	OwnRevealedCards      map[int]int  `json:"own_revealed_cards"`
	OpponentRevealedCards map[int]int  `json:"opponent_revealed_cards"`
	JokerPower            int          `json:"joker_power"`
	Credits               int64        `json:"credits"`
	Points                int          `json:"points"`
	CurrentBet            int64        `json:"current_bet"`
	OpponentCredits       int64        `json:"opponent_credits"`
	OpponentPoints        int          `json:"opponent_points"`
	OpponentBet           int64        `json:"opponent_bet"`
	CurrentTurn           TurnFlags    `json:"current_turn"`
}
