package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"time"

	"heroescards/internal/app"
	"heroescards/internal/bot"
	"heroescards/internal/config"
	"heroescards/internal/domain"
	"heroescards/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// matchTickRate is the MatchLoop frequency in ticks per second. Delay
// settings are configured in seconds and converted with this rate.
const matchTickRate = 10

// Label is the match label advertised for quick-match queries.
type Label struct {
	Open  int    `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// MatchState holds the authoritative runtime state for the Nakama match
// handler. The engine state itself lives in Session; everything else here
// is seat binding and transport plumbing.
type MatchState struct {
	Seats     [2]string                   // index 0 => seat 1; empty string means vacant
	Presences map[string]runtime.Presence // userID -> presence for targeted sends
	App       *app.Service
	Session   *domain.Session
	Tokens    *app.TokenService
	Economy   ports.EconomyPort
	Tick      int64

	BotsEnabled      bool
	BotMinDelay      int
	BotMaxDelay      int
	BotAutoFillDelay int
	BotWaitUntil     int64
	LastSoloTick     int64
	Bot              *bot.Agent
	BotUserID        string

	botRng *rand.Rand
}

// seatOf returns the seat number (1 or 2) bound to the user, or 0.
func (ms *MatchState) seatOf(userID string) int {
	for i, uid := range ms.Seats {
		if uid != "" && uid == userID {
			return i + 1
		}
	}
	return 0
}

func (ms *MatchState) openSeatCount() int {
	count := 0
	for _, uid := range ms.Seats {
		if uid == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) humanCount() int {
	count := 0
	for _, uid := range ms.Seats {
		if uid != "" && !bot.IsBot(uid) {
			count++
		}
	}
	return count
}

type matchHandler struct{}

func newMatchHandler() *matchHandler {
	return &matchHandler{}
}

// Inbound message payloads.
type placeBetRequest struct {
	Amount int64 `json:"amount"`
}

type playCardRequest struct {
	SlotIndex int `json:"slot_index"`
}

type powerChoiceRequest struct {
	Choice string `json:"choice"`
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	state := &MatchState{
		Presences: make(map[string]runtime.Presence),
		App:       app.NewService(rng, config.GetStartingCredits(), config.GetWinThreshold()),
		Economy:   NewNakamaEconomyAdapter(nk),
		botRng:    rand.New(rand.NewSource(time.Now().UnixNano() + 1)),
	}

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	if secret := env["heroescards_token_secret"]; secret != "" {
		state.Tokens = app.NewTokenService(secret, "heroescards", 0)
	}
	state.BotsEnabled = env["heroescards_bots_enabled"] == "true"
	state.BotMinDelay, state.BotMaxDelay = config.GetBotDelayBounds()
	state.BotAutoFillDelay = config.GetBotAutoFillDelaySeconds()

	labelBytes, err := json.Marshal(Label{Open: 2, Game: "heroescards", Phase: string(domain.PhaseInit)})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	return state, matchTickRate, string(labelBytes)
}

// MatchJoinAttempt validates whether a presence may take a seat. A valid
// seat token lets a returning client reclaim its seat; otherwise any open
// seat is enough.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	userID := presence.GetUserId()

	if token := metadata["seat_token"]; token != "" && matchState.Tokens != nil {
		claims, err := matchState.Tokens.ParseSeatToken(token)
		if err != nil {
			logger.Warn("MatchJoinAttempt: Invalid seat token from %s: %v", userID, err)
			return state, false, "invalid_seat_token"
		}
		matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
		if claims.UserID != userID || claims.MatchID != matchID {
			return state, false, "seat_token_mismatch"
		}
	}

	// Rejoin is always allowed.
	if matchState.seatOf(userID) != 0 {
		return state, true, ""
	}

	if matchState.openSeatCount() == 0 {
		return state, false, "match_full"
	}

	return state, true, ""
}

// MatchJoin binds presences to seats and starts the session once both
// seats are occupied.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		if matchState.seatOf(userID) != 0 {
			logger.Debug("MatchJoin: User %s rejoined seat %d", userID, matchState.seatOf(userID))
			continue
		}

		assigned := false
		for i, uid := range matchState.Seats {
			if uid == "" {
				matchState.Seats[i] = userID
				assigned = true
				logger.Debug("MatchJoin: User %s bound to seat %d", userID, i+1)
				break
			}
		}
		if !assigned {
			logger.Warn("MatchJoin: User %s joined but no seat was available.", userID)
		}
	}

	mh.startSessionIfReady(ctx, matchState, dispatcher, logger)
	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave vacates seats. The match terminates when no humans remain;
// session state does not survive the connection.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		for i, uid := range matchState.Seats {
			if uid == userID {
				matchState.Seats[i] = ""
				logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, i+1)
				break
			}
		}
	}

	if matchState.humanCount() == 0 {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLoop serializes inbound actions against the session engine and
// drives the bot seat.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		mh.handleMessage(ctx, matchState, dispatcher, logger, msg)
	}

	if matchState.BotsEnabled {
		mh.processBot(ctx, matchState, dispatcher, logger)
	}

	return matchState
}

// handleMessage dispatches one inbound action. Rejected actions are
// dropped without a reply; the sender observes the absence of change via
// its next sync.
func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	userID := msg.GetUserId()
	seat := state.seatOf(userID)
	if seat == 0 {
		logger.Warn("MatchLoop: Message from unseated user %s", userID)
		return
	}
	if state.Session == nil {
		logger.Debug("MatchLoop: Dropping op %d from %s before session start", msg.GetOpCode(), userID)
		return
	}

	var (
		events []app.Event
		err    error
	)

	switch msg.GetOpCode() {
	case OpPlaceBet:
		var req placeBetRequest
		if jsonErr := json.Unmarshal(msg.GetData(), &req); jsonErr != nil {
			logger.Warn("MatchLoop: Invalid place_bet payload from %s: %v", userID, jsonErr)
			return
		}
		events, err = state.App.PlaceBet(state.Session, seat, req.Amount)

	case OpPlayCard:
		var req playCardRequest
		if jsonErr := json.Unmarshal(msg.GetData(), &req); jsonErr != nil {
			logger.Warn("MatchLoop: Invalid play_card payload from %s: %v", userID, jsonErr)
			return
		}
		events, err = state.App.PlayCard(state.Session, seat, req.SlotIndex)

	case OpPowerChoice:
		var req powerChoiceRequest
		if jsonErr := json.Unmarshal(msg.GetData(), &req); jsonErr != nil {
			logger.Warn("MatchLoop: Invalid power_choice payload from %s: %v", userID, jsonErr)
			return
		}
		events, err = state.App.PowerChoice(state.Session, seat, req.Choice)

	case OpContinueGame:
		events, err = state.App.ContinueGame(state.Session)

	default:
		logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		return
	}

	if err != nil {
		logger.Debug("MatchLoop: Rejected op %d from seat %d: %v", msg.GetOpCode(), seat, err)
		return
	}

	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
	mh.updateLabel(state, dispatcher, logger)
}

// startSessionIfReady creates and starts the engine session once both
// seats are bound.
func (mh *matchHandler) startSessionIfReady(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Session != nil || state.openSeatCount() > 0 {
		return
	}

	state.Session = state.App.NewSession()
	events := state.App.StartGame(state.Session)
	logger.Info("Session started with seats %v", state.Seats)
	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
}

// processBot auto-fills a solo lobby after a delay and plays the bot seat
// through the same engine entry points as human messages.
func (mh *matchHandler) processBot(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Session == nil {
		if state.humanCount() == 1 && state.openSeatCount() == 1 {
			if state.LastSoloTick == 0 {
				state.LastSoloTick = state.Tick
				return
			}
			if state.Tick-state.LastSoloTick >= int64(state.BotAutoFillDelay*matchTickRate) {
				mh.seatBot(ctx, state, dispatcher, logger)
				state.LastSoloTick = 0
			}
		} else {
			state.LastSoloTick = 0
		}
		return
	}

	if state.Bot == nil {
		return
	}

	action := state.Bot.Decide(state.Session)
	if action.Kind == bot.ActionNone {
		state.BotWaitUntil = 0
		return
	}

	if state.BotWaitUntil == 0 {
		delay := state.botRng.Intn(state.BotMaxDelay-state.BotMinDelay+1) + state.BotMinDelay
		state.BotWaitUntil = state.Tick + int64(delay*matchTickRate)
		return
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	var (
		events []app.Event
		err    error
	)
	switch action.Kind {
	case bot.ActionPlaceBet:
		events, err = state.App.PlaceBet(state.Session, state.Bot.Seat(), action.Amount)
	case bot.ActionPlayCard:
		events, err = state.App.PlayCard(state.Session, state.Bot.Seat(), action.Slot)
	case bot.ActionPowerChoice:
		events, err = state.App.PowerChoice(state.Session, state.Bot.Seat(), action.Choice)
	case bot.ActionContinue:
		events, err = state.App.ContinueGame(state.Session)
	}
	if err != nil {
		logger.Warn("processBot: Bot action %d rejected: %v", action.Kind, err)
		return
	}

	mh.dispatchEvents(ctx, state, dispatcher, logger, events)
	mh.updateLabel(state, dispatcher, logger)
}

// seatBot fills the open seat with a bot agent and starts the session.
func (mh *matchHandler) seatBot(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for i, uid := range state.Seats {
		if uid != "" {
			continue
		}
		state.BotUserID = bot.NewBotUserID(state.botRng)
		state.Seats[i] = state.BotUserID
		state.Bot = bot.NewAgent(i+1, state.botRng)
		logger.Info("processBot: Added bot %s to seat %d", state.BotUserID, i+1)
		break
	}

	mh.startSessionIfReady(ctx, state, dispatcher, logger)
	mh.updateLabel(state, dispatcher, logger)
}

// dispatchEvents converts engine events to op codes and broadcasts them.
// Targeted events resolve seats to presences; an event aimed only at a bot
// seat is skipped rather than broadcast.
func (mh *matchHandler) dispatchEvents(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		opCode, ok := opCodeForEvent(ev.Kind)
		if !ok {
			logger.Warn("Unknown event kind: %v", ev.Kind)
			continue
		}

		data, err := json.Marshal(ev.Payload)
		if err != nil {
			logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
			continue
		}

		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, seat := range ev.Recipients {
				if seat < 1 || seat > 2 {
					continue
				}
				if p, ok := state.Presences[state.Seats[seat-1]]; ok {
					recipients = append(recipients, p)
				}
			}
			if len(recipients) == 0 {
				continue
			}
		}

		if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
			logger.Error("Failed to broadcast event %v: %v", ev.Kind, err)
		}

		if ev.Kind == app.EventGameOver {
			mh.settleWallets(ctx, state, logger)
		}
	}
}

// settleWallets pushes each human seat's net session result to the
// persistent wallet after game over.
func (mh *matchHandler) settleWallets(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Economy == nil || state.Session == nil {
		return
	}

	starting := config.GetStartingCredits()
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	var updates []ports.WalletUpdate
	for i, uid := range state.Seats {
		if uid == "" || bot.IsBot(uid) {
			continue
		}
		st, ok := state.Session.Seats[i+1]
		if !ok {
			continue
		}
		updates = append(updates, ports.WalletUpdate{
			UserID: uid,
			Amount: st.Credits - starting,
			Metadata: map[string]interface{}{
				"match_id": matchID,
				"reason":   "game_settlement",
			},
		})
	}

	if err := state.Economy.UpdateBalances(ctx, updates); err != nil {
		logger.Error("Failed to settle wallets: %v", err)
	}
}

func opCodeForEvent(kind app.EventKind) (int64, bool) {
	switch kind {
	case app.EventCardSelected:
		return OpCardSelected, true
	case app.EventInitialTurnDetermined:
		return OpInitialTurnDetermined, true
	case app.EventDrManhattanReveal:
		return OpDrManhattanReveal, true
	case app.EventBattleResult:
		return OpBattleResult, true
	case app.EventPhaseChange:
		return OpPhaseChange, true
	case app.EventRoundEnd:
		return OpRoundEnd, true
	case app.EventGameOver:
		return OpGameOver, true
	case app.EventSyncGameState:
		return OpSyncGameState, true
	default:
		return 0, false
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := domain.PhaseInit
	if state.Session != nil {
		phase = state.Session.Phase
	}

	labelBytes, err := json.Marshal(Label{
		Open:  state.openSeatCount(),
		Game:  "heroescards",
		Phase: string(phase),
	})
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

// MatchTerminate runs on match shutdown; session state is discarded.
func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

// MatchSignal handles out-of-band signals; unused.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
