package nakama

import (
	"context"
	"testing"

	"heroescards/internal/app"
	"heroescards/internal/domain"
	"heroescards/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type mockPresence struct {
	userID string
}

func (p mockPresence) GetUserId() string                 { return p.userID }
func (p mockPresence) GetSessionId() string              { return "session-" + p.userID }
func (p mockPresence) GetNodeId() string                 { return "node" }
func (p mockPresence) GetHidden() bool                   { return false }
func (p mockPresence) GetPersistence() bool              { return false }
func (p mockPresence) GetUsername() string               { return p.userID }
func (p mockPresence) GetStatus() string                 { return "" }
func (p mockPresence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }

type mockMatchData struct {
	mockPresence
	opCode int64
	data   []byte
}

func (m mockMatchData) GetOpCode() int64      { return m.opCode }
func (m mockMatchData) GetData() []byte       { return m.data }
func (m mockMatchData) GetReliable() bool     { return true }
func (m mockMatchData) GetReceiveTime() int64 { return 0 }

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	broadcastCount int
	labelUpdates   int
	lastOpCode     int64
	lastData       []byte
	opCodes        []int64
	lastRecipients []runtime.Presence
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	md.broadcastCount++
	md.lastOpCode = opCode
	md.lastData = append([]byte(nil), data...)
	md.opCodes = append(md.opCodes, opCode)
	md.lastRecipients = presences
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	return nil
}

type mockEconomy struct {
	updates []ports.WalletUpdate
}

func (me *mockEconomy) GetBalance(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (me *mockEconomy) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	me.updates = append(me.updates, updates...)
	return nil
}

func newTestMatch(t *testing.T) (*matchHandler, *MatchState) {
	t.Helper()
	mh := newMatchHandler()
	stateIface, _, label := mh.MatchInit(context.Background(), noopLogger{}, nil, nil, nil)
	if label == "" {
		t.Fatal("MatchInit returned empty label")
	}
	state, ok := stateIface.(*MatchState)
	if !ok {
		t.Fatal("MatchInit did not return a *MatchState")
	}
	return mh, state
}

func joinBoth(t *testing.T, mh *matchHandler, state *MatchState, dispatcher *mockDispatcher) *MatchState {
	t.Helper()
	out := mh.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state,
		[]runtime.Presence{mockPresence{userID: "user-1"}, mockPresence{userID: "user-2"}})
	return out.(*MatchState)
}

func TestMatchStateSeatHelpers(t *testing.T) {
	state := &MatchState{Seats: [2]string{"user-1", "bot:rorschach"}}

	if got := state.seatOf("user-1"); got != 1 {
		t.Errorf("seatOf(user-1) = %d, want 1", got)
	}
	if got := state.seatOf("bot:rorschach"); got != 2 {
		t.Errorf("seatOf(bot) = %d, want 2", got)
	}
	if got := state.seatOf("stranger"); got != 0 {
		t.Errorf("seatOf(stranger) = %d, want 0", got)
	}
	if got := state.openSeatCount(); got != 0 {
		t.Errorf("openSeatCount = %d, want 0", got)
	}
	if got := state.humanCount(); got != 1 {
		t.Errorf("humanCount = %d, want 1", got)
	}

	state.Seats[1] = ""
	if got := state.openSeatCount(); got != 1 {
		t.Errorf("openSeatCount after vacate = %d, want 1", got)
	}
}

func TestMatchJoinStartsSessionWhenBothSeated(t *testing.T) {
	mh, state := newTestMatch(t)
	dispatcher := &mockDispatcher{}

	out := mh.MatchJoin(context.Background(), noopLogger{}, nil, nil, dispatcher, 1, state,
		[]runtime.Presence{mockPresence{userID: "user-1"}})
	state = out.(*MatchState)

	if state.Session != nil {
		t.Fatal("session started with one seat vacant")
	}

	state = joinBoth(t, mh, state, dispatcher)

	if state.Session == nil {
		t.Fatal("session not started with both seats bound")
	}
	if state.Session.Phase != domain.PhaseBetting {
		t.Errorf("phase = %q, want %q", state.Session.Phase, domain.PhaseBetting)
	}
	if state.seatOf("user-1") != 1 || state.seatOf("user-2") != 2 {
		t.Errorf("seats = %v", state.Seats)
	}

	// Start emits a phase_change broadcast plus one private sync per seat.
	var phaseChanges, syncs int
	for _, op := range dispatcher.opCodes {
		switch op {
		case OpPhaseChange:
			phaseChanges++
		case OpSyncGameState:
			syncs++
		}
	}
	if phaseChanges != 1 || syncs != 2 {
		t.Errorf("broadcasts = %v, want 1 phase_change and 2 syncs", dispatcher.opCodes)
	}
	if dispatcher.labelUpdates == 0 {
		t.Error("label not updated after join")
	}
}

func TestMatchJoinAttemptRejectsWhenFull(t *testing.T) {
	mh, state := newTestMatch(t)
	state.Seats = [2]string{"user-1", "user-2"}

	_, allowed, reason := mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1, state,
		mockPresence{userID: "user-3"}, nil)
	if allowed {
		t.Fatal("third player admitted to a full match")
	}
	if reason != "match_full" {
		t.Errorf("reason = %q, want match_full", reason)
	}

	// A seated player may always rejoin.
	_, allowed, _ = mh.MatchJoinAttempt(context.Background(), noopLogger{}, nil, nil, &mockDispatcher{}, 1, state,
		mockPresence{userID: "user-1"}, nil)
	if !allowed {
		t.Error("seated player denied rejoin")
	}
}

func TestMatchLoopHandlesBets(t *testing.T) {
	mh, state := newTestMatch(t)
	dispatcher := &mockDispatcher{}
	state = joinBoth(t, mh, state, dispatcher)

	messages := []runtime.MatchData{
		mockMatchData{mockPresence: mockPresence{userID: "user-1"}, opCode: OpPlaceBet, data: []byte(`{"amount":10}`)},
		mockMatchData{mockPresence: mockPresence{userID: "user-2"}, opCode: OpPlaceBet, data: []byte(`{"amount":20}`)},
	}
	out := mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, messages)
	state = out.(*MatchState)

	if state.Session.Phase != domain.PhaseInitialCardSelection {
		t.Fatalf("phase = %q, want %q", state.Session.Phase, domain.PhaseInitialCardSelection)
	}
	if state.Session.Seats[domain.SeatOne].CurrentBet != 10 ||
		state.Session.Seats[domain.SeatTwo].CurrentBet != 20 {
		t.Error("bets not applied to session")
	}
}

func TestMatchLoopDropsRejectedActions(t *testing.T) {
	mh, state := newTestMatch(t)
	dispatcher := &mockDispatcher{}
	state = joinBoth(t, mh, state, dispatcher)
	before := dispatcher.broadcastCount

	messages := []runtime.MatchData{
		// Bet above the starting credits.
		mockMatchData{mockPresence: mockPresence{userID: "user-1"}, opCode: OpPlaceBet, data: []byte(`{"amount":100000}`)},
		// Unknown op code.
		mockMatchData{mockPresence: mockPresence{userID: "user-2"}, opCode: 99, data: nil},
		// Malformed payload.
		mockMatchData{mockPresence: mockPresence{userID: "user-2"}, opCode: OpPlaceBet, data: []byte(`{`)},
		// Message from an unseated user.
		mockMatchData{mockPresence: mockPresence{userID: "stranger"}, opCode: OpPlaceBet, data: []byte(`{"amount":10}`)},
	}
	out := mh.MatchLoop(context.Background(), noopLogger{}, nil, nil, dispatcher, 2, state, messages)
	state = out.(*MatchState)

	if dispatcher.broadcastCount != before {
		t.Errorf("rejected actions caused %d broadcasts", dispatcher.broadcastCount-before)
	}
	if state.Session.Phase != domain.PhaseBetting {
		t.Errorf("phase = %q, rejected actions must not advance it", state.Session.Phase)
	}
	if state.Session.Seats[domain.SeatOne].CurrentBet != 0 {
		t.Error("rejected bet mutated session state")
	}
}

func TestDispatchEventsResolvesSeatRecipients(t *testing.T) {
	mh, state := newTestMatch(t)
	dispatcher := &mockDispatcher{}
	state = joinBoth(t, mh, state, dispatcher)
	dispatcher.opCodes = nil
	dispatcher.broadcastCount = 0

	mh.dispatchEvents(context.Background(), state, dispatcher, noopLogger{}, []app.Event{
		{
			Kind:       app.EventDrManhattanReveal,
			Payload:    app.DrManhattanRevealPayload{RivalHand: map[int]int{0: 3}, Duration: 5000},
			Recipients: []int{2},
		},
	})

	if dispatcher.broadcastCount != 1 {
		t.Fatalf("broadcasts = %d, want 1", dispatcher.broadcastCount)
	}
	if dispatcher.lastOpCode != OpDrManhattanReveal {
		t.Errorf("op = %d, want %d", dispatcher.lastOpCode, OpDrManhattanReveal)
	}
	if len(dispatcher.lastRecipients) != 1 || dispatcher.lastRecipients[0].GetUserId() != "user-2" {
		t.Errorf("recipients = %v, want only user-2", dispatcher.lastRecipients)
	}
}

func TestDispatchEventsSkipsBotOnlyRecipients(t *testing.T) {
	mh, state := newTestMatch(t)
	dispatcher := &mockDispatcher{}
	// Seat 2 is a bot with no presence.
	state.Seats = [2]string{"user-1", "bot:rorschach"}
	state.Presences["user-1"] = mockPresence{userID: "user-1"}
	state.Session = state.App.NewSession()

	mh.dispatchEvents(context.Background(), state, dispatcher, noopLogger{}, []app.Event{
		{
			Kind:       app.EventSyncGameState,
			Payload:    app.SyncGameStatePayload{PlayerID: 2},
			Recipients: []int{2},
		},
	})

	if dispatcher.broadcastCount != 0 {
		t.Errorf("private event for a bot seat was broadcast %d times", dispatcher.broadcastCount)
	}
}

func TestGameOverSettlesHumanWallets(t *testing.T) {
	mh, state := newTestMatch(t)
	dispatcher := &mockDispatcher{}
	economy := &mockEconomy{}
	state.Economy = economy
	state.Seats = [2]string{"user-1", "bot:comedian"}
	state.Presences["user-1"] = mockPresence{userID: "user-1"}
	state.Session = state.App.NewSession()
	state.Session.Seats[domain.SeatOne].Credits = 1010
	state.Session.Seats[domain.SeatTwo].Credits = 40

	mh.dispatchEvents(context.Background(), state, dispatcher, noopLogger{}, []app.Event{
		{Kind: app.EventGameOver, Payload: app.GameOverPayload{Result: app.GameOverResultThreshold, Winner: 1}},
	})

	if len(economy.updates) != 1 {
		t.Fatalf("wallet updates = %d, want 1 (bot seat skipped)", len(economy.updates))
	}
	up := economy.updates[0]
	if up.UserID != "user-1" {
		t.Errorf("settled user = %q", up.UserID)
	}
	if up.Amount != 910 {
		t.Errorf("settled amount = %d, want net 910", up.Amount)
	}
	if up.Metadata["reason"] != "game_settlement" {
		t.Errorf("metadata = %v", up.Metadata)
	}
}

func TestOpCodeForEvent(t *testing.T) {
	tests := []struct {
		kind app.EventKind
		want int64
	}{
		{app.EventCardSelected, OpCardSelected},
		{app.EventInitialTurnDetermined, OpInitialTurnDetermined},
		{app.EventDrManhattanReveal, OpDrManhattanReveal},
		{app.EventBattleResult, OpBattleResult},
		{app.EventPhaseChange, OpPhaseChange},
		{app.EventRoundEnd, OpRoundEnd},
		{app.EventGameOver, OpGameOver},
		{app.EventSyncGameState, OpSyncGameState},
	}
	for _, tt := range tests {
		got, ok := opCodeForEvent(tt.kind)
		if !ok || got != tt.want {
			t.Errorf("opCodeForEvent(%q) = %d, want %d", tt.kind, got, tt.want)
		}
	}
	if _, ok := opCodeForEvent("unknown"); ok {
		t.Error("unknown kind must not map to an op code")
	}
}

func TestProcessBotAutoFillsSoloLobby(t *testing.T) {
	mh, state := newTestMatch(t)
	dispatcher := &mockDispatcher{}
	state.BotsEnabled = true
	state.BotAutoFillDelay = 2
	state.Seats[0] = "user-1"
	state.Presences["user-1"] = mockPresence{userID: "user-1"}

	// First pass only arms the solo timer.
	state.Tick = 5
	mh.processBot(context.Background(), state, dispatcher, noopLogger{})
	if state.Session != nil || state.Bot != nil {
		t.Fatal("bot seated before the auto-fill delay elapsed")
	}
	if state.LastSoloTick != 5 {
		t.Fatalf("solo timer = %d, want 5", state.LastSoloTick)
	}

	state.Tick = 5 + int64(state.BotAutoFillDelay*matchTickRate)
	mh.processBot(context.Background(), state, dispatcher, noopLogger{})

	if state.Bot == nil || state.Bot.Seat() != 2 {
		t.Fatal("bot not seated after the delay")
	}
	if state.openSeatCount() != 0 {
		t.Errorf("open seats = %d, want 0", state.openSeatCount())
	}
	if state.Session == nil || state.Session.Phase != domain.PhaseBetting {
		t.Fatal("session not started after auto-fill")
	}
	if dispatcher.broadcastCount == 0 || dispatcher.labelUpdates == 0 {
		t.Error("expected session start broadcast and label update after auto-fill")
	}
}

func TestMatchLeaveTerminatesWithoutHumans(t *testing.T) {
	mh, state := newTestMatch(t)
	dispatcher := &mockDispatcher{}
	state = joinBoth(t, mh, state, dispatcher)

	out := mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 3, state,
		[]runtime.Presence{mockPresence{userID: "user-1"}})
	state, ok := out.(*MatchState)
	if !ok {
		t.Fatal("match terminated while a human remains")
	}
	if state.seatOf("user-1") != 0 {
		t.Error("seat not freed on leave")
	}

	out = mh.MatchLeave(context.Background(), noopLogger{}, nil, nil, dispatcher, 4, state,
		[]runtime.Presence{mockPresence{userID: "user-2"}})
	if out != nil {
		t.Error("match must terminate when the last human leaves")
	}
}
