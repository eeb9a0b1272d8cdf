package bot

import (
	"math/rand"
	"sort"
	"strings"
	"time"

	"heroescards/internal/domain"
)

// Bot user ids carry a fixed prefix so adapters can recognize bot seats and
// skip private sends to them.
const botIDPrefix = "bot:"

var botNames = []string{"rorschach", "nite-owl", "silk-spectre", "ozymandias", "comedian"}

// IsBot reports whether the given user id represents a bot seat.
func IsBot(userID string) bool {
	return strings.HasPrefix(userID, botIDPrefix)
}

// NewBotUserID returns a bot user id with a picked codename.
func NewBotUserID(rng *rand.Rand) string {
	return botIDPrefix + botNames[rng.Intn(len(botNames))]
}

// ActionKind identifies what the agent wants to do next.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionPlaceBet
	ActionPlayCard
	ActionPowerChoice
	ActionContinue
)

// Action is a decided move for the agent's seat.
type Action struct {
	Kind   ActionKind
	Amount int64
	Slot   int
	Choice string
}

// Agent decides actions for an automated seat by inspecting session state.
// It only reads the state; all moves flow through the engine like human
// messages.
type Agent struct {
	seat int
	rng  *rand.Rand
}

// NewAgent constructs an agent for the given seat with the provided rng or
// a time-seeded default.
func NewAgent(seat int, rng *rand.Rand) *Agent {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Agent{seat: seat, rng: rng}
}

// Seat returns the seat number the agent occupies.
func (a *Agent) Seat() int {
	return a.seat
}

// Decide returns the agent's next move, or an ActionNone when the session
// is not waiting on this seat.
func (a *Agent) Decide(sess *domain.Session) Action {
	st, ok := sess.Seats[a.seat]
	if !ok {
		return Action{}
	}

	switch sess.Phase {
	case domain.PhaseBetting:
		if st.CurrentBet > 0 || st.Credits <= 0 {
			return Action{}
		}
		return Action{Kind: ActionPlaceBet, Amount: a.betAmount(st.Credits)}

	case domain.PhaseInitialCardSelection:
		if a.hasInitialSelection(sess) {
			return Action{}
		}
		slot, ok := a.randomSlot(st.Hand)
		if !ok {
			return Action{}
		}
		return Action{Kind: ActionPlayCard, Slot: slot}

	case domain.PhaseCardSelectionOwn:
		if sess.CurrentPlayer != a.seat {
			return Action{}
		}
		slot, ok := a.randomSlot(st.Hand)
		if !ok {
			return Action{}
		}
		return Action{Kind: ActionPlayCard, Slot: slot}

	case domain.PhaseCardSelectionRival:
		if sess.CurrentPlayer != a.seat {
			return Action{}
		}
		slot, ok := a.randomSlot(sess.Seats[domain.Opponent(a.seat)].Hand)
		if !ok {
			return Action{}
		}
		return Action{Kind: ActionPlayCard, Slot: slot}

	case domain.PhasePowerChoice:
		if sess.CurrentPlayer != a.seat {
			return Action{}
		}
		choice := "add"
		if st.Points >= domain.TargetPoints {
			choice = "subtract"
		}
		return Action{Kind: ActionPowerChoice, Choice: choice}

	case domain.PhaseGameOver:
		if sess.WaitingForContinue {
			return Action{Kind: ActionContinue}
		}
		return Action{}
	}

	return Action{}
}

// betAmount wagers a tenth of the bank, never less than 1 and never more
// than the remaining credits.
func (a *Agent) betAmount(credits int64) int64 {
	amount := credits / 10
	if amount < 1 {
		amount = 1
	}
	if amount > credits {
		amount = credits
	}
	return amount
}

func (a *Agent) hasInitialSelection(sess *domain.Session) bool {
	if a.seat == domain.SeatOne {
		return sess.Pending.Own != nil
	}
	return sess.Pending.Rival != nil
}

// randomSlot picks a uniformly random occupied slot. Keys are sorted first
// so a seeded rng gives reproducible picks in tests.
func (a *Agent) randomSlot(hand map[int]int) (int, bool) {
	if len(hand) == 0 {
		return 0, false
	}
	slots := make([]int, 0, len(hand))
	for slot := range hand {
		slots = append(slots, slot)
	}
	sort.Ints(slots)
	return slots[a.rng.Intn(len(slots))], true
}
