package domain

// Seat numbers are fixed for the two-player session.
const (
	SeatOne = 1
	SeatTwo = 2

	// TargetPoints is the value each seat's points are scored against at
	// round settlement.
	TargetPoints = 34
)

// Opponent returns the other seat number.
func Opponent(seat int) int {
	if seat == SeatOne {
		return SeatTwo
	}
	return SeatOne
}

// Seat holds per-player state within a session. Credits persist across
// rounds; points, bet, hand and revealed cards are per-round.
type Seat struct {
	Number     int
	Credits    int64
	Points     int
	CurrentBet int64
	Hand       map[int]int // slot -> card id, cards not yet played
	Revealed   map[int]int // slot -> card id, cards played this round
}

// NewSeat returns a fresh seat with the given starting credits.
func NewSeat(number int, credits int64) *Seat {
	return &Seat{
		Number:   number,
		Credits:  credits,
		Hand:     make(map[int]int),
		Revealed: make(map[int]int),
	}
}

// Selection records a chosen hand slot and the card that occupied it.
type Selection struct {
	Slot   int
	CardID int
}

// PendingTurn buffers the in-flight turn's partial selections. A nil
// selection means "not chosen yet"; card id 0 is a real card (the Joker),
// so absence must never be encoded as an integer sentinel.
type PendingTurn struct {
	Own   *Selection
	Rival *Selection

	// Completion flags mirrored to clients; set during standard turns only.
	OwnSelected   bool
	RivalSelected bool
}

// BattleResult captures the most recently resolved battle. Winner 0 means a
// push (equal power).
type BattleResult struct {
	Winner   int
	PowerGap int
	P1Card   int
	P1Power  int
	P2Card   int
	P2Power  int
}

// Session is the root aggregate for one two-seat game instance. It is owned
// and mutated exclusively by the session engine.
type Session struct {
	Phase         Phase
	CurrentPlayer int
	// InitialWinner is the seat that won the round's initial battle; turn
	// order for the rest of the round derives from it.
	InitialWinner int
	RoundNumber   int
	TurnNumber    int
	JokerPower    int
	Deck          []int
	Seats         map[int]*Seat
	Pending       PendingTurn
	LastBattle    *BattleResult

	// WaitingForContinue gates the continue action in the terminal phase.
	WaitingForContinue bool
}

// NewSession returns a session in the init phase with both seats at the
// given starting credits.
func NewSession(startingCredits int64) *Session {
	return &Session{
		Phase:         PhaseInit,
		CurrentPlayer: SeatOne,
		RoundNumber:   1,
		TurnNumber:    1,
		Seats: map[int]*Seat{
			SeatOne: NewSeat(SeatOne, startingCredits),
			SeatTwo: NewSeat(SeatTwo, startingCredits),
		},
	}
}

// ResetPending clears the in-flight turn selections.
func (s *Session) ResetPending() {
	s.Pending = PendingTurn{}
}

// ActingSeatForTurn returns the seat that acts on the given standard turn:
// even turns belong to the initial battle winner, odd turns to the other
// seat.
func ActingSeatForTurn(initialWinner, turn int) int {
	if turn%2 == 0 {
		return initialWinner
	}
	return Opponent(initialWinner)
}

// CopyCards returns a shallow copy of a slot->card mapping.
func CopyCards(cards map[int]int) map[int]int {
	out := make(map[int]int, len(cards))
	for slot, id := range cards {
		out[slot] = id
	}
	return out
}
