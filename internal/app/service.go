package app

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"heroescards/internal/domain"
)

// revealDurationMs is the suggested client display time for the Dr.
// Manhattan hand reveal.
const revealDurationMs = 5000

// Service contains the Heroes Cards session use-cases operating on domain
// state. It is strictly sequential: the hosting transport must serialize
// calls per session.
type Service struct {
	rng             *rand.Rand
	startingCredits int64
	winThreshold    int64
}

// NewService constructs a Service with the provided rng or a time-seeded
// default. startingCredits and winThreshold configure the wager bank each
// seat opens with and the balance that ends the game.
func NewService(rng *rand.Rand, startingCredits, winThreshold int64) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		rng:             rng,
		startingCredits: startingCredits,
		winThreshold:    winThreshold,
	}
}

// Rejected actions are reported to the adapter as errors; per the game's
// contract they are dropped silently and no event reaches the sender.
var (
	ErrWrongPhase            = errors.New("action not valid in current phase")
	ErrNotYourTurn           = errors.New("actor is not the current player")
	ErrUnknownSeat           = errors.New("seat not part of this session")
	ErrEmptySlot             = errors.New("hand slot is empty or out of range")
	ErrInvalidBet            = errors.New("bet amount negative or above credits")
	ErrAlreadySelected       = errors.New("seat already made its initial selection")
	ErrInvalidChoice         = errors.New("power choice must be add or subtract")
	ErrNotWaitingForContinue = errors.New("session is not waiting for continue")
)

// NewSession returns a fresh session awaiting both seats.
func (s *Service) NewSession() *domain.Session {
	return domain.NewSession(s.startingCredits)
}

// StartGame (re)initializes the session at round 1 with fresh seats and a
// new deal, entering the betting phase. Called once both seats are bound,
// and again on continue after game over.
func (s *Service) StartGame(sess *domain.Session) []Event {
	sess.Seats[domain.SeatOne] = domain.NewSeat(domain.SeatOne, s.startingCredits)
	sess.Seats[domain.SeatTwo] = domain.NewSeat(domain.SeatTwo, s.startingCredits)
	sess.RoundNumber = 1
	sess.TurnNumber = 1
	sess.CurrentPlayer = domain.SeatOne
	sess.InitialWinner = 0
	sess.LastBattle = nil
	sess.ResetPending()
	sess.Phase = domain.PhaseBetting

	s.dealRound(sess)

	events := []Event{s.phaseChangeEvent(sess, "Place your bets!", 0)}
	return append(events, s.syncEvents(sess)...)
}

// PlaceBet commits a wager for a seat during the betting phase. When both
// seats have bet, the session advances to initial card selection.
func (s *Service) PlaceBet(sess *domain.Session, seat int, amount int64) ([]Event, error) {
	if sess.Phase != domain.PhaseBetting {
		return nil, ErrWrongPhase
	}
	st, ok := sess.Seats[seat]
	if !ok {
		return nil, ErrUnknownSeat
	}
	if amount < 0 || amount > st.Credits {
		return nil, ErrInvalidBet
	}

	st.CurrentBet = amount

	var events []Event
	if sess.Seats[domain.SeatOne].CurrentBet > 0 && sess.Seats[domain.SeatTwo].CurrentBet > 0 {
		sess.Phase = domain.PhaseInitialCardSelection
		events = append(events, s.phaseChangeEvent(sess, "Select your initial card", 0))
	}
	return append(events, s.syncEvents(sess)...), nil
}

// PlayCard handles a slot selection in any of the three selection phases.
func (s *Service) PlayCard(sess *domain.Session, seat, slot int) ([]Event, error) {
	if _, ok := sess.Seats[seat]; !ok {
		return nil, ErrUnknownSeat
	}

	switch sess.Phase {
	case domain.PhaseInitialCardSelection:
		return s.selectInitialCard(sess, seat, slot)
	case domain.PhaseCardSelectionOwn:
		if seat != sess.CurrentPlayer {
			return nil, ErrNotYourTurn
		}
		return s.selectOwnCard(sess, seat, slot)
	case domain.PhaseCardSelectionRival:
		if seat != sess.CurrentPlayer {
			return nil, ErrNotYourTurn
		}
		return s.selectRivalCard(sess, seat, slot)
	default:
		return nil, ErrWrongPhase
	}
}

// PowerChoice lets the battle winner add or subtract the power gap from its
// points, then advances the turn.
func (s *Service) PowerChoice(sess *domain.Session, seat int, choice string) ([]Event, error) {
	if sess.Phase != domain.PhasePowerChoice {
		return nil, ErrWrongPhase
	}
	if seat != sess.CurrentPlayer {
		return nil, ErrNotYourTurn
	}
	st, ok := sess.Seats[seat]
	if !ok {
		return nil, ErrUnknownSeat
	}

	gap := sess.LastBattle.PowerGap
	switch choice {
	case "add":
		st.Points += gap
	case "subtract":
		st.Points -= gap
	default:
		return nil, ErrInvalidChoice
	}

	return s.nextTurn(sess), nil
}

// ContinueGame restarts the session at round 1 after game over.
func (s *Service) ContinueGame(sess *domain.Session) ([]Event, error) {
	if !sess.WaitingForContinue {
		return nil, ErrNotWaitingForContinue
	}
	sess.WaitingForContinue = false
	return s.StartGame(sess), nil
}

// dealRound builds a fresh shuffled deck, rolls the joker power and deals
// ten cards into each seat's slots 0..9 from the deck tail.
func (s *Service) dealRound(sess *domain.Session) {
	sess.Deck = domain.NewDeck()
	domain.ShuffleDeck(sess.Deck, s.rng)
	sess.JokerPower = domain.RollJokerPower(s.rng)

	for _, seat := range []int{domain.SeatOne, domain.SeatTwo} {
		st := sess.Seats[seat]
		st.Hand = make(map[int]int, domain.HandSize)
		st.Revealed = make(map[int]int)
		for slot := 0; slot < domain.HandSize; slot++ {
			last := len(sess.Deck) - 1
			st.Hand[slot] = sess.Deck[last]
			sess.Deck = sess.Deck[:last]
		}
	}
}

// selectInitialCard buffers one seat's independent first pick and resolves
// the initial battle once both picks are in.
func (s *Service) selectInitialCard(sess *domain.Session, seat, slot int) ([]Event, error) {
	if (seat == domain.SeatOne && sess.Pending.Own != nil) ||
		(seat == domain.SeatTwo && sess.Pending.Rival != nil) {
		return nil, ErrAlreadySelected
	}

	st := sess.Seats[seat]
	cardID, ok := st.Hand[slot]
	if !ok {
		return nil, ErrEmptySlot
	}

	delete(st.Hand, slot)
	st.Revealed[slot] = cardID

	sel := &domain.Selection{Slot: slot, CardID: cardID}
	if seat == domain.SeatOne {
		sess.Pending.Own = sel
	} else {
		sess.Pending.Rival = sel
	}

	events := []Event{{
		Kind: EventCardSelected,
		Payload: CardSelectedPayload{
			SelectingPlayer: seat,
			TargetPlayer:    seat,
			SlotIndex:       slot,
			CardID:          cardID,
			CardPower:       domain.CardPower(cardID, sess.JokerPower),
			IsOwnSelection:  true,
		},
	}}

	if sess.Pending.Own != nil && sess.Pending.Rival != nil {
		events = append(events, s.resolveInitialBattle(sess)...)
	}
	return events, nil
}

// resolveInitialBattle compares both seats' first picks; the stronger seat
// acts first this round, a tie is broken by coin flip.
func (s *Service) resolveInitialBattle(sess *domain.Session) []Event {
	p1Card := sess.Pending.Own.CardID
	p2Card := sess.Pending.Rival.CardID
	p1Power := domain.CardPower(p1Card, sess.JokerPower)
	p2Power := domain.CardPower(p2Card, sess.JokerPower)

	var starting int
	switch {
	case p1Power > p2Power:
		starting = domain.SeatOne
	case p2Power > p1Power:
		starting = domain.SeatTwo
	default:
		starting = domain.SeatOne + s.rng.Intn(2)
	}

	sess.CurrentPlayer = starting
	sess.InitialWinner = starting
	sess.TurnNumber = 2

	events := []Event{{
		Kind: EventInitialTurnDetermined,
		Payload: InitialTurnDeterminedPayload{
			P1Card:         p1Card,
			P1Power:        p1Power,
			P2Card:         p2Card,
			P2Power:        p2Power,
			StartingPlayer: starting,
		},
	}}

	sess.ResetPending()
	sess.Phase = domain.PhaseCardSelectionOwn
	events = append(events, s.phaseChangeEvent(sess, fmt.Sprintf("Player %d select your card", starting), 0))
	return append(events, s.syncEvents(sess)...)
}

// selectOwnCard is the first half of a standard turn.
func (s *Service) selectOwnCard(sess *domain.Session, seat, slot int) ([]Event, error) {
	st := sess.Seats[seat]
	cardID, ok := st.Hand[slot]
	if !ok {
		return nil, ErrEmptySlot
	}

	delete(st.Hand, slot)
	st.Revealed[slot] = cardID
	sess.Pending.Own = &domain.Selection{Slot: slot, CardID: cardID}
	sess.Pending.OwnSelected = true

	events := []Event{{
		Kind: EventCardSelected,
		Payload: CardSelectedPayload{
			SelectingPlayer: seat,
			TargetPlayer:    seat,
			SlotIndex:       slot,
			CardID:          cardID,
			CardPower:       domain.CardPower(cardID, sess.JokerPower),
			IsOwnSelection:  true,
		},
	}}

	sess.Phase = domain.PhaseCardSelectionRival
	events = append(events, s.phaseChangeEvent(sess, fmt.Sprintf("Player %d select rival's card", seat), 0))
	return append(events, s.syncEvents(sess)...), nil
}

// selectRivalCard is the forced choice on the opponent's behalf; it
// completes the turn's selections and resolves the battle.
func (s *Service) selectRivalCard(sess *domain.Session, seat, slot int) ([]Event, error) {
	rival := domain.Opponent(seat)
	rs := sess.Seats[rival]
	cardID, ok := rs.Hand[slot]
	if !ok {
		return nil, ErrEmptySlot
	}

	delete(rs.Hand, slot)
	rs.Revealed[slot] = cardID
	sess.Pending.Rival = &domain.Selection{Slot: slot, CardID: cardID}
	sess.Pending.RivalSelected = true

	events := []Event{{
		Kind: EventCardSelected,
		Payload: CardSelectedPayload{
			SelectingPlayer: seat,
			TargetPlayer:    rival,
			SlotIndex:       slot,
			CardID:          cardID,
			CardPower:       domain.CardPower(cardID, sess.JokerPower),
			IsOwnSelection:  false,
		},
	}}

	sess.Phase = domain.PhaseBattle
	return append(events, s.resolveBattle(sess)...), nil
}

// resolveBattle compares the turn's two cards. The acting seat winning
// leads into the power choice; a loss or push advances the turn directly.
// Dr. Manhattan as the acting seat's own card reveals the rival's hand
// regardless of the outcome.
func (s *Service) resolveBattle(sess *domain.Session) []Event {
	cur := sess.CurrentPlayer
	rival := domain.Opponent(cur)

	ownCard := sess.Pending.Own.CardID
	rivalCard := sess.Pending.Rival.CardID
	ownPower := domain.CardPower(ownCard, sess.JokerPower)
	rivalPower := domain.CardPower(rivalCard, sess.JokerPower)

	var events []Event
	if ownCard == domain.CardDrManhattan {
		events = append(events, Event{
			Kind: EventDrManhattanReveal,
			Payload: DrManhattanRevealPayload{
				RivalHand: domain.CopyCards(sess.Seats[rival].Hand),
				Duration:  revealDurationMs,
			},
			Recipients: []int{cur},
		})
	}

	winner := 0
	if ownPower > rivalPower {
		winner = cur
	} else if rivalPower > ownPower {
		winner = rival
	}
	gap := ownPower - rivalPower
	if gap < 0 {
		gap = -gap
	}

	result := &domain.BattleResult{Winner: winner, PowerGap: gap}
	if cur == domain.SeatOne {
		result.P1Card, result.P1Power = ownCard, ownPower
		result.P2Card, result.P2Power = rivalCard, rivalPower
	} else {
		result.P1Card, result.P1Power = rivalCard, rivalPower
		result.P2Card, result.P2Power = ownCard, ownPower
	}
	sess.LastBattle = result

	events = append(events, Event{
		Kind: EventBattleResult,
		Payload: BattleResultPayload{
			Winner:          winner,
			PowerDifference: gap,
			P1Card:          result.P1Card,
			P1Power:         result.P1Power,
			P2Card:          result.P2Card,
			P2Power:         result.P2Power,
			TurnNumber:      sess.TurnNumber,
		},
	})

	if winner == cur {
		sess.Phase = domain.PhasePowerChoice
		events = append(events, s.phaseChangeEvent(sess, fmt.Sprintf("Player %d choose power effect", cur), gap))
		return append(events, s.syncEvents(sess)...)
	}
	return append(events, s.nextTurn(sess)...)
}

// nextTurn concludes the current turn: round end after turn 10, otherwise
// the acting seat for the next turn derives from the initial battle winner.
func (s *Service) nextTurn(sess *domain.Session) []Event {
	sess.ResetPending()

	if sess.TurnNumber >= 10 {
		return s.endRound(sess)
	}

	sess.TurnNumber++
	sess.CurrentPlayer = domain.ActingSeatForTurn(sess.InitialWinner, sess.TurnNumber)
	sess.Phase = domain.PhaseCardSelectionOwn

	msg := fmt.Sprintf("Turn %d: Player %d select your card", sess.TurnNumber, sess.CurrentPlayer)
	events := []Event{s.phaseChangeEvent(sess, msg, 0)}
	return append(events, s.syncEvents(sess)...)
}

// endRound settles the round against the target value and either finishes
// the game or starts the next round.
func (s *Service) endRound(sess *domain.Session) []Event {
	sess.Phase = domain.PhaseRoundEnd

	p1 := sess.Seats[domain.SeatOne]
	p2 := sess.Seats[domain.SeatTwo]

	p1Distance := absInt(p1.Points - domain.TargetPoints)
	p2Distance := absInt(p2.Points - domain.TargetPoints)

	roundWinner := 0
	if p1Distance < p2Distance {
		roundWinner = domain.SeatOne
	} else if p2Distance < p1Distance {
		roundWinner = domain.SeatTwo
	}

	// Winner takes the loser's bet; a push forfeits both bets.
	var p1Change, p2Change int64
	switch roundWinner {
	case domain.SeatOne:
		p1Change = p2.CurrentBet
		p2Change = -p2.CurrentBet
	case domain.SeatTwo:
		p1Change = -p1.CurrentBet
		p2Change = p1.CurrentBet
	default:
		p1Change = -p1.CurrentBet
		p2Change = -p2.CurrentBet
	}

	p1.Credits += p1Change
	p2.Credits += p2Change

	events := []Event{{
		Kind: EventRoundEnd,
		Payload: RoundEndPayload{
			RoundWinner:      roundWinner,
			P1FinalPoints:    p1.Points,
			P2FinalPoints:    p2.Points,
			P1DistanceFrom34: p1Distance,
			P2DistanceFrom34: p2Distance,
			CreditChanges:    CreditChanges{P1Change: p1Change, P2Change: p2Change},
			NewCredits:       NewCredits{P1Credits: p1.Credits, P2Credits: p2.Credits},
		},
	}}

	// Game-over conditions are checked in seat order.
	for _, seat := range []int{domain.SeatOne, domain.SeatTwo} {
		credits := sess.Seats[seat].Credits
		if credits >= s.winThreshold {
			return append(events, s.gameOver(sess, seat, GameOverResultThreshold)...)
		}
		if credits <= 0 {
			return append(events, s.gameOver(sess, domain.Opponent(seat), GameOverResultBusted)...)
		}
	}

	return append(events, s.startNextRound(sess)...)
}

// startNextRound carries credits and the round counter forward and resets
// everything else for a fresh deal.
func (s *Service) startNextRound(sess *domain.Session) []Event {
	sess.RoundNumber++
	sess.TurnNumber = 1
	sess.InitialWinner = 0
	sess.LastBattle = nil
	sess.ResetPending()

	for _, st := range sess.Seats {
		st.Points = 0
		st.CurrentBet = 0
	}

	s.dealRound(sess)
	sess.Phase = domain.PhaseBetting

	events := []Event{s.phaseChangeEvent(sess, "New round! Place your bets!", 0)}
	return append(events, s.syncEvents(sess)...)
}

// gameOver enters the terminal phase and opens the continue gate.
func (s *Service) gameOver(sess *domain.Session, winner int, result string) []Event {
	sess.Phase = domain.PhaseGameOver
	sess.WaitingForContinue = true

	events := []Event{{
		Kind: EventGameOver,
		Payload: GameOverPayload{
			Result: result,
			Winner: winner,
			FinalCredits: [2]int64{
				sess.Seats[domain.SeatOne].Credits,
				sess.Seats[domain.SeatTwo].Credits,
			},
			WaitingForContinue: true,
		},
	}}
	return append(events, s.syncEvents(sess)...)
}

func (s *Service) phaseChangeEvent(sess *domain.Session, message string, powerGap int) Event {
	return Event{
		Kind: EventPhaseChange,
		Payload: PhaseChangePayload{
			Phase:           sess.Phase,
			CurrentPlayer:   sess.CurrentPlayer,
			Message:         message,
			TurnNumber:      sess.TurnNumber,
			RoundNumber:     sess.RoundNumber,
			PowerDifference: powerGap,
		},
	}
}

// syncEvents builds the per-seat resynchronization unicasts. Hands are
// never included; only revealed cards cross to the opponent.
func (s *Service) syncEvents(sess *domain.Session) []Event {
	events := make([]Event, 0, 2)
	for _, seat := range []int{domain.SeatOne, domain.SeatTwo} {
		opponent := domain.Opponent(seat)
		st := sess.Seats[seat]
		op := sess.Seats[opponent]

		events = append(events, Event{
			Kind: EventSyncGameState,
			Payload: SyncGameStatePayload{
				PlayerID:              seat,
				Phase:                 sess.Phase,
				CurrentPlayer:         sess.CurrentPlayer,
				RoundNumber:           sess.RoundNumber,
				TurnNumber:            sess.TurnNumber,
				OwnRevealedCards:      domain.CopyCards(st.Revealed),
				OpponentRevealedCards: domain.CopyCards(op.Revealed),
				JokerPower:            sess.JokerPower,
				Credits:               st.Credits,
				Points:                st.Points,
				CurrentBet:            st.CurrentBet,
				OpponentCredits:       op.Credits,
				OpponentPoints:        op.Points,
				OpponentBet:           op.CurrentBet,
				CurrentTurn: TurnFlags{
					OwnCardSelected:   sess.Pending.OwnSelected,
					RivalCardSelected: sess.Pending.RivalSelected,
				},
			},
			Recipients: []int{seat},
		})
	}
	return events
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
