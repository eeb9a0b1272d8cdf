package domain

// Phase represents the stage of the session state machine.
type Phase string

const (
	// PhaseInit is the pre-game state before both seats are bound.
	PhaseInit Phase = "init"
	// PhaseBetting waits for both seats to commit a wager.
	PhaseBetting Phase = "betting"
	// PhaseInitialCardSelection waits for each seat's independent first pick.
	PhaseInitialCardSelection Phase = "initial_card_selection"
	// PhaseCardSelectionOwn waits for the acting seat to pick one of its own cards.
	PhaseCardSelectionOwn Phase = "card_selection_own"
	// PhaseCardSelectionRival waits for the acting seat to pick one of the rival's cards.
	PhaseCardSelectionRival Phase = "card_selection_rival"
	// PhaseBattle is the synchronous comparison of the two picked cards.
	PhaseBattle Phase = "battle"
	// PhasePowerChoice waits for the battle winner to add or subtract the power gap.
	PhasePowerChoice Phase = "power_choice"
	// PhaseRoundEnd is the transient settlement stage after turn 10.
	PhaseRoundEnd Phase = "round_end"
	// PhaseGameOver is the terminal state until a continue action restarts the game.
	PhaseGameOver Phase = "game_over"
)
