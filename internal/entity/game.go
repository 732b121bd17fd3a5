package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
)

// Outcome is the state of a game as derived from its board.
type Outcome uint8

const (
	InProgress Outcome = iota
	XWins
	OWins
	Draw
)

var ErrUnknownOutcome = errors.New("unknown outcome")

var outcomeNames = [...]string{
	InProgress: "in_progress",
	XWins:      "x_won",
	OWins:      "o_won",
	Draw:       "draw",
}

func (that Outcome) String() string {
	if int(that) < len(outcomeNames) {
		return outcomeNames[that]
	}

	return fmt.Sprintf("outcome(%d)", uint8(that))
}

func (that Outcome) IsTerminal() bool {
	return that != InProgress
}

func (that Outcome) MarshalText() ([]byte, error) {
	if int(that) >= len(outcomeNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownOutcome, that)
	}

	return []byte(outcomeNames[that]), nil
}

func (that *Outcome) UnmarshalText(text []byte) error {
	for i, name := range outcomeNames {
		if name == string(text) {
			*that = Outcome(i)
			return nil
		}
	}

	return fmt.Errorf("%w: %q", ErrUnknownOutcome, text)
}

// Mode selects how the automated player behaves.
type Mode uint8

const (
	// ModeClassic: the human plays X and opens, the bot answers with minimax.
	ModeClassic Mode = iota
	// ModeRandom: every half-move places a random mark and the bot picks a random cell.
	ModeRandom
)

func (that Mode) String() string {
	switch that {
	case ModeClassic:
		return "classic"
	case ModeRandom:
		return "random"
	default:
		return fmt.Sprintf("mode(%d)", uint8(that))
	}
}

// ParseMode accepts the textual mode names used by clients and config.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "classic", "":
		return ModeClassic, nil
	case "random":
		return ModeRandom, nil
	default:
		return ModeClassic, fmt.Errorf("%w: %q", apperror.ErrUnknownMode, s)
	}
}

func (that Mode) MarshalText() ([]byte, error) {
	if that > ModeRandom {
		return nil, fmt.Errorf("%w: %d", apperror.ErrUnknownMode, that)
	}

	return []byte(that.String()), nil
}

func (that *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}

	*that = mode

	return nil
}

// Game is one session between a human and the bot.
type Game struct {
	ID        string    `json:"id"`
	Board     Board     `json:"board"`
	Turn      Mark      `json:"turn"`
	Mode      Mode      `json:"mode"`
	HumanSide Mark      `json:"human_side"`
	BotSide   Mark      `json:"bot_side"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewGame returns an empty game with X to move.
func NewGame(id string, mode Mode, humanSide Mark) *Game {
	now := time.Now().UTC()

	return &Game{
		ID:        id,
		Turn:      PlayerX,
		Mode:      mode,
		HumanSide: humanSide,
		BotSide:   humanSide.Opponent(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Status is always computed from the board, never stored.
func (that *Game) Status() Outcome {
	return that.Board.Evaluate()
}

func (that *Game) IsFinished() bool {
	return that.Status().IsTerminal()
}

func (that *Game) IsRandom() bool {
	return that.Mode == ModeRandom
}

// ConfirmOngoingState returns ErrGameOver for a terminal game.
func (that *Game) ConfirmOngoingState() error {
	if status := that.Status(); status.IsTerminal() {
		return fmt.Errorf("%w: %s", apperror.ErrGameOver, status)
	}

	return nil
}

// Clone returns an independent copy of the game.
func (that *Game) Clone() *Game {
	clone := *that
	return &clone
}
