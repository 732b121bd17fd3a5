package tictactoe

import (
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

// Randomizer is the source of chance for random mode. *rand.Rand from
// math/rand/v2 satisfies it.
type Randomizer interface {
	IntN(n int) int
}

// LockedRandomizer serializes access to a Randomizer shared between sessions.
type LockedRandomizer struct {
	mu  sync.Mutex
	rnd Randomizer
}

func NewLockedRandomizer(rnd Randomizer) *LockedRandomizer {
	return &LockedRandomizer{rnd: rnd}
}

func (that *LockedRandomizer) IntN(n int) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.rnd.IntN(n)
}

// GameController runs the session state machine: a human half-move followed by
// the bot's answer.
type GameController struct {
	rnd Randomizer
	now func() time.Time
}

func NewGameController(rnd Randomizer) *GameController {
	return &GameController{
		rnd: rnd,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// NewGame creates an empty game. In random mode the human's side is drawn at random.
func (that *GameController) NewGame(id string, mode entity.Mode) *entity.Game {
	humanSide := entity.PlayerX
	if mode == entity.ModeRandom && that.rnd.IntN(2) == 1 {
		humanSide = entity.PlayerO
	}

	return entity.NewGame(id, mode, humanSide)
}

// MakeTurn applies the human move at pos and, if the game goes on, the bot's reply.
// On error the game is left untouched.
func (that *GameController) MakeTurn(game *entity.Game, pos entity.Position) error {
	if err := game.ConfirmOngoingState(); err != nil {
		return err
	}

	if !game.Board.IsLegal(pos) {
		return fmt.Errorf("%w: cell %s is not available", apperror.ErrIllegalMove, pos)
	}

	if !game.IsRandom() && game.Turn != game.HumanSide {
		return apperror.ErrNotYourTurn
	}

	next := game.Clone()
	if err := that.place(next, pos); err != nil {
		return err
	}

	if !next.IsFinished() {
		if err := that.place(next, that.botMove(next)); err != nil {
			return fmt.Errorf("bot failed to make turn: %w", err)
		}
	}

	next.UpdatedAt = that.now()
	*game = *next

	return nil
}

// place puts one mark on the board and passes the turn.
func (that *GameController) place(game *entity.Game, pos entity.Position) error {
	mark := game.Turn
	if game.IsRandom() {
		mark = that.randomMark()
	}

	board, err := game.Board.Apply(pos, mark)
	if err != nil {
		return err
	}

	game.Board = board
	game.Turn = game.Turn.Opponent()

	return nil
}

func (that *GameController) botMove(game *entity.Game) entity.Position {
	if game.IsRandom() {
		moves := game.Board.AvailableMoves()
		return moves[that.rnd.IntN(len(moves))]
	}

	move, err := ChooseMove(game.Board, game.Turn)
	if err != nil {
		panic(err)
	}

	return move
}

func (that *GameController) randomMark() entity.Mark {
	if that.rnd.IntN(2) == 0 {
		return entity.PlayerX
	}

	return entity.PlayerO
}
