package tictactoe

import (
	"errors"
	"fmt"
	"math"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

// ErrSearchPrecondition means the search was asked about a finished board or an
// invalid mark. It is a bug in the caller, not a user error.
var ErrSearchPrecondition = errors.New("search precondition violated")

const winScore = 10

// ChooseMove returns the optimal move for mark. Among equally good moves the
// first one in row-major order is returned.
func ChooseMove(board entity.Board, mark entity.Mark) (entity.Position, error) {
	if !mark.IsPlayer() {
		return entity.Position{}, fmt.Errorf("%w: mark %d can't move", ErrSearchPrecondition, mark)
	}

	if status := board.Evaluate(); status.IsTerminal() {
		return entity.Position{}, fmt.Errorf("%w: board is %s", ErrSearchPrecondition, status)
	}

	move, _ := search(board, mark, true)

	return move, nil
}

// search scores every root move and keeps the first one with the highest value.
func search(board entity.Board, mark entity.Mark, prune bool) (entity.Position, int) {
	var (
		bestMove  entity.Position
		bestValue = math.MinInt
		alpha     = -math.MaxInt
	)

	for _, pos := range board.AvailableMoves() {
		child := board
		child[pos.Row][pos.Col] = mark

		value := -negamax(child, mark.Opponent(), 1, -math.MaxInt, -alpha, prune)
		if value > bestValue {
			bestMove, bestValue = pos, value
		}

		if prune && value > alpha {
			alpha = value
		}
	}

	return bestMove, bestValue
}

// negamax returns the value of board for toMove, depth plies below the root.
// A fail-low result is an upper bound that never exceeds alpha, so the root
// never prefers a later move over an earlier one of equal value.
func negamax(board entity.Board, toMove entity.Mark, depth, alpha, beta int, prune bool) int {
	switch winner := board.Winner(); winner {
	case toMove:
		return winScore - depth
	case toMove.Opponent():
		return depth - winScore
	}

	moves := board.AvailableMoves()
	if len(moves) == 0 {
		return 0
	}

	best := math.MinInt
	for _, pos := range moves {
		child := board
		child[pos.Row][pos.Col] = toMove

		value := -negamax(child, toMove.Opponent(), depth+1, -beta, -alpha, prune)
		if value > best {
			best = value
		}

		if !prune {
			continue
		}

		if value > alpha {
			alpha = value
		}

		if alpha >= beta {
			break
		}
	}

	return best
}
