package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
)

// BoardSize is the number of rows and columns of the board.
const BoardSize = 3

// Mark is the content of a single cell.
type Mark uint8

const (
	EmptyCell Mark = iota
	PlayerX
	PlayerO
)

var ErrUnknownMark = errors.New("unknown mark")

func (that Mark) String() string {
	switch that {
	case PlayerX:
		return "X"
	case PlayerO:
		return "O"
	default:
		return ""
	}
}

// Opponent returns the other player's mark. EmptyCell has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

func (that Mark) MarshalText() ([]byte, error) {
	if that > PlayerO {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMark, that)
	}

	return []byte(that.String()), nil
}

func (that *Mark) UnmarshalText(text []byte) error {
	switch string(text) {
	case "":
		*that = EmptyCell
	case "X":
		*that = PlayerX
	case "O":
		*that = PlayerO
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMark, text)
	}

	return nil
}

// Position addresses a cell by row and column, both zero based.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that Position) InRange() bool {
	return that.Row >= 0 && that.Row < BoardSize && that.Col >= 0 && that.Col < BoardSize
}

// Index returns the row-major index of the position.
func (that Position) Index() int {
	return that.Row*BoardSize + that.Col
}

func (that Position) String() string {
	return fmt.Sprintf("(%d,%d)", that.Row, that.Col)
}

// PositionAt converts a row-major index back into a position.
func PositionAt(index int) Position {
	return Position{Row: index / BoardSize, Col: index % BoardSize}
}

// Board is a value type: assigning or passing it copies every cell.
type Board [BoardSize][BoardSize]Mark

// WinLines lists the eight winning lines in evaluation order: rows, columns, diagonals.
var WinLines = [8][3]Position{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

// At returns the mark at pos. Out of range positions read as EmptyCell.
func (that Board) At(pos Position) Mark {
	if !pos.InRange() {
		return EmptyCell
	}

	return that[pos.Row][pos.Col]
}

// IsLegal reports whether pos is on the board and still empty.
func (that Board) IsLegal(pos Position) bool {
	return pos.InRange() && that[pos.Row][pos.Col] == EmptyCell
}

// Apply returns a copy of the board with mark placed at pos.
func (that Board) Apply(pos Position, mark Mark) (Board, error) {
	if !mark.IsPlayer() {
		return that, fmt.Errorf("%w: mark %d can't be placed", apperror.ErrIllegalMove, mark)
	}

	if !pos.InRange() {
		return that, fmt.Errorf("%w: cell %s is out of range", apperror.ErrIllegalMove, pos)
	}

	if that[pos.Row][pos.Col] != EmptyCell {
		return that, fmt.Errorf("%w: cell %s is already occupied", apperror.ErrIllegalMove, pos)
	}

	that[pos.Row][pos.Col] = mark

	return that, nil
}

// Evaluate derives the outcome from the board contents alone.
func (that Board) Evaluate() Outcome {
	if winner := that.Winner(); winner != EmptyCell {
		if winner == PlayerX {
			return XWins
		}
		return OWins
	}

	if that.Full() {
		return Draw
	}

	return InProgress
}

// Winner returns the mark owning the first complete line, or EmptyCell.
func (that Board) Winner() Mark {
	for _, line := range WinLines {
		a, b, c := that.At(line[0]), that.At(line[1]), that.At(line[2])
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	return EmptyCell
}

func (that Board) Full() bool {
	for _, row := range that {
		for _, cell := range row {
			if cell == EmptyCell {
				return false
			}
		}
	}

	return true
}

// AvailableMoves lists every legal position in row-major order.
func (that Board) AvailableMoves() []Position {
	moves := make([]Position, 0, BoardSize*BoardSize)
	for row := range BoardSize {
		for col := range BoardSize {
			if that[row][col] == EmptyCell {
				moves = append(moves, Position{Row: row, Col: col})
			}
		}
	}

	return moves
}

// Count returns how many cells hold mark.
func (that Board) Count(mark Mark) int {
	count := 0
	for _, row := range that {
		for _, cell := range row {
			if cell == mark {
				count++
			}
		}
	}

	return count
}

// Cells returns the board contents in row-major order.
func (that Board) Cells() []Mark {
	cells := make([]Mark, 0, BoardSize*BoardSize)
	for _, row := range that {
		cells = append(cells, row[:]...)
	}

	return cells
}
