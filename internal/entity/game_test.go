package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
)

func TestNewGame(t *testing.T) {
	// When: a classic game is created for a human playing X
	game := NewGame("game-1", ModeClassic, PlayerX)

	// Then: the board is empty, X moves first and the bot holds O
	assert.Equal(t, "game-1", game.ID)
	assert.Equal(t, Board{}, game.Board)
	assert.Equal(t, PlayerX, game.Turn)
	assert.Equal(t, PlayerO, game.BotSide)
	assert.Equal(t, InProgress, game.Status())
	assert.Equal(t, ResultPending, game.Result())
	assert.False(t, game.IsFinished())
	assert.False(t, game.IsRandom())
	assert.Equal(t, game.CreatedAt, game.UpdatedAt)
	require.NoError(t, game.ConfirmOngoingState())
}

func TestGame_Result(t *testing.T) {
	xWins := Board{{x, x, x}, {o, o, e}, {e, e, e}}
	oWins := Board{{o, o, o}, {x, x, e}, {x, e, e}}
	draw := Board{{x, o, x}, {x, o, o}, {o, x, x}}

	tests := []struct {
		name      string
		humanSide Mark
		board     Board
		want      Result
	}{
		{"human X wins", PlayerX, xWins, ResultHuman},
		{"bot O wins", PlayerX, oWins, ResultBot},
		{"human O wins", PlayerO, oWins, ResultHuman},
		{"bot X wins", PlayerO, xWins, ResultBot},
		{"draw", PlayerX, draw, ResultDraw},
		{"ongoing", PlayerX, Board{}, ResultPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			game := NewGame("g", ModeRandom, tt.humanSide)
			game.Board = tt.board

			assert.Equal(t, tt.want, game.Result())
		})
	}
}

func TestGame_ConfirmOngoingState(t *testing.T) {
	// Given: a game whose board is already won
	game := NewGame("g", ModeClassic, PlayerX)
	game.Board = Board{{x, x, x}, {o, o, e}, {e, e, e}}

	// When: the state is checked
	err := game.ConfirmOngoingState()

	// Then: ErrGameOver is returned with the outcome
	require.ErrorIs(t, err, apperror.ErrGameOver)
	assert.Contains(t, err.Error(), "x_won")
	assert.True(t, game.IsFinished())
}

func TestGame_Clone(t *testing.T) {
	game := NewGame("g", ModeClassic, PlayerX)

	clone := game.Clone()
	clone.Board[1][1] = PlayerX
	clone.Turn = PlayerO

	assert.Equal(t, EmptyCell, game.Board[1][1])
	assert.Equal(t, PlayerX, game.Turn)
}

func TestParseMode(t *testing.T) {
	t.Run("Known names", func(t *testing.T) {
		for name, want := range map[string]Mode{"classic": ModeClassic, "": ModeClassic, "random": ModeRandom} {
			mode, err := ParseMode(name)
			require.NoError(t, err)
			assert.Equal(t, want, mode)
		}
	})

	t.Run("Unknown name", func(t *testing.T) {
		_, err := ParseMode("blitz")

		require.ErrorIs(t, err, apperror.ErrUnknownMode)
	})
}

func TestGame_JSON(t *testing.T) {
	// Given: a game in progress
	game := NewGame("g", ModeRandom, PlayerO)
	game.Board[0][0] = PlayerX
	game.Turn = PlayerO

	// When: it is encoded and decoded
	raw, err := json.Marshal(game)
	require.NoError(t, err)

	var decoded Game
	require.NoError(t, json.Unmarshal(raw, &decoded))

	// Then: everything but the monotonic clock survives
	assert.Equal(t, game.Board, decoded.Board)
	assert.Equal(t, game.Turn, decoded.Turn)
	assert.Equal(t, ModeRandom, decoded.Mode)
	assert.Equal(t, PlayerO, decoded.HumanSide)
	assert.Equal(t, PlayerX, decoded.BotSide)
	assert.True(t, game.CreatedAt.Equal(decoded.CreatedAt))
	assert.Contains(t, string(raw), `"mode":"random"`)
}

func TestOutcome_Text(t *testing.T) {
	for _, outcome := range []Outcome{InProgress, XWins, OWins, Draw} {
		raw, err := outcome.MarshalText()
		require.NoError(t, err)

		var decoded Outcome
		require.NoError(t, decoded.UnmarshalText(raw))
		assert.Equal(t, outcome, decoded)
	}

	var decoded Outcome
	require.ErrorIs(t, decoded.UnmarshalText([]byte("nope")), ErrUnknownOutcome)
}
