package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

const (
	ActionConnect   = "connect"
	ActionGameNew   = "game:new"
	ActionGameTurn  = "game:turn"
	ActionGameLeave = "game:leave"
)

// Error codes sent to clients.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnknownAction = "unknown_action"
	ErrCodeUnknownMode   = "unknown_mode"
	ErrCodeIllegalMove   = "illegal_move"
	ErrCodeGameOver      = "game_over"
	ErrCodeNotYourTurn   = "not_your_turn"
	ErrCodeInternal      = "internal_error"
)

// Message is a client request.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type NewGamePayload struct {
	Mode string `json:"mode,omitempty"`
}

type TurnPayload struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

// Response echoes the request action.
type Response struct {
	Action     string    `json:"action"`
	SessionKey string    `json:"session_key"`
	Game       *GameView `json:"game,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// GameView is what clients see of a game.
type GameView struct {
	ID        string         `json:"id"`
	Board     entity.Board   `json:"board"`
	Turn      entity.Mark    `json:"turn"`
	Status    entity.Outcome `json:"status"`
	Mode      entity.Mode    `json:"mode"`
	Result    entity.Result  `json:"result"`
	HumanSide entity.Mark    `json:"human_side"`
	BotSide   entity.Mark    `json:"bot_side"`
}

func newGameView(game *entity.Game) *GameView {
	if game == nil {
		return nil
	}

	return &GameView{
		ID:        game.ID,
		Board:     game.Board,
		Turn:      game.Turn,
		Status:    game.Status(),
		Mode:      game.Mode,
		Result:    game.Result(),
		HumanSide: game.HumanSide,
		BotSide:   game.BotSide,
	}
}
