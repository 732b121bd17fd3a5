package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

// handleConnect returns the game stored for the session, if there is one.
func (that *Server) handleConnect(ctx context.Context, session string, _ *Message) Response {
	game, err := that.games.GetGame(ctx, session)
	switch {
	case errors.Is(err, apperror.ErrGameNotFound):
		return Response{}
	case err != nil:
		return that.internalError("handleConnect", session, err)
	}

	return Response{Game: newGameView(game)}
}

func (that *Server) handleNewGame(ctx context.Context, session string, msg *Message) Response {
	var payload NewGamePayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return Response{Error: ErrCodeBadRequest}
		}
	}

	mode, err := entity.ParseMode(payload.Mode)
	if err != nil {
		return Response{Error: ErrCodeUnknownMode}
	}

	game, err := that.games.NewGame(ctx, session, mode)
	if err != nil {
		return that.internalError("handleNewGame", session, err)
	}

	return Response{Game: newGameView(game)}
}

func (that *Server) handleGameTurn(ctx context.Context, session string, msg *Message) Response {
	var payload TurnPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Row == nil || payload.Col == nil {
		return Response{Error: ErrCodeBadRequest}
	}

	game, err := that.games.MakeTurn(ctx, session, entity.Position{Row: *payload.Row, Col: *payload.Col})
	switch {
	case err == nil:
		return Response{Game: newGameView(game)}
	case errors.Is(err, apperror.ErrIllegalMove):
		return Response{Game: newGameView(game), Error: ErrCodeIllegalMove}
	case errors.Is(err, apperror.ErrGameOver):
		return Response{Game: newGameView(game), Error: ErrCodeGameOver}
	case errors.Is(err, apperror.ErrNotYourTurn):
		return Response{Game: newGameView(game), Error: ErrCodeNotYourTurn}
	default:
		return that.internalError("handleGameTurn", session, err)
	}
}

func (that *Server) handleGameLeave(ctx context.Context, session string, _ *Message) Response {
	if err := that.games.EndGame(ctx, session); err != nil {
		return that.internalError("handleGameLeave", session, err)
	}

	return Response{}
}

func (that *Server) internalError(method, session string, err error) Response {
	that.logger.Error("failed to process message", "method", method, "session", session, "error", err)

	return Response{Error: ErrCodeInternal}
}
