package apperror

import "errors"

var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrGameOver     = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrGameNotFound = errors.New("game not found")
	ErrUnknownMode  = errors.New("unknown game mode")
)
