package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/render"
)

const (
	CommandStart   = "/start"
	CommandNewGame = "/newgame"
	CommandHelp    = "/help"

	ParseModeMarkdown = "Markdown"
)

// Update is one inbound event from the chat: either a text message or a button press.
type Update struct {
	SessionKey string `json:"session_key"`
	ChatID     int64  `json:"chat_id"`
	MessageID  int64  `json:"message_id,omitempty"`
	Text       string `json:"text,omitempty"`
	Callback   string `json:"callback,omitempty"`
	CallbackID string `json:"callback_id,omitempty"`
}

func (that Update) IsCallback() bool {
	return that.Callback != ""
}

// Reply is what the bot wants to show in response to an Update.
type Reply struct {
	ChatID    int64           `json:"chat_id"`
	Text      string          `json:"text,omitempty"`
	ParseMode string          `json:"parse_mode,omitempty"`
	Keyboard  render.Keyboard `json:"keyboard,omitempty"`

	// EditMessageID replaces an existing message instead of sending a new one.
	EditMessageID int64 `json:"edit_message_id,omitempty"`

	CallbackID string `json:"callback_id,omitempty"`
	Alert      string `json:"alert,omitempty"`
	ShowAlert  bool   `json:"show_alert,omitempty"`
}

// HasMessage reports whether the reply carries a message to send or edit.
func (that Reply) HasMessage() bool {
	return that.Text != ""
}

type gameManager interface {
	NewGame(ctx context.Context, key string, mode entity.Mode) (*entity.Game, error)
	RestartGame(ctx context.Context, key string) (*entity.Game, error)
	MakeTurn(ctx context.Context, key string, pos entity.Position) (*entity.Game, error)
}

// Handler routes commands and button presses to the game manager.
type Handler struct {
	logger   *slog.Logger
	games    gameManager
	renderer *render.Renderer
}

func NewHandler(logger *slog.Logger, games gameManager, renderer *render.Renderer) *Handler {
	return &Handler{
		logger:   logger.With("component", "bot"),
		games:    games,
		renderer: renderer,
	}
}

// Handle never fails: storage problems are logged and shown as an alert.
func (that *Handler) Handle(ctx context.Context, update Update) Reply {
	reply := Reply{ChatID: update.ChatID, CallbackID: update.CallbackID}

	if update.IsCallback() {
		that.handleCallback(ctx, update, &reply)
	} else {
		that.handleCommand(ctx, update, &reply)
	}

	return reply
}

func (that *Handler) handleCommand(ctx context.Context, update Update, reply *Reply) {
	command, _, _ := strings.Cut(strings.TrimSpace(update.Text), " ")
	command, _, _ = strings.Cut(command, "@")

	switch command {
	case CommandStart:
		reply.Text = that.renderer.Text("start.welcome", nil)
		reply.Keyboard = that.renderer.StartKeyboard()
	case CommandNewGame:
		game, err := that.games.NewGame(ctx, update.SessionKey, entity.ModeClassic)
		if err != nil {
			that.fail(update, reply, err)
			return
		}

		reply.Text = that.renderer.Text("game.started.classic", that.renderer.DataFor(game))
		reply.Keyboard = that.renderer.GameKeyboard(game)
	case CommandHelp:
		reply.Text = that.renderer.Text("help.commands", nil)
	default:
		if strings.HasPrefix(command, "/") {
			reply.Text = that.renderer.Text("help.commands", nil)
		}
	}
}

func (that *Handler) handleCallback(ctx context.Context, update Update, reply *Reply) {
	reply.EditMessageID = update.MessageID

	switch update.Callback {
	case render.CallbackSelectMode, render.CallbackPlayVsBot:
		reply.Text = that.renderer.Text("mode.select", that.renderer.DefaultData())
		reply.ParseMode = ParseModeMarkdown
		reply.Keyboard = that.renderer.ModeKeyboard()
	case render.CallbackBackToStart:
		reply.Text = that.renderer.Text("start.menu", nil)
		reply.Keyboard = that.renderer.StartKeyboard()
	case render.CallbackHowToPlay:
		reply.Text = that.renderer.Text("help.how_to_play", that.renderer.DefaultData())
		reply.Keyboard = that.renderer.StartKeyboard()
	case render.CallbackModeClassic, render.CallbackModeRandom:
		mode, _ := entity.ParseMode(strings.TrimPrefix(update.Callback, "mode_"))

		game, err := that.games.NewGame(ctx, update.SessionKey, mode)
		if err != nil {
			that.fail(update, reply, err)
			return
		}

		that.showGame(reply, "game.started."+mode.String(), game)
		reply.Alert = that.renderer.Text("alert.game_started", nil)
	case render.CallbackNewGame:
		game, err := that.games.RestartGame(ctx, update.SessionKey)
		if err != nil {
			that.fail(update, reply, err)
			return
		}

		that.showGame(reply, "game.restarted."+game.Mode.String(), game)
		reply.Alert = that.renderer.Text("alert.new_game", nil)
	default:
		pos, ok := render.ParseMoveData(update.Callback)
		if !ok {
			that.alert(reply, "alert.unknown_action")
			return
		}

		that.handleMove(ctx, update, reply, pos)
	}
}

func (that *Handler) handleMove(ctx context.Context, update Update, reply *Reply, pos entity.Position) {
	game, err := that.games.MakeTurn(ctx, update.SessionKey, pos)

	switch {
	case err == nil:
		that.showGame(reply, render.StatusKey(game), game)
	case errors.Is(err, apperror.ErrGameOver):
		that.alert(reply, "alert.game_over")
	case errors.Is(err, apperror.ErrIllegalMove):
		that.alert(reply, "alert.illegal_move")
	case errors.Is(err, apperror.ErrNotYourTurn):
		that.alert(reply, "alert.not_your_turn")
	default:
		that.fail(update, reply, err)
	}
}

func (that *Handler) showGame(reply *Reply, key string, game *entity.Game) {
	reply.Text = that.renderer.Text(key, that.renderer.DataFor(game))
	reply.Keyboard = that.renderer.GameKeyboard(game)
}

// alert answers a button press with a popup and leaves the message as it is.
// Without a button press there is nothing to attach a popup to, so the text is sent.
func (that *Handler) alert(reply *Reply, key string) {
	text := that.renderer.Text(key, nil)

	reply.Keyboard = nil
	reply.EditMessageID = 0

	if reply.CallbackID == "" {
		reply.Text = text
		return
	}

	reply.Text = ""
	reply.Alert = text
	reply.ShowAlert = true
}

func (that *Handler) fail(update Update, reply *Reply, err error) {
	that.logger.Error("failed to handle update", "session", update.SessionKey, "callback", update.Callback, "text", update.Text, "error", err)
	that.alert(reply, "alert.failure")
}
